package catalog

import (
	"context"
	"time"

	"github.com/coder/quartz"

	"chart-engine-service/internal/charts/core/domain"
)

const (
	week  = 7 * 24 * time.Hour
	month = 30 * 24 * time.Hour
	year  = 365 * 24 * time.Hour
)

var ActiveUsersSchema = domain.MustSchema("active-users", false,
	domain.UniqueColumn("readWrite"),
	domain.UniqueColumn("read"),
	domain.UniqueColumn("write"),
	domain.UniqueColumn("registeredWithinWeek"),
	domain.UniqueColumn("registeredWithinMonth"),
	domain.UniqueColumn("registeredWithinYear"),
	domain.UniqueColumn("registeredOutsideWeek"),
	domain.UniqueColumn("registeredOutsideMonth"),
	domain.UniqueColumn("registeredOutsideYear"),
)

// ActiveUsersChart counts distinct local users that read or wrote, split by
// account age. readWrite holds users that did either. Remote users are
// ignored, and users with an unknown CreatedAt are left out of the
// registration columns.
type ActiveUsersChart struct {
	chart
	clock quartz.Clock
}

func newActiveUsersChart(d Deps) *ActiveUsersChart {
	c := &ActiveUsersChart{clock: d.Clock}
	c.init(d, ActiveUsersSchema, nil)
	return c
}

func (c *ActiveUsersChart) Read(ctx context.Context, u User) {
	if u.Host != "" {
		return
	}
	c.commit(ctx, "", c.changes(u).Put("read", u.ID))
}

func (c *ActiveUsersChart) Write(ctx context.Context, u User) {
	if u.Host != "" {
		return
	}
	c.commit(ctx, "", c.changes(u).Put("write", u.ID))
}

func (c *ActiveUsersChart) changes(u User) *domain.Changes {
	ch := domain.NewChanges().Put("readWrite", u.ID)
	if u.CreatedAt.IsZero() {
		return ch
	}
	age := c.clock.Since(u.CreatedAt)
	for _, w := range []struct {
		suffix string
		within time.Duration
	}{
		{"Week", week},
		{"Month", month},
		{"Year", year},
	} {
		if age < w.within {
			ch.Put("registeredWithin"+w.suffix, u.ID)
		} else {
			ch.Put("registeredOutside"+w.suffix, u.ID)
		}
	}
	return ch
}
