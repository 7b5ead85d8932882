package catalog

import (
	"context"

	"chart-engine-service/internal/charts/core/domain"
	"chart-engine-service/internal/charts/core/engine"
)

var UsersSchema = domain.MustSchema("users", false,
	domain.TotalColumn("local.total"),
	domain.CounterColumn("local.inc"),
	domain.CounterColumn("local.dec"),
	domain.TotalColumn("remote.total"),
	domain.CounterColumn("remote.inc"),
	domain.CounterColumn("remote.dec"),
)

// UsersChart tracks registered users by locality.
type UsersChart struct {
	chart
	src UserCounter
}

func newUsersChart(d Deps) *UsersChart {
	c := &UsersChart{src: d.Users}
	var hooks engine.Hooks
	if d.Users != nil {
		hooks = c
	}
	c.init(d, UsersSchema, hooks)
	return c
}

func (c *UsersChart) Update(ctx context.Context, u User, added bool) {
	prefix := locality(u.Host) + "."
	c.commit(ctx, "", domain.NewChanges().
		Add(prefix+"total", sign(added)).
		Add(incDec(prefix, added), 1))
}

func (c *UsersChart) TickMinor(context.Context, string) (*domain.Changes, error) {
	return nil, nil
}

func (c *UsersChart) TickMajor(ctx context.Context, _ string) (map[string]int64, error) {
	local, remote, err := c.src.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]int64{"local.total": local, "remote.total": remote}, nil
}
