package catalog

import (
	"context"

	"chart-engine-service/internal/charts/core/domain"
	"chart-engine-service/internal/charts/core/engine"
)

var InstanceSchema = domain.MustSchema("instance", true,
	domain.CounterColumn("requests.failed"),
	domain.CounterColumn("requests.succeeded"),
	domain.CounterColumn("requests.received"),
	domain.TotalColumn("notes.total"),
	domain.CounterColumn("notes.inc"),
	domain.CounterColumn("notes.dec"),
	domain.TotalColumn("users.total"),
	domain.CounterColumn("users.inc"),
	domain.CounterColumn("users.dec"),
	domain.TotalColumn("following.total"),
	domain.CounterColumn("following.inc"),
	domain.CounterColumn("following.dec"),
	domain.TotalColumn("followers.total"),
	domain.CounterColumn("followers.inc"),
	domain.CounterColumn("followers.dec"),
	domain.TotalColumn("drive.totalFiles"),
	domain.CounterColumn("drive.incFiles"),
	domain.CounterColumn("drive.decFiles"),
	domain.CounterColumn("drive.incUsage"),
	domain.CounterColumn("drive.decUsage"),
)

// InstanceChart is grouped by remote host.
type InstanceChart struct {
	chart
	src InstanceCounter
}

func newInstanceChart(d Deps) *InstanceChart {
	c := &InstanceChart{src: d.Instances}
	var hooks engine.Hooks
	if d.Instances != nil {
		hooks = c
	}
	c.init(d, InstanceSchema, hooks)
	return c
}

func (c *InstanceChart) RequestSent(ctx context.Context, host string, succeeded bool) {
	col := "requests.failed"
	if succeeded {
		col = "requests.succeeded"
	}
	c.commit(ctx, host, domain.NewChanges().Add(col, 1))
}

func (c *InstanceChart) RequestReceived(ctx context.Context, host string) {
	c.commit(ctx, host, domain.NewChanges().Add("requests.received", 1))
}

func (c *InstanceChart) NewUser(ctx context.Context, host string) {
	c.UpdateUsers(ctx, host, true)
}

func (c *InstanceChart) UpdateUsers(ctx context.Context, host string, added bool) {
	c.commit(ctx, host, totalChanges("users.", added))
}

func (c *InstanceChart) UpdateNote(ctx context.Context, host string, added bool) {
	c.commit(ctx, host, totalChanges("notes.", added))
}

func (c *InstanceChart) UpdateFollowing(ctx context.Context, host string, added bool) {
	c.commit(ctx, host, totalChanges("following.", added))
}

func (c *InstanceChart) UpdateFollowers(ctx context.Context, host string, added bool) {
	c.commit(ctx, host, totalChanges("followers.", added))
}

func (c *InstanceChart) UpdateDrive(ctx context.Context, f DriveFile, added bool) {
	ch := domain.NewChanges().Add("drive.totalFiles", sign(added))
	if added {
		ch.Add("drive.incFiles", 1).Add("drive.incUsage", f.Size)
	} else {
		ch.Add("drive.decFiles", 1).Add("drive.decUsage", f.Size)
	}
	c.commit(ctx, f.UserHost, ch)
}

func (c *InstanceChart) TickMinor(context.Context, string) (*domain.Changes, error) {
	return nil, nil
}

func (c *InstanceChart) TickMajor(ctx context.Context, host string) (map[string]int64, error) {
	st, err := c.src.HostStats(ctx, host)
	if err != nil {
		return nil, err
	}
	return map[string]int64{
		"notes.total":      st.Notes,
		"users.total":      st.Users,
		"following.total":  st.Following,
		"followers.total":  st.Followers,
		"drive.totalFiles": st.DriveFiles,
	}, nil
}

// totalChanges moves a running total and its inc or dec counter.
func totalChanges(prefix string, added bool) *domain.Changes {
	return domain.NewChanges().
		Add(prefix+"total", sign(added)).
		Add(incDec(prefix, added), 1)
}
