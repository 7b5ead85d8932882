package catalog

import (
	"context"

	"chart-engine-service/internal/charts/core/domain"
	"chart-engine-service/internal/charts/core/engine"
)

var DriveSchema = domain.MustSchema("drive", false,
	domain.CounterColumn("local.incCount"),
	domain.CounterColumn("local.incSize"),
	domain.CounterColumn("local.decCount"),
	domain.CounterColumn("local.decSize"),
	domain.CounterColumn("remote.incCount"),
	domain.CounterColumn("remote.incSize"),
	domain.CounterColumn("remote.decCount"),
	domain.CounterColumn("remote.decSize"),
)

// DriveChart tracks stored file volume by locality.
type DriveChart struct {
	chart
}

func newDriveChart(d Deps) *DriveChart {
	c := &DriveChart{}
	c.init(d, DriveSchema, nil)
	return c
}

func (c *DriveChart) Update(ctx context.Context, f DriveFile, added bool) {
	prefix := locality(f.UserHost) + "."
	ch := domain.NewChanges()
	if added {
		ch.Add(prefix+"incCount", 1).Add(prefix+"incSize", f.Size)
	} else {
		ch.Add(prefix+"decCount", 1).Add(prefix+"decSize", f.Size)
	}
	c.commit(ctx, "", ch)
}

var PerUserDriveSchema = domain.MustSchema("per-user-drive", true,
	domain.TotalColumn("totalCount"),
	domain.TotalColumn("totalSize"),
	domain.CounterColumn("incCount"),
	domain.CounterColumn("incSize"),
	domain.CounterColumn("decCount"),
	domain.CounterColumn("decSize"),
)

type PerUserDriveChart struct {
	chart
	src DriveCounter
}

func newPerUserDriveChart(d Deps) *PerUserDriveChart {
	c := &PerUserDriveChart{src: d.Drive}
	var hooks engine.Hooks
	if d.Drive != nil {
		hooks = c
	}
	c.init(d, PerUserDriveSchema, hooks)
	return c
}

func (c *PerUserDriveChart) Update(ctx context.Context, f DriveFile, added bool) {
	s := sign(added)
	ch := domain.NewChanges().
		Add("totalCount", s).
		Add("totalSize", s*f.Size)
	if added {
		ch.Add("incCount", 1).Add("incSize", f.Size)
	} else {
		ch.Add("decCount", 1).Add("decSize", f.Size)
	}
	c.commit(ctx, f.UserID, ch)
}

func (c *PerUserDriveChart) TickMinor(context.Context, string) (*domain.Changes, error) {
	return nil, nil
}

func (c *PerUserDriveChart) TickMajor(ctx context.Context, userID string) (map[string]int64, error) {
	files, bytes, err := c.src.DriveUsage(ctx, userID)
	if err != nil {
		return nil, err
	}
	return map[string]int64{"totalCount": files, "totalSize": bytes}, nil
}
