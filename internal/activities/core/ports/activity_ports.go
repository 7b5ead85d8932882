package ports

import (
	"context"

	"chart-engine-service/internal/activities/core/domain"
)

type ActivityLogPort interface {
	// Insert:
	//   created = true,  err = nil  -> first delivery
	//   created = false, err = nil  -> duplicate id (idempotent)
	//   created = false, err != nil -> DB error
	Insert(ctx context.Context, a *domain.Activity) (created bool, err error)
}

// ChartRecorderPort turns an activity into chart commits.
type ChartRecorderPort interface {
	Record(ctx context.Context, a *domain.Activity) error
}
