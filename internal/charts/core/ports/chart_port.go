package ports

import (
	"context"
	"time"

	"chart-engine-service/internal/charts/core/domain"
)

// ChartPort is the read and maintenance surface of one chart.
type ChartPort interface {
	Name() string
	Schema() *domain.Schema
	GetChart(ctx context.Context, span domain.Span, limit int, offset time.Time, group string) (domain.Series, error)
	Resync(ctx context.Context) error
}

type ChartDirectoryPort interface {
	Lookup(name string) (ChartPort, bool)
	// Names lists charts in registration order.
	Names() []string
}
