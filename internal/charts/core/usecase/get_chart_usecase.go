package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chart-engine-service/internal/charts/core/domain"
	"chart-engine-service/internal/charts/core/ports"
)

const (
	DefaultLimit = 30
	MaxLimit     = 500
)

var (
	ErrUnknownChart  = errors.New("unknown chart")
	ErrInvalidSpan   = errors.New("invalid span")
	ErrInvalidLimit  = errors.New("invalid limit")
	ErrInvalidGroup  = errors.New("invalid group")
	ErrInvalidOffset = errors.New("invalid offset")
)

type GetChartInput struct {
	Chart  string
	Span   string // "hour" / "day"
	Limit  int
	Offset int64 // unix seconds, 0 = now
	Group  string
}

type GetChartOutput struct {
	Chart  string
	Span   domain.Span
	Series domain.Series
}

type GetChartUseCase struct {
	charts ports.ChartDirectoryPort
}

func NewGetChartUseCase(charts ports.ChartDirectoryPort) *GetChartUseCase {
	return &GetChartUseCase{charts: charts}
}

// Execute validates the input and reads the series from the chart.
func (uc *GetChartUseCase) Execute(ctx context.Context, in GetChartInput) (*GetChartOutput, error) {
	chart, ok := uc.charts.Lookup(in.Chart)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChart, in.Chart)
	}

	span, err := domain.ParseSpan(in.Span)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSpan, in.Span)
	}

	if in.Limit < 1 || in.Limit > MaxLimit {
		return nil, fmt.Errorf("%w: must be between 1 and %d", ErrInvalidLimit, MaxLimit)
	}

	if in.Offset < 0 {
		return nil, ErrInvalidOffset
	}
	var offset time.Time
	if in.Offset > 0 {
		offset = time.Unix(in.Offset, 0).UTC()
	}

	if err := chart.Schema().ValidateGroup(in.Group); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGroup, err)
	}

	series, err := chart.GetChart(ctx, span, in.Limit, offset, in.Group)
	if err != nil {
		return nil, err
	}

	return &GetChartOutput{
		Chart:  chart.Name(),
		Span:   span,
		Series: series,
	}, nil
}
