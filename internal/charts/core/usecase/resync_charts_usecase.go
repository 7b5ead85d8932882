package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"chart-engine-service/internal/charts/core/ports"
)

type ResyncOutput struct {
	Resynced []string
	Failed   map[string]string
}

type ResyncChartsUseCase struct {
	charts ports.ChartDirectoryPort
	logger zerolog.Logger
}

func NewResyncChartsUseCase(charts ports.ChartDirectoryPort, logger zerolog.Logger) *ResyncChartsUseCase {
	return &ResyncChartsUseCase{charts: charts, logger: logger}
}

// Execute resyncs the named charts, or all of them when names is empty. An
// unknown name fails the whole request before anything runs; a chart that
// fails to resync is reported and does not stop the others.
func (uc *ResyncChartsUseCase) Execute(ctx context.Context, names ...string) (*ResyncOutput, error) {
	if len(names) == 0 {
		names = uc.charts.Names()
	}

	charts := make([]ports.ChartPort, 0, len(names))
	for _, name := range names {
		chart, ok := uc.charts.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownChart, name)
		}
		charts = append(charts, chart)
	}

	out := &ResyncOutput{
		Resynced: make([]string, 0, len(charts)),
		Failed:   map[string]string{},
	}
	for _, chart := range charts {
		if err := chart.Resync(ctx); err != nil {
			uc.logger.Error().Err(err).Str("chart", chart.Name()).Msg("chart resync failed")
			out.Failed[chart.Name()] = err.Error()
			continue
		}
		out.Resynced = append(out.Resynced, chart.Name())
	}

	uc.logger.Info().
		Int("resynced", len(out.Resynced)).
		Int("failed", len(out.Failed)).
		Msg("chart resync finished")

	return out, nil
}
