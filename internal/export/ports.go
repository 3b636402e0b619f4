// Package export defines the outbound port for publishing forecast
// snapshots, with Google Sheets and in-memory backends.
package export

import (
	"context"

	"runway/internal/core"
)

// ForecastExporter writes a full forecast snapshot to an external
// destination and returns a backend-specific reference to it.
type ForecastExporter interface {
	Export(ctx context.Context, weeks []core.WeeklyForecast) (ref string, err error)
}
