package export

import (
	"context"
	"fmt"
	"log/slog"
)

// Backend names accepted by New.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendSheets = "sheets"
)

// Builders are injected so this package does not import its own
// subpackages. The worker wires memory.New and google.NewFromEnv here.
type Builders struct {
	Memory func() ForecastExporter
	Sheets func(ctx context.Context) (ForecastExporter, error)
}

// New selects an exporter by backend name. The "none" backend returns a
// nil exporter; callers treat that as export disabled.
func New(ctx context.Context, backend string, b Builders, logger *slog.Logger) (ForecastExporter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch backend {
	case BackendNone, "":
		logger.Info("Snapshot export disabled")
		return nil, nil
	case BackendMemory:
		if b.Memory == nil {
			return nil, fmt.Errorf("memory exporter not available")
		}
		logger.Info("Initialized memory export backend")
		return b.Memory(), nil
	case BackendSheets:
		if b.Sheets == nil {
			return nil, fmt.Errorf("sheets exporter not available")
		}
		exp, err := b.Sheets(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialize Google Sheets exporter: %w", err)
		}
		logger.Info("Initialized Google Sheets export backend")
		return exp, nil
	default:
		return nil, fmt.Errorf("unknown export backend %q", backend)
	}
}
