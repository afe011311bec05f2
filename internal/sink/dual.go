package sink

import (
	"context"
	"log/slog"

	"github.com/sellerops/amazon-connector/internal/metrics"
	"github.com/sellerops/amazon-connector/internal/process"
	domain "github.com/sellerops/amazon-connector/pkg/types"
)

// DualWriter fans a save out to every configured sink. Each sink is
// attempted regardless of the others' outcome; one sink being down must
// never lose the rows the other could take.
type DualWriter struct {
	writers []Writer
	log     *slog.Logger
}

// NewDualWriter creates a DualWriter over the given sinks.
func NewDualWriter(log *slog.Logger, writers ...Writer) *DualWriter {
	if log == nil {
		log = slog.Default()
	}
	return &DualWriter{writers: writers, log: log}
}

// SaveOrders writes the rows to every sink and reports per-sink outcomes.
func (d *DualWriter) SaveOrders(ctx context.Context, rows []process.Row) SaveReport {
	report := SaveReport{}
	for _, w := range d.writers {
		written, err := w.WriteOrders(ctx, rows)
		report.Results = append(report.Results, d.result(w.Name(), written, err))
	}
	return report
}

// SaveInventory writes inventory rows to every sink.
func (d *DualWriter) SaveInventory(ctx context.Context, rows []domain.InventoryRow) SaveReport {
	report := SaveReport{}
	for _, w := range d.writers {
		written, err := w.WriteInventory(ctx, rows)
		report.Results = append(report.Results, d.result(w.Name(), written, err))
	}
	return report
}

// Ping checks every sink and returns the first failure.
func (d *DualWriter) Ping(ctx context.Context) error {
	for _, w := range d.writers {
		if err := w.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink, keeping the last error.
func (d *DualWriter) Close() error {
	var lastErr error
	for _, w := range d.writers {
		if err := w.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (d *DualWriter) result(name string, written int, err error) SinkResult {
	if err != nil {
		metrics.SinkErrorsTotal.WithLabelValues(name).Inc()
		d.log.Error("sink write failed", "sink", name, "error", err)
		return SinkResult{Sink: name, RowsWritten: written, Error: err.Error()}
	}
	return SinkResult{Sink: name, RowsWritten: written}
}
