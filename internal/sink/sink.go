// Package sink writes processed order rows and inventory rows to the
// downstream databases: the on-prem warehouse (SQL Server) and the
// analytics database (Azure SQL). Both use the sqlserver driver.
package sink

import (
	"context"

	"github.com/sellerops/amazon-connector/internal/process"
	domain "github.com/sellerops/amazon-connector/pkg/types"
)

// Writer stores one processed row set.
type Writer interface {
	// Name identifies the sink in logs, metrics and save reports.
	Name() string
	WriteOrders(ctx context.Context, rows []process.Row) (int, error)
	WriteInventory(ctx context.Context, rows []domain.InventoryRow) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// SaveReport accounts one save attempt across every configured sink. A
// partially failed save is still a save: each sink's outcome is reported
// independently.
type SaveReport struct {
	Results []SinkResult `json:"results"`
}

// SinkResult is one sink's outcome.
type SinkResult struct {
	Sink        string `json:"sink"`
	RowsWritten int    `json:"rows_written"`
	Error       string `json:"error,omitempty"`
}

// AllFailed reports whether no sink accepted the rows.
func (r SaveReport) AllFailed() bool {
	if len(r.Results) == 0 {
		return true
	}
	for _, res := range r.Results {
		if res.Error == "" {
			return false
		}
	}
	return true
}

// Succeeded returns the names of sinks that accepted the rows.
func (r SaveReport) Succeeded() []string {
	var names []string
	for _, res := range r.Results {
		if res.Error == "" {
			names = append(names, res.Sink)
		}
	}
	return names
}
