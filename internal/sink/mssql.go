package sink

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/microsoft/go-mssqldb" // sqlserver driver
	"github.com/shopspring/decimal"

	"github.com/sellerops/amazon-connector/internal/metrics"
	"github.com/sellerops/amazon-connector/internal/process"
	domain "github.com/sellerops/amazon-connector/pkg/types"
)

// orderTables maps marketplace ID to the warehouse order table.
var orderTables = map[string]string{
	"A1PA6795UKMFR9": "amazon_api_de", // Germany
	"A1RKKUPIHCS9HS": "amazon_api_es", // Spain
	"APJ6JRA9NG5V4":  "amazon_api_it", // Italy
	"A13V1IB3VIYZZH": "amazon_api_fr", // France
	"A1F83G8C2ARO7P": "amazon_api_uk", // United Kingdom
	"ATVPDKIKX0DER":  "amazon_api_us", // United States
	"A2EUQ1WTGCTBG2": "amazon_api_ca", // Canada
}

const inventoryTable = "amazon_fba_inventory"

// SQLWriter writes rows to one SQL Server database, on-prem or Azure.
type SQLWriter struct {
	name string
	db   *sql.DB
	log  *slog.Logger
}

// SQLWriterOption configures a SQLWriter.
type SQLWriterOption func(*SQLWriter)

// WithSQLLogger sets the logger.
func WithSQLLogger(l *slog.Logger) SQLWriterOption {
	return func(w *SQLWriter) {
		w.log = l
	}
}

// NewSQLWriter opens a writer named name over a sqlserver DSN.
func NewSQLWriter(name, dsn string, opts ...SQLWriterOption) (*SQLWriter, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s connection: %w", name, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	w := &SQLWriter{name: name, db: db, log: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Name implements Writer.
func (w *SQLWriter) Name() string { return w.name }

// Ping implements Writer.
func (w *SQLWriter) Ping(ctx context.Context) error {
	return w.db.PingContext(ctx)
}

// Close implements Writer.
func (w *SQLWriter) Close() error {
	return w.db.Close()
}

// WriteOrders inserts processed rows into the marketplace's order table in
// one transaction. All rows in a set share a marketplace.
func (w *SQLWriter) WriteOrders(ctx context.Context, rows []process.Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	table, ok := orderTables[rows[0].MarketplaceID]
	if !ok {
		return 0, fmt.Errorf("no order table for marketplace %s", rows[0].MarketplaceID)
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning %s transaction: %w", w.name, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	//nolint:gosec // table comes from the fixed mapping above
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (
			amazon_order_id, order_item_id, sku, asin, quantity,
			order_status, sales_channel, channel, region, country,
			purchase_date_utc, purchase_date_local, currency,
			item_price, item_tax, promotion_discount, promotional_tax,
			vat_percent, price, vat, unit_price_ex_vat, item_total
		) VALUES (
			@p1, @p2, @p3, @p4, @p5, @p6, @p7, @p8, @p9, @p10,
			@p11, @p12, @p13, @p14, @p15, @p16, @p17, @p18, @p19, @p20,
			@p21, @p22
		)`, table))
	if err != nil {
		return 0, fmt.Errorf("preparing %s insert: %w", w.name, err)
	}
	defer stmt.Close()

	written := 0
	for _, row := range rows {
		_, err := stmt.ExecContext(ctx,
			row.AmazonOrderID, row.OrderItemID, row.SKU, row.ASIN, row.Quantity,
			row.OrderStatus, row.SalesChannel, row.Channel, row.Region, row.Country,
			nullTime(row.PurchaseDateUTC), nullTime(row.PurchaseDateLocal), row.Currency,
			dec(row.ItemPrice), dec(row.ItemTax), dec(row.PromotionDiscount), dec(row.PromotionalTax),
			dec(row.VATPercent), dec(row.Price), dec(row.VAT), dec(row.UnitPriceExVAT), dec(row.ItemTotal),
		)
		if err != nil {
			return written, fmt.Errorf("inserting order row %s/%s: %w", row.AmazonOrderID, row.OrderItemID, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing %s transaction: %w", w.name, err)
	}

	metrics.SinkRowsWrittenTotal.WithLabelValues(w.name).Add(float64(written))
	w.log.Info("order rows written", "sink", w.name, "table", table, "rows", written)
	return written, nil
}

// WriteInventory replaces the marketplace's inventory snapshot.
func (w *SQLWriter) WriteInventory(ctx context.Context, rows []domain.InventoryRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning %s transaction: %w", w.name, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	// Snapshot semantics: drop the marketplace's old rows first.
	_, err = tx.ExecContext(ctx,
		"DELETE FROM "+inventoryTable+" WHERE marketplace_id = @p1",
		rows[0].MarketplaceID,
	)
	if err != nil {
		return 0, fmt.Errorf("clearing inventory snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO `+inventoryTable+` (
			sku, fnsku, asin, product_name, condition, quantity,
			marketplace_id, snapshot_at
		) VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7, @p8)`)
	if err != nil {
		return 0, fmt.Errorf("preparing inventory insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	written := 0
	for _, row := range rows {
		_, err := stmt.ExecContext(ctx,
			row.SKU, row.FNSKU, row.ASIN, row.ProductName, row.Condition,
			row.Quantity, row.MarketplaceID, now,
		)
		if err != nil {
			return written, fmt.Errorf("inserting inventory row %s: %w", row.SKU, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing %s transaction: %w", w.name, err)
	}

	metrics.SinkRowsWrittenTotal.WithLabelValues(w.name).Add(float64(written))
	w.log.Info("inventory rows written", "sink", w.name, "rows", written)
	return written, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// dec passes decimals to the driver as exact strings.
func dec(d decimal.Decimal) string {
	return d.String()
}
