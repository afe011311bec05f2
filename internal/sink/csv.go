package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/sellerops/amazon-connector/internal/process"
)

// csvHeader is the column order of an exported processed-data file.
var csvHeader = []string{
	"AmazonOrderId", "OrderItemId", "SKU", "ASIN", "Quantity",
	"OrderStatus", "SalesChannel", "Channel", "Region", "Country",
	"PurchaseDateUTC", "PurchaseDateLocal", "Currency",
	"ItemPrice", "ItemTax", "PromotionDiscount", "PromotionalTax",
	"VATPercent", "Price", "VAT", "UnitPriceExVAT", "ItemTotal",
}

// WriteCSV streams processed rows as a CSV document, header first.
func WriteCSV(w io.Writer, rows []process.Row) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for i, row := range rows {
		record := []string{
			row.AmazonOrderID, row.OrderItemID, row.SKU, row.ASIN,
			strconv.Itoa(row.Quantity),
			row.OrderStatus, row.SalesChannel, row.Channel, row.Region, row.Country,
			formatTime(row.PurchaseDateUTC), formatTime(row.PurchaseDateLocal), row.Currency,
			row.ItemPrice.String(), row.ItemTax.String(),
			row.PromotionDiscount.String(), row.PromotionalTax.String(),
			row.VATPercent.String(), row.Price.String(), row.VAT.String(),
			row.UnitPriceExVAT.String(), row.ItemTotal.String(),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
