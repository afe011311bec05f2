// Package process turns raw fetched orders and items into flat rows ready
// for the warehouse and analytics sinks: price columns split from their
// money objects, VAT derived per marketplace, purchase timestamps shifted
// into the marketplace's local zone.
package process

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/sellerops/amazon-connector/pkg/types"
)

// vatRate describes one marketplace's VAT treatment. percentage is the
// VAT share of a gross price: rate / (1 + rate).
type vatRate struct {
	rate       decimal.Decimal
	multiplier decimal.Decimal
	percentage decimal.Decimal
}

func newVATRate(percent int64) vatRate {
	rate := decimal.New(percent, -2)
	one := decimal.NewFromInt(1)
	return vatRate{
		rate:       rate,
		multiplier: one.Add(rate),
		percentage: rate.Div(one.Add(rate)),
	}
}

// VAT rates by sales channel.
var vatRates = map[string]vatRate{
	"Amazon.es":    newVATRate(21),
	"Amazon.de":    newVATRate(19),
	"Amazon.it":    newVATRate(22),
	"Amazon.fr":    newVATRate(20),
	"Amazon.co.uk": newVATRate(20),
}

// nonAmazonVAT applies to rows whose channel is not a known marketplace,
// such as manually keyed orders. UK treatment is used for these.
var nonAmazonVAT = vatRates["Amazon.co.uk"]

// regionInfo maps a sales channel to reporting geography.
type regionInfo struct {
	Region  string
	Country string
}

var channelRegions = map[string]regionInfo{
	"Amazon.co.uk": {Region: "UK", Country: "United Kingdom"},
	"Amazon.es":    {Region: "ES", Country: "Spain"},
	"Amazon.de":    {Region: "DE", Country: "Germany"},
	"Amazon.it":    {Region: "IT", Country: "Italy"},
	"Amazon.fr":    {Region: "FR", Country: "France"},
	"Amazon.com":   {Region: "US", Country: "United States"},
	"Amazon.ca":    {Region: "CA", Country: "Canada"},
}

// Row is one processed order line, flat enough for a SQL insert.
type Row struct {
	AmazonOrderID string
	OrderItemID   string
	SKU           string
	ASIN          string
	Quantity      int

	OrderStatus   string
	SalesChannel  string
	Channel       string // "Amazon" or "Non-Amazon"
	Region        string
	Country       string
	MarketplaceID string

	PurchaseDateUTC   *time.Time
	PurchaseDateLocal *time.Time

	Currency          string
	ItemPrice         decimal.Decimal
	ItemTax           decimal.Decimal
	PromotionDiscount decimal.Decimal
	PromotionalTax    decimal.Decimal
	VATPercent        decimal.Decimal
	Price             decimal.Decimal
	VAT               decimal.Decimal
	UnitPriceExVAT    decimal.Decimal
	ItemTotal         decimal.Decimal
}

// Processor transforms fetch results into rows.
type Processor struct {
	log *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		p.log = l
	}
}

// New creates a Processor.
func New(opts ...Option) *Processor {
	p := &Processor{log: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process flattens every order's items into rows. Orders with nil Items
// (failed fetches) are skipped and counted, never fabricated.
func (p *Processor) Process(marketplaceID string, orders []domain.Order) []Row {
	var rows []Row
	skipped := 0

	for _, order := range orders {
		if order.Items == nil {
			skipped++
			continue
		}
		for _, item := range order.Items {
			rows = append(rows, p.buildRow(marketplaceID, order, item))
		}
	}

	if skipped > 0 {
		p.log.Warn("orders without items skipped during processing",
			"marketplace", marketplaceID,
			"skipped", skipped,
		)
	}
	return rows
}

func (p *Processor) buildRow(marketplaceID string, order domain.Order, item domain.OrderItem) Row {
	row := Row{
		AmazonOrderID: order.AmazonOrderID,
		OrderItemID:   item.OrderItemID,
		SKU:           item.SellerSKU,
		ASIN:          item.ASIN,
		Quantity:      item.Quantity,
		OrderStatus:   order.OrderStatus,
		SalesChannel:  order.SalesChannel,
		MarketplaceID: marketplaceID,
	}

	row.Channel = "Amazon"
	if order.SalesChannel == "Non-Amazon" {
		row.Channel = "Non-Amazon"
	}
	if info, ok := channelRegions[order.SalesChannel]; ok {
		row.Region = info.Region
		row.Country = info.Country
	}

	if order.PurchaseDate != nil {
		utc := order.PurchaseDate.UTC()
		local := LocalizePurchaseDate(utc, order.SalesChannel)
		row.PurchaseDateUTC = &utc
		row.PurchaseDateLocal = &local
	}

	row.ItemPrice, row.Currency = moneyField(item.Fields, "ItemPrice")
	row.ItemTax, _ = moneyField(item.Fields, "ItemTax")
	row.PromotionDiscount, _ = moneyField(item.Fields, "PromotionDiscount")

	p.applyVAT(&row)
	return row
}

// applyVAT derives the tax columns for one row. Rows whose ItemTax is zero
// are treated as VAT-free regardless of marketplace.
func (p *Processor) applyVAT(row *Row) {
	rate, ok := vatRates[row.SalesChannel]
	if !ok {
		if row.Channel != "Non-Amazon" {
			// Unknown Amazon channel: leave the price untouched.
			row.Price = row.ItemPrice
			row.ItemTotal = row.ItemPrice.Sub(row.PromotionDiscount)
			row.UnitPriceExVAT = row.ItemPrice.Sub(row.ItemTax)
			roundRow(row)
			return
		}
		rate = nonAmazonVAT
	}

	taxed := !row.ItemTax.IsZero()

	if taxed {
		// The promotion discount is stored net; gross it up to find the
		// tax it carried.
		row.PromotionalTax = row.PromotionDiscount.Mul(rate.multiplier).Sub(row.PromotionDiscount)
		row.VATPercent = rate.percentage
	}

	row.Price = row.ItemPrice.Add(row.PromotionalTax)
	row.VAT = row.Price.Mul(row.VATPercent)
	row.UnitPriceExVAT = row.Price.Sub(row.VAT)
	row.ItemTotal = row.Price.Sub(row.PromotionDiscount).Sub(row.PromotionalTax)

	if row.PromotionalTax.IsZero() && row.PromotionDiscount.IsZero() {
		row.UnitPriceExVAT = row.Price.Sub(row.ItemTax)
	}

	roundRow(row)
}

func roundRow(row *Row) {
	row.ItemTax = row.ItemTax.Round(2)
	row.PromotionalTax = row.PromotionalTax.Round(2)
	row.Price = row.Price.Round(2)
	row.VAT = row.VAT.Round(2)
	row.UnitPriceExVAT = row.UnitPriceExVAT.Round(2)
	row.ItemTotal = row.ItemTotal.Round(2)
}

// moneyField reads an SP-API money object {CurrencyCode, Amount} out of a
// raw field map. Missing or malformed values come back as zero.
func moneyField(fields map[string]any, name string) (decimal.Decimal, string) {
	raw, ok := fields[name]
	if !ok {
		return decimal.Zero, ""
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return decimal.Zero, ""
	}

	currency, _ := obj["CurrencyCode"].(string)

	switch amount := obj["Amount"].(type) {
	case string:
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return decimal.Zero, currency
		}
		return d, currency
	case float64:
		return decimal.NewFromFloat(amount), currency
	default:
		return decimal.Zero, currency
	}
}

// LocalizePurchaseDate shifts a UTC purchase timestamp into the
// marketplace's wall-clock time. EU marketplaces use CET/CEST, the UK uses
// GMT/BST; both switch on the last Sundays of March and October.
func LocalizePurchaseDate(utc time.Time, salesChannel string) time.Time {
	var standardOffset int
	switch salesChannel {
	case "Amazon.de", "Amazon.es", "Amazon.it", "Amazon.fr":
		standardOffset = 1
	case "Amazon.co.uk":
		standardOffset = 0
	default:
		return utc
	}

	offset := standardOffset
	if isEuropeanDST(utc) {
		offset++
	}
	return utc.Add(time.Duration(offset) * time.Hour)
}

// isEuropeanDST reports whether the instant falls in the EU summer-time
// window: from 01:00 UTC on the last Sunday of March to 01:00 UTC on the
// last Sunday of October.
func isEuropeanDST(t time.Time) bool {
	year := t.Year()
	start := lastSunday(year, time.March).Add(time.Hour)
	end := lastSunday(year, time.October).Add(time.Hour)
	return !t.Before(start) && t.Before(end)
}

// lastSunday returns midnight UTC of the month's last Sunday.
func lastSunday(year int, month time.Month) time.Time {
	// Day 0 of the next month is the last day of this one.
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	return last.AddDate(0, 0, -int(last.Weekday()))
}
