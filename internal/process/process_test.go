package process_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerops/amazon-connector/internal/process"
	domain "github.com/sellerops/amazon-connector/pkg/types"
)

func money(amount, currency string) map[string]any {
	return map[string]any{"CurrencyCode": currency, "Amount": amount}
}

func testOrder(channel string, purchase time.Time, items ...domain.OrderItem) domain.Order {
	return domain.Order{
		AmazonOrderID: "111-1111111-1111111",
		OrderStatus:   "Shipped",
		SalesChannel:  channel,
		PurchaseDate:  &purchase,
		Fields:        map[string]any{},
		Items:         items,
	}
}

func TestProcessor_VATDerivation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		channel        string
		itemPrice      string
		itemTax        string
		promo          string
		wantPrice      string
		wantVAT        string
		wantExVAT      string
		wantItemTotal  string
		wantPromoTax   string
		wantVATPercent string
	}{
		{
			name:      "german order no promotion",
			channel:   "Amazon.de",
			itemPrice: "119.00",
			itemTax:   "19.00",
			promo:     "0",
			// No promo: price is the item price, ex-VAT strips the
			// reported tax directly.
			wantPrice:      "119",
			wantVAT:        "19",
			wantExVAT:      "100",
			wantItemTotal:  "119",
			wantPromoTax:   "0",
			wantVATPercent: "0.1597",
		},
		{
			name:      "uk order with promotion",
			channel:   "Amazon.co.uk",
			itemPrice: "120.00",
			itemTax:   "20.00",
			promo:     "12.00",
			// Promo tax: 12 * 1.20 - 12 = 2.40. Price: 122.40.
			// VAT: 122.40 * (20/120) = 20.40. Total: 122.40 - 12 - 2.40.
			wantPrice:      "122.4",
			wantVAT:        "20.4",
			wantExVAT:      "102",
			wantItemTotal:  "108",
			wantPromoTax:   "2.4",
			wantVATPercent: "0.1667",
		},
		{
			name:      "zero tax order is vat free",
			channel:   "Amazon.es",
			itemPrice: "50.00",
			itemTax:   "0",
			promo:     "5.00",
			// ItemTax 0 suppresses VAT treatment entirely.
			wantPrice:      "50",
			wantVAT:        "0",
			wantExVAT:      "50",
			wantItemTotal:  "45",
			wantPromoTax:   "0",
			wantVATPercent: "0",
		},
	}

	p := process.New()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			item := domain.OrderItem{
				OrderItemID: "item-1",
				SellerSKU:   "SKU-1",
				Quantity:    1,
				Fields: map[string]any{
					"ItemPrice":         money(tt.itemPrice, "EUR"),
					"ItemTax":           money(tt.itemTax, "EUR"),
					"PromotionDiscount": money(tt.promo, "EUR"),
				},
			}
			orders := []domain.Order{
				testOrder(tt.channel, time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC), item),
			}

			rows := p.Process("A1PA6795UKMFR9", orders)
			require.Len(t, rows, 1)
			row := rows[0]

			assert.Equal(t, tt.wantPrice, row.Price.String())
			assert.Equal(t, tt.wantVAT, row.VAT.String())
			assert.Equal(t, tt.wantExVAT, row.UnitPriceExVAT.String())
			assert.Equal(t, tt.wantItemTotal, row.ItemTotal.String())
			assert.Equal(t, tt.wantPromoTax, row.PromotionalTax.String())
			assert.Equal(t, tt.wantVATPercent, row.VATPercent.Round(4).String())
		})
	}
}

func TestProcessor_NonAmazonChannelUsesUKRate(t *testing.T) {
	t.Parallel()

	item := domain.OrderItem{
		OrderItemID: "item-1",
		Fields: map[string]any{
			"ItemPrice": money("120.00", "GBP"),
			"ItemTax":   money("20.00", "GBP"),
		},
	}
	orders := []domain.Order{
		testOrder("Non-Amazon", time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC), item),
	}

	rows := process.New().Process("A1F83G8C2ARO7P", orders)
	require.Len(t, rows, 1)

	assert.Equal(t, "Non-Amazon", rows[0].Channel)
	assert.Equal(t, "100", rows[0].UnitPriceExVAT.String())
}

func TestProcessor_SkipsFailedOrders(t *testing.T) {
	t.Parallel()

	good := testOrder("Amazon.de", time.Now().UTC(), domain.OrderItem{
		OrderItemID: "item-1",
		Fields:      map[string]any{"ItemPrice": money("10.00", "EUR")},
	})
	failed := testOrder("Amazon.de", time.Now().UTC())
	failed.Items = nil

	rows := process.New().Process("A1PA6795UKMFR9", []domain.Order{good, failed})
	assert.Len(t, rows, 1)
}

func TestProcessor_MissingMoneyFieldsAreZero(t *testing.T) {
	t.Parallel()

	item := domain.OrderItem{OrderItemID: "item-1", Fields: map[string]any{}}
	orders := []domain.Order{
		testOrder("Amazon.it", time.Now().UTC(), item),
	}

	rows := process.New().Process("APJ6JRA9NG5V4", orders)
	require.Len(t, rows, 1)

	assert.True(t, rows[0].ItemPrice.IsZero())
	assert.True(t, rows[0].VAT.IsZero())
	assert.True(t, rows[0].ItemTotal.IsZero())
	assert.Empty(t, rows[0].Currency)
}

func TestProcessor_RegionMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		channel string
		region  string
		country string
	}{
		{"Amazon.co.uk", "UK", "United Kingdom"},
		{"Amazon.de", "DE", "Germany"},
		{"Amazon.es", "ES", "Spain"},
		{"Amazon.it", "IT", "Italy"},
		{"Amazon.fr", "FR", "France"},
		{"Amazon.com", "US", "United States"},
	}

	p := process.New()
	for _, tt := range tests {
		t.Run(tt.channel, func(t *testing.T) {
			t.Parallel()

			orders := []domain.Order{
				testOrder(tt.channel, time.Now().UTC(), domain.OrderItem{OrderItemID: "i"}),
			}
			rows := p.Process("X", orders)
			require.Len(t, rows, 1)
			assert.Equal(t, tt.region, rows[0].Region)
			assert.Equal(t, tt.country, rows[0].Country)
			assert.Equal(t, "Amazon", rows[0].Channel)
		})
	}
}

func TestLocalizePurchaseDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		channel string
		utc     time.Time
		want    time.Time
	}{
		{
			name:    "german winter is CET",
			channel: "Amazon.de",
			utc:     time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
			want:    time.Date(2025, 1, 15, 13, 0, 0, 0, time.UTC),
		},
		{
			name:    "german summer is CEST",
			channel: "Amazon.de",
			utc:     time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC),
			want:    time.Date(2025, 7, 15, 14, 0, 0, 0, time.UTC),
		},
		{
			name:    "uk winter is GMT",
			channel: "Amazon.co.uk",
			utc:     time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC),
			want:    time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			name:    "uk summer is BST",
			channel: "Amazon.co.uk",
			utc:     time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC),
			want:    time.Date(2025, 7, 15, 13, 0, 0, 0, time.UTC),
		},
		{
			// DST starts 2025-03-30 01:00 UTC (last Sunday of March).
			name:    "just before spring switch",
			channel: "Amazon.de",
			utc:     time.Date(2025, 3, 30, 0, 59, 0, 0, time.UTC),
			want:    time.Date(2025, 3, 30, 1, 59, 0, 0, time.UTC),
		},
		{
			name:    "just after spring switch",
			channel: "Amazon.de",
			utc:     time.Date(2025, 3, 30, 1, 1, 0, 0, time.UTC),
			want:    time.Date(2025, 3, 30, 3, 1, 0, 0, time.UTC),
		},
		{
			// DST ends 2025-10-26 01:00 UTC (last Sunday of October).
			name:    "just before autumn switch",
			channel: "Amazon.co.uk",
			utc:     time.Date(2025, 10, 26, 0, 59, 0, 0, time.UTC),
			want:    time.Date(2025, 10, 26, 1, 59, 0, 0, time.UTC),
		},
		{
			name:    "just after autumn switch",
			channel: "Amazon.co.uk",
			utc:     time.Date(2025, 10, 26, 1, 1, 0, 0, time.UTC),
			want:    time.Date(2025, 10, 26, 1, 1, 0, 0, time.UTC),
		},
		{
			name:    "us channel stays utc",
			channel: "Amazon.com",
			utc:     time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC),
			want:    time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := process.LocalizePurchaseDate(tt.utc, tt.channel)
			assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
		})
	}
}

func TestProcessor_DecimalPrecision(t *testing.T) {
	t.Parallel()

	// 0.1 + 0.2 style inputs must not drift the way floats would.
	item := domain.OrderItem{
		OrderItemID: "item-1",
		Fields: map[string]any{
			"ItemPrice": money("0.30", "EUR"),
			"ItemTax":   money("0.05", "EUR"),
		},
	}
	orders := []domain.Order{
		testOrder("Amazon.de", time.Now().UTC(), item),
	}

	rows := process.New().Process("A1PA6795UKMFR9", orders)
	require.Len(t, rows, 1)

	expected := decimal.RequireFromString("0.25")
	assert.True(t, rows[0].UnitPriceExVAT.Equal(expected),
		"got %s", rows[0].UnitPriceExVAT)
}
