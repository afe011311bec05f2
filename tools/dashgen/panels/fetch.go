package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// OrdersFetchedRate returns a timeseries panel showing orders fetched per
// second by marketplace.
func OrdersFetchedRate() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Orders Fetched").
		Description("Orders fetched per second by marketplace").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(`amzc:orders_fetched:rate5m`, "{{marketplace}}", "A")).
		Unit("ops").
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// ItemsFetchedRate returns a timeseries panel showing order items fetched
// per second by marketplace.
func ItemsFetchedRate() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Items Fetched").
		Description("Order items fetched per second by marketplace").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			`sum(rate(amzc_items_fetched_total[5m])) by (marketplace)`,
			"{{marketplace}}", "A",
		)).
		Unit("ops").
		FillOpacity(10).
		LineWidth(2).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// FetchDuration returns a timeseries panel showing the p95 duration of
// complete fetch runs by marketplace.
func FetchDuration() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Fetch Duration p95").
		Description("End-to-end fetch run duration by marketplace").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			`histogram_quantile(0.95, sum(rate(amzc_fetch_duration_seconds_bucket[5m])) by (le, marketplace))`,
			"{{marketplace}}", "A",
		)).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// FailedOrders returns a timeseries panel showing orders that could not be
// processed, by failure category.
func FailedOrders() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Failed Orders").
		Description("Orders dropped from processing by failure category").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			`sum(rate(amzc_failed_orders_total[5m])) by (category)`,
			"{{category}}", "A",
		)).
		Unit("ops").
		FillOpacity(10).
		LineWidth(2).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenYellowRed(0.01, 0.1)).
		ColorScheme(ColorSchemeThresholds()).
		DrawStyle(common.GraphDrawStyleLine)
}
