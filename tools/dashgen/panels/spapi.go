package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// APICallsRate returns a timeseries panel showing SP-API calls per second
// broken down by endpoint class.
func APICallsRate() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("SP-API Call Rate").
		Description("Selling Partner API calls per second by endpoint class").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(`amzc:spapi_calls:rate5m`, "{{endpoint}}", "A")).
		Unit("reqps").
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// ThrottleWait returns a timeseries panel showing the p95 time requests
// spend waiting on the client-side rate limiter.
func ThrottleWait() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Throttle Wait p95").
		Description("Time spent waiting on the token bucket before each SP-API call").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			`histogram_quantile(0.95, sum(rate(amzc_rate_limit_wait_seconds_bucket[5m])) by (le, endpoint))`,
			"{{endpoint}}", "A",
		)).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenYellowRed(2, 10)).
		ColorScheme(ColorSchemeThresholds()).
		DrawStyle(common.GraphDrawStyleLine)
}

// BreakerRejections returns a timeseries panel showing calls rejected by
// open circuit breakers.
func BreakerRejections() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Breaker Rejections").
		Description("Calls rejected while a circuit breaker was open").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			`sum(rate(amzc_breaker_rejections_total[5m])) by (endpoint)`,
			"{{endpoint}}", "A",
		)).
		Unit("ops").
		FillOpacity(10).
		LineWidth(2).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// RetriesRate returns a timeseries panel showing retry attempts per second
// by failure category.
func RetriesRate() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Retries").
		Description("Retry attempts per second by failure category").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(`amzc:retries:rate5m`, "{{category}}", "A")).
		Unit("ops").
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}
