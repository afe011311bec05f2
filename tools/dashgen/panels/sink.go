package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// SinkRowsRate returns a timeseries panel showing rows written per second
// by sink backend.
func SinkRowsRate() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Sink Writes").
		Description("Rows written per second by sink backend").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			`sum(rate(amzc_sink_rows_written_total[5m])) by (sink)`,
			"{{sink}}", "A",
		)).
		Unit("ops").
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// SinkErrors returns a timeseries panel showing sink write failures.
func SinkErrors() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Sink Errors").
		Description("Failed sink writes per second by backend").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(`amzc:sink_errors:rate5m`, "{{sink}}", "A")).
		Unit("ops").
		FillOpacity(10).
		LineWidth(2).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenYellowRed(0.01, 0.1)).
		ColorScheme(ColorSchemeThresholds()).
		DrawStyle(common.GraphDrawStyleLine)
}
