// Package dashboards assembles Grafana dashboard definitions from panel builders.
package dashboards

import (
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"

	"github.com/sellerops/amazon-connector/tools/dashgen/panels"
)

// BuildOverview constructs the Amazon Connector Overview dashboard with all
// metric rows.
func BuildOverview() *dashboard.DashboardBuilder {
	b := dashboard.NewDashboardBuilder("Amazon Connector Overview").
		Uid("amzc-overview").
		Tags([]string{"amzc", "amazon-connector"}).
		Refresh("30s").
		Time("now-6h", "now").
		Timezone("browser").
		Editable().
		Tooltip(dashboard.DashboardCursorSyncCrosshair).
		WithVariable(datasourceVar())

	// Row 1: Overview.
	b.WithRow(dashboard.NewRowBuilder("Overview").
		WithPanel(panels.HealthzStat()).
		WithPanel(panels.ReadyzStat()).
		WithPanel(panels.BreakerOpenStat()).
		WithPanel(panels.UptimeStat()))

	// Row 2: HTTP.
	b.WithRow(dashboard.NewRowBuilder("HTTP").
		WithPanel(panels.RequestRate()).
		WithPanel(panels.LatencyPercentiles()).
		WithPanel(panels.ErrorRate()))

	// Row 3: SP-API.
	b.WithRow(dashboard.NewRowBuilder("SP-API").
		WithPanel(panels.APICallsRate()).
		WithPanel(panels.ThrottleWait()).
		WithPanel(panels.BreakerRejections()).
		WithPanel(panels.RetriesRate()))

	// Row 4: Fetch.
	b.WithRow(dashboard.NewRowBuilder("Fetch").
		WithPanel(panels.OrdersFetchedRate()).
		WithPanel(panels.ItemsFetchedRate()).
		WithPanel(panels.FetchDuration()).
		WithPanel(panels.FailedOrders()))

	// Row 5: Sinks.
	b.WithRow(dashboard.NewRowBuilder("Sinks").
		WithPanel(panels.SinkRowsRate()).
		WithPanel(panels.SinkErrors()))

	return b
}

func datasourceVar() *dashboard.DatasourceVariableBuilder {
	return dashboard.NewDatasourceVariableBuilder("datasource").
		Label("Datasource").
		Type("prometheus")
}
