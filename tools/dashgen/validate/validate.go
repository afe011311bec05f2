// Package validate checks generated dashboards for malformed PromQL and
// references to metrics the service does not export.
package validate

import (
	"fmt"
	"strings"

	"github.com/grafana/grafana-foundation-sdk/go/dashboard"
	"github.com/grafana/grafana-foundation-sdk/go/prometheus"
	"github.com/prometheus/prometheus/promql/parser"
)

// Result collects validation findings. Errors mean the dashboard is broken;
// warnings mean a query references a metric outside the known set.
type Result struct {
	Errors   []string
	Warnings []string
}

// Ok reports whether validation found no errors.
func (r Result) Ok() bool {
	return len(r.Errors) == 0
}

// Dashboard validates every Prometheus query in the dashboard: each
// expression must parse as PromQL, and every metric it selects must appear
// in knownMetrics.
func Dashboard(dash dashboard.Dashboard, knownMetrics map[string]bool) Result {
	var result Result

	for _, p := range dash.Panels {
		if p.Panel != nil {
			checkPanel(*p.Panel, knownMetrics, &result)
		}
		if p.RowPanel != nil {
			for _, inner := range p.RowPanel.Panels {
				checkPanel(inner, knownMetrics, &result)
			}
		}
	}

	return result
}

func checkPanel(p dashboard.Panel, knownMetrics map[string]bool, result *Result) {
	title := "untitled"
	if p.Title != nil {
		title = *p.Title
	}

	for _, target := range p.Targets {
		expr := queryExpr(target)
		if expr == "" {
			continue
		}
		checkExpr(title, expr, knownMetrics, result)
	}
}

func queryExpr(target any) string {
	switch q := target.(type) {
	case prometheus.Dataquery:
		return q.Expr
	case *prometheus.Dataquery:
		return q.Expr
	default:
		return ""
	}
}

func checkExpr(panelTitle, expr string, knownMetrics map[string]bool, result *Result) {
	parsed, err := parser.ParseExpr(expr)
	if err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("panel %q: invalid PromQL %q: %v", panelTitle, expr, err))
		return
	}

	//nolint:errcheck // the walk function never returns an error
	parser.Inspect(parsed, func(node parser.Node, _ []parser.Node) error {
		if vs, ok := node.(*parser.VectorSelector); ok && vs.Name != "" {
			if !metricKnown(vs.Name, knownMetrics) {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("panel %q: unknown metric %q", panelTitle, vs.Name))
			}
		}
		return nil
	})
}

// metricKnown checks the metric name against the known set, accepting the
// series histograms and summaries expose alongside their base name.
func metricKnown(name string, knownMetrics map[string]bool) bool {
	if knownMetrics[name] {
		return true
	}
	for _, suffix := range []string{"_bucket", "_sum", "_count"} {
		if base, ok := strings.CutSuffix(name, suffix); ok && knownMetrics[base] {
			return true
		}
	}
	return false
}
