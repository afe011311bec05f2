package rules

// RecordingRules returns a PrometheusRule CR containing pre-computed rate
// expressions used by dashboards and alert rules.
func RecordingRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name: "amzc-recording-rules",
			Labels: map[string]string{
				"prometheus": "system-rules-prometheus",
			},
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "amzc-recording",
					Rules: []Rule{
						{
							Record: "amzc:http_requests:rate5m",
							Expr:   `sum(rate(amzc_http_requests_total[5m]))`,
						},
						{
							Record: "amzc:http_errors:rate5m",
							Expr:   `sum(rate(amzc_http_requests_total{status=~"5.."}[5m]))`,
						},
						{
							Record: "amzc:spapi_calls:rate5m",
							Expr:   `sum(rate(amzc_spapi_calls_total[5m])) by (endpoint)`,
						},
						{
							Record: "amzc:orders_fetched:rate5m",
							Expr:   `sum(rate(amzc_orders_fetched_total[5m])) by (marketplace)`,
						},
						{
							Record: "amzc:retries:rate5m",
							Expr:   `sum(rate(amzc_retries_total[5m])) by (category)`,
						},
						{
							Record: "amzc:sink_errors:rate5m",
							Expr:   `sum(rate(amzc_sink_errors_total[5m])) by (sink)`,
						},
					},
				},
			},
		},
	}
}
