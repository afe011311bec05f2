package rules

// AlertRules returns a PrometheusRule CR containing alert rules for
// amazon-connector operational monitoring.
func AlertRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name: "amzc-alerts",
			Labels: map[string]string{
				"prometheus": "system-rules-prometheus",
			},
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "amzc-alerts",
					Rules: []Rule{
						{
							Alert: "AmzcDown",
							Expr:  `absent(up{job="amazon-connector"})`,
							For:   "2m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "Amazon Connector is down",
								"description": "The amazon-connector job has been absent for more than 2 minutes.",
							},
						},
						{
							Alert: "AmzcReadinessDown",
							Expr:  `amzc_readyz_up == 0`,
							For:   "2m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "Amazon Connector readiness check is failing",
								"description": "The readiness probe has been reporting not-ready for more than 2 minutes.",
							},
						},
						{
							Alert: "AmzcHighErrorRate",
							Expr:  `amzc:http_errors:rate5m / amzc:http_requests:rate5m > 0.05`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "High HTTP error rate on Amazon Connector",
								"description": "More than 5% of HTTP requests are returning 5xx errors over the last 5 minutes.",
							},
						},
						{
							Alert: "AmzcBreakerOpen",
							Expr:  `max(amzc_breaker_state) == 1`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "An SP-API circuit breaker is open",
								"description": "A circuit breaker has been open for more than 5 minutes. Calls to that endpoint class are being rejected.",
							},
						},
						{
							Alert: "AmzcRetriesExhausted",
							Expr:  `increase(amzc_retries_exhausted_total[15m]) > 0`,
							For:   "0m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "SP-API operations exhausting their retry budget",
								"description": "One or more SP-API operations have failed after all retry attempts in the last 15 minutes.",
							},
						},
						{
							Alert: "AmzcThrottleWaitHigh",
							Expr:  `histogram_quantile(0.95, sum(rate(amzc_rate_limit_wait_seconds_bucket[5m])) by (le)) > 10`,
							For:   "10m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "SP-API throttle wait is elevated",
								"description": "Requests are waiting more than 10 seconds at p95 on the client-side rate limiter. Fetches may not keep up with their schedule.",
							},
						},
						{
							Alert: "AmzcFailedOrders",
							Expr:  `increase(amzc_failed_orders_total[15m]) > 0`,
							For:   "1m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Orders are being dropped from processing",
								"description": "One or more orders could not be processed in the last 15 minutes. Their data is missing from the sinks.",
							},
						},
						{
							Alert: "AmzcSinkErrors",
							Expr:  `amzc:sink_errors:rate5m > 0`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "Sink writes are failing",
								"description": "A sink backend has been rejecting writes for more than 5 minutes. Processed rows are not reaching the warehouse.",
							},
						},
					},
				},
			},
		},
	}
}
