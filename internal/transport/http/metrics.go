package httptransport

import "expvar"

var (
	metricJoinTotal  = expvar.NewInt("http_join_total")
	metricJoinErrors = expvar.NewInt("http_join_errors_total")

	metricActionSubmitTotal  = expvar.NewInt("action_submit_total")
	metricActionSubmitErrors = expvar.NewInt("action_submit_errors_total")

	metricRateLimitedTotal = expvar.NewInt("rate_limited_total")

	metricSSEConnectionsTotal  = expvar.NewInt("table_sse_connections_total")
	metricSSEConnectionsActive = expvar.NewInt("table_sse_connections_active")
)
