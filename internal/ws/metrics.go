package ws

import "expvar"

var (
	metricConnectionsTotal  = expvar.NewInt("ws_connections_total")
	metricConnectionsActive = expvar.NewInt("ws_connections_active")
	metricMessagesTotal     = expvar.NewInt("ws_messages_total")
	metricRateLimitedTotal  = expvar.NewInt("ws_rate_limited_total")
)
