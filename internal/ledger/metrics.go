package ledger

import "expvar"

var (
	metricSettlementAppliedTotal = expvar.NewInt("settlement_applied_total")
	metricSettlementFailedTotal  = expvar.NewInt("settlement_failed_total")
	metricSettlementRetryTotal   = expvar.NewInt("settlement_retry_total")
	metricSettlementDroppedTotal = expvar.NewInt("settlement_dropped_total")
	metricSettlementQueueLen     = expvar.NewInt("settlement_queue_len")
)
