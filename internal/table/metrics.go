package table

import "expvar"

var (
	metricHandsStartedTotal    = expvar.NewInt("hands_started_total")
	metricHandsSettledTotal    = expvar.NewInt("hands_settled_total")
	metricActionsAcceptedTotal = expvar.NewInt("actions_accepted_total")
	metricActionsRejectedTotal = expvar.NewInt("actions_rejected_total")
	metricTurnTimeoutsTotal    = expvar.NewInt("turn_timeouts_total")
	metricSettleFailuresTotal  = expvar.NewInt("settle_failures_total")
	metricShuffleFailuresTotal = expvar.NewInt("shuffle_failures_total")
	metricTablePanicsTotal     = expvar.NewInt("table_panics_total")
)
