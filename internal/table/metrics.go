package table

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricHandsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "holdemd",
		Name:      "hands_started_total",
		Help:      "Hands dealt across all tables.",
	})
	metricHandsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "holdemd",
		Name:      "hands_completed_total",
		Help:      "Hands that reached completion.",
	})
	metricActionsAdmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "holdemd",
		Name:      "actions_admitted_total",
		Help:      "Player actions accepted by the state machine.",
	})
	metricActionsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "holdemd",
		Name:      "actions_rejected_total",
		Help:      "Player actions rejected as invalid.",
	})
	metricTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "holdemd",
		Name:      "action_timeouts_total",
		Help:      "Action deadlines resolved by auto-check or auto-fold.",
	})
)
