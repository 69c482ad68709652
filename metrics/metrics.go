package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homematch_messages_sent_total",
			Help: "Total chat messages persisted",
		},
	)

	LivePushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homematch_live_pushes_total",
			Help: "Live channel pushes by result",
		},
		[]string{"result"}, // "delivered" or "dropped"
	)

	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homematch_notifications_created_total",
			Help: "Notifications created by kind",
		},
		[]string{"kind"},
	)

	ViewingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homematch_viewing_transitions_total",
			Help: "Viewing reservation transitions by target status",
		},
		[]string{"status"},
	)

	LiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homematch_live_connections",
			Help: "Currently connected live sessions",
		},
	)
)
