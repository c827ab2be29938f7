package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	webhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_webhook_events_total",
			Help: "Webhook deliveries partitioned by source and outcome event",
		},
		[]string{"source", "event"},
	)

	depositCreditedCentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_deposit_credited_cents_total",
			Help: "Cents credited to wallets from settled deposits",
		},
		[]string{"method"},
	)

	ordersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_orders_total",
			Help: "Order placement attempts partitioned by result",
		},
		[]string{"result"},
	)
)
