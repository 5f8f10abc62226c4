package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookstore_orders_created_total",
		Help: "Orders created from carts",
	})

	orderValue = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bookstore_order_total_amount",
		Help:    "Grand total of created orders",
		Buckets: prometheus.ExponentialBuckets(500, 2, 10),
	})

	orderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookstore_order_transitions_total",
		Help: "Applied order status transitions",
	}, []string{"from", "to"})

	checkoutFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookstore_checkout_failures_total",
		Help: "Order creations rejected, by reason",
	}, []string{"reason"})

	paymentUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookstore_payment_updates_total",
		Help: "Payment transaction status changes",
	}, []string{"gateway", "status"})

	bankTransfersExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookstore_bank_transfers_expired_total",
		Help: "Bank transfers flipped to expired by the sweep",
	})

	libraryGrants = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookstore_library_grants_total",
		Help: "Library entries created",
	}, []string{"access_type"})
)
