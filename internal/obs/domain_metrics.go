package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrdersPlacedTotal counts order placement attempts by outcome.
	OrdersPlacedTotal *prometheus.CounterVec
	// PlacementRetriesTotal counts placement transactions retried after a
	// serialization conflict.
	PlacementRetriesTotal prometheus.Counter
	// CartClearFallbackTotal counts post-placement cart clears deferred to the
	// background queue.
	CartClearFallbackTotal prometheus.Counter
	// OrderStatusTransitionTotal counts order status transitions by target and outcome.
	OrderStatusTransitionTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OrdersPlacedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Count of order placement attempts by outcome.",
		}, []string{"result"})
		PlacementRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_placement_retries_total",
			Help:      "Number of placement transactions retried after serialization conflicts.",
		})
		CartClearFallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_clear_fallback_total",
			Help:      "Number of post-placement cart clears handed to the background queue.",
		})
		OrderStatusTransitionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_transitions_total",
			Help:      "Count of order status transitions by target status and outcome.",
		}, []string{"to", "result"})

		mustRegisterCollector(reg, OrdersPlacedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrdersPlacedTotal = v
			}
		})
		mustRegisterCollector(reg, PlacementRetriesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				PlacementRetriesTotal = v
			}
		})
		mustRegisterCollector(reg, CartClearFallbackTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				CartClearFallbackTotal = v
			}
		})
		mustRegisterCollector(reg, OrderStatusTransitionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrderStatusTransitionTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
