package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Redemptions counts redemption attempts by flow (invoice, code) and outcome.
	Redemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shopbot",
			Name:      "redemptions_total",
			Help:      "Redemption attempts by flow and outcome",
		},
		[]string{"flow", "outcome"},
	)

	// Deliveries counts product file deliveries by outcome.
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shopbot",
			Name:      "deliveries_total",
			Help:      "Product file delivery attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Tickets counts ticket lifecycle actions (opened, reused, closed).
	Tickets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shopbot",
			Name:      "tickets_total",
			Help:      "Ticket lifecycle actions",
		},
		[]string{"action"},
	)

	// PanelRefreshes counts dashboard panel refreshes.
	PanelRefreshes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "shopbot",
			Name:      "panel_refreshes_total",
			Help:      "Dashboard panel refreshes posted",
		},
	)

	// HTTPErrors counts failed operations API requests by error code.
	HTTPErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shopbot",
			Name:      "http_errors_total",
			Help:      "Operations API errors by path, method, and code",
		},
		[]string{"path", "method", "code"},
	)

	// SwallowedFailures counts best-effort side effects that failed and were
	// deliberately not propagated (audit posts, message pruning, channel-id
	// backfill). Operational drift is diagnosed from this counter.
	SwallowedFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shopbot",
			Name:      "swallowed_failures_total",
			Help:      "Best-effort side effects that failed silently",
		},
		[]string{"op"},
	)
)
