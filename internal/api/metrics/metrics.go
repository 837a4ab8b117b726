// Package metrics defines and registers all custom Prometheus metrics for the
// driver-tracking service. It is the single source of truth for metric names,
// labels, and help strings.
//
// All metrics register with the default registry at package init via promauto;
// the /metrics endpoint exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tracking"

// ── Location stream ───────────────────────────────────────────────────────────

// LocationSamplesTotal counts GPS samples by throttle outcome.
// Label:
//   - result: "accepted" or "dropped"
var LocationSamplesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "location_samples_total",
		Help:      "Total GPS samples ingested, labelled by throttle outcome.",
	},
	[]string{"result"},
)

// ── Route engine ──────────────────────────────────────────────────────────────

// RoutesBuiltTotal counts successfully built multi-stop routes.
// Label:
//   - stops: the number of stops in the built route
var RoutesBuiltTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "routes_built_total",
		Help:      "Total multi-stop routes built, by stop count.",
	},
	[]string{"stops"},
)

// DirectionsFailuresTotal counts directions-provider requests that failed and
// fell back to the heuristic estimate.
var DirectionsFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "directions_failures_total",
		Help:      "Total directions provider failures (heuristic fallback taken).",
	},
)

// ── Delivery completion ───────────────────────────────────────────────────────

// CompletionAttemptsTotal counts individual mark-delivered write attempts,
// including retries.
var CompletionAttemptsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "completion_attempts_total",
		Help:      "Total delivery-completion write attempts, retries included.",
	},
)

// CompletionFailuresTotal counts completion sequences that exhausted all retries.
var CompletionFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "completion_failures_total",
		Help:      "Total delivery completions that exhausted every retry.",
	},
)

// ── Announcer ─────────────────────────────────────────────────────────────────

// AnnouncementsSpokenTotal counts proximity-triggered spoken instructions.
var AnnouncementsSpokenTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "announcements_spoken_total",
		Help:      "Total proximity-triggered voice announcements fired.",
	},
)

// ── Map bridge ────────────────────────────────────────────────────────────────

// BridgeQueueDepth tracks commands queued while the rendering sink is not ready.
var BridgeQueueDepth = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "bridge_queue_depth",
		Help:      "Commands pending flush to the map rendering sink.",
	},
)
