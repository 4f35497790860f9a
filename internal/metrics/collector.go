package linkmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const namespace = "linkup"

// Subsystems group metrics by bring-up stage.
const (
	subsystemWifi    = "wifi"
	subsystemNet     = "net"
	subsystemSession = "session"
)

// Label names for bring-up metrics.
const (
	labelFromState = "from_state"
	labelToState   = "to_state"
	labelOutcome   = "outcome"
)

// -------------------------------------------------------------------------
// Collector — Prometheus Bring-up Metrics
// -------------------------------------------------------------------------

// Collector holds all Prometheus metrics for the bring-up pipeline.
//
// The process is short-lived, so the metrics are most useful scraped or
// pushed at exit, or watched on a host that runs bring-up repeatedly:
//   - Association counters expose how hard the radio had to work.
//   - The address wait gauge records how long DHCP/SLAAC took.
//   - Exchange counters record the session outcome per failure phase.
type Collector struct {
	// AssociationAttempts counts wireless association attempts, successful
	// or not. One increment per connect call issued to the supplicant.
	AssociationAttempts prometheus.Counter

	// AssociationTransitions counts association FSM transitions, labeled
	// with the old and new state.
	AssociationTransitions *prometheus.CounterVec

	// AddressWaitSeconds records how long the link took to produce a
	// usable address. Set once per bring-up.
	AddressWaitSeconds prometheus.Gauge

	// Exchanges counts secure session exchanges by outcome: "ok" or the
	// name of the phase that failed (connect, handshake, write, flush,
	// read, decode).
	Exchanges *prometheus.CounterVec

	// ResponseBytes counts response bytes stored after truncation.
	ResponseBytes prometheus.Counter
}

// NewCollector creates a Collector with all bring-up metrics registered
// against the provided prometheus.Registerer. If reg is nil,
// prometheus.DefaultRegisterer is used.
//
// All metrics carry the "linkup_" namespace prefix to avoid collisions
// with other exporters on the host.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.AssociationAttempts,
		c.AssociationTransitions,
		c.AddressWaitSeconds,
		c.Exchanges,
		c.ResponseBytes,
	)

	return c
}

// newMetrics creates all Prometheus metric vectors without registering them.
func newMetrics() *Collector {
	return &Collector{
		AssociationAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemWifi,
			Name:      "association_attempts_total",
			Help:      "Total wireless association attempts issued to the supplicant.",
		}),

		AssociationTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemWifi,
			Name:      "association_transitions_total",
			Help:      "Total association FSM state transitions.",
		}, []string{labelFromState, labelToState}),

		AddressWaitSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemNet,
			Name:      "address_wait_seconds",
			Help:      "Seconds the link took to produce a usable address.",
		}),

		Exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemSession,
			Name:      "exchanges_total",
			Help:      "Total secure session exchanges by outcome.",
		}, []string{labelOutcome}),

		ResponseBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemSession,
			Name:      "response_bytes_total",
			Help:      "Total response bytes stored in the response buffer.",
		}),
	}
}

// -------------------------------------------------------------------------
// Association
// -------------------------------------------------------------------------

// IncAssociationAttempt increments the association attempt counter.
// Called once per connect call the association manager issues.
func (c *Collector) IncAssociationAttempt() {
	c.AssociationAttempts.Inc()
}

// ObserveAssociationTransition increments the transition counter with the
// old and new state labels. Used for alerting on radios that need many
// retries before settling.
func (c *Collector) ObserveAssociationTransition(from, to string) {
	c.AssociationTransitions.WithLabelValues(from, to).Inc()
}

// -------------------------------------------------------------------------
// Address Acquisition
// -------------------------------------------------------------------------

// SetAddressWaitSeconds records the observed address acquisition time.
func (c *Collector) SetAddressWaitSeconds(seconds float64) {
	c.AddressWaitSeconds.Set(seconds)
}

// -------------------------------------------------------------------------
// Secure Session
// -------------------------------------------------------------------------

// ObserveExchange increments the exchange counter for the given outcome.
func (c *Collector) ObserveExchange(outcome string) {
	c.Exchanges.WithLabelValues(outcome).Inc()
}

// AddResponseBytes adds the stored response byte count.
func (c *Collector) AddResponseBytes(n int) {
	c.ResponseBytes.Add(float64(n))
}
