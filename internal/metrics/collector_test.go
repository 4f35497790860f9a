package linkmetrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	linkmetrics "github.com/CodingInGreen/linkup/internal/metrics"
)

func TestNewCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := linkmetrics.NewCollector(reg)

	if c.AssociationAttempts == nil {
		t.Error("AssociationAttempts is nil")
	}
	if c.AssociationTransitions == nil {
		t.Error("AssociationTransitions is nil")
	}
	if c.AddressWaitSeconds == nil {
		t.Error("AddressWaitSeconds is nil")
	}
	if c.Exchanges == nil {
		t.Error("Exchanges is nil")
	}
	if c.ResponseBytes == nil {
		t.Error("ResponseBytes is nil")
	}

	// Verify all metrics are registered by gathering them.
	if _, err := reg.Gather(); err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
}

func TestAssociationMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := linkmetrics.NewCollector(reg)

	c.IncAssociationAttempt()
	c.IncAssociationAttempt()
	c.IncAssociationAttempt()

	if val := counterValue(t, c.AssociationAttempts); val != 3 {
		t.Errorf("AssociationAttempts = %v, want 3", val)
	}

	c.ObserveAssociationTransition("Connecting", "RetryWait")
	c.ObserveAssociationTransition("Connecting", "RetryWait")
	c.ObserveAssociationTransition("Connecting", "Connected")

	if val := counterVecValue(t, c.AssociationTransitions, "Connecting", "RetryWait"); val != 2 {
		t.Errorf("transitions Connecting->RetryWait = %v, want 2", val)
	}
	if val := counterVecValue(t, c.AssociationTransitions, "Connecting", "Connected"); val != 1 {
		t.Errorf("transitions Connecting->Connected = %v, want 1", val)
	}
}

func TestAddressWaitGauge(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := linkmetrics.NewCollector(reg)

	c.SetAddressWaitSeconds(12.4)

	m := &dto.Metric{}
	if err := c.AddressWaitSeconds.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	if val := m.GetGauge().GetValue(); val != 12.4 {
		t.Errorf("AddressWaitSeconds = %v, want 12.4", val)
	}
}

func TestExchangeMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := linkmetrics.NewCollector(reg)

	c.ObserveExchange("handshake")
	c.ObserveExchange("ok")
	c.ObserveExchange("ok")
	c.AddResponseBytes(37)
	c.AddResponseBytes(5)

	if val := counterVecValue(t, c.Exchanges, "ok"); val != 2 {
		t.Errorf("Exchanges ok = %v, want 2", val)
	}
	if val := counterVecValue(t, c.Exchanges, "handshake"); val != 1 {
		t.Errorf("Exchanges handshake = %v, want 1", val)
	}
	if val := counterValue(t, c.ResponseBytes); val != 42 {
		t.Errorf("ResponseBytes = %v, want 42", val)
	}
}

// -------------------------------------------------------------------------
// Helpers
// -------------------------------------------------------------------------

// counterValue reads the current value of a plain Counter.
func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

// counterVecValue reads the current value of a CounterVec with the given labels.
func counterVecValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()

	counter, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := counter.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}
