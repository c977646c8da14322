package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterAddsEveryCollectorExactlyOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("unexpected error registering collectors: %v", err)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("unexpected error gathering: %v", err)
	}
	// Histogram/Counter/CounterVec/GaugeVec with no observations yet still register
	// fully-qualified metric families once any series exists; registration success
	// itself is the property under test, so just confirm gather doesn't error.
	_ = mfs
}

func TestRegisterTwiceOnSameRegistryFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("unexpected error on first registration: %v", err)
	}
	if err := Register(reg); err == nil {
		t.Fatalf("expected duplicate registration against the same registry to fail")
	}
}
