package observability

import (
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/tickets", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/tickets", "GET", 200, 30*time.Millisecond)
	m.RecordRequest("/tickets/:id", "GET", 404, time.Millisecond)
	m.RecordError("/tickets/:id", "GET", "NOT_FOUND")

	snap := m.Snapshot()
	if len(snap.Requests) != 2 || len(snap.Errors) != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
	first := snap.Requests[0]
	if first.Key != "GET /tickets 200" || first.Requests != 2 || first.AvgLatencyMs != 20 {
		t.Errorf("first = %+v", first)
	}
	if snap.Errors[0].Key != "GET /tickets/:id NOT_FOUND" || snap.Errors[0].Count != 1 {
		t.Errorf("errors = %+v", snap.Errors)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	if snap := m.Snapshot(); len(snap.Requests) != 0 {
		t.Errorf("snapshot = %+v", snap)
	}
}
