package observability

import (
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/tickets/:id", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/api/tickets/:id", "GET", 200, 30*time.Millisecond)
	m.RecordRequest("/api/tickets", "POST", 201, 5*time.Millisecond)
	m.RecordError("/api/tickets/:id", "GET", "NOT_FOUND")

	snap := m.Snapshot()
	if len(snap.Requests) != 2 {
		t.Fatalf("expected 2 request rows, got %d", len(snap.Requests))
	}
	first := snap.Requests[0]
	if first.Route != "/api/tickets" || first.Method != "POST" || first.Status != 201 || first.Count != 1 {
		t.Fatalf("unexpected first row %+v", first)
	}
	second := snap.Requests[1]
	if second.Count != 2 || second.AvgDurationMs != 20 {
		t.Fatalf("unexpected aggregate %+v", second)
	}
	if len(snap.Errors) != 1 || snap.Errors[0].Code != "NOT_FOUND" || snap.Errors[0].Count != 1 {
		t.Fatalf("unexpected errors %+v", snap.Errors)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	if snap := m.Snapshot(); len(snap.Requests) != 0 {
		t.Fatalf("nil metrics must produce an empty snapshot")
	}
}
