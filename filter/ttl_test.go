package filter

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestInsertReportsPriorValue(t *testing.T) {
	mock := clock.NewMock()
	f := New[string, int](int64(time.Minute), 0, mock)

	if _, had := f.Insert("a", 1); had {
		t.Fatalf("first insert should report no prior value")
	}
	prior, had := f.Insert("a", 2)
	if !had || prior != 1 {
		t.Fatalf("second insert should report prior value 1, got %v %v", prior, had)
	}
	if got := f.Count("a"); got != 2 {
		t.Fatalf("count should be 2 after two inserts, got %d", got)
	}
}

func TestTTLExpiry(t *testing.T) {
	mock := clock.NewMock()
	f := New[string, struct{}](int64(time.Minute), 0, mock)

	f.Insert("k", struct{}{})
	if !f.Contains("k") {
		t.Fatalf("key should be present immediately after insert")
	}

	mock.Add(time.Minute + time.Millisecond)
	if f.Contains("k") {
		t.Fatalf("key should have expired")
	}

	// Re-insert after expiry reports the first occurrence again.
	if _, had := f.Insert("k", struct{}{}); had {
		t.Fatalf("insert after expiry should report no prior value")
	}
	if got := f.Count("k"); got != 1 {
		t.Fatalf("count should reset to 1 after expiry, got %d", got)
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	mock := clock.NewMock()
	f := New[int, struct{}](int64(time.Hour), 2, mock)

	f.Insert(1, struct{}{})
	mock.Add(time.Second)
	f.Insert(2, struct{}{})
	mock.Add(time.Second)
	f.Insert(3, struct{}{})

	if f.Contains(1) {
		t.Fatalf("oldest entry should have been evicted once capacity exceeded")
	}
	if !f.Contains(2) || !f.Contains(3) {
		t.Fatalf("most recent entries should remain")
	}
	if f.Len() != 2 {
		t.Fatalf("expected len 2, got %d", f.Len())
	}
}
