package eventcache

import (
	"context"
	"testing"
	"time"
)

func entriesNamed(names ...string) []Entry {
	out := make([]Entry, len(names))
	for i, n := range names {
		out[i] = Entry{Control: n, Value: float64(i)}
	}
	return out
}

func TestRecord_AssignsSequenceAndTimestamp(t *testing.T) {
	cache := NewCache()
	cache.Record("g1", entriesNamed("Mixer.gain", "Mixer.mute"))
	cache.Record("g1", entriesNamed("Mixer.gain"))

	got, err := cache.Query(context.Background(), "g1", time.Time{}, time.Time{}, 0)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Query() returned %d entries, want 3", len(got))
	}
	for i, e := range got {
		if e.Sequence != uint64(i+1) {
			t.Errorf("entry %d sequence = %d, want %d", i, e.Sequence, i+1)
		}
		if e.Timestamp.IsZero() {
			t.Errorf("entry %d has zero timestamp", i)
		}
		if e.GroupID != "g1" {
			t.Errorf("entry %d group = %q, want g1", i, e.GroupID)
		}
	}
}

func TestRecord_CountEviction(t *testing.T) {
	cache := NewCache(WithDefaultPolicy(Policy{MaxEvents: 3, Priority: PriorityNormal}))

	for _, name := range []string{"a", "b", "c", "d", "e"} {
		cache.Record("g1", entriesNamed(name))
	}

	got, err := cache.Query(context.Background(), "g1", time.Time{}, time.Time{}, 0)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("after eviction size = %d, want 3", len(got))
	}
	// Oldest dropped first, most recent kept
	for i, want := range []string{"c", "d", "e"} {
		if got[i].Control != want {
			t.Errorf("entry %d = %q, want %q", i, got[i].Control, want)
		}
	}
}

func TestRecord_AgeEviction(t *testing.T) {
	cache := NewCache(WithDefaultPolicy(Policy{MaxAge: time.Minute, Priority: PriorityNormal}))

	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return base }
	cache.Record("g1", entriesNamed("stale"))

	cache.now = func() time.Time { return base.Add(2 * time.Minute) }
	cache.Record("g1", entriesNamed("fresh"))

	got, err := cache.Query(context.Background(), "g1", time.Time{}, time.Time{}, 0)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 1 || got[0].Control != "fresh" {
		t.Errorf("survivors = %v, want only fresh", got)
	}
}

func TestGlobalBound_EvictsLowPriorityFirst(t *testing.T) {
	cache := NewCache(WithGlobalMaxEvents(4))
	cache.SetPolicy("low", Policy{Priority: PriorityLow})
	cache.SetPolicy("high", Policy{Priority: PriorityHigh})

	cache.Record("high", entriesNamed("h1", "h2", "h3"))
	cache.Record("low", entriesNamed("l1", "l2", "l3"))

	if size := cache.GroupSize("high"); size != 3 {
		t.Errorf("high-priority group size = %d, want 3 (untouched)", size)
	}
	if size := cache.GroupSize("low"); size != 1 {
		t.Errorf("low-priority group size = %d, want 1", size)
	}

	got, _ := cache.Query(context.Background(), "low", time.Time{}, time.Time{}, 0)
	if len(got) != 1 || got[0].Control != "l3" {
		t.Errorf("low survivors = %v, want newest entry l3", got)
	}
}

func TestSetPolicy_AppliesImmediately(t *testing.T) {
	cache := NewCache()
	cache.Record("g1", entriesNamed("a", "b", "c", "d"))

	cache.SetPolicy("g1", Policy{MaxEvents: 2, Priority: PriorityNormal})

	if size := cache.GroupSize("g1"); size != 2 {
		t.Errorf("size after policy shrink = %d, want 2", size)
	}
}

func TestClearAndDropGroup(t *testing.T) {
	cache := NewCache()
	cache.Record("g1", entriesNamed("a", "b"))

	cache.ClearGroup("g1")
	if size := cache.GroupSize("g1"); size != 0 {
		t.Errorf("size after clear = %d, want 0", size)
	}

	// Sequence counter survives a clear
	cache.Record("g1", entriesNamed("c"))
	got, _ := cache.Query(context.Background(), "g1", time.Time{}, time.Time{}, 0)
	if len(got) != 1 || got[0].Sequence != 3 {
		t.Errorf("entry after clear = %+v, want sequence 3", got)
	}

	cache.DropGroup("g1")
	if size := cache.GroupSize("g1"); size != 0 {
		t.Errorf("size after drop = %d, want 0", size)
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		input   string
		want    Priority
		wantErr bool
	}{
		{"low", PriorityLow, false},
		{"Normal", PriorityNormal, false},
		{"HIGH", PriorityHigh, false},
		{"", PriorityNormal, false},
		{" high ", PriorityHigh, false},
		{"urgent", PriorityNormal, true},
	}

	for _, tt := range tests {
		got, err := ParsePriority(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePriority(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParsePriority(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
