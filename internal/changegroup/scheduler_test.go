package changegroup

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func pollingTransport(failing *atomic.Bool) *fakeTransport {
	return &fakeTransport{
		respond: func(method string, _ any) (json.RawMessage, error) {
			if method == "ChangeGroup.Poll" {
				if failing != nil && failing.Load() {
					return nil, errors.New("core unreachable")
				}
				return json.RawMessage(`{"Id":"g1","Changes":[{"Name":"gain","Component":"Mixer","Value":-10.0}]}`), nil
			}
			return json.RawMessage(`{}`), nil
		},
	}
}

func TestSetAutoPoll_RateValidation(t *testing.T) {
	tests := []struct {
		name    string
		rate    float64
		wantErr bool
	}{
		{"default via zero", 0, false},
		{"minimum rate", 0.03, false},
		{"maximum rate", 3600, false},
		{"one second", 1.0, false},
		{"below minimum", 0.029, true},
		{"above maximum", 3600.01, true},
		{"negative", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry(pollingTransport(nil), nil)
			mustAdd(t, reg, "g1", "Mixer.gain")
			defer reg.StopAll()

			err := reg.SetAutoPoll("g1", tt.rate)
			if tt.wantErr {
				if !errors.Is(err, ErrRateOutOfRange) {
					t.Fatalf("SetAutoPoll(%g) error = %v, want ErrRateOutOfRange", tt.rate, err)
				}
				if reg.HasAutoPoll("g1") {
					t.Error("rejected rate left a poller running")
				}
				return
			}
			if err != nil {
				t.Fatalf("SetAutoPoll(%g) error = %v", tt.rate, err)
			}
			if !reg.HasAutoPoll("g1") {
				t.Error("HasAutoPoll = false after successful SetAutoPoll")
			}
		})
	}
}

func TestSetAutoPoll_RejectedRateKeepsRunningPoller(t *testing.T) {
	reg := NewRegistry(pollingTransport(nil), nil)
	mustAdd(t, reg, "g1", "Mixer.gain")
	defer reg.StopAll()

	if err := reg.SetAutoPoll("g1", 3600); err != nil {
		t.Fatalf("SetAutoPoll() error = %v", err)
	}
	if err := reg.SetAutoPoll("g1", 0.001); !errors.Is(err, ErrRateOutOfRange) {
		t.Fatalf("SetAutoPoll(0.001) error = %v, want ErrRateOutOfRange", err)
	}
	if !reg.HasAutoPoll("g1") {
		t.Error("existing poller was disturbed by a rejected rate")
	}
}

func TestSetAutoPoll_UnknownGroup(t *testing.T) {
	reg := NewRegistry(pollingTransport(nil), nil)
	if err := reg.SetAutoPoll("nope", 1.0); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("SetAutoPoll() error = %v, want ErrGroupNotFound", err)
	}
}

func TestAutoPoll_PollsAtConfiguredRate(t *testing.T) {
	transport := pollingTransport(nil)
	recorder := newFakeRecorder()
	reg := NewRegistry(transport, recorder)
	mustAdd(t, reg, "g1", "Mixer.gain", "Mixer.mute")

	// Fastest accepted rate: 0.03s per poll.
	if err := reg.SetAutoPoll("g1", 0.03); err != nil {
		t.Fatalf("SetAutoPoll() error = %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	if err := reg.ClearAutoPoll("g1"); err != nil {
		t.Fatalf("ClearAutoPoll() error = %v", err)
	}
	polls := len(transport.callsFor("ChangeGroup.Poll"))
	if polls < 3 {
		t.Errorf("polls in 200ms at 30ms rate = %d, want at least 3", polls)
	}
	if reg.HasAutoPoll("g1") {
		t.Error("HasAutoPoll = true after ClearAutoPoll")
	}

	// Disable is synchronous: nothing may land in the cache afterwards.
	recorded := recorder.count("g1")
	time.Sleep(100 * time.Millisecond)
	if got := recorder.count("g1"); got != recorded {
		t.Errorf("cache grew from %d to %d after ClearAutoPoll", recorded, got)
	}
}

func TestSetAutoPoll_ReplaceStopsOldLoop(t *testing.T) {
	transport := pollingTransport(nil)
	reg := NewRegistry(transport, nil)
	mustAdd(t, reg, "g1", "Mixer.gain")
	defer reg.StopAll()

	if err := reg.SetAutoPoll("g1", 0.03); err != nil {
		t.Fatalf("SetAutoPoll() error = %v", err)
	}
	// Replace with a rate that will not tick during the test window.
	if err := reg.SetAutoPoll("g1", 3600); err != nil {
		t.Fatalf("replacement SetAutoPoll() error = %v", err)
	}

	baseline := len(transport.callsFor("ChangeGroup.Poll"))
	time.Sleep(150 * time.Millisecond)
	if got := len(transport.callsFor("ChangeGroup.Poll")); got != baseline {
		t.Errorf("polls grew from %d to %d after replacement, old loop still alive", baseline, got)
	}
}

func TestAutoPoll_ConsecutiveFailuresResetOnSuccess(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)

	reg := NewRegistry(pollingTransport(&failing), nil)
	mustAdd(t, reg, "g1", "Mixer.gain")
	defer reg.StopAll()

	if err := reg.SetAutoPoll("g1", 0.03); err != nil {
		t.Fatalf("SetAutoPoll() error = %v", err)
	}

	deadline := time.After(2 * time.Second)
	for reg.ConsecutiveFailures("g1") < 2 {
		select {
		case <-deadline:
			t.Fatalf("failure counter never reached 2, got %d", reg.ConsecutiveFailures("g1"))
		case <-time.After(10 * time.Millisecond):
		}
	}

	failing.Store(false)
	deadline = time.After(2 * time.Second)
	for reg.ConsecutiveFailures("g1") != 0 {
		select {
		case <-deadline:
			t.Fatalf("failure counter never reset, got %d", reg.ConsecutiveFailures("g1"))
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestDestroy_StopsPoller(t *testing.T) {
	transport := pollingTransport(nil)
	recorder := newFakeRecorder()
	reg := NewRegistry(transport, recorder)
	mustAdd(t, reg, "g1", "Mixer.gain")

	if err := reg.SetAutoPoll("g1", 0.03); err != nil {
		t.Fatalf("SetAutoPoll() error = %v", err)
	}
	if err := reg.Destroy(context.Background(), "g1"); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}

	baseline := len(transport.callsFor("ChangeGroup.Poll"))
	time.Sleep(100 * time.Millisecond)
	if got := len(transport.callsFor("ChangeGroup.Poll")); got != baseline {
		t.Errorf("polls grew from %d to %d after destroy", baseline, got)
	}
}
