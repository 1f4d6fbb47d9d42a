package changegroup

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/avlogic/qsys-bridge/internal/control"
	"github.com/avlogic/qsys-bridge/internal/eventcache"
)

type wireCall struct {
	method string
	params any
}

// fakeTransport records calls and answers via a pluggable respond func.
type fakeTransport struct {
	mu      sync.Mutex
	calls   []wireCall
	respond func(method string, params any) (json.RawMessage, error)
}

func (f *fakeTransport) Send(_ context.Context, method string, params any) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, wireCall{method: method, params: params})
	f.mu.Unlock()
	if f.respond != nil {
		return f.respond(method, params)
	}
	return json.RawMessage(`{}`), nil
}

func (f *fakeTransport) callsFor(method string) []wireCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []wireCall
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

// fakeRecorder captures Record/DropGroup calls.
type fakeRecorder struct {
	mu       sync.Mutex
	recorded map[string][]eventcache.Entry
	dropped  []string
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{recorded: make(map[string][]eventcache.Entry)}
}

func (f *fakeRecorder) Record(groupID string, entries []eventcache.Entry) {
	f.mu.Lock()
	f.recorded[groupID] = append(f.recorded[groupID], entries...)
	f.mu.Unlock()
}

func (f *fakeRecorder) DropGroup(groupID string) {
	f.mu.Lock()
	f.dropped = append(f.dropped, groupID)
	f.mu.Unlock()
}

func (f *fakeRecorder) count(groupID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recorded[groupID])
}

// fakeSink captures fan-out batches.
type fakeSink struct {
	mu      sync.Mutex
	batches [][]eventcache.Entry
}

func (f *fakeSink) PublishChanges(_ string, entries []eventcache.Entry) {
	f.mu.Lock()
	f.batches = append(f.batches, entries)
	f.mu.Unlock()
}

func TestCreate_IdempotentWithWarning(t *testing.T) {
	reg := NewRegistry(&fakeTransport{}, nil)

	warning, err := reg.Create("g1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if warning != "" {
		t.Errorf("first Create() warning = %q, want none", warning)
	}

	if err := reg.AddControls(context.Background(), "g1", []string{"Mixer.gain", "Mixer.mute"}); err != nil {
		t.Fatalf("AddControls() error = %v", err)
	}

	warning, err = reg.Create("g1")
	if err != nil {
		t.Fatalf("second Create() error = %v, want idempotent success", err)
	}
	if !strings.Contains(warning, "g1") || !strings.Contains(warning, "2") {
		t.Errorf("warning = %q, want existing group id and control count", warning)
	}
}

func TestAddControls_AutoCreatesAndSendsOnlyNew(t *testing.T) {
	transport := &fakeTransport{}
	reg := NewRegistry(transport, nil)

	if err := reg.AddControls(context.Background(), "g1", []string{"Mixer.gain"}); err != nil {
		t.Fatalf("AddControls() error = %v", err)
	}
	if err := reg.AddControls(context.Background(), "g1", []string{"Mixer.gain", "Mixer.mute"}); err != nil {
		t.Fatalf("AddControls() error = %v", err)
	}

	calls := transport.callsFor("ChangeGroup.AddControl")
	if len(calls) != 2 {
		t.Fatalf("AddControl calls = %d, want 2", len(calls))
	}
	second := calls[1].params.(map[string]any)
	controls := second["Controls"].([]string)
	if len(controls) != 1 || controls[0] != "Mixer.mute" {
		t.Errorf("second AddControl sent %v, want only the new control", controls)
	}

	members, err := reg.Controls("g1")
	if err != nil {
		t.Fatalf("Controls() error = %v", err)
	}
	if len(members) != 2 || members[0] != "Mixer.gain" || members[1] != "Mixer.mute" {
		t.Errorf("Controls() = %v, want insertion order", members)
	}
}

func TestAddControls_AllDuplicatesSkipsWire(t *testing.T) {
	transport := &fakeTransport{}
	reg := NewRegistry(transport, nil)

	if err := reg.AddControls(context.Background(), "g1", []string{"Mixer.gain"}); err != nil {
		t.Fatalf("AddControls() error = %v", err)
	}
	if err := reg.AddControls(context.Background(), "g1", []string{"Mixer.gain"}); err != nil {
		t.Fatalf("AddControls() error = %v", err)
	}

	if calls := transport.callsFor("ChangeGroup.AddControl"); len(calls) != 1 {
		t.Errorf("AddControl calls = %d, want 1 (duplicate add stays local)", len(calls))
	}
}

func TestAddControls_InvalidFormat(t *testing.T) {
	transport := &fakeTransport{}
	reg := NewRegistry(transport, nil)

	err := reg.AddControls(context.Background(), "g1", []string{".gain"})
	if !errors.Is(err, control.ErrInvalidFormat) {
		t.Fatalf("AddControls() error = %v, want ErrInvalidFormat", err)
	}
	if len(transport.calls) != 0 {
		t.Error("invalid control name reached the wire")
	}
}

func TestRemoveControls(t *testing.T) {
	transport := &fakeTransport{}
	reg := NewRegistry(transport, nil)

	mustAdd(t, reg, "g1", "Mixer.gain", "Mixer.mute")
	if err := reg.RemoveControls(context.Background(), "g1", []string{"Mixer.gain"}); err != nil {
		t.Fatalf("RemoveControls() error = %v", err)
	}

	if calls := transport.callsFor("ChangeGroup.Remove"); len(calls) != 1 {
		t.Errorf("Remove calls = %d, want 1", len(calls))
	}
	members, _ := reg.Controls("g1")
	if len(members) != 1 || members[0] != "Mixer.mute" {
		t.Errorf("Controls() after remove = %v, want [Mixer.mute]", members)
	}
}

func TestClear(t *testing.T) {
	transport := &fakeTransport{}
	reg := NewRegistry(transport, nil)

	mustAdd(t, reg, "g1", "Mixer.gain")
	if err := reg.Clear(context.Background(), "g1"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	if calls := transport.callsFor("ChangeGroup.Clear"); len(calls) != 1 {
		t.Errorf("Clear calls = %d, want 1", len(calls))
	}
	members, err := reg.Controls("g1")
	if err != nil {
		t.Fatalf("group vanished after clear: %v", err)
	}
	if len(members) != 0 {
		t.Errorf("Controls() after clear = %v, want empty", members)
	}
}

func TestDestroy(t *testing.T) {
	transport := &fakeTransport{}
	recorder := newFakeRecorder()
	reg := NewRegistry(transport, recorder)

	mustAdd(t, reg, "g1", "Mixer.gain")
	if err := reg.Destroy(context.Background(), "g1"); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}

	if calls := transport.callsFor("ChangeGroup.Destroy"); len(calls) != 1 {
		t.Errorf("Destroy calls = %d, want 1", len(calls))
	}
	if _, err := reg.Controls("g1"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("Controls() after destroy error = %v, want ErrGroupNotFound", err)
	}
	if len(recorder.dropped) != 1 || recorder.dropped[0] != "g1" {
		t.Errorf("recorder.dropped = %v, want [g1]", recorder.dropped)
	}
}

func TestList_SortedSummaries(t *testing.T) {
	reg := NewRegistry(&fakeTransport{}, nil)
	mustAdd(t, reg, "zone-b", "Mixer.gain")
	mustAdd(t, reg, "zone-a", "Mixer.gain", "Mixer.mute")

	infos := reg.List()
	if len(infos) != 2 {
		t.Fatalf("List() returned %d groups, want 2", len(infos))
	}
	if infos[0].ID != "zone-a" || infos[1].ID != "zone-b" {
		t.Errorf("List() order = [%s %s], want sorted by id", infos[0].ID, infos[1].ID)
	}
	if infos[0].ControlCount != 2 || infos[1].ControlCount != 1 {
		t.Errorf("List() counts = [%d %d], want [2 1]", infos[0].ControlCount, infos[1].ControlCount)
	}
}

func TestPollOnce_RecordsAndFansOut(t *testing.T) {
	transport := &fakeTransport{
		respond: func(method string, _ any) (json.RawMessage, error) {
			if method == "ChangeGroup.Poll" {
				return json.RawMessage(`{
					"Id": "g1",
					"Changes": [
						{"Name": "gain", "Component": "Mixer", "Value": -12.0, "String": "-12.0dB"},
						{"Name": "MainMute", "Value": 1}
					]
				}`), nil
			}
			return json.RawMessage(`{}`), nil
		},
	}
	recorder := newFakeRecorder()
	sink := &fakeSink{}
	reg := NewRegistry(transport, recorder)
	reg.AddSink(sink)

	mustAdd(t, reg, "g1", "Mixer.gain", "MainMute")
	entries, err := reg.PollOnce(context.Background(), "g1")
	if err != nil {
		t.Fatalf("PollOnce() error = %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("PollOnce() returned %d entries, want 2", len(entries))
	}
	if entries[0].Control != "Mixer.gain" {
		t.Errorf("component change name = %q, want Mixer.gain", entries[0].Control)
	}
	if entries[1].Control != "MainMute" {
		t.Errorf("named change name = %q, want MainMute", entries[1].Control)
	}
	if entries[0].String != "-12.0dB" {
		t.Errorf("display string = %q, want -12.0dB", entries[0].String)
	}

	if recorder.count("g1") != 2 {
		t.Errorf("recorder got %d entries, want 2", recorder.count("g1"))
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.batches) != 1 || len(sink.batches[0]) != 2 {
		t.Errorf("sink batches = %v, want one batch of 2", sink.batches)
	}
}

func TestPollOnce_DestroyedMidPollDoesNotRecord(t *testing.T) {
	recorder := newFakeRecorder()
	transport := &fakeTransport{}
	reg := NewRegistry(transport, recorder)

	// Destroy the group while its poll response is still in flight.
	transport.respond = func(method string, _ any) (json.RawMessage, error) {
		if method == "ChangeGroup.Poll" {
			if err := reg.Destroy(context.Background(), "g1"); err != nil {
				t.Errorf("Destroy() error = %v", err)
			}
			return json.RawMessage(`{"Id":"g1","Changes":[{"Name":"MainMute","Value":1}]}`), nil
		}
		return json.RawMessage(`{}`), nil
	}
	mustAdd(t, reg, "g1", "MainMute")

	if _, err := reg.PollOnce(context.Background(), "g1"); !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("PollOnce() error = %v, want ErrGroupNotFound", err)
	}
	if recorder.count("g1") != 0 {
		t.Errorf("recorder got %d entries for a destroyed group, want 0", recorder.count("g1"))
	}
}

func TestPollOnce_UnknownGroup(t *testing.T) {
	reg := NewRegistry(&fakeTransport{}, nil)
	if _, err := reg.PollOnce(context.Background(), "nope"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("PollOnce() error = %v, want ErrGroupNotFound", err)
	}
}

func TestPollOnce_TransportError(t *testing.T) {
	transport := &fakeTransport{
		respond: func(method string, _ any) (json.RawMessage, error) {
			if method == "ChangeGroup.Poll" {
				return nil, errors.New("connection reset")
			}
			return json.RawMessage(`{}`), nil
		},
	}
	reg := NewRegistry(transport, nil)
	mustAdd(t, reg, "g1", "Mixer.gain")

	if _, err := reg.PollOnce(context.Background(), "g1"); !errors.Is(err, ErrTransport) {
		t.Errorf("PollOnce() error = %v, want ErrTransport", err)
	}
}

func mustAdd(t *testing.T, reg *Registry, id string, names ...string) {
	t.Helper()
	if err := reg.AddControls(context.Background(), id, names); err != nil {
		t.Fatalf("AddControls(%s) error = %v", id, err)
	}
}
