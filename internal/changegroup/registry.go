package changegroup

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/avlogic/qsys-bridge/internal/control"
	"github.com/avlogic/qsys-bridge/internal/eventcache"
	"github.com/avlogic/qsys-bridge/internal/qrc"
)

// group is the registry's record of one change group.
type group struct {
	id string

	mu      sync.Mutex
	ordered []string
	members map[string]struct{}
	poller  *poller

	failures atomic.Int64
}

func (g *group) snapshot() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.ordered))
	copy(out, g.ordered)
	return out
}

func (g *group) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.ordered)
}

// Registry tracks change groups and mirrors membership changes to the core.
type Registry struct {
	transport Transport
	recorder  ChangeRecorder
	logger    Logger

	mu     sync.RWMutex
	groups map[string]*group

	sinksMu sync.RWMutex
	sinks   []EventSink
}

// NewRegistry creates a registry. The recorder may be nil when no retention
// is wanted.
func NewRegistry(transport Transport, recorder ChangeRecorder) *Registry {
	return &Registry{
		transport: transport,
		recorder:  recorder,
		logger:    noopLogger{},
		groups:    make(map[string]*group),
	}
}

// SetLogger attaches a logger. The default discards everything.
func (r *Registry) SetLogger(l Logger) {
	if l != nil {
		r.logger = l
	}
}

// AddSink registers a fan-out target for observed changes. Not safe to call
// concurrently with itself, typically wired once during startup.
func (r *Registry) AddSink(sink EventSink) {
	if sink == nil {
		return
	}
	r.sinksMu.Lock()
	r.sinks = append(r.sinks, sink)
	r.sinksMu.Unlock()
}

func (r *Registry) lookup(id string) (*group, bool) {
	r.mu.RLock()
	g, ok := r.groups[id]
	r.mu.RUnlock()
	return g, ok
}

// Create registers a group locally. The core creates groups implicitly on
// first AddControl, so no wire call is made. Creating an existing group is
// not an error: the returned warning names the collision so callers can
// surface it.
func (r *Registry) Create(id string) (warning string, err error) {
	if id == "" {
		return "", fmt.Errorf("changegroup: empty group id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.groups[id]; ok {
		warning = fmt.Sprintf("change group %q already exists with %d controls",
			id, existing.count())
		r.logger.Warn("create on existing group", "group_id", id)
		return warning, nil
	}
	r.groups[id] = &group{id: id, members: make(map[string]struct{})}
	r.logger.Info("change group created", "group_id", id)
	return "", nil
}

// AddControls adds controls to a group, creating the group if needed.
// Control names are validated for format before anything is sent; names the
// group already contains are skipped so re-adding is idempotent on the wire.
func (r *Registry) AddControls(ctx context.Context, id string, names []string) error {
	refs, err := control.ParseReferences(names)
	if err != nil {
		return err
	}

	g, ok := r.lookup(id)
	if !ok {
		if _, err := r.Create(id); err != nil {
			return err
		}
		g, _ = r.lookup(id)
	}

	g.mu.Lock()
	fresh := make([]string, 0, len(refs))
	for _, ref := range refs {
		name := ref.String()
		if _, dup := g.members[name]; dup {
			continue
		}
		fresh = append(fresh, name)
	}
	g.mu.Unlock()

	if len(fresh) == 0 {
		return nil
	}

	params := map[string]any{"Id": id, "Controls": fresh}
	if _, err := r.transport.Send(ctx, qrc.MethodChangeGroupAdd, params); err != nil {
		return fmt.Errorf("%w: %s", ErrTransport, err.Error())
	}

	g.mu.Lock()
	for _, name := range fresh {
		if _, dup := g.members[name]; !dup {
			g.members[name] = struct{}{}
			g.ordered = append(g.ordered, name)
		}
	}
	total := len(g.ordered)
	g.mu.Unlock()

	r.logger.Debug("controls added to group",
		"group_id", id, "added", len(fresh), "total", total)
	return nil
}

// RemoveControls removes controls from a group. Unknown names are ignored
// by the core; local state drops them regardless.
func (r *Registry) RemoveControls(ctx context.Context, id string, names []string) error {
	g, ok := r.lookup(id)
	if !ok {
		return ErrGroupNotFound
	}

	params := map[string]any{"Id": id, "Controls": names}
	if _, err := r.transport.Send(ctx, qrc.MethodChangeGroupRemove, params); err != nil {
		return fmt.Errorf("%w: %s", ErrTransport, err.Error())
	}

	g.mu.Lock()
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	kept := g.ordered[:0]
	for _, n := range g.ordered {
		if _, gone := drop[n]; gone {
			delete(g.members, n)
			continue
		}
		kept = append(kept, n)
	}
	g.ordered = kept
	g.mu.Unlock()
	return nil
}

// Clear empties a group's membership on the core and locally. Cached events
// and any auto-poll schedule survive a clear.
func (r *Registry) Clear(ctx context.Context, id string) error {
	g, ok := r.lookup(id)
	if !ok {
		return ErrGroupNotFound
	}

	params := map[string]any{"Id": id}
	if _, err := r.transport.Send(ctx, qrc.MethodChangeGroupClear, params); err != nil {
		return fmt.Errorf("%w: %s", ErrTransport, err.Error())
	}

	g.mu.Lock()
	g.ordered = nil
	g.members = make(map[string]struct{})
	g.mu.Unlock()
	return nil
}

// Destroy stops the group's poller, destroys it on the core, and drops the
// registry record plus any cached events.
func (r *Registry) Destroy(ctx context.Context, id string) error {
	g, ok := r.lookup(id)
	if !ok {
		return ErrGroupNotFound
	}

	r.stopPoller(g)

	params := map[string]any{"Id": id}
	if _, err := r.transport.Send(ctx, qrc.MethodChangeGroupDestroy, params); err != nil {
		return fmt.Errorf("%w: %s", ErrTransport, err.Error())
	}

	r.mu.Lock()
	delete(r.groups, id)
	r.mu.Unlock()

	if r.recorder != nil {
		r.recorder.DropGroup(id)
	}
	r.logger.Info("change group destroyed", "group_id", id)
	return nil
}

// List returns a summary of every known group, sorted by ID. Membership is
// answered from registry state: the core exposes no enumeration call.
func (r *Registry) List() []Info {
	r.mu.RLock()
	out := make([]Info, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, Info{
			ID:           g.id,
			ControlCount: g.count(),
			HasAutoPoll:  g.hasPoller(),
		})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Controls returns a group's members in insertion order.
func (r *Registry) Controls(id string) ([]string, error) {
	g, ok := r.lookup(id)
	if !ok {
		return nil, ErrGroupNotFound
	}
	return g.snapshot(), nil
}

// PollOnce issues a single ChangeGroup.Poll, records the observed changes,
// and fans them out to every sink. Returns the changes in core order.
func (r *Registry) PollOnce(ctx context.Context, id string) ([]eventcache.Entry, error) {
	if _, ok := r.lookup(id); !ok {
		return nil, ErrGroupNotFound
	}

	params := map[string]any{"Id": id}
	raw, err := r.transport.Send(ctx, qrc.MethodChangeGroupPoll, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTransport, err.Error())
	}

	var result pollResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: malformed poll response: %s", ErrTransport, err.Error())
	}

	entries := make([]eventcache.Entry, 0, len(result.Changes))
	for _, ch := range result.Changes {
		entries = append(entries, eventcache.Entry{
			GroupID: id,
			Control: ch.fullName(),
			Value:   ch.Value,
			String:  ch.String,
		})
	}
	if len(entries) == 0 {
		return entries, nil
	}

	// The group may have been destroyed while the poll was in flight.
	// Recording under the registry lock orders this write before any
	// concurrent Destroy's cache drop, so a dead group's buffer is
	// never resurrected.
	r.mu.RLock()
	_, alive := r.groups[id]
	if alive && r.recorder != nil {
		r.recorder.Record(id, entries)
	}
	r.mu.RUnlock()
	if !alive {
		return nil, ErrGroupNotFound
	}

	r.sinksMu.RLock()
	sinks := make([]EventSink, len(r.sinks))
	copy(sinks, r.sinks)
	r.sinksMu.RUnlock()
	for _, sink := range sinks {
		sink.PublishChanges(id, entries)
	}

	return entries, nil
}
