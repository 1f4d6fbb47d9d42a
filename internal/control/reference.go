package control

import (
	"fmt"
	"strings"
)

// RefKind distinguishes the two Q-SYS addressing schemes.
type RefKind int

const (
	// KindNamed addresses a control directly by global name.
	KindNamed RefKind = iota

	// KindComponent addresses a control as <component>.<control>.
	KindComponent
)

// String returns the kind as a lowercase label.
func (k RefKind) String() string {
	if k == KindComponent {
		return "component"
	}
	return "named"
}

// Reference is a resolved control reference.
//
// For KindNamed only Name is set. For KindComponent, Component and Control
// are both non-empty; Control may itself contain dots (multi-segment paths
// like "Zone.1.Output.gain" split as component "Zone", control
// "1.Output.gain").
type Reference struct {
	// Raw is the caller-supplied string after whitespace trimming.
	Raw string

	Kind      RefKind
	Name      string // KindNamed only
	Component string // KindComponent only
	Control   string // KindComponent only
}

// ParseReference resolves a raw control name string.
//
// Leading/trailing whitespace (spaces, tabs, newlines) is trimmed first.
// A trimmed string with no dot is a named control. Otherwise the string
// splits at the first dot into component and control. A leading dot (empty
// component) or trailing dot (empty control) is a format error.
//
// Returns:
//   - Reference: The resolved reference
//   - error: ErrInvalidFormat carrying MsgInvalidFormat
func ParseReference(raw string) (Reference, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Reference{}, fmt.Errorf("%w: %s", ErrInvalidFormat, MsgInvalidFormat)
	}

	dot := strings.Index(trimmed, ".")
	if dot < 0 {
		return Reference{
			Raw:  trimmed,
			Kind: KindNamed,
			Name: trimmed,
		}, nil
	}

	component := trimmed[:dot]
	controlName := trimmed[dot+1:]
	if component == "" || controlName == "" {
		return Reference{}, fmt.Errorf("%w: %s", ErrInvalidFormat, MsgInvalidFormat)
	}

	return Reference{
		Raw:       trimmed,
		Kind:      KindComponent,
		Component: component,
		Control:   controlName,
	}, nil
}

// ParseReferences resolves a slice of raw names, failing on the first
// malformed entry.
func ParseReferences(raws []string) ([]Reference, error) {
	refs := make([]Reference, 0, len(raws))
	for _, raw := range raws {
		ref, err := ParseReference(raw)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", raw, err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// String returns the full caller-facing name of the reference.
func (r Reference) String() string {
	if r.Kind == KindComponent {
		return r.Component + "." + r.Control
	}
	return r.Name
}

// ComponentBatch groups the component-scoped references of one component so
// they can travel in a single Component.Get/Set call.
type ComponentBatch struct {
	Component  string
	References []Reference
}

// GroupByComponent splits references into named controls and per-component
// batches. Batch order follows first appearance so wire traffic is
// deterministic with respect to request order.
func GroupByComponent(refs []Reference) (named []Reference, batches []ComponentBatch) {
	index := make(map[string]int)

	for _, ref := range refs {
		if ref.Kind == KindNamed {
			named = append(named, ref)
			continue
		}

		i, ok := index[ref.Component]
		if !ok {
			i = len(batches)
			index[ref.Component] = i
			batches = append(batches, ComponentBatch{Component: ref.Component})
		}
		batches[i].References = append(batches[i].References, ref)
	}

	return named, batches
}
