package control

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestValidate_OneQueryPerComponent(t *testing.T) {
	transport := &fakeTransport{
		respond: func(method string, _ any) (json.RawMessage, error) {
			if method == "Component.GetControls" {
				return json.RawMessage(`{"Name":"Mixer","Controls":[{"Name":"gain"},{"Name":"mute"}]}`), nil
			}
			return json.RawMessage(`[]`), nil
		},
	}
	engine := NewValidationEngine(transport)

	refs, _ := ParseReferences([]string{"Mixer.gain", "Mixer.mute", "Mixer.level"})
	failures := engine.Validate(context.Background(), refs)

	if calls := transport.callsFor("Component.GetControls"); len(calls) != 1 {
		t.Errorf("Component.GetControls calls = %d, want 1 per distinct component", len(calls))
	}

	if len(failures) != 1 {
		t.Fatalf("failures = %v, want exactly Mixer.level", failures)
	}
	if failures["Mixer.level"] != "Control 'level' not found on component 'Mixer'" {
		t.Errorf("Mixer.level message = %q", failures["Mixer.level"])
	}
}

func TestValidate_MissingComponentFailsAllItsControls(t *testing.T) {
	transport := &fakeTransport{
		respond: func(method string, _ any) (json.RawMessage, error) {
			if method == "Component.GetControls" {
				return nil, errors.New("rpc error 6: Unknown component")
			}
			return json.RawMessage(`[]`), nil
		},
	}
	engine := NewValidationEngine(transport)

	refs, _ := ParseReferences([]string{"Ghost.gain", "Ghost.mute"})
	failures := engine.Validate(context.Background(), refs)

	for _, name := range []string{"Ghost.gain", "Ghost.mute"} {
		if failures[name] != "Component not found" {
			t.Errorf("failures[%q] = %q, want %q", name, failures[name], "Component not found")
		}
	}
}

func TestValidate_NamedControls(t *testing.T) {
	transport := &fakeTransport{
		respond: func(method string, params any) (json.RawMessage, error) {
			if method == "Control.Get" {
				names := params.([]string)
				if names[0] == "Missing" {
					return nil, errors.New("rpc error 8: Unknown control")
				}
				return json.RawMessage(`[{"Name":"MainGain","Value":0}]`), nil
			}
			return json.RawMessage(`[]`), nil
		},
	}
	engine := NewValidationEngine(transport)

	refs, _ := ParseReferences([]string{"MainGain", "Missing"})
	failures := engine.Validate(context.Background(), refs)

	// One existence query per named control
	if calls := transport.callsFor("Control.Get"); len(calls) != 2 {
		t.Errorf("Control.Get calls = %d, want 2", len(calls))
	}

	if _, failed := failures["MainGain"]; failed {
		t.Error("MainGain failed validation, want pass")
	}
	if failures["Missing"] != "Named control 'Missing' not found" {
		t.Errorf("Missing message = %q", failures["Missing"])
	}
}

func TestValidate_MalformedListing(t *testing.T) {
	transport := &fakeTransport{
		respond: func(method string, _ any) (json.RawMessage, error) {
			return json.RawMessage(`"not an object"`), nil
		},
	}
	engine := NewValidationEngine(transport)

	refs, _ := ParseReferences([]string{"Mixer.gain"})
	failures := engine.Validate(context.Background(), refs)

	if failures["Mixer.gain"] != MsgUnexpectedResponse {
		t.Errorf("failures = %v, want unexpected-response message", failures)
	}
}
