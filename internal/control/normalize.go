package control

import (
	"encoding/json"
	"strings"
)

// resultEntry is one explicit per-control entry in a core response. The
// core only reports noteworthy outcomes; the Result field reads "Error" (or
// an Error message is present) for failures, and occasionally "Success" for
// explicit successes.
type resultEntry struct {
	Name   string `json:"Name"`
	Result string `json:"Result,omitempty"`
	Error  string `json:"Error,omitempty"`
}

// failed reports whether the entry marks an explicit failure.
func (e resultEntry) failed() bool {
	return e.Error != "" || strings.EqualFold(e.Result, "Error")
}

// message returns the failure message for a failed entry.
func (e resultEntry) message() string {
	if e.Error != "" {
		return e.Error
	}
	return "Control reported error result"
}

// decodeResultEntries decodes a core write/poll response into its explicit
// entries. The accepted shapes, decided once here so every call site shares
// the same rule, are:
//
//   - a JSON array of entries (possibly empty)
//   - an object whose "Controls" field is such an array
//
// Anything else (null, a bare string, a number, an object without the
// field) is malformed and returns ok=false, which classifies every control
// in the batch as failed.
func decodeResultEntries(raw json.RawMessage) (entries []resultEntry, ok bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, false
	}

	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, false
		}
		return entries, true
	case '{':
		var wrapper struct {
			Controls json.RawMessage `json:"Controls"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, false
		}
		if wrapper.Controls == nil {
			return nil, false
		}
		if err := json.Unmarshal(wrapper.Controls, &entries); err != nil {
			return nil, false
		}
		return entries, true
	default:
		return nil, false
	}
}

// normalizeBatch classifies every request in one wire batch against the
// core's response.
//
// The core reports success by omission: entries exist only for noteworthy
// outcomes. A requested control that is absent from the response succeeded.
// A malformed response fails the entire batch with MsgUnexpectedResponse.
//
// entryKey selects which part of the reference the core echoes back in
// entry names: the bare control name for component batches, the global
// name for named controls.
func normalizeBatch(reqs []SetRequest, raw json.RawMessage, entryKey func(Reference) string) []SetOutcome {
	outcomes := make([]SetOutcome, 0, len(reqs))

	entries, ok := decodeResultEntries(raw)
	if !ok {
		for _, req := range reqs {
			outcomes = append(outcomes, SetOutcome{
				Name:           req.Reference.String(),
				RequestedValue: req.Value,
				Success:        false,
				Error:          MsgUnexpectedResponse,
				Ramp:           req.Ramp,
			})
		}
		return outcomes
	}

	byName := make(map[string]resultEntry, len(entries))
	for _, e := range entries {
		byName[e.Name] = e
	}

	for _, req := range reqs {
		outcome := SetOutcome{
			Name:           req.Reference.String(),
			RequestedValue: req.Value,
			Ramp:           req.Ramp,
		}

		entry, present := byName[entryKey(req.Reference)]
		switch {
		case !present:
			// Absent from the response means the core applied it silently.
			outcome.Success = true
		case entry.failed():
			outcome.Error = entry.message()
		default:
			outcome.Success = true
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

// failBatch marks every request in a batch failed with the same message.
// Used for transport errors and pre-validation failures.
func failBatch(reqs []SetRequest, message string) []SetOutcome {
	outcomes := make([]SetOutcome, 0, len(reqs))
	for _, req := range reqs {
		outcomes = append(outcomes, SetOutcome{
			Name:           req.Reference.String(),
			RequestedValue: req.Value,
			Success:        false,
			Error:          message,
			Ramp:           req.Ramp,
		})
	}
	return outcomes
}
