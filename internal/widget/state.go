package widget

import "fmt"

// State is the SubmissionState of a widget.
type State int

const (
	StateIdle State = iota
	StateSending
	StateSuccess
	StateError
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	if s < StateIdle || s > StateError {
		return nil, fmt.Errorf("invalid state %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = StateIdle
	case "sending":
		*s = StateSending
	case "success":
		*s = StateSuccess
	case "error":
		*s = StateError
	default:
		return fmt.Errorf("unknown state %q", string(text))
	}
	return nil
}
