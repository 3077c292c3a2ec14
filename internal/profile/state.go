package profile

import "fmt"

// State is a session's position in the greeting state machine.
//
//	Unknown --prompt--> NameCollection --name--> Identified
type State int

const (
	Unknown State = iota
	NameCollection
	Identified
)

func (s State) String() string {
	switch s {
	case Unknown:
		return "UNKNOWN"
	case NameCollection:
		return "NAME_COLLECTION"
	case Identified:
		return "IDENTIFIED"
	default:
		return "INVALID"
	}
}

// MarshalText renders the state name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{Unknown, NameCollection, Identified} {
		if string(text) == st.String() {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", text)
}

// InitialState returns the state a session starts in for p.
func InitialState(p Profile, minInteractions int) State {
	if p.IsNew(minInteractions) {
		return Unknown
	}
	return Identified
}
