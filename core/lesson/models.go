package lesson

import (
	"fmt"
	"strings"
)

// Mark literals. Only MarkIntroduced and MarkCompleted are ever pushed to the ledger.
const (
	MarkUnset      = ""
	MarkIntroduced = "/"
	MarkCompleted  = "X"
)

// ValidMark reports whether `v` is a mark that may be pushed. The comparison is exact: " X" or "x" are not marks.
func ValidMark(v string) bool {
	return v == MarkIntroduced || v == MarkCompleted
}

// IdentityKey correlates a student across roster, view and ledger.
// Names are compared trimmed, case-insensitive and with inner whitespace collapsed.
type IdentityKey struct {
	First string
	Last  string
}

func NewIdentityKey(first, last string) IdentityKey {
	return IdentityKey{First: normalizeName(first), Last: normalizeName(last)}
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func (k IdentityKey) Empty() bool {
	return k.First == "" && k.Last == ""
}

func (k IdentityKey) String() string {
	return strings.TrimSpace(k.First + " " + k.Last)
}

// Student is a roster record. The sync engine never writes it.
type Student struct {
	First    string `json:"first"`
	Last     string `json:"last"`
	Age      string `json:"age,omitempty"`
	Guardian string `json:"guardian,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Notes    string `json:"notes,omitempty"`
	Program  string `json:"program,omitempty"`
	Day      string `json:"day,omitempty"`
	Time     string `json:"time,omitempty"`
}

func (s Student) Key() IdentityKey {
	return NewIdentityKey(s.First, s.Last)
}

func (s Student) Name() string {
	return strings.TrimSpace(strings.TrimSpace(s.First) + " " + strings.TrimSpace(s.Last))
}

// ViewState is the lifecycle of the working view.
type ViewState int

const (
	StateEmpty ViewState = iota
	StatePulled
	StateDirty
	StateSynced
)

func (s ViewState) String() string {
	switch s {
	case StatePulled:
		return "pulled"
	case StateDirty:
		return "dirty"
	case StateSynced:
		return "synced"
	default:
		return "empty"
	}
}

func (s ViewState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ViewState) UnmarshalText(text []byte) error {
	for _, st := range []ViewState{StateEmpty, StatePulled, StateDirty, StateSynced} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown view state %q", text)
}
