// Package prompt composes builder prompts and holds the builder form state.
package prompt

import (
	"encoding/json"
)

// Selection is the chosen value of one option group.
type Selection struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Selections maps option group labels to chosen values, keeping the order
// in which groups were first set. Each group holds at most one value.
type Selections struct {
	entries []Selection
}

// NewSelections returns selections seeded with pairs, applied in order.
func NewSelections(pairs ...Selection) *Selections {
	s := &Selections{}
	for _, p := range pairs {
		s.Set(p.Label, p.Value)
	}
	return s
}

// Set records value for label. A label keeps the position at which it was
// first set; an empty value clears the choice but holds that position, so
// choosing the group again puts it back where it was.
func (s *Selections) Set(label, value string) {
	for i := range s.entries {
		if s.entries[i].Label == label {
			s.entries[i].Value = value
			return
		}
	}
	s.entries = append(s.entries, Selection{Label: label, Value: value})
}

// Get returns the value chosen for label. A cleared group reports false.
func (s *Selections) Get(label string) (string, bool) {
	if s == nil {
		return "", false
	}
	for _, e := range s.entries {
		if e.Label == label {
			return e.Value, e.Value != ""
		}
	}
	return "", false
}

// Len is the number of groups with a value.
func (s *Selections) Len() int {
	return len(s.Values())
}

// Values returns the chosen values in position order, skipping cleared groups.
func (s *Selections) Values() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		if e.Value != "" {
			out = append(out, e.Value)
		}
	}
	return out
}

// Entries returns a copy of the label/value pairs in position order,
// cleared groups included.
func (s *Selections) Entries() []Selection {
	if s == nil {
		return []Selection{}
	}
	out := make([]Selection, len(s.entries))
	copy(out, s.entries)
	return out
}

// Clear removes every selection.
func (s *Selections) Clear() {
	s.entries = nil
}

// Clone returns an independent copy.
func (s *Selections) Clone() *Selections {
	return &Selections{entries: s.Entries()}
}

// MarshalJSON encodes the selections as an ordered list of pairs.
func (s *Selections) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Entries())
}

// UnmarshalJSON decodes an ordered list of pairs, applying Set semantics.
func (s *Selections) UnmarshalJSON(data []byte) error {
	var pairs []Selection
	if err := json.Unmarshal(data, &pairs); err != nil {
		return err
	}
	s.entries = nil
	for _, p := range pairs {
		s.Set(p.Label, p.Value)
	}
	return nil
}
