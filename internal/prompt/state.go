package prompt

import (
	"fmt"
	"time"
)

// CopyAckDelay is how long the "copied" acknowledgement stays visible.
const CopyAckDelay = 2 * time.Second

// ActionType names a builder state transition.
type ActionType string

const (
	ActionSetBase ActionType = "set_base"
	ActionSelect  ActionType = "select"
	ActionReset   ActionType = "reset"
	ActionCopy    ActionType = "copy"
	ActionTick    ActionType = "tick"
)

// Action is one user interaction with the builder form.
type Action struct {
	Type  ActionType `json:"type"`
	Label string     `json:"label,omitempty"`
	Value string     `json:"value,omitempty"`
}

// Validate checks the action shape. Option membership is checked by the
// caller, which knows the catalog.
func (a Action) Validate() error {
	switch a.Type {
	case ActionSetBase, ActionReset, ActionCopy, ActionTick:
		return nil
	case ActionSelect:
		if a.Label == "" {
			return fmt.Errorf("select action requires a label")
		}
		return nil
	case "":
		return fmt.Errorf("action type is required")
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
}

// State is the builder form for one client in one mode.
type State struct {
	Mode       string      `json:"mode"`
	Base       string      `json:"base"`
	Selections *Selections `json:"selections"`
	Prompt     string      `json:"prompt"`
	Copied     bool        `json:"copied"`
	CopiedAt   time.Time   `json:"copied_at,omitzero"`
}

// NewState returns the empty form for mode.
func NewState(mode string) State {
	return State{Mode: mode, Selections: NewSelections()}
}

// Reduce applies a to s and returns the next state; s is not modified. The
// prompt is recomputed on every transition, and an acknowledgement older
// than CopyAckDelay is cleared whatever the action.
func Reduce(s State, a Action, now time.Time) State {
	next := s
	if s.Selections == nil {
		next.Selections = NewSelections()
	} else {
		next.Selections = s.Selections.Clone()
	}

	switch a.Type {
	case ActionSetBase:
		next.Base = a.Value
	case ActionSelect:
		next.Selections.Set(a.Label, a.Value)
	case ActionReset:
		next.Base = ""
		next.Selections.Clear()
	case ActionCopy:
		if Compose(next.Base, next.Selections) != "" {
			next.Copied = true
			next.CopiedAt = now
		}
	}

	if next.Copied && a.Type != ActionCopy && !now.Before(next.CopiedAt.Add(CopyAckDelay)) {
		next.Copied = false
		next.CopiedAt = time.Time{}
	}

	next.Prompt = Compose(next.Base, next.Selections)
	return next
}
