package quota

import "strings"

// Action identifies the bucket a gated operation draws from.
type Action string

const (
	ActionMail          Action = "mail"
	ActionProfileChange Action = "profileChange"
)

// Actions lists every known kind.
var Actions = []Action{ActionMail, ActionProfileChange}

// ParseAction resolves a wire name to an Action.
func ParseAction(s string) (Action, error) {
	switch strings.TrimSpace(s) {
	case string(ActionMail):
		return ActionMail, nil
	case string(ActionProfileChange):
		return ActionProfileChange, nil
	}
	return "", ErrUnknownAction
}

// Valid reports whether a is one of the known kinds.
func (a Action) Valid() bool {
	return a == ActionMail || a == ActionProfileChange
}

// Field is the name of the counter inside the persisted limits object.
func (a Action) Field() string {
	switch a {
	case ActionMail:
		return "mailsToday"
	case ActionProfileChange:
		return "profileChangesToday"
	}
	return ""
}
