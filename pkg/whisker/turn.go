package whisker

import (
	"fmt"
	"strings"
)

// Role identifies which side of a conversation authored one turn.
type Role string

const (
	// RoleSystem identifies system-level instructions.
	RoleSystem Role = "system"
	// RoleUser identifies user-authored conversational turns.
	RoleUser Role = "user"
	// RoleAssistant identifies assistant-authored conversational turns.
	RoleAssistant Role = "assistant"
)

// Validate checks whether this role value is supported.
func (r Role) Validate() error {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return nil
	default:
		return fmt.Errorf("validate role: unsupported role %q", r)
	}
}

// Turn is one role-tagged entry in a user's rolling conversation window.
//
// Memory records hold only user and assistant turns; system content is
// assembled separately by the context projection.
type Turn struct {
	// Role identifies who authored this turn.
	Role Role
	// Content is the plain text body of this turn.
	Content string
}

// Validate checks one conversation turn contract.
func (t Turn) Validate() error {
	switch t.Role {
	case RoleUser, RoleAssistant:
	default:
		return fmt.Errorf("validate turn: unsupported role %q", t.Role)
	}
	if strings.TrimSpace(t.Content) == "" {
		return fmt.Errorf("validate turn: missing content")
	}

	return nil
}
