package types

import (
	"strings"
	"time"
)

// Role represents the speaker of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleSystem marks locally rendered notes (e.g. a failed turn). Never replayed to vendors.
	RoleSystem Role = "system"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Turn is one message in a conversation. Order is significant.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// NewTurn creates a turn stamped with the current time.
func NewTurn(role Role, text string) Turn {
	return Turn{Role: role, Text: text, CreatedAt: time.Now()}
}

// NewUserTurn creates a user turn.
func NewUserTurn(text string) Turn { return NewTurn(RoleUser, text) }

// NewAssistantTurn creates an assistant turn.
func NewAssistantTurn(text string) Turn { return NewTurn(RoleAssistant, text) }

// ReplayableTurns returns the turns that are sent to a vendor, in order.
// System notes are dropped.
func ReplayableTurns(turns []Turn) []Turn {
	out := make([]Turn, 0, len(turns))
	for _, t := range turns {
		if t.Role == RoleUser || t.Role == RoleAssistant {
			out = append(out, t)
		}
	}
	return out
}

// LatestUserText returns the text of the newest user turn, or "".
func LatestUserText(turns []Turn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == RoleUser {
			return turns[i].Text
		}
	}
	return ""
}

// ConfigRecord is the persisted provider configuration a caller chats with.
type ConfigRecord struct {
	Provider       string `json:"provider"`
	Credential     string `json:"credential"`
	SelectedModel  string `json:"selected_model"`
	CustomEndpoint string `json:"custom_endpoint,omitempty"`
	IsActive       bool   `json:"is_active"`
}

// String masks the credential.
func (c ConfigRecord) String() string {
	var b strings.Builder
	b.WriteString("ConfigRecord{Provider:")
	b.WriteString(c.Provider)
	b.WriteString(", Credential:")
	if c.Credential == "" {
		b.WriteString("<empty>")
	} else {
		b.WriteString("***")
	}
	b.WriteString(", SelectedModel:")
	b.WriteString(c.SelectedModel)
	if c.CustomEndpoint != "" {
		b.WriteString(", CustomEndpoint:")
		b.WriteString(c.CustomEndpoint)
	}
	if c.IsActive {
		b.WriteString(", active")
	}
	b.WriteString("}")
	return b.String()
}
