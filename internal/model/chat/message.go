package chat

import "time"

// Roles recognized by the feed. Anything else an upstream model reports
// is normalized to RoleAssistant before it reaches the collection.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is the atomic unit of conversation. The persisted collection is
// a flattened chronological sequence of these across all sessions; the
// title doubles as the session's display key, so messages sharing a title
// belong to one conversation and carry the same persona.
type Message struct {
	ID        string    `json:"id,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
	Title     string    `json:"title"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Persona   string    `json:"persona,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// NormalizeRole maps unknown upstream roles to RoleAssistant.
func NormalizeRole(role string) string {
	if role == RoleUser {
		return RoleUser
	}
	return RoleAssistant
}
