package chat

import "time"

// Session is a derived view over the message collection, not a stored
// entity. The ID is a stable generated key; the title remains the
// user-visible deduplication key for backward compatibility with
// history exported by older clients.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Persona   string    `json:"persona,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Reply is the single assistant turn returned by the completion client.
type Reply struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
