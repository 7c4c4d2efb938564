package chat

// Phase is the explicit session lifecycle state. The shell derives all
// of its visibility decisions from this single value instead of a set of
// nullable flags, so invalid combinations cannot be represented.
type Phase string

const (
	// PhasePersonaPending is the fresh-chat state: no session focused,
	// no persona chosen, persona picker visible.
	PhasePersonaPending Phase = "persona_pending"
	// PhaseComposing is a fresh chat with a persona chosen but no title
	// minted yet: the input is visible, the first submission creates the
	// session.
	PhaseComposing Phase = "composing"
	// PhaseActive means an existing session is focused.
	PhaseActive Phase = "active"
)

// State is the snapshot the shell renders from.
type State struct {
	Phase        Phase  `json:"phase"`
	CurrentTitle string `json:"currentTitle,omitempty"`
	Persona      string `json:"persona,omitempty"`
}

// Event describes a state change worth pushing to connected shells.
type Event struct {
	Type  string `json:"event"`
	Title string `json:"title,omitempty"`
}

// Event types emitted by the service.
const (
	EventNewChat        = "new_chat"
	EventSessionFocused = "session_focused"
	EventPersonaChosen  = "persona_chosen"
	EventMessages       = "messages_appended"
	EventSessionDeleted = "session_deleted"
)

// Notifier receives change events. Implementations must not block.
type Notifier func(Event)
