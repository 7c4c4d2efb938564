package persona

// Persona captures a named behavioral instruction profile applied to the
// assistant for an entire session.
type Persona struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Emoji       string `json:"emoji"`
	Instruction string `json:"instruction"`
}

// Seed provides the default persona catalog exposed to the picker.
func Seed() []Persona {
	return []Persona{
		{
			ID:          "calm",
			Name:        "Calm",
			Emoji:       "😌",
			Instruction: "Please maintain a calm and composed tone in your responses.",
		},
		{
			ID:          "smart",
			Name:        "Smart",
			Emoji:       "🤓",
			Instruction: "You are now interacting with the smart persona. Provide intelligent and insightful responses.",
		},
		{
			ID:          "educational",
			Name:        "Educational",
			Emoji:       "👩‍🎓",
			Instruction: "This is the educational persona. Share knowledge and information in your responses.",
		},
		{
			ID:          "casual",
			Name:        "Casual",
			Emoji:       "😎",
			Instruction: "You are now in casual mode. Feel free to keep the conversation relaxed and informal.",
		},
	}
}
