package ai

import (
	"fmt"
	"strings"

	"github.com/personachat/backend/internal/model/persona"
)

const neutralInstruction = "Interact on a neutral tone"

// SystemInstruction builds the system message for a persona. The lookup
// is case-insensitive; an unknown or empty persona falls back to the
// neutral instruction.
func SystemInstruction(personas persona.Store, name string) string {
	label := "neutral"
	instruction := neutralInstruction

	if name != "" {
		label = strings.ToLower(name)
		if p, ok := personas.FindByName(name); ok {
			instruction = p.Instruction
		}
	}

	return fmt.Sprintf("You're now interacting with the %s persona. %s", label, instruction)
}
