package generate

import (
	"fmt"

	"github.com/matzehuels/cardforge/pkg/card"
)

// NegativePrompt lists what the model should avoid.
const NegativePrompt = "low quality, jpeg artifacts, blurry, distorted, watermark, text, logo, signature, " +
	"extra limbs, extra fingers, mutation, disfigured, poorly drawn hands, malformed anatomy, long neck, duplicate body"

// Style sets the setting and look woven into prompts.
type Style struct {
	// Faction names who the units and equipment belong to.
	Faction string
	// Look describes the drawing style.
	Look string
}

// DefaultStyle is the house style of the original card set.
var DefaultStyle = Style{
	Faction: "Ukrainian Air Assault",
	Look:    "'Volia' graphic novel style: thick ink lines, warm muted colors, gritty cel-shading",
}

// Prompt builds the generation prompt for a card.
func Prompt(c card.Card, s Style) string {
	if s.Faction == "" {
		s.Faction = DefaultStyle.Faction
	}
	if s.Look == "" {
		s.Look = DefaultStyle.Look
	}
	switch c.Type {
	case card.TypeUnit:
		return fmt.Sprintf("%s, %s soldier. Scene must reflect this role. %s. No superheroes.", c.Name, s.Faction, s.Look)
	case card.TypeTactic:
		return fmt.Sprintf("Tactical diagram for: %s. %s, simple arrows. No characters.", c.Name, s.Look)
	case card.TypeEquipment:
		return fmt.Sprintf("%s equipment: %s. %s.", s.Faction, c.Name, s.Look)
	case card.TypeEvent:
		return fmt.Sprintf("Military comic panel: %s. %s.", c.Name, s.Look)
	case card.TypeThematic:
		return fmt.Sprintf("%s emblem for: %s, %s.", s.Faction, c.Name, s.Look)
	default:
		return fmt.Sprintf("%s. Cinematic board-game art, cohesive color grading, well-defined subject, tactical atmosphere", c.Name)
	}
}
