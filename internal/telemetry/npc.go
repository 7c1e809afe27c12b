package telemetry

import "strings"

// npcNames is the closed set of known non-player combatants that appear in
// event traces of modes with AI actors.
var npcNames = map[string]bool{
	"Commander":     true,
	"Guard":         true,
	"Pillar":        true,
	"SkySoldier":    true,
	"Soldier":       true,
	"PillarSoldier": true,
	"ZombieSoldier": true,
}

// IsNPC reports whether the identifier belongs to a non-player combatant.
func IsNPC(name string) bool {
	if name == "" {
		return true
	}
	if npcNames[name] {
		return true
	}
	return strings.HasPrefix(strings.ToLower(name), "ai_")
}
