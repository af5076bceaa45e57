package engine

import "github.com/yourusername/agent-dungeon/internal/game"

// EventType names a notification
type EventType string

const (
	EventTurnAdvance       EventType = "turn_advance"
	EventPhaseChange       EventType = "phase_change"
	EventCombatStart       EventType = "combat_start"
	EventAdventureComplete EventType = "adventure_complete"
)

// Event is a notification produced by a dispatch
type Event struct {
	Type          EventType      `json:"type"`
	GameID        string         `json:"game_id"`
	Phase         game.Phase     `json:"phase"`
	CurrentPlayer string         `json:"current_player,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
}
