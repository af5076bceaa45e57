package game

import (
	"strings"
	"testing"
	"time"

	apperrors "github.com/yourusername/agent-dungeon/internal/errors"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func member(name string, dex int) *Character {
	return &Character{
		Name:      name,
		AgentID:   "agent-" + strings.ToLower(name),
		Class:     "fighter",
		Level:     1,
		HP:        20,
		MaxHP:     20,
		MP:        20,
		MaxMP:     20,
		Stats:     Stats{STR: 50, DEX: dex, INT: 50},
		Skills:    map[string]int{"attack": 50, "dodge": 30, "cast": 60, "sneak": 40, "persuade": 50, "intimidate": 40},
		Inventory: []Item{},
	}
}

func goblin(id string) Enemy {
	return Enemy{ID: id, Name: "Goblin", HP: 10, MaxHP: 10, Attack: 40, Dodge: 30,
		Faction: "goblins", Tactics: TacticsSkirmisher, Negotiable: true, XP: 20}
}

func playing(members ...*Character) *GameState {
	gs := NewGameState("g1", "dm", 1)
	gs.SetClock(func() time.Time { return fixedNow })
	gs.Phase = PhasePlaying
	gs.Party = members
	gs.Dungeon = []Room{
		{Index: 0, Name: "Gate", Kind: RoomEntrance, Cleared: true},
		{Index: 1, Name: "Hall", Kind: RoomEncounter, Enemies: []Enemy{goblin("e1")}},
		{Index: 2, Name: "Stair", Kind: RoomExit},
	}
	NormalizeTurnState(gs)
	return gs
}

func inCombat(t *testing.T, members ...*Character) *GameState {
	t.Helper()
	gs := playing(members...)
	if !gs.EnterRoom(1) {
		t.Fatal("expected combat to start")
	}
	return gs
}

func countLog(gs *GameState, typ EventType) int {
	n := 0
	for _, e := range gs.Log {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func wantCode(t *testing.T, err error, code apperrors.Code) {
	t.Helper()
	if apperrors.CodeOf(err) != code {
		t.Fatalf("error = %v, want code %s", err, code)
	}
}
