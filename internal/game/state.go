package game

import (
	"fmt"
	"strings"
	"time"
)

// NewGameState creates a game in the setup phase
func NewGameState(id, host string, seed int64) *GameState {
	return &GameState{
		ID:            id,
		HostAgent:     host,
		Players:       []string{},
		Phase:         PhaseSetup,
		Mode:          ModeExploring,
		Depth:         1,
		Party:         []*Character{},
		TurnOrder:     []string{},
		CurrentPlayer: host,
		Log:           []LogEntry{},
		XPEarned:      make(map[string]int),
		Seed:          seed,
	}
}

// SetClock overrides the clock used to stamp log entries
func (gs *GameState) SetClock(now func() time.Time) {
	gs.now = now
}

func (gs *GameState) clock() time.Time {
	if gs.now != nil {
		return gs.now()
	}
	return time.Now().UTC()
}

// Logf appends a timestamped entry to the game log
func (gs *GameState) Logf(typ EventType, actor, format string, args ...any) {
	gs.Log = append(gs.Log, LogEntry{
		At:      gs.clock(),
		Type:    typ,
		Actor:   actor,
		Message: fmt.Sprintf(format, args...),
	})
}

// LogSince returns the entries appended after the first n
func (gs *GameState) LogSince(n int) []LogEntry {
	if n >= len(gs.Log) {
		return nil
	}
	return append([]LogEntry(nil), gs.Log[n:]...)
}

// HasDungeon reports whether a dungeon has been generated
func (gs *GameState) HasDungeon() bool {
	return len(gs.Dungeon) > 0
}

// CurrentRoom returns the room the party stands in
func (gs *GameState) CurrentRoom() *Room {
	if gs.RoomIndex < 0 || gs.RoomIndex >= len(gs.Dungeon) {
		return nil
	}
	return &gs.Dungeon[gs.RoomIndex]
}

// LastRoomIndex returns the index of the dungeon's final room
func (gs *GameState) LastRoomIndex() int {
	return len(gs.Dungeon) - 1
}

// Member finds a party member by name or agent id
func (gs *GameState) Member(identity string) *Character {
	for _, c := range gs.Party {
		if c.Identity().Matches(identity) {
			return c
		}
	}
	return nil
}

// HasPlayer reports whether the agent joined the game
func (gs *GameState) HasPlayer(agentID string) bool {
	for _, p := range gs.Players {
		if p == agentID {
			return true
		}
	}
	return false
}

// LivingMembers returns living members in initiative order
func (gs *GameState) LivingMembers() []*Character {
	living := make([]*Character, 0, len(gs.Party))
	for _, c := range Initiative(gs.Party) {
		if c.IsAlive() {
			living = append(living, c)
		}
	}
	return living
}

// DeadMembers returns dead members in initiative order
func (gs *GameState) DeadMembers() []*Character {
	dead := make([]*Character, 0)
	for _, c := range Initiative(gs.Party) {
		if !c.IsAlive() {
			dead = append(dead, c)
		}
	}
	return dead
}

// AverageLevel returns the mean party level, at least 1
func (gs *GameState) AverageLevel() float64 {
	if len(gs.Party) == 0 {
		return StartingLevel
	}
	total := 0
	for _, c := range gs.Party {
		total += c.Level
	}
	return float64(total) / float64(len(gs.Party))
}

// LivingEnemies returns the enemies still in the fight
func (gs *GameState) LivingEnemies() []*Enemy {
	if gs.Combat == nil {
		return nil
	}
	living := make([]*Enemy, 0, len(gs.Combat.Enemies))
	for _, e := range gs.Combat.Enemies {
		if e.IsAlive() {
			living = append(living, e)
		}
	}
	return living
}

// FindEnemy resolves a target by id or case-insensitive name, preferring
// living enemies. An empty ref picks the first living enemy.
func (gs *GameState) FindEnemy(ref string) *Enemy {
	living := gs.LivingEnemies()
	if ref == "" {
		if len(living) > 0 {
			return living[0]
		}
		return nil
	}
	for _, e := range living {
		if e.ID == ref || strings.EqualFold(e.Name, ref) {
			return e
		}
	}
	return nil
}

// HasBoss reports whether a living boss is in the fight
func (gs *GameState) HasBoss() bool {
	for _, e := range gs.LivingEnemies() {
		if e.Tactics == TacticsBoss {
			return true
		}
	}
	return false
}

// AwardXP adds uncommitted XP to every living member and returns the
// number of recipients
func (gs *GameState) AwardXP(amount int, reason string) int {
	if amount <= 0 {
		return 0
	}
	if gs.XPEarned == nil {
		gs.XPEarned = make(map[string]int)
	}
	living := gs.LivingMembers()
	for _, c := range living {
		gs.XPEarned[c.Key()] += amount
	}
	if len(living) > 0 {
		gs.Logf(EventXP, "", "Each survivor earns %d XP (%s).", amount, reason)
	}
	return len(living)
}

// AdjustReputation changes faction standing when the game is part of a
// campaign
func (gs *GameState) AdjustReputation(faction string, delta int) {
	if gs.Campaign == nil || faction == "" || delta == 0 {
		return
	}
	if gs.Campaign.Reputation == nil {
		gs.Campaign.Reputation = make(map[string]int)
	}
	gs.Campaign.Reputation[faction] += delta
}

// EnterRoom moves the party into a room. Entering a room whose enemies are
// still standing starts combat; entering an empty room clears it and
// collects its gold. Returns true when combat started.
func (gs *GameState) EnterRoom(index int) bool {
	if index < 0 || index >= len(gs.Dungeon) {
		return false
	}
	gs.RoomIndex = index
	room := &gs.Dungeon[index]
	gs.Logf(EventNarrative, "", "The party enters %s. %s", room.Name, room.Description)
	if !room.Cleared && !room.Bypassed && hasLivingSpawn(room) {
		gs.StartCombat(room)
		return true
	}
	gs.clearRoom(room)
	return false
}

func hasLivingSpawn(room *Room) bool {
	for i := range room.Enemies {
		if room.Enemies[i].IsAlive() {
			return true
		}
	}
	return false
}

func (gs *GameState) clearRoom(room *Room) {
	if room.Cleared {
		return
	}
	room.Cleared = true
	if room.Gold > 0 {
		living := gs.LivingMembers()
		if len(living) > 0 {
			share := room.Gold / len(living)
			for _, c := range living {
				c.Gold += share
			}
			gs.Logf(EventLoot, "", "The party splits %d gold found in %s.", room.Gold, room.Name)
		}
		room.Gold = 0
	}
}

// DungeonComplete reports whether the party stands in a cleared final room
func (gs *GameState) DungeonComplete() bool {
	if !gs.HasDungeon() || gs.Mode == ModeCombat {
		return false
	}
	room := gs.CurrentRoom()
	return gs.RoomIndex == gs.LastRoomIndex() && room != nil && (room.Cleared || room.Bypassed)
}

// CompleteAdventure commits earned XP, resets per-adventure flags and moves
// the game to hub_town for campaigns or finished otherwise.
func (gs *GameState) CompleteAdventure() {
	for _, c := range gs.Party {
		earned := gs.XPEarned[c.Key()]
		if gained := c.CommitXP(earned); gained > 0 {
			gs.Logf(EventXP, c.Name, "%s reaches level %d.", c.Name, c.Level)
		}
		c.ResetAdventure()
	}
	gs.XPEarned = make(map[string]int)
	gs.Combat = nil
	gs.Stuck = StuckTracker{}
	gs.Winner = "party"
	if gs.Campaign != nil {
		gs.Campaign.AdventuresCompleted++
		gs.Phase = PhaseHubTown
		gs.Mode = ModeExploring
		gs.Hub = &Hub{Location: "square"}
		gs.CurrentPlayer = NoPlayer
		gs.TurnOrder = []string{}
		gs.Logf(EventPhase, "", "The party returns to town after adventure %d.", gs.Campaign.AdventuresCompleted)
		return
	}
	gs.Phase = PhaseFinished
	gs.Mode = ModeFinished
	gs.CurrentPlayer = NoPlayer
	gs.TurnOrder = []string{}
	gs.Logf(EventPhase, "", "The party escapes the dungeon. Adventure complete.")
}
