package engine

import (
	"github.com/yourusername/agent-dungeon/internal/game"
)

// RecentLogSize is how many log entries a status view carries
const RecentLogSize = 12

// MemberView is a frontend-friendly view of a party member
type MemberView struct {
	Name       string         `json:"name"`
	AgentID    string         `json:"agentId"`
	Class      string         `json:"class"`
	Level      int            `json:"level"`
	HP         int            `json:"hp"`
	MaxHP      int            `json:"maxHp"`
	MP         int            `json:"mp"`
	MaxMP      int            `json:"maxMp"`
	Gold       int            `json:"gold"`
	IsAlive    bool           `json:"isAlive"`
	Status     string         `json:"status"` // Healthy, Wounded, Critical, Dead
	Skills     map[string]int `json:"skills"`
	Spells     []string       `json:"spells,omitempty"`
	Inventory  []game.Item    `json:"inventory"`
	XPPending  int            `json:"xpPending"`
	Weakened   bool           `json:"weakened,omitempty"`
	DeathCause string         `json:"deathCause,omitempty"`
}

// EnemyView is a frontend-friendly view of an enemy
type EnemyView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	HP         int    `json:"hp"`
	MaxHP      int    `json:"maxHp"`
	Faction    string `json:"faction"`
	Tactics    string `json:"tactics"`
	Morale     string `json:"morale"`
	Negotiable bool   `json:"negotiable"`
}

// RoomView is a frontend-friendly view of the current room
type RoomView struct {
	Index       int    `json:"index"`
	Of          int    `json:"of"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
	Cleared     bool   `json:"cleared"`
	Bypassed    bool   `json:"bypassed,omitempty"`
}

// SetupView describes the running setup interview
type SetupView struct {
	Phase      string `json:"phase"`
	WaitingFor string `json:"waitingFor"`
	Expects    string `json:"expects"`
	Prompt     string `json:"prompt"`
}

// StatusView is the game state as seen by one agent
type StatusView struct {
	GameID           string          `json:"gameId"`
	Phase            game.Phase      `json:"phase"`
	Mode             game.Mode       `json:"mode"`
	Host             string          `json:"host"`
	Players          []string        `json:"players"`
	CurrentPlayer    string          `json:"currentPlayer"`
	YourTurn         bool            `json:"yourTurn"`
	Round            int             `json:"round"`
	Depth            int             `json:"depth"`
	Sequence         int             `json:"sequence"`
	Freeform         bool            `json:"freeform,omitempty"`
	Party            []MemberView    `json:"party"`
	TurnOrder        []string        `json:"turnOrder"`
	Room             *RoomView       `json:"room,omitempty"`
	Enemies          []EnemyView     `json:"enemies,omitempty"`
	Setup            *SetupView      `json:"setup,omitempty"`
	Hub              *game.Hub       `json:"hub,omitempty"`
	Campaign         *game.Campaign  `json:"campaign,omitempty"`
	Winner           string          `json:"winner,omitempty"`
	AvailableActions []string        `json:"availableActions"`
	RecentLog        []game.LogEntry `json:"recentLog"`
}

func memberStatus(c *game.Character) string {
	switch {
	case !c.IsAlive():
		return "Dead"
	case c.HP*4 <= c.MaxHP:
		return "Critical"
	case c.HP*2 <= c.MaxHP:
		return "Wounded"
	default:
		return "Healthy"
	}
}

// Status builds the view of gs for identity, which may be an agent id or a
// character name.
func (e *Engine) Status(gs *game.GameState, identity string) StatusView {
	v := StatusView{
		GameID:        gs.ID,
		Phase:         gs.Phase,
		Mode:          gs.Mode,
		Host:          gs.HostAgent,
		Players:       append([]string{}, gs.Players...),
		CurrentPlayer: gs.CurrentPlayer,
		Round:         gs.Round,
		Depth:         gs.Depth,
		Sequence:      gs.Sequence,
		Freeform:      gs.Freeform,
		Party:         make([]MemberView, 0, len(gs.Party)),
		TurnOrder:     append([]string{}, gs.TurnOrder...),
		Hub:           gs.Hub,
		Campaign:      gs.Campaign,
		Winner:        gs.Winner,
	}
	for _, c := range gs.Party {
		skills := make(map[string]int, len(c.Skills))
		for _, name := range c.SkillNames() {
			skills[name], _ = c.Skill(name)
		}
		v.Party = append(v.Party, MemberView{
			Name:       c.Name,
			AgentID:    c.AgentID,
			Class:      c.Class,
			Level:      c.Level,
			HP:         c.HP,
			MaxHP:      c.MaxHP,
			MP:         c.MP,
			MaxMP:      c.MaxMP,
			Gold:       c.Gold,
			IsAlive:    c.IsAlive(),
			Status:     memberStatus(c),
			Skills:     skills,
			Spells:     c.Spells,
			Inventory:  append([]game.Item{}, c.Inventory...),
			XPPending:  gs.XPEarned[c.Key()],
			Weakened:   c.ResurrectionWeakness,
			DeathCause: c.DeathCause,
		})
	}
	if me := gs.Member(identity); me != nil {
		v.YourTurn = gs.CurrentPlayer == me.Key()
	} else if gs.Phase == game.PhaseSetup {
		v.YourTurn = identity != "" && gs.CurrentPlayer == identity
	}

	if room := gs.CurrentRoom(); room != nil && gs.Phase == game.PhasePlaying {
		v.Room = &RoomView{
			Index:       room.Index,
			Of:          len(gs.Dungeon),
			Name:        room.Name,
			Description: room.Description,
			Kind:        string(room.Kind),
			Cleared:     room.Cleared,
			Bypassed:    room.Bypassed,
		}
	}
	for _, en := range gs.LivingEnemies() {
		v.Enemies = append(v.Enemies, EnemyView{
			ID:         en.ID,
			Name:       en.Name,
			HP:         en.HP,
			MaxHP:      en.MaxHP,
			Faction:    en.Faction,
			Tactics:    string(en.Tactics),
			Morale:     string(en.Morale()),
			Negotiable: en.NegotiationEligible(),
		})
	}
	if m, err := setupMachine(gs); err == nil && m != nil {
		if def, ok := m.Definition(); ok {
			v.Setup = &SetupView{
				Phase:      m.Current(),
				WaitingFor: def.ActiveAgent,
				Expects:    def.TransitionOn,
				Prompt:     def.Prompt,
			}
		}
	}

	v.AvailableActions = e.AvailableActions(gs, identity)
	if v.AvailableActions == nil {
		v.AvailableActions = []string{}
	}
	start := max(0, len(gs.Log)-RecentLogSize)
	v.RecentLog = append([]game.LogEntry{}, gs.Log[start:]...)
	return v
}

func (e *Engine) handleStatus(c *call) error {
	c.detail("status", e.Status(c.gs, c.cmd.Actor))
	return nil
}
