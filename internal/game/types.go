package game

import (
	"time"

	"github.com/yourusername/agent-dungeon/internal/phase"
)

// Phase is the lifecycle stage of a game
type Phase string

const (
	PhaseSetup    Phase = "setup"
	PhasePlaying  Phase = "playing"
	PhaseHubTown  Phase = "hub_town"
	PhaseFinished Phase = "finished"
)

// Mode is the activity inside the playing phase
type Mode string

const (
	ModeExploring Mode = "exploring"
	ModeCombat    Mode = "combat"
	ModeFinished  Mode = "finished"
)

// NoPlayer is the CurrentPlayer sentinel when nobody can act
const NoPlayer = "none"

// Identity is the dual identity of a party member: the character name used
// in turn order and the agent id that submits commands.
type Identity struct {
	Name    string `json:"name"`
	AgentID string `json:"agent_id"`
}

// Matches reports whether s names this identity by either field
func (id Identity) Matches(s string) bool {
	if s == "" {
		return false
	}
	return s == id.Name || s == id.AgentID
}

// Key is the identity used in turn order and XP bookkeeping
func (id Identity) Key() string {
	if id.Name != "" {
		return id.Name
	}
	return id.AgentID
}

// Stats are percentile attributes
type Stats struct {
	STR int `json:"str"`
	DEX int `json:"dex"`
	CON int `json:"con"`
	INT int `json:"int"`
	WIS int `json:"wis"`
	CHA int `json:"cha"`
}

// Item is an inventory entry
type Item struct {
	ID    string `json:"id"`
	Key   string `json:"key"`
	Name  string `json:"name"`
	Kind  string `json:"kind"` // heal, mana, gear
	Power int    `json:"power"`
	Price int    `json:"price"`
}

// Character represents a party member
type Character struct {
	Name                 string         `json:"name"`
	AgentID              string         `json:"agent_id"`
	Class                string         `json:"class"`
	Level                int            `json:"level"`
	XP                   int            `json:"xp"`
	HP                   int            `json:"hp"`
	MaxHP                int            `json:"max_hp"`
	MP                   int            `json:"mp"`
	MaxMP                int            `json:"max_mp"`
	Stats                Stats          `json:"stats"`
	Skills               map[string]int `json:"skills"`
	Spells               []string       `json:"spells,omitempty"`
	Inventory            []Item         `json:"inventory"`
	ItemSeq              int            `json:"item_seq,omitempty"`
	Gold                 int            `json:"gold"`
	Healer               bool           `json:"healer,omitempty"`
	SneakBonus           int            `json:"sneak_bonus,omitempty"`
	DiedThisAdventure    bool           `json:"died_this_adventure"`
	ResurrectionFailed   bool           `json:"resurrection_failed"`
	ResurrectionWeakness bool           `json:"resurrection_weakness"`
	DeathCause           string         `json:"death_cause,omitempty"`
}

// Tactics tags enemy behaviour
type Tactics string

const (
	TacticsBoss       Tactics = "boss"
	TacticsBrute      Tactics = "brute"
	TacticsSkirmisher Tactics = "skirmisher"
	TacticsCoward     Tactics = "coward"
)

// Morale is derived from an enemy's remaining hit points
type Morale string

const (
	MoraleSteady  Morale = "steady"
	MoraleWounded Morale = "wounded"
	MoraleShaken  Morale = "shaken"
)

// Enemy represents a hostile combatant
type Enemy struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	HP          int     `json:"hp"`
	MaxHP       int     `json:"max_hp"`
	Attack      int     `json:"attack"`
	Dodge       int     `json:"dodge"`
	AttackBonus int     `json:"attack_bonus,omitempty"`
	Faction     string  `json:"faction"`
	Tactics     Tactics `json:"tactics"`
	Negotiable  bool    `json:"negotiable"`
	XP          int     `json:"xp"`
	Routed      bool    `json:"routed,omitempty"`
}

// RoomKind classifies a dungeon room
type RoomKind string

const (
	RoomEntrance  RoomKind = "entrance"
	RoomCorridor  RoomKind = "corridor"
	RoomEncounter RoomKind = "encounter"
	RoomTreasure  RoomKind = "treasure"
	RoomShrine    RoomKind = "shrine"
	RoomBoss      RoomKind = "boss"
	RoomExit      RoomKind = "exit"
)

// Room is one step of the linear dungeon
type Room struct {
	Index       int      `json:"index"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Kind        RoomKind `json:"kind"`
	Enemies     []Enemy  `json:"enemies,omitempty"`
	Gold        int      `json:"gold,omitempty"`
	Cleared     bool     `json:"cleared"`
	Bypassed    bool     `json:"bypassed,omitempty"`
	Rested      bool     `json:"rested,omitempty"`
	Searched    bool     `json:"searched,omitempty"`
}

// Combat holds the live encounter
type Combat struct {
	RoomIndex int      `json:"room_index"`
	Enemies   []*Enemy `json:"enemies"`
}

// EventType classifies log entries
type EventType string

const (
	EventNarrative    EventType = "narrative"
	EventCombat       EventType = "combat"
	EventDeath        EventType = "death"
	EventSkip         EventType = "skip"
	EventTurn         EventType = "turn"
	EventPhase        EventType = "phase"
	EventTPK          EventType = "tpk"
	EventXP           EventType = "xp"
	EventLoot         EventType = "loot"
	EventSetup        EventType = "setup"
	EventHub          EventType = "hub"
	EventMessage      EventType = "message"
	EventRecovery     EventType = "recovery"
	EventWarning      EventType = "warning"
	EventIntervention EventType = "intervention"
)

// LogEntry is one timestamped event of the append-only game log
type LogEntry struct {
	At      time.Time `json:"at"`
	Type    EventType `json:"type"`
	Actor   string    `json:"actor,omitempty"`
	Message string    `json:"message"`
}

// Campaign tracks progress across adventures
type Campaign struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	AdventuresCompleted int            `json:"adventures_completed"`
	Reputation          map[string]int `json:"reputation"`
}

// Hub is the between-adventure town state
type Hub struct {
	Location  string `json:"location"`
	IdleTurns int    `json:"idle_turns"`
}

// StuckTracker counts consecutive identical submissions
type StuckTracker struct {
	Action string `json:"action,omitempty"`
	Target string `json:"target,omitempty"`
	Count  int    `json:"count,omitempty"`
}

// GameState is the complete serialized state of one game
type GameState struct {
	ID            string          `json:"id"`
	HostAgent     string          `json:"host_agent"`
	Players       []string        `json:"players"`
	Phase         Phase           `json:"phase"`
	Mode          Mode            `json:"mode"`
	Depth         int             `json:"depth"`
	RoomIndex     int             `json:"room_index"`
	Dungeon       []Room          `json:"dungeon"`
	Party         []*Character    `json:"party"`
	TurnOrder     []string        `json:"turn_order"`
	CurrentPlayer string          `json:"current_player"`
	Combat        *Combat         `json:"combat,omitempty"`
	Round         int             `json:"round"`
	Log           []LogEntry      `json:"log"`
	XPEarned      map[string]int  `json:"xp_earned"`
	Setup         *phase.Snapshot `json:"setup_phase,omitempty"`
	Seed          int64           `json:"seed"`
	Sequence      int             `json:"sequence"`
	Freeform      bool            `json:"freeform,omitempty"`
	Campaign      *Campaign       `json:"campaign,omitempty"`
	Hub           *Hub            `json:"hub,omitempty"`
	Stuck         StuckTracker    `json:"stuck"`
	Winner        string          `json:"winner,omitempty"`

	now func() time.Time
}
