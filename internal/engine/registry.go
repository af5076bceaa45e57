package engine

import (
	"sort"

	"github.com/yourusername/agent-dungeon/internal/game"
)

// Command names
const (
	ActionNewGame         = "new_game"
	ActionJoinGame        = "join_game"
	ActionCreateCharacter = "create_character"
	ActionStatus          = "status"
	ActionGetReputation   = "get_reputation"
	ActionExplore         = "explore"
	ActionAttack          = "attack"
	ActionNegotiate       = "negotiate"
	ActionFlee            = "flee"
	ActionSneak           = "sneak"
	ActionIntimidate      = "intimidate"
	ActionResurrect       = "resurrect"
	ActionCastSpell       = "cast_spell"
	ActionUseSkill        = "use_skill"
	ActionUseItem         = "use_item"
	ActionRest            = "rest"
	ActionVisitLocation   = "visit_location"
	ActionBuyItem         = "buy_item"
	ActionSellItem        = "sell_item"
	ActionEmbark          = "embark"
	ActionSendMessage     = "send_message"
	ActionSetupNarrate    = "setup_narrate"
	ActionSetupRespond    = "setup_respond"
	ActionSetupFinalize   = "setup_finalize"
)

var (
	allPhases   = []game.Phase{game.PhaseSetup, game.PhasePlaying, game.PhaseHubTown, game.PhaseFinished}
	setupOnly   = []game.Phase{game.PhaseSetup}
	playingOnly = []game.Phase{game.PhasePlaying}
	hubOnly     = []game.Phase{game.PhaseHubTown}
	exploring   = []game.Mode{game.ModeExploring}
	combatOnly  = []game.Mode{game.ModeCombat}
)

// handler is one entry of the command registry
type handler struct {
	name        string
	description string
	phases      []game.Phase
	modes       []game.Mode // nil accepts any mode
	// turnGated commands need the acting member to be the current player
	// while playing. exploration relaxes that under freeform play.
	turnGated    bool
	exploration  bool
	combat       bool // enemies respond while combat continues
	consumesTurn bool
	readOnly     bool
	chat         bool
	party        bool // actor must be a living party member
	setup        bool
	handle       func(e *Engine, c *call) error
}

func newRegistry() map[string]*handler {
	handlers := []*handler{
		{name: ActionNewGame, description: "Start a new game as host.", phases: allPhases, handle: (*Engine).handleNewGame},
		{name: ActionJoinGame, description: "Join a game during setup.", phases: setupOnly, setup: true, handle: (*Engine).handleJoin},
		{name: ActionCreateCharacter, description: "Create your character (name, class).", phases: setupOnly, setup: true, handle: (*Engine).handleCreateCharacter},
		{name: ActionStatus, description: "Show the game state.", phases: allPhases, readOnly: true, handle: (*Engine).handleStatus},
		{name: ActionGetReputation, description: "Show campaign faction reputation.", phases: allPhases, readOnly: true, handle: (*Engine).handleReputation},
		{name: ActionSendMessage, description: "Say something to the table.", phases: allPhases, chat: true, handle: (*Engine).handleMessage},
		{name: ActionSetupNarrate, description: "Narrate during the setup interview.", phases: setupOnly, setup: true, handle: (*Engine).handleSetup},
		{name: ActionSetupRespond, description: "Answer the narrator during setup.", phases: setupOnly, setup: true, handle: (*Engine).handleSetup},
		{name: ActionSetupFinalize, description: "Finish setup and begin the adventure.", phases: setupOnly, setup: true, handle: (*Engine).handleSetup},

		{name: ActionExplore, description: "Move to the next room.", phases: playingOnly, modes: exploring, party: true, turnGated: true, exploration: true, consumesTurn: true, handle: (*Engine).handleExplore},
		{name: ActionAttack, description: "Attack an enemy (target).", phases: playingOnly, modes: combatOnly, party: true, turnGated: true, combat: true, consumesTurn: true, handle: (*Engine).handleAttack},
		{name: ActionNegotiate, description: "Talk the enemies down.", phases: playingOnly, modes: combatOnly, party: true, turnGated: true, combat: true, consumesTurn: true, handle: (*Engine).handleNegotiate},
		{name: ActionFlee, description: "Retreat one room.", phases: playingOnly, modes: combatOnly, party: true, turnGated: true, combat: true, consumesTurn: true, handle: (*Engine).handleFlee},
		{name: ActionSneak, description: "Slip past the next encounter.", phases: playingOnly, modes: exploring, party: true, turnGated: true, exploration: true, consumesTurn: true, handle: (*Engine).handleSneak},
		{name: ActionIntimidate, description: "Rout wounded enemies.", phases: playingOnly, modes: combatOnly, party: true, turnGated: true, combat: true, consumesTurn: true, handle: (*Engine).handleIntimidate},
		{name: ActionResurrect, description: "Raise a fallen ally (healers, target).", phases: playingOnly, party: true, turnGated: true, exploration: true, combat: true, consumesTurn: true, handle: (*Engine).handleResurrect},
		{name: ActionCastSpell, description: "Cast a spell (spell, target).", phases: playingOnly, party: true, turnGated: true, exploration: true, combat: true, consumesTurn: true, handle: (*Engine).handleCastSpell},
		{name: ActionUseSkill, description: "Use perception or first_aid (skill, target).", phases: playingOnly, modes: exploring, party: true, turnGated: true, exploration: true, consumesTurn: true, handle: (*Engine).handleUseSkill},
		{name: ActionUseItem, description: "Use an inventory item (item, target).", phases: []game.Phase{game.PhasePlaying, game.PhaseHubTown}, party: true, turnGated: true, exploration: true, combat: true, consumesTurn: true, handle: (*Engine).handleUseItem},
		{name: ActionRest, description: "Rest in a room, at the inn or at the temple.", phases: []game.Phase{game.PhasePlaying, game.PhaseHubTown}, modes: exploring, party: true, turnGated: true, exploration: true, consumesTurn: true, handle: (*Engine).handleRest},

		{name: ActionVisitLocation, description: "Go to a town location (location).", phases: hubOnly, party: true, handle: (*Engine).handleVisit},
		{name: ActionBuyItem, description: "Buy an item at the market (item).", phases: hubOnly, party: true, handle: (*Engine).handleBuy},
		{name: ActionSellItem, description: "Sell an item at the market (item).", phases: hubOnly, party: true, handle: (*Engine).handleSell},
		{name: ActionEmbark, description: "Leave town for the next dungeon.", phases: hubOnly, party: true, handle: (*Engine).handleEmbark},
	}
	registry := make(map[string]*handler, len(handlers))
	for _, s := range handlers {
		registry[s.name] = s
	}
	return registry
}

// CommandInfo describes a registered command
type CommandInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Commands lists every registered command sorted by name
func (e *Engine) Commands() []CommandInfo {
	out := make([]CommandInfo, 0, len(e.registry))
	for _, s := range e.registry {
		out = append(out, CommandInfo{Name: s.name, Description: s.description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CommandNames lists every registered command name sorted
func (e *Engine) CommandNames() []string {
	infos := e.Commands()
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return names
}

func containsPhase(list []game.Phase, p game.Phase) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}

func containsMode(list []game.Mode, m game.Mode) bool {
	if list == nil {
		return true
	}
	for _, v := range list {
		if v == m {
			return true
		}
	}
	return false
}
