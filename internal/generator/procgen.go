package generator

import (
	"fmt"

	"github.com/yourusername/agent-dungeon/internal/catalog"
	"github.com/yourusername/agent-dungeon/internal/dice"
	"github.com/yourusername/agent-dungeon/internal/game"
)

// Layout constants
const (
	BaseRooms        = 5
	MaxEncounterSize = 3
)

// DungeonGenerator handles procedural dungeon generation
type DungeonGenerator struct {
	random  dice.Source
	catalog *catalog.Catalog
}

// NewDungeonGenerator creates a generator drawing from a seeded source
func NewDungeonGenerator(seed int64, cat *catalog.Catalog) *DungeonGenerator {
	return &DungeonGenerator{
		random:  dice.NewSeeded(seed),
		catalog: cat,
	}
}

// GenerateDungeon creates a linear dungeon of BaseRooms+depth rooms: an
// entrance, a mix of encounters, treasure, shrines and corridors, a boss
// room and an exit.
func (dg *DungeonGenerator) GenerateDungeon(depth int) []game.Room {
	if depth < 1 {
		depth = 1
	}
	numRooms := BaseRooms + depth
	rooms := make([]game.Room, numRooms)
	for i := range rooms {
		rooms[i] = game.Room{
			Index: i,
			Name:  dg.generateRoomName(),
			Kind:  dg.pickKind(i, numRooms),
		}
		dg.PopulateRoom(&rooms[i], depth)
	}
	return rooms
}

func (dg *DungeonGenerator) pickKind(i, numRooms int) game.RoomKind {
	switch {
	case i == 0:
		return game.RoomEntrance
	case i == numRooms-1:
		return game.RoomExit
	case i == numRooms-2:
		return game.RoomBoss
	}
	roll := dice.Percentile(dg.random)
	switch {
	case roll <= 60:
		return game.RoomEncounter
	case roll <= 75:
		return game.RoomTreasure
	case roll <= 85:
		return game.RoomShrine
	default:
		return game.RoomCorridor
	}
}

// generateRoomName creates a random room name
func (dg *DungeonGenerator) generateRoomName() string {
	adjectives := []string{"Dark", "Dusty", "Ancient", "Forgotten", "Cursed", "Silent", "Echoing"}
	nouns := []string{"Chamber", "Hall", "Corridor", "Vault", "Crypt", "Passage", "Alcove"}

	adj := adjectives[dg.random.Intn(len(adjectives))]
	noun := nouns[dg.random.Intn(len(nouns))]

	return fmt.Sprintf("%s %s", adj, noun)
}

var descriptions = map[game.RoomKind][]string{
	game.RoomEntrance:  {"Daylight fades behind you at the top of a worn stair."},
	game.RoomCorridor:  {"Water drips somewhere in the dark.", "Scratches line the walls at knee height."},
	game.RoomEncounter: {"Something shifts in the shadows ahead.", "The smell of smoke and old meat hangs in the air."},
	game.RoomTreasure:  {"A toppled chest spills coins across the floor.", "Offerings glint in a dusty niche."},
	game.RoomShrine:    {"A cracked altar still hums with faint warmth.", "Candles burn before a faceless idol."},
	game.RoomBoss:      {"Bones crunch underfoot before a crude throne."},
	game.RoomExit:      {"A draft of fresh air promises a way out."},
}

// PopulateRoom fills a room with enemies and gold for its kind. Enemy HP
// scales by 10% per depth level.
// A boss room without boss templates becomes a regular encounter, and an
// encounter without regular templates becomes a corridor.
func (dg *DungeonGenerator) PopulateRoom(room *game.Room, depth int) {
	regular, bosses := dg.catalog.EnemiesFor(depth)
	if room.Kind == game.RoomBoss && len(bosses) == 0 {
		room.Kind = game.RoomEncounter
	}
	if room.Kind == game.RoomEncounter && len(regular) == 0 {
		room.Kind = game.RoomCorridor
	}

	options := descriptions[room.Kind]
	if len(options) > 0 {
		room.Description = options[dg.random.Intn(len(options))]
	}

	switch room.Kind {
	case game.RoomEntrance, game.RoomExit, game.RoomShrine, game.RoomCorridor:
		return
	case game.RoomTreasure:
		room.Gold = dice.RollN(dg.random, 2, dice.D6, 0) * depth * 2
	case game.RoomEncounter:
		count := 1
		if depth >= 2 {
			count = dice.Roll(dg.random, MaxEncounterSize)
		} else if dice.Percentile(dg.random) <= 30 {
			count = 2
		}
		for i := 0; i < count; i++ {
			t := regular[dg.random.Intn(len(regular))]
			room.Enemies = append(room.Enemies, spawn(t, room.Index, i, depth))
		}
		room.Gold = dice.Roll(dg.random, dice.D6) * depth
	case game.RoomBoss:
		t := bosses[dg.random.Intn(len(bosses))]
		room.Enemies = append(room.Enemies, spawn(t, room.Index, 0, depth))
		if len(regular) > 0 {
			minion := regular[dg.random.Intn(len(regular))]
			room.Enemies = append(room.Enemies, spawn(minion, room.Index, 1, depth))
		}
		room.Gold = dice.RollN(dg.random, 3, dice.D6, 0) * depth * 2
	}
}

func spawn(t catalog.EnemyTemplate, room, slot, depth int) game.Enemy {
	scaleFactor := 1.0 + float64(depth-1)*0.1
	hp := int(float64(t.HP) * scaleFactor)
	tactics := game.Tactics(t.Tactics)
	if t.Boss {
		tactics = game.TacticsBoss
	}
	return game.Enemy{
		ID:         fmt.Sprintf("r%d-e%d", room, slot),
		Name:       t.Name,
		HP:         hp,
		MaxHP:      hp,
		Attack:     t.Attack,
		Dodge:      t.Dodge,
		Faction:    t.Faction,
		Tactics:    tactics,
		Negotiable: t.Negotiable,
		XP:         t.XP,
	}
}
