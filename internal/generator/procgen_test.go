package generator

import (
	"reflect"
	"testing"

	"github.com/yourusername/agent-dungeon/internal/catalog"
	"github.com/yourusername/agent-dungeon/internal/game"
)

func TestGenerateDungeonLayout(t *testing.T) {
	cat := catalog.Default()
	for depth := 1; depth <= 4; depth++ {
		rooms := NewDungeonGenerator(int64(depth*31), cat).GenerateDungeon(depth)
		if len(rooms) != BaseRooms+depth {
			t.Fatalf("depth %d: %d rooms", depth, len(rooms))
		}
		if rooms[0].Kind != game.RoomEntrance || len(rooms[0].Enemies) != 0 {
			t.Fatalf("depth %d: bad entrance %+v", depth, rooms[0])
		}
		last := rooms[len(rooms)-1]
		if last.Kind != game.RoomExit || len(last.Enemies) != 0 {
			t.Fatalf("depth %d: bad exit %+v", depth, last)
		}
		boss := rooms[len(rooms)-2]
		if boss.Kind != game.RoomBoss || boss.Enemies[0].Tactics != game.TacticsBoss {
			t.Fatalf("depth %d: bad boss room %+v", depth, boss)
		}
		for i, r := range rooms {
			if r.Index != i {
				t.Fatalf("room %d has index %d", i, r.Index)
			}
			for _, e := range r.Enemies {
				if e.HP <= 0 || e.HP != e.MaxHP || e.ID == "" {
					t.Fatalf("bad enemy %+v", e)
				}
			}
		}
	}
}

func TestGenerateDungeonIsDeterministic(t *testing.T) {
	cat := catalog.Default()
	a := NewDungeonGenerator(1234, cat).GenerateDungeon(2)
	b := NewDungeonGenerator(1234, cat).GenerateDungeon(2)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("same seed must produce the same dungeon")
	}
}

func TestEnemiesScaleWithDepth(t *testing.T) {
	tmpl := catalog.EnemyTemplate{Name: "Ogre", HP: 20, Tactics: "brute"}
	if e := spawn(tmpl, 1, 0, 1); e.HP != 20 {
		t.Fatalf("depth 1 hp = %d", e.HP)
	}
	if e := spawn(tmpl, 1, 0, 3); e.HP != 24 {
		t.Fatalf("depth 3 hp = %d", e.HP)
	}
}

func TestBossRoomFallsBackToEncounter(t *testing.T) {
	cat := *catalog.Default()
	cat.Enemies = nil
	for _, e := range catalog.Default().Enemies {
		if !e.Boss {
			cat.Enemies = append(cat.Enemies, e)
		}
	}

	room := game.Room{Index: 4, Kind: game.RoomBoss}
	NewDungeonGenerator(9, &cat).PopulateRoom(&room, 1)
	if room.Kind != game.RoomEncounter || len(room.Enemies) == 0 {
		t.Fatalf("room = %+v, want a populated encounter", room)
	}
	for _, e := range room.Enemies {
		if e.Tactics == game.TacticsBoss {
			t.Fatalf("boss spawned without boss templates: %+v", e)
		}
	}

	cat.Enemies = nil
	empty := game.Room{Index: 4, Kind: game.RoomBoss}
	NewDungeonGenerator(9, &cat).PopulateRoom(&empty, 1)
	if empty.Kind != game.RoomCorridor || len(empty.Enemies) != 0 {
		t.Fatalf("room = %+v, want an empty corridor", empty)
	}
}
