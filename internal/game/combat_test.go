package game

import (
	"testing"

	"github.com/yourusername/agent-dungeon/internal/dice"
)

func TestSoloMultiplier(t *testing.T) {
	tests := []struct {
		size int
		want float64
	}{
		{0, 2.0}, {1, 2.0}, {2, 1.5}, {3, 1.0}, {6, 1.0},
	}
	for _, tt := range tests {
		if got := SoloMultiplier(tt.size); got != tt.want {
			t.Fatalf("SoloMultiplier(%d) = %v, want %v", tt.size, got, tt.want)
		}
	}
}

func TestDamageFormulas(t *testing.T) {
	if got := PlayerDamage(dice.NewScript(4), 75); got != 7 {
		t.Fatalf("player damage = %d", got)
	}
	if got := PlayerDamage(dice.NewScript(1), 24); got != 1 {
		t.Fatalf("player damage = %d", got)
	}
	tests := []struct {
		size, face, want int
	}{
		{1, 5, 10}, {2, 5, 7}, {3, 5, 5}, {2, 1, 1},
	}
	for _, tt := range tests {
		if got := CounterDamage(dice.NewScript(tt.face), tt.size); got != tt.want {
			t.Fatalf("counter damage size=%d face=%d: %d, want %d", tt.size, tt.face, got, tt.want)
		}
	}
}

func TestPlayerAttackMissDrawsTwice(t *testing.T) {
	a := member("A", 50)
	gs := inCombat(t, a)
	src := dice.NewScript(90, 10)
	ex := gs.ResolvePlayerAttack(a, gs.Combat.Enemies[0], src)
	if ex.Hit || ex.Damage != 0 {
		t.Fatalf("unexpected hit: %+v", ex)
	}
	if src.Drawn() != 2 {
		t.Fatalf("draws = %d", src.Drawn())
	}
	if a.Skills["attack"] != 50 {
		t.Fatal("a failed check must not improve the skill")
	}
}

func TestPlayerAttackHitDrawsDamage(t *testing.T) {
	a := member("A", 50)
	gs := inCombat(t, a)
	target := gs.Combat.Enemies[0]
	src := dice.NewScript(10, 90, 3)
	ex := gs.ResolvePlayerAttack(a, target, src)
	if !ex.Hit || ex.Damage != 5 {
		t.Fatalf("exchange = %+v", ex)
	}
	if target.HP != 5 {
		t.Fatalf("goblin hp = %d", target.HP)
	}
	if a.Skills["attack"] != 51 {
		t.Fatalf("attack skill = %d", a.Skills["attack"])
	}
	if src.Remaining() != 0 {
		t.Fatal("unused draws")
	}
}

func TestEnemyRoundTargetsAndScales(t *testing.T) {
	a, b := member("A", 90), member("B", 80)
	gs := inCombat(t, a, b)
	// target B (2nd in initiative), attack 10 vs 40, dodge 95 vs 30, damage 6
	src := dice.NewScript(2, 10, 95, 6)
	out := gs.EnemyRound(src)
	if len(out) != 1 || !out[0].Hit {
		t.Fatalf("round = %+v", out)
	}
	if b.HP != 20-9 || a.HP != 20 {
		t.Fatalf("hp a=%d b=%d", a.HP, b.HP)
	}
}

func TestEnemyRoundKillsAndTPK(t *testing.T) {
	a := member("A", 90)
	a.HP = 3
	gs := inCombat(t, a)
	gs.EnemyRound(dice.NewScript(1, 10, 95, 2))
	if a.IsAlive() || !a.DiedThisAdventure || a.DeathCause != "Slain by Goblin" {
		t.Fatalf("character = %+v", a)
	}
	if countLog(gs, EventDeath) != 1 {
		t.Fatal("expected a death entry")
	}
	NormalizeTurnState(gs)
	if gs.Phase != PhaseFinished || gs.CurrentPlayer != NoPlayer {
		t.Fatalf("phase=%s current=%s", gs.Phase, gs.CurrentPlayer)
	}
}

func TestEnemyRoundSkipsRoutedAndDead(t *testing.T) {
	a := member("A", 90)
	gs := playing(a)
	gs.Dungeon[1].Enemies = []Enemy{goblin("e1"), goblin("e2"), goblin("e3")}
	gs.EnterRoom(1)
	gs.Combat.Enemies[0].HP = 0
	gs.Combat.Enemies[1].Routed = true
	src := dice.NewScript(1, 90, 10)
	if out := gs.EnemyRound(src); len(out) != 1 {
		t.Fatalf("acting enemies = %d", len(out))
	}
}

func TestVictoryAwardsXPAndClearsRoom(t *testing.T) {
	a, b := member("A", 90), member("B", 80)
	gs := inCombat(t, a, b)
	gs.Combat.Enemies[0].HP = 0
	if !gs.CheckVictory() {
		t.Fatal("expected victory")
	}
	if gs.Mode != ModeExploring || gs.Combat != nil || !gs.Dungeon[1].Cleared {
		t.Fatalf("mode=%s combat=%v cleared=%v", gs.Mode, gs.Combat, gs.Dungeon[1].Cleared)
	}
	if gs.XPEarned["A"] != 20 || gs.XPEarned["B"] != 20 {
		t.Fatalf("xp = %v", gs.XPEarned)
	}
}

func TestMoraleThresholds(t *testing.T) {
	tests := []struct {
		hp   int
		want Morale
	}{
		{20, MoraleSteady}, {11, MoraleSteady}, {10, MoraleWounded}, {6, MoraleWounded}, {5, MoraleShaken}, {1, MoraleShaken},
	}
	for _, tt := range tests {
		e := Enemy{HP: tt.hp, MaxHP: 20}
		if got := e.Morale(); got != tt.want {
			t.Fatalf("hp %d: morale %s, want %s", tt.hp, got, tt.want)
		}
	}
}
