package game

import "testing"

func TestInitiativeOrdersByDexThenName(t *testing.T) {
	party := []*Character{member("Cora", 40), member("Abe", 60), member("Bea", 60), member("Dov", 70)}
	order := Initiative(party)
	want := []string{"Dov", "Abe", "Bea", "Cora"}
	for i, c := range order {
		if c.Name != want[i] {
			t.Fatalf("order[%d] = %s, want %s", i, c.Name, want[i])
		}
	}
	if party[0].Name != "Cora" {
		t.Fatal("initiative must not reorder the party slice")
	}
}

func TestInitiativeIsStable(t *testing.T) {
	a, b, c, d := member("Abe", 60), member("Bea", 60), member("Cora", 40), member("Dov", 60)
	want := []string{"Abe", "Bea", "Dov", "Cora"}
	for _, party := range [][]*Character{{a, b, c, d}, {d, c, b, a}, {c, a, d, b}} {
		for round := 0; round < 3; round++ {
			for i, got := range Initiative(party) {
				if got.Name != want[i] {
					t.Fatalf("round %d: order[%d] = %s, want %s", round, i, got.Name, want[i])
				}
			}
		}
	}

	gs := playing(member("Abe", 60), member("Bea", 60), member("Cora", 40))
	first := append([]string(nil), gs.TurnOrder...)
	for i := 0; i < 6; i++ {
		AdvanceTurn(gs)
		if !sameOrder(gs.TurnOrder, first) {
			t.Fatalf("turn order after %d advances = %v, want %v", i+1, gs.TurnOrder, first)
		}
	}
}

func TestNormalizeSkipsDeadCurrentPlayer(t *testing.T) {
	a, b, c, d := member("A", 90), member("B", 80), member("C", 70), member("D", 60)
	gs := playing(a, b, c, d)
	gs.CurrentPlayer = "B"
	b.HP, c.HP = 0, 0
	before := countLog(gs, EventSkip)

	if !NormalizeTurnState(gs) {
		t.Fatal("expected a change")
	}
	if gs.CurrentPlayer != "D" {
		t.Fatalf("current = %s", gs.CurrentPlayer)
	}
	if got := countLog(gs, EventSkip) - before; got != 2 {
		t.Fatalf("skip events = %d, want 2", got)
	}
	if len(gs.TurnOrder) != 2 || gs.TurnOrder[0] != "A" || gs.TurnOrder[1] != "D" {
		t.Fatalf("turn order = %v", gs.TurnOrder)
	}
	if NormalizeTurnState(gs) {
		t.Fatal("second normalization must be a no-op")
	}
}

func TestNormalizeAcceptsAgentIDAsCurrent(t *testing.T) {
	a := member("A", 90)
	gs := playing(a)
	gs.CurrentPlayer = a.AgentID
	NormalizeTurnState(gs)
	if gs.CurrentPlayer != "A" {
		t.Fatalf("current = %s", gs.CurrentPlayer)
	}
}

func TestNormalizeTotalPartyKill(t *testing.T) {
	a, b := member("A", 90), member("B", 80)
	gs := inCombat(t, a, b)
	a.HP, b.HP = 0, 0
	if !NormalizeTurnState(gs) {
		t.Fatal("expected a change")
	}
	if gs.Phase != PhaseFinished || gs.Mode != ModeFinished {
		t.Fatalf("phase=%s mode=%s", gs.Phase, gs.Mode)
	}
	if gs.Combat != nil || gs.CurrentPlayer != NoPlayer || len(gs.TurnOrder) != 0 {
		t.Fatalf("combat=%v current=%s order=%v", gs.Combat, gs.CurrentPlayer, gs.TurnOrder)
	}
	if countLog(gs, EventTPK) != 1 {
		t.Fatal("expected one TPK entry")
	}
}

func TestAdvanceTurnWrapsAndCountsRounds(t *testing.T) {
	a, b := member("A", 90), member("B", 80)
	gs := playing(a, b)
	if gs.CurrentPlayer != "A" {
		t.Fatalf("first player = %s", gs.CurrentPlayer)
	}
	round := gs.Round
	AdvanceTurn(gs)
	if gs.CurrentPlayer != "B" || gs.Round != round {
		t.Fatalf("current=%s round=%d", gs.CurrentPlayer, gs.Round)
	}
	AdvanceTurn(gs)
	if gs.CurrentPlayer != "A" || gs.Round != round+1 {
		t.Fatalf("current=%s round=%d", gs.CurrentPlayer, gs.Round)
	}
}

func TestAdvanceTurnSkipsDead(t *testing.T) {
	a, b, c := member("A", 90), member("B", 80), member("C", 70)
	gs := playing(a, b, c)
	b.HP = 0
	before := countLog(gs, EventSkip)
	AdvanceTurn(gs)
	if gs.CurrentPlayer != "C" {
		t.Fatalf("current = %s", gs.CurrentPlayer)
	}
	if countLog(gs, EventSkip)-before != 1 {
		t.Fatal("expected one skip entry")
	}
}

func TestAdvanceTurnSoloWrapsEveryTurn(t *testing.T) {
	gs := playing(member("A", 50))
	AdvanceTurn(gs)
	AdvanceTurn(gs)
	if gs.CurrentPlayer != "A" || gs.Round != 2 {
		t.Fatalf("current=%s round=%d", gs.CurrentPlayer, gs.Round)
	}
}

func TestTurnHelpersIgnoreOtherPhases(t *testing.T) {
	gs := NewGameState("g", "dm", 1)
	gs.Party = []*Character{member("A", 50)}
	if NormalizeTurnState(gs) || AdvanceTurn(gs) {
		t.Fatal("setup phase has no turn order")
	}
	if gs.CurrentPlayer != "dm" {
		t.Fatalf("current = %s", gs.CurrentPlayer)
	}
}
