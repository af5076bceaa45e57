package game

import "sort"

// Initiative returns the party sorted by DEX descending, then name
// ascending. Dead members keep their slot so a walk can start from them.
func Initiative(party []*Character) []*Character {
	order := append([]*Character(nil), party...)
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].Stats.DEX != order[j].Stats.DEX {
			return order[i].Stats.DEX > order[j].Stats.DEX
		}
		return order[i].Name < order[j].Name
	})
	return order
}

func livingKeys(order []*Character) []string {
	keys := make([]string, 0, len(order))
	for _, c := range order {
		if c.IsAlive() {
			keys = append(keys, c.Key())
		}
	}
	return keys
}

func indexOf(order []*Character, identity string) int {
	for i, c := range order {
		if c.Identity().Matches(identity) {
			return i
		}
	}
	return -1
}

func sameOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// NormalizeTurnState repairs turn bookkeeping while playing. With nobody
// alive it ends the game as a TPK. Otherwise, when the current player is
// dead or absent, it walks forward from their initiative slot to the next
// living member, logging a skip for every dead member passed. Returns
// whether anything changed.
func NormalizeTurnState(gs *GameState) bool {
	if gs.Phase != PhasePlaying {
		return false
	}
	order := Initiative(gs.Party)
	living := livingKeys(order)
	changed := !sameOrder(gs.TurnOrder, living)
	gs.TurnOrder = living

	if len(living) == 0 {
		gs.Phase = PhaseFinished
		gs.Mode = ModeFinished
		gs.Combat = nil
		gs.CurrentPlayer = NoPlayer
		gs.TurnOrder = []string{}
		gs.Winner = ""
		gs.Logf(EventTPK, "", "The whole party has fallen. The adventure ends here.")
		return true
	}

	pos := indexOf(order, gs.CurrentPlayer)
	if pos >= 0 && order[pos].IsAlive() {
		if gs.CurrentPlayer != order[pos].Key() {
			gs.CurrentPlayer = order[pos].Key()
			changed = true
		}
		return changed
	}
	if pos >= 0 {
		gs.logSkip(order[pos])
	}
	next, _ := gs.walkFrom(order, pos)
	gs.CurrentPlayer = next
	return true
}

// AdvanceTurn hands the turn to the next living member after the current
// player, incrementing Round when the walk wraps around.
func AdvanceTurn(gs *GameState) bool {
	if gs.Phase != PhasePlaying {
		return false
	}
	order := Initiative(gs.Party)
	gs.TurnOrder = livingKeys(order)
	if len(gs.TurnOrder) == 0 {
		return NormalizeTurnState(gs)
	}
	pos := indexOf(order, gs.CurrentPlayer)
	if pos >= 0 && !order[pos].IsAlive() {
		gs.logSkip(order[pos])
	}
	next, wrapped := gs.walkFrom(order, pos)
	if wrapped {
		gs.Round++
	}
	gs.CurrentPlayer = next
	gs.Logf(EventTurn, next, "It is %s's turn.", next)
	return true
}

// walkFrom scans the initiative order cyclically starting after pos (or at
// the top when pos is -1) and returns the first living member. wrapped is
// true when the scan passed the end of the order.
func (gs *GameState) walkFrom(order []*Character, pos int) (string, bool) {
	n := len(order)
	for step := 1; step <= n; step++ {
		idx := step - 1
		if pos >= 0 {
			idx = (pos + step) % n
		}
		c := order[idx]
		if c.IsAlive() {
			return c.Key(), pos >= 0 && idx <= pos
		}
		if pos < 0 || idx != pos {
			gs.logSkip(c)
		}
	}
	return NoPlayer, false
}

func (gs *GameState) logSkip(c *Character) {
	gs.Logf(EventSkip, c.Name, "%s is dead, skipping turn", c.Name)
}
