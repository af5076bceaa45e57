package dice

import "testing"

func TestSeededIsDeterministic(t *testing.T) {
	a := NewSeeded(42)
	b := NewSeeded(42)
	for i := 0; i < 50; i++ {
		if x, y := Percentile(a), Percentile(b); x != y {
			t.Fatalf("draw %d: %d != %d", i, x, y)
		}
	}
}

func TestRollStaysInRange(t *testing.T) {
	src := NewSeeded(7)
	for i := 0; i < 500; i++ {
		if v := Roll(src, D6); v < 1 || v > 6 {
			t.Fatalf("d6 rolled %d", v)
		}
		if v := Percentile(src); v < 1 || v > 100 {
			t.Fatalf("d100 rolled %d", v)
		}
	}
}

func TestScriptReplaysFaces(t *testing.T) {
	src := NewScript(17, 4, 100)
	if got := Percentile(src); got != 17 {
		t.Fatalf("first = %d", got)
	}
	if got := Roll(src, D6); got != 4 {
		t.Fatalf("second = %d", got)
	}
	if got := Percentile(src); got != 100 {
		t.Fatalf("third = %d", got)
	}
	if src.Remaining() != 0 || src.Drawn() != 3 {
		t.Fatalf("remaining=%d drawn=%d", src.Remaining(), src.Drawn())
	}
}

func TestScriptPanicsWhenExhausted(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	Roll(NewScript(), D6)
}

func TestScriptPanicsOnOversizedFace(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	Roll(NewScript(7), D6)
}

func TestRollNFloorsAtZero(t *testing.T) {
	if got := RollN(NewScript(1, 1), 2, D6, -5); got != 0 {
		t.Fatalf("got %d", got)
	}
	if got := RollN(NewScript(3, 5), 2, D6, 1); got != 9 {
		t.Fatalf("got %d", got)
	}
}

func TestCommandSeedVariesBySequence(t *testing.T) {
	if CommandSeed(1, 0) == CommandSeed(1, 1) {
		t.Fatal("sequence must change the seed")
	}
}
