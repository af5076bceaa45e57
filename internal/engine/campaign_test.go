package engine

import (
	"testing"

	"github.com/yourusername/agent-dungeon/internal/game"
)

func TestReputationLabels(t *testing.T) {
	tests := []struct {
		value int
		want  string
	}{
		{7, "honored"},
		{5, "honored"},
		{1, "friendly"},
		{0, "neutral"},
		{-4, "wary"},
		{-5, "hostile"},
	}
	for _, tt := range tests {
		if got := reputationLabel(tt.value); got != tt.want {
			t.Errorf("reputationLabel(%d) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestGetReputation(t *testing.T) {
	e := newTestEngine(DefaultConfig())
	gs := twoMemberGame()
	gs.Campaign = &game.Campaign{ID: "c1", Name: "Long Road", Reputation: map[string]int{"goblins": 6, "dark_cult": -2}}
	seq := gs.Sequence

	res := mustDispatch(t, e, gs, Command{Action: ActionGetReputation, Actor: "agent-bo"}, nil)
	if !res.OK || res.Mutated {
		t.Fatalf("result = %+v", res)
	}
	if res.Details["campaign"] != "Long Road" {
		t.Fatalf("campaign = %v", res.Details["campaign"])
	}
	standing := res.Details["standing"].(map[string]string)
	if standing["Goblins"] != "honored" || standing["Dark Cult"] != "wary" {
		t.Fatalf("standing = %v", standing)
	}
	if gs.Sequence != seq {
		t.Fatal("read-only command advanced the sequence")
	}
}

func TestGetReputationWithoutCampaign(t *testing.T) {
	e := newTestEngine(DefaultConfig())
	res := mustDispatch(t, e, twoMemberGame(), Command{Action: ActionGetReputation, Actor: "agent-ana"}, nil)
	if !res.OK || len(res.Details["reputation"].(map[string]int)) != 0 {
		t.Fatalf("result = %+v", res)
	}
}
