package phase

import "fmt"

// Setup interview phase keys and tools.
const (
	PhaseIntro    = "intro"
	PhaseFinalize = "finalize"
	// Complete is where a finished interview rests; it is never defined.
	Complete = "complete"

	ToolNarrate  = "setup_narrate"
	ToolRespond  = "setup_respond"
	ToolFinalize = "setup_finalize"

	// ResolverInterviewRespond lets a player end their interview early.
	ResolverInterviewRespond = "interview.respond"
)

// InterviewResolvers returns the resolvers used by Interview machines.
func InterviewResolvers() Resolvers {
	return Resolvers{
		ResolverInterviewRespond: func(res Result, args map[string]string) string {
			if res.Done {
				return args["skip"]
			}
			return args["next"]
		},
	}
}

func narrateKey(player, exchange int) string {
	return fmt.Sprintf("narrate:%d:%d", player, exchange)
}

func respondKey(player, exchange int) string {
	return fmt.Sprintf("respond:%d:%d", player, exchange)
}

// Interview builds the setup machine: the host opens, then for every player
// the host narrates and the player responds exchanges times, then the host
// finalizes. With no players (or no exchanges) the intro leads straight to
// finalize. A full run takes 2*players*exchanges + 2 transitions.
func Interview(host string, players []string, exchanges int) *Machine {
	phases := make(map[string]Definition)

	perPlayer := exchanges > 0 && len(players) > 0
	first := PhaseFinalize
	if perPlayer {
		first = narrateKey(0, 0)
	}
	phases[PhaseIntro] = Definition{
		ActiveAgent:    host,
		AvailableTools: []string{ToolNarrate},
		Prompt:         "Open the adventure and set the scene for the party.",
		TransitionOn:   ToolNarrate,
		Next:           Literal(first),
	}

	if perPlayer {
		for i, player := range players {
			skip := PhaseFinalize
			if i+1 < len(players) {
				skip = narrateKey(i+1, 0)
			}
			for j := 0; j < exchanges; j++ {
				next := skip
				if j+1 < exchanges {
					next = narrateKey(i, j+1)
				}
				phases[narrateKey(i, j)] = Definition{
					ActiveAgent:    host,
					AvailableTools: []string{ToolNarrate},
					Prompt:         fmt.Sprintf("Ask %s about their character (%d of %d).", player, j+1, exchanges),
					TransitionOn:   ToolNarrate,
					Next:           Literal(respondKey(i, j)),
				}
				phases[respondKey(i, j)] = Definition{
					ActiveAgent:    player,
					AvailableTools: []string{ToolRespond},
					Prompt:         "Answer the narrator in character. Set done to end your interview.",
					TransitionOn:   ToolRespond,
					Next:           Computed(ResolverInterviewRespond, map[string]string{"next": next, "skip": skip}),
				}
			}
		}
	}

	phases[PhaseFinalize] = Definition{
		ActiveAgent:    host,
		AvailableTools: []string{ToolFinalize},
		Prompt:         "Summarize the party and begin the adventure.",
		TransitionOn:   ToolFinalize,
		Next:           Literal(Complete),
	}

	return New(phases, PhaseIntro, InterviewResolvers())
}
