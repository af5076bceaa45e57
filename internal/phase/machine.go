// Package phase implements a small data-driven state machine. Each phase
// names the agent allowed to act, the tools it may call and how the next
// phase is chosen. Machines serialize to a plain Snapshot so they can be
// stored inside a game record and resumed later.
package phase

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrComplete is returned when advancing a finished machine.
	ErrComplete = errors.New("phase machine is complete")
	// ErrUnknownResolver is returned when a computed transition names a
	// resolver that was not registered.
	ErrUnknownResolver = errors.New("unknown phase resolver")
)

// NextKind tags the Next variant.
type NextKind string

const (
	NextLiteral  NextKind = "literal"
	NextComputed NextKind = "computed"
)

// Next selects the phase that follows a transition.
type Next struct {
	Kind     NextKind          `json:"kind"`
	Phase    string            `json:"phase,omitempty"`
	Resolver string            `json:"resolver,omitempty"`
	Args     map[string]string `json:"args,omitempty"`
}

// Literal transitions to a fixed phase name.
func Literal(name string) Next {
	return Next{Kind: NextLiteral, Phase: name}
}

// Computed transitions to whatever the named resolver returns. Args is
// passed to the resolver unchanged and is stored with the machine.
func Computed(resolver string, args map[string]string) Next {
	return Next{Kind: NextComputed, Resolver: resolver, Args: args}
}

// Definition describes one phase.
type Definition struct {
	ActiveAgent    string   `json:"active_agent"`
	AvailableTools []string `json:"available_tools"`
	Prompt         string   `json:"prompt"`
	TransitionOn   string   `json:"transition_on"`
	Next           Next     `json:"next"`
}

// Result is what the active agent produced in the current phase.
type Result struct {
	Action string `json:"action"`
	Agent  string `json:"agent"`
	Text   string `json:"text,omitempty"`
	Done   bool   `json:"done,omitempty"`
}

// Resolver picks the next phase for a computed transition.
type Resolver func(res Result, args map[string]string) string

// Resolvers maps resolver keys to functions.
type Resolvers map[string]Resolver

// Machine walks a set of phase definitions. A machine is complete once its
// current key is not one of its phases.
type Machine struct {
	phases      map[string]Definition
	current     string
	transitions int
	resolvers   Resolvers
}

// New builds a machine starting at start.
func New(phases map[string]Definition, start string, resolvers Resolvers) *Machine {
	return &Machine{
		phases:    phases,
		current:   start,
		resolvers: resolvers,
	}
}

// Current returns the current phase key.
func (m *Machine) Current() string {
	return m.current
}

// Transitions returns how many times the machine has advanced.
func (m *Machine) Transitions() int {
	return m.transitions
}

// Definition returns the current phase definition.
func (m *Machine) Definition() (Definition, bool) {
	def, ok := m.phases[m.current]
	return def, ok
}

// IsComplete reports whether the current key falls outside the phase map.
func (m *Machine) IsComplete() bool {
	_, ok := m.phases[m.current]
	return !ok
}

// AvailableTools returns the tools of the current phase for identity, or
// nil when identity is not exactly the phase's active agent.
func (m *Machine) AvailableTools(identity string) []string {
	def, ok := m.phases[m.current]
	if !ok || def.ActiveAgent != identity {
		return nil
	}
	return append([]string(nil), def.AvailableTools...)
}

// Advance moves to the next phase and returns its key.
func (m *Machine) Advance(res Result) (string, error) {
	def, ok := m.phases[m.current]
	if !ok {
		return m.current, ErrComplete
	}
	next, err := m.resolve(def.Next, res)
	if err != nil {
		return m.current, err
	}
	m.current = next
	m.transitions++
	return next, nil
}

func (m *Machine) resolve(n Next, res Result) (string, error) {
	switch n.Kind {
	case NextLiteral:
		return n.Phase, nil
	case NextComputed:
		fn, ok := m.resolvers[n.Resolver]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownResolver, n.Resolver)
		}
		return fn(res, n.Args), nil
	default:
		return "", fmt.Errorf("unknown transition kind %q", n.Kind)
	}
}

// Snapshot is the serializable form of a machine.
type Snapshot struct {
	Phases      map[string]Definition `json:"phases"`
	Current     string                `json:"current"`
	Transitions int                   `json:"transitions"`
}

// Snapshot returns a deep copy of the machine's state.
func (m *Machine) Snapshot() Snapshot {
	phases := make(map[string]Definition, len(m.phases))
	for name, def := range m.phases {
		def.AvailableTools = append([]string(nil), def.AvailableTools...)
		if def.Next.Args != nil {
			args := make(map[string]string, len(def.Next.Args))
			for k, v := range def.Next.Args {
				args[k] = v
			}
			def.Next.Args = args
		}
		phases[name] = def
	}
	return Snapshot{Phases: phases, Current: m.current, Transitions: m.transitions}
}

// Restore rebuilds a machine from a snapshot. Every computed transition must
// name a resolver present in resolvers.
func Restore(s Snapshot, resolvers Resolvers) (*Machine, error) {
	names := make([]string, 0, len(s.Phases))
	for name := range s.Phases {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		next := s.Phases[name].Next
		if next.Kind != NextComputed {
			continue
		}
		if _, ok := resolvers[next.Resolver]; !ok {
			return nil, fmt.Errorf("restore phase %s: %w: %s", name, ErrUnknownResolver, next.Resolver)
		}
	}
	m := New(s.Phases, s.Current, resolvers)
	m.transitions = s.Transitions
	return m, nil
}
