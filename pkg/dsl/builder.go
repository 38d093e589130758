package dsl

import "github.com/aretw0/animgate/pkg/domain"

// Builder manages the controller construction.
type Builder struct {
	controller domain.Controller
	layers     []*LayerBuilder
}

// New creates a new controller builder.
func New(name string) *Builder {
	return &Builder{controller: domain.Controller{Name: name}}
}

// Param declares a parameter as-is.
func (b *Builder) Param(p domain.Parameter) *Builder {
	b.controller.AddParameter(p)
	return b
}

// Bool declares a Boolean parameter.
func (b *Builder) Bool(name string, def bool) *Builder {
	return b.Param(domain.Parameter{Name: name, Type: domain.ParameterBool, DefaultBool: def})
}

// Int declares an Integer parameter.
func (b *Builder) Int(name string, def int) *Builder {
	return b.Param(domain.Parameter{Name: name, Type: domain.ParameterInt, DefaultInt: def})
}

// Float declares a Float parameter.
func (b *Builder) Float(name string, def float64) *Builder {
	return b.Param(domain.Parameter{Name: name, Type: domain.ParameterFloat, DefaultFloat: def})
}

// Trigger declares a Trigger parameter.
func (b *Builder) Trigger(name string) *Builder {
	return b.Param(domain.Parameter{Name: name, Type: domain.ParameterTrigger})
}

// Layer returns the builder of the named layer, creating it on first use.
func (b *Builder) Layer(name string) *LayerBuilder {
	for _, lb := range b.layers {
		if lb.name == name {
			return lb
		}
	}
	lb := &LayerBuilder{name: name, machine: &domain.StateMachine{}}
	b.layers = append(b.layers, lb)
	return lb
}

// Build returns a copy of the controller assembled so far.
// The builder can keep being used without affecting returned controllers.
func (b *Builder) Build() *domain.Controller {
	c := b.controller
	c.Layers = make([]domain.Layer, 0, len(b.layers))
	for _, lb := range b.layers {
		c.Layers = append(c.Layers, domain.Layer{Name: lb.name, StateMachine: lb.machine})
	}
	return c.Clone()
}

// LayerBuilder configures one layer's state machine.
type LayerBuilder struct {
	name    string
	machine *domain.StateMachine
}

// State returns the builder of the named state, appending it on first use.
func (l *LayerBuilder) State(name string) *StateBuilder {
	if s, ok := l.machine.State(name); ok {
		return &StateBuilder{state: s}
	}
	s := &domain.State{Name: name}
	l.machine.States = append(l.machine.States, s)
	return &StateBuilder{state: s}
}

// Any adds a transition evaluated from every state.
func (l *LayerBuilder) Any(destination string) *TransitionBuilder {
	t := l.machine.AddAnyStateTransition(&domain.AnyStateTransition{Destination: destination})
	return &TransitionBuilder{transition: t}
}

// StateBuilder adds outgoing transitions to a state.
type StateBuilder struct {
	state *domain.State
}

// To adds a transition to destination. The destination is referenced by
// name and is not declared implicitly.
func (s *StateBuilder) To(destination string) *TransitionBuilder {
	t := s.state.AddTransition(&domain.Transition{Destination: destination})
	return &TransitionBuilder{transition: t}
}

// TransitionBuilder tunes a single transition.
type TransitionBuilder struct {
	transition *domain.Transition
}

// ExitTime makes the transition wait until the clip reaches at (normalized time).
func (t *TransitionBuilder) ExitTime(at float64) *TransitionBuilder {
	t.transition.HasExitTime = true
	t.transition.ExitTime = at
	return t
}

// Duration sets the blend time in seconds.
func (t *TransitionBuilder) Duration(seconds float64) *TransitionBuilder {
	t.transition.Duration = seconds
	return t
}

// When appends a condition on a Boolean parameter (IsTrue/IsFalse).
func (t *TransitionBuilder) When(param string, mode domain.ConditionMode) *TransitionBuilder {
	t.transition.Conditions = append(t.transition.Conditions, domain.Condition{Parameter: param, Mode: mode})
	return t
}

// Compare appends a numeric condition.
func (t *TransitionBuilder) Compare(param string, mode domain.ConditionMode, threshold float64) *TransitionBuilder {
	t.transition.Conditions = append(t.transition.Conditions, domain.Condition{Parameter: param, Mode: mode, Threshold: threshold})
	return t
}
