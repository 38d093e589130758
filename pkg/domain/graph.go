package domain

// ConditionMode is the comparison a Condition applies to its parameter.
type ConditionMode string

const (
	ConditionIsTrue      ConditionMode = "if"
	ConditionIsFalse     ConditionMode = "if_not"
	ConditionGreaterThan ConditionMode = "greater"
	ConditionLessThan    ConditionMode = "less"
	ConditionEquals      ConditionMode = "equals"
	ConditionNotEquals   ConditionMode = "not_equal"
)

// Valid reports whether m is one of the known condition modes.
func (m ConditionMode) Valid() bool {
	switch m {
	case ConditionIsTrue, ConditionIsFalse, ConditionGreaterThan,
		ConditionLessThan, ConditionEquals, ConditionNotEquals:
		return true
	}
	return false
}

// Numeric reports whether the mode compares against Threshold.
func (m ConditionMode) Numeric() bool {
	switch m {
	case ConditionGreaterThan, ConditionLessThan, ConditionEquals, ConditionNotEquals:
		return true
	}
	return false
}

// Condition gates a transition on a parameter value.
type Condition struct {
	Parameter string        `json:"parameter" yaml:"parameter" mapstructure:"parameter"`
	Mode      ConditionMode `json:"mode" yaml:"mode" mapstructure:"mode"`
	Threshold float64       `json:"threshold,omitempty" yaml:"threshold,omitempty" mapstructure:"threshold"`
}

// Matches reports whether the condition reads param with mode.
// Threshold is ignored: it carries no meaning for the Boolean modes.
func (c Condition) Matches(param string, mode ConditionMode) bool {
	return c.Parameter == param && c.Mode == mode
}

// Transition is an edge to Destination, taken when every condition holds.
// ExitTime is only meaningful when HasExitTime is set. Duration is the blend
// time in seconds.
type Transition struct {
	Destination string      `json:"destination" yaml:"destination" mapstructure:"destination"`
	HasExitTime bool        `json:"has_exit_time" yaml:"has_exit_time" mapstructure:"has_exit_time"`
	ExitTime    float64     `json:"exit_time" yaml:"exit_time" mapstructure:"exit_time"`
	Duration    float64     `json:"duration" yaml:"duration" mapstructure:"duration"`
	Conditions  []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty" mapstructure:"conditions"`
}

// AnyStateTransition has the shape of a Transition but no source state:
// it is evaluated from whichever state is current.
type AnyStateTransition = Transition

// HasCondition reports whether any condition matches param and mode.
func (t *Transition) HasCondition(param string, mode ConditionMode) bool {
	for _, c := range t.Conditions {
		if c.Matches(param, mode) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the transition.
func (t *Transition) Clone() *Transition {
	if t == nil {
		return nil
	}
	out := *t
	if t.Conditions != nil {
		out.Conditions = make([]Condition, len(t.Conditions))
		copy(out.Conditions, t.Conditions)
	}
	return &out
}

// State is a node of a layer's state machine.
type State struct {
	Name        string        `json:"name" yaml:"name" mapstructure:"name"`
	Transitions []*Transition `json:"transitions,omitempty" yaml:"transitions,omitempty" mapstructure:"transitions"`
}

// AddTransition appends an outgoing transition and returns it.
func (s *State) AddTransition(t *Transition) *Transition {
	s.Transitions = append(s.Transitions, t)
	return t
}

// StateMachine holds the states of one layer in insertion order together with
// the transitions that apply from any state.
type StateMachine struct {
	States              []*State              `json:"states" yaml:"states" mapstructure:"states"`
	AnyStateTransitions []*AnyStateTransition `json:"any_state_transitions,omitempty" yaml:"any_state_transitions,omitempty" mapstructure:"any_state_transitions"`
}

// State returns the state with the given name.
func (sm *StateMachine) State(name string) (*State, bool) {
	if sm == nil {
		return nil, false
	}
	for _, s := range sm.States {
		if s != nil && s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// AddAnyStateTransition appends a global transition and returns it.
func (sm *StateMachine) AddAnyStateTransition(t *AnyStateTransition) *AnyStateTransition {
	sm.AnyStateTransitions = append(sm.AnyStateTransitions, t)
	return t
}

// Clone returns a deep copy of the state machine.
func (sm *StateMachine) Clone() *StateMachine {
	if sm == nil {
		return nil
	}
	out := &StateMachine{}
	if sm.States != nil {
		out.States = make([]*State, len(sm.States))
		for i, s := range sm.States {
			if s == nil {
				continue
			}
			cs := &State{Name: s.Name}
			if s.Transitions != nil {
				cs.Transitions = make([]*Transition, len(s.Transitions))
				for j, t := range s.Transitions {
					cs.Transitions[j] = t.Clone()
				}
			}
			out.States[i] = cs
		}
	}
	if sm.AnyStateTransitions != nil {
		out.AnyStateTransitions = make([]*AnyStateTransition, len(sm.AnyStateTransitions))
		for i, t := range sm.AnyStateTransitions {
			out.AnyStateTransitions[i] = t.Clone()
		}
	}
	return out
}
