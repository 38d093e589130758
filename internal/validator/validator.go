package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/animgate/pkg/domain"
)

// AggregateError collects every problem found in a controller.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error { return e.Errors }

// ValidateLayer checks that a layer is safe to normalize: it has a state
// machine, its state names are unique and non-empty, and every transition
// (any-state ones included) points at an existing state.
// It returns the first *domain.StructuralError found.
func ValidateLayer(layer *domain.Layer) error {
	sm := layer.StateMachine
	if sm == nil {
		return &domain.StructuralError{Layer: layer.Name, Kind: "missing_state_machine", Msg: "layer has no state machine"}
	}

	names := make(map[string]bool, len(sm.States))
	for i, s := range sm.States {
		if s == nil {
			return &domain.StructuralError{Layer: layer.Name, Kind: "nil_state", Msg: fmt.Sprintf("state #%d is nil", i)}
		}
		if s.Name == "" {
			return &domain.StructuralError{Layer: layer.Name, Kind: "unnamed_state", Msg: fmt.Sprintf("state #%d has no name", i)}
		}
		if names[s.Name] {
			return &domain.StructuralError{Layer: layer.Name, Kind: "duplicate_state", Msg: fmt.Sprintf("state %q is defined twice", s.Name)}
		}
		names[s.Name] = true
	}

	for _, s := range sm.States {
		for i, t := range s.Transitions {
			if err := checkEdge(layer.Name, s.Name, i, t, names); err != nil {
				return err
			}
		}
	}
	for i, t := range sm.AnyStateTransitions {
		if err := checkEdge(layer.Name, "Any State", i, t, names); err != nil {
			return err
		}
	}
	return nil
}

func checkEdge(layer, from string, idx int, t *domain.Transition, names map[string]bool) error {
	if t == nil {
		return &domain.StructuralError{Layer: layer, Kind: "nil_transition", Msg: fmt.Sprintf("%s transition #%d is nil", from, idx)}
	}
	if !names[t.Destination] {
		return &domain.StructuralError{
			Layer: layer,
			Kind:  "dangling_destination",
			Msg:   fmt.Sprintf("%s→%s: destination state does not exist", from, t.Destination),
		}
	}
	return nil
}

// ValidateController runs the structural checks on every layer and the
// model-wide checks (parameters and conditions). It returns an
// *AggregateError listing every problem, or nil.
func ValidateController(c *domain.Controller) error {
	var errs []error

	params := make(map[string]domain.ParameterType, len(c.Parameters))
	for _, p := range c.Parameters {
		if p.Name == "" {
			errs = append(errs, &domain.ValidationError{Field: "parameters", Msg: "parameter has no name"})
			continue
		}
		if _, dup := params[p.Name]; dup {
			errs = append(errs, &domain.ValidationError{Field: p.Name, Msg: "parameter is defined twice"})
			continue
		}
		if !p.Type.Valid() {
			errs = append(errs, &domain.ValidationError{Field: p.Name, Msg: fmt.Sprintf("unknown parameter type %q", p.Type)})
		}
		params[p.Name] = p.Type
	}

	for i := range c.Layers {
		layer := &c.Layers[i]
		if err := ValidateLayer(layer); err != nil {
			errs = append(errs, err)
			continue
		}
		for _, s := range layer.StateMachine.States {
			for _, t := range s.Transitions {
				errs = append(errs, checkTransition(layer.Name, s.Name, t, params)...)
			}
		}
		for _, t := range layer.StateMachine.AnyStateTransitions {
			errs = append(errs, checkTransition(layer.Name, "Any State", t, params)...)
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

func checkTransition(layer, from string, t *domain.Transition, params map[string]domain.ParameterType) []error {
	var errs []error
	edge := fmt.Sprintf("%s/%s→%s", layer, from, t.Destination)

	if t.HasExitTime && (t.ExitTime < 0 || t.ExitTime > 1) {
		errs = append(errs, &domain.ValidationError{Field: edge, Msg: fmt.Sprintf("exit time %g outside [0,1]", t.ExitTime)})
	}
	if t.Duration < 0 {
		errs = append(errs, &domain.ValidationError{Field: edge, Msg: fmt.Sprintf("negative duration %g", t.Duration)})
	}

	for _, cond := range t.Conditions {
		if !cond.Mode.Valid() {
			errs = append(errs, &domain.ValidationError{Field: edge, Msg: fmt.Sprintf("unknown condition mode %q", cond.Mode)})
			continue
		}
		typ, ok := params[cond.Parameter]
		if !ok {
			errs = append(errs, &domain.ValidationError{Field: edge, Msg: fmt.Sprintf("condition references unknown parameter %q", cond.Parameter)})
			continue
		}
		if cond.Mode.Numeric() && (typ == domain.ParameterBool || typ == domain.ParameterTrigger) {
			errs = append(errs, &domain.ValidationError{Field: edge, Msg: fmt.Sprintf("numeric mode %q on %s parameter %q", cond.Mode, typ, cond.Parameter)})
		}
	}
	return errs
}

// Unreachable returns the states of a structurally valid layer that cannot be
// reached from the entry state (the first state) or from any-state transitions.
func Unreachable(layer *domain.Layer) []string {
	sm := layer.StateMachine
	if sm == nil || len(sm.States) == 0 {
		return nil
	}

	visited := make(map[string]bool)
	queue := []string{sm.States[0].Name}
	for _, t := range sm.AnyStateTransitions {
		queue = append(queue, t.Destination)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true

		s, ok := sm.State(current)
		if !ok {
			continue
		}
		for _, t := range s.Transitions {
			if !visited[t.Destination] {
				queue = append(queue, t.Destination)
			}
		}
	}

	var missing []string
	for _, s := range sm.States {
		if !visited[s.Name] {
			missing = append(missing, s.Name)
		}
	}
	return missing
}

// Describe renders an aggregate of problems as a bullet list.
func Describe(err error) string {
	agg, ok := err.(*AggregateError)
	if !ok {
		return err.Error()
	}
	lines := make([]string, 0, len(agg.Errors))
	for _, e := range agg.Errors {
		lines = append(lines, "- "+e.Error())
	}
	return strings.Join(lines, "\n")
}
