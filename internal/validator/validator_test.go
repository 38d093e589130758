package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/animgate/pkg/domain"
)

func layer(states ...*domain.State) *domain.Layer {
	return &domain.Layer{Name: "Base", StateMachine: &domain.StateMachine{States: states}}
}

func TestValidateLayer(t *testing.T) {
	// Scenario A: Valid layer
	valid := layer(
		&domain.State{Name: "Idle", Transitions: []*domain.Transition{{Destination: "Death"}}},
		&domain.State{Name: "Death"},
	)
	if err := ValidateLayer(valid); err != nil {
		t.Errorf("Scenario A (Valid) failed: %v", err)
	}

	tests := []struct {
		name     string
		layer    *domain.Layer
		wantKind string
	}{
		{
			name:     "Missing state machine",
			layer:    &domain.Layer{Name: "Base"},
			wantKind: "missing_state_machine",
		},
		{
			name:     "Duplicate state",
			layer:    layer(&domain.State{Name: "Idle"}, &domain.State{Name: "Idle"}),
			wantKind: "duplicate_state",
		},
		{
			name:     "Unnamed state",
			layer:    layer(&domain.State{}),
			wantKind: "unnamed_state",
		},
		{
			name: "Dangling destination",
			layer: layer(&domain.State{Name: "Idle", Transitions: []*domain.Transition{
				{Destination: "ghost"},
			}}),
			wantKind: "dangling_destination",
		},
		{
			name: "Dangling any-state destination",
			layer: &domain.Layer{Name: "Base", StateMachine: &domain.StateMachine{
				States:              []*domain.State{{Name: "Idle"}},
				AnyStateTransitions: []*domain.AnyStateTransition{{Destination: "ghost"}},
			}},
			wantKind: "dangling_destination",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLayer(tt.layer)
			if err == nil {
				t.Fatal("expected structural error, got nil")
			}
			var se *domain.StructuralError
			if !errors.As(err, &se) {
				t.Fatalf("expected *domain.StructuralError, got %T", err)
			}
			if se.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", se.Kind, tt.wantKind)
			}
			if !errors.Is(err, domain.ErrStructural) {
				t.Error("error should wrap domain.ErrStructural")
			}
		})
	}
}

func TestValidateController(t *testing.T) {
	c := &domain.Controller{
		Name: "Hero",
		Parameters: []domain.Parameter{
			{Name: "isDead", Type: domain.ParameterBool},
			{Name: "isDead", Type: domain.ParameterBool},
			{Name: "speed", Type: "vector"},
		},
		Layers: []domain.Layer{
			*layer(
				&domain.State{Name: "Idle", Transitions: []*domain.Transition{
					{Destination: "Death", Duration: -1, Conditions: []domain.Condition{
						{Parameter: "missing", Mode: domain.ConditionIsTrue},
						{Parameter: "isDead", Mode: domain.ConditionGreaterThan},
					}},
				}},
				&domain.State{Name: "Death"},
			),
			{Name: "Broken"},
		},
	}

	err := ValidateController(c)
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	var agg *AggregateError
	if !errors.As(err, &agg) {
		t.Fatalf("expected *AggregateError, got %T", err)
	}

	msg := Describe(err)
	for _, want := range []string{"defined twice", "unknown parameter type", "negative duration", "unknown parameter \"missing\"", "numeric mode", "no state machine"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Describe() missing %q:\n%s", want, msg)
		}
	}
	if !errors.Is(err, domain.ErrStructural) {
		t.Error("aggregate should expose the structural error to errors.Is")
	}
}

func TestValidateController_Clean(t *testing.T) {
	c := &domain.Controller{
		Parameters: []domain.Parameter{{Name: "isDead", Type: domain.ParameterBool}},
		Layers: []domain.Layer{*layer(
			&domain.State{Name: "Idle", Transitions: []*domain.Transition{
				{Destination: "Death", Conditions: []domain.Condition{{Parameter: "isDead", Mode: domain.ConditionIsTrue}}},
			}},
			&domain.State{Name: "Death"},
		)},
	}
	if err := ValidateController(c); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestUnreachable(t *testing.T) {
	l := &domain.Layer{Name: "Base", StateMachine: &domain.StateMachine{
		States: []*domain.State{
			{Name: "Idle", Transitions: []*domain.Transition{{Destination: "Attack"}}},
			{Name: "Attack"},
			{Name: "Death"},
			{Name: "Orphan"},
		},
		AnyStateTransitions: []*domain.AnyStateTransition{{Destination: "Death"}},
	}}

	got := Unreachable(l)
	if len(got) != 1 || got[0] != "Orphan" {
		t.Errorf("Unreachable() = %v, want [Orphan]", got)
	}
}
