package normalizer

import (
	"fmt"

	"github.com/aretw0/animgate/internal/validator"
	"github.com/aretw0/animgate/pkg/domain"
)

// Violation is an invariant that does not hold on a normalized layer.
type Violation struct {
	Layer     string `json:"layer"`
	Invariant string `json:"invariant"`
	Details   string `json:"details"`
}

func (v Violation) Error() string {
	return fmt.Sprintf("layer %q violates %s: %s", v.Layer, v.Invariant, v.Details)
}

// Invariant names reported by CheckInvariants.
const (
	InvariantReachable = "forced_entry"
	InvariantRecovery  = "recovery_exit"
	InvariantDuration  = "duration_cap"
	InvariantParameter = "gate_parameter"
)

// CheckInvariants inspects c without mutating it and lists every layer that
// Normalize would still have to fix. Structurally broken layers and layers
// without a terminal state are ignored.
func CheckInvariants(c *domain.Controller, cfg Config) []Violation {
	if c == nil {
		return nil
	}
	var out []Violation
	hasTerminal := false

	for i := range c.Layers {
		layer := &c.Layers[i]
		if validator.ValidateLayer(layer) != nil {
			continue
		}
		sm := layer.StateMachine
		terminal, ok := FindFirstByNameSubstring(sm.States, cfg.TerminalHints)
		if !ok {
			continue
		}
		hasTerminal = true
		out = append(out, checkForcedEntry(layer.Name, sm, terminal, cfg)...)

		recovery, ok := FindFirstByNameSubstring(without(sm.States, terminal), cfg.RecoveryHints)
		if ok {
			out = append(out, checkRecovery(layer.Name, terminal, recovery, cfg)...)
		}
	}

	if hasTerminal {
		if p, ok := c.Parameter(cfg.GateParameter); !ok || p.Type != domain.ParameterBool {
			out = append(out, Violation{Invariant: InvariantParameter, Details: fmt.Sprintf("no bool parameter %q", cfg.GateParameter)})
		}
	}
	return out
}

func checkForcedEntry(layer string, sm *domain.StateMachine, terminal *domain.State, cfg Config) []Violation {
	var out []Violation
	for _, s := range sm.States {
		if s == nil || s == terminal {
			continue
		}
		for _, t := range s.Transitions {
			if t.Destination != terminal.Name {
				continue
			}
			if t.HasExitTime {
				out = append(out, Violation{layer, InvariantReachable, fmt.Sprintf("%s→%s waits for exit time", s.Name, terminal.Name)})
			}
			if t.Duration > cfg.MaxForcedDuration {
				out = append(out, Violation{layer, InvariantDuration, fmt.Sprintf("%s→%s blends for %gs", s.Name, terminal.Name, t.Duration)})
			}
		}
	}

	for _, t := range sm.AnyStateTransitions {
		if t.Destination != terminal.Name {
			continue
		}
		if t.HasExitTime || !t.HasCondition(cfg.GateParameter, domain.ConditionIsTrue) {
			out = append(out, Violation{layer, InvariantReachable, fmt.Sprintf("Any State→%s is not forced on %s", terminal.Name, cfg.GateParameter)})
		}
		if t.Duration > cfg.MaxForcedDuration {
			out = append(out, Violation{layer, InvariantDuration, fmt.Sprintf("Any State→%s blends for %gs", terminal.Name, t.Duration)})
		}
		return out
	}
	return append(out, Violation{layer, InvariantReachable, fmt.Sprintf("no Any State transition to %s", terminal.Name)})
}

func checkRecovery(layer string, terminal, recovery *domain.State, cfg Config) []Violation {
	for _, t := range terminal.Transitions {
		if t.Destination != recovery.Name {
			continue
		}
		var out []Violation
		if !t.HasExitTime || t.ExitTime < cfg.RecoveryExitTimeFloor || !t.HasCondition(cfg.GateParameter, domain.ConditionIsFalse) {
			out = append(out, Violation{layer, InvariantRecovery, fmt.Sprintf("%s→%s does not wait for the clip and %s == false", terminal.Name, recovery.Name, cfg.GateParameter)})
		}
		if t.Duration > cfg.MaxForcedDuration {
			out = append(out, Violation{layer, InvariantDuration, fmt.Sprintf("%s→%s blends for %gs", terminal.Name, recovery.Name, t.Duration)})
		}
		return out
	}
	return []Violation{{layer, InvariantRecovery, fmt.Sprintf("no transition %s→%s", terminal.Name, recovery.Name)}}
}
