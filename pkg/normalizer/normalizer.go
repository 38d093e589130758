package normalizer

import (
	"strconv"

	"github.com/aretw0/animgate/internal/validator"
	"github.com/aretw0/animgate/pkg/domain"
)

// anyStateLabel names the source of global transitions in change messages.
const anyStateLabel = "Any State"

// Normalize rewrites c in place so every layer with a terminal state satisfies
// the forced-entry and recovery invariants, and returns c with a report of the
// changes. Layers are processed in stored order and never affect each other.
//
// Problems never abort the run: an invalid config leaves c untouched, a gate
// parameter of the wrong type disables the gate-dependent steps, and a
// structurally broken layer is skipped. All of them are recorded on the report.
func Normalize(c *domain.Controller, cfg Config) (*domain.Controller, *Report) {
	report := &Report{}
	if c == nil {
		report.Errors = append(report.Errors, "controller is nil")
		return nil, report
	}
	report.Controller = c.Name

	if err := cfg.Validate(); err != nil {
		report.Errors = append(report.Errors, err.Error())
		return c, report
	}

	gate := &gateResolver{controller: c, name: cfg.GateParameter, report: report}
	for i := range c.Layers {
		report.Layers = append(report.Layers, normalizeLayer(&c.Layers[i], cfg, gate))
	}
	return c, report
}

// gateResolver resolves the gate parameter on first use and caches the
// outcome for the remaining layers. Controllers without any terminal state
// therefore stay untouched.
type gateResolver struct {
	controller *domain.Controller
	name       string
	report     *Report

	done bool
	err  error
}

func (g *gateResolver) resolve() error {
	if g.done {
		return g.err
	}
	g.done = true

	_, created, err := ResolveGateParameter(g.controller, g.name)
	if err != nil {
		g.err = err
		g.report.Errors = append(g.report.Errors, err.Error())
		return err
	}
	g.report.GateParameterCreated = created
	return nil
}

func normalizeLayer(layer *domain.Layer, cfg Config, gate *gateResolver) *LayerReport {
	lr := &LayerReport{Layer: layer.Name, Phase: PhaseStart}

	if err := validator.ValidateLayer(layer); err != nil {
		lr.fail(err)
		lr.Phase = PhaseDone
		return lr
	}
	sm := layer.StateMachine

	terminal, found := FindFirstByNameSubstring(sm.States, cfg.TerminalHints)
	if !found {
		lr.Phase = PhaseTerminalAbsent
		return lr
	}
	lr.TerminalStateFound = true
	lr.TerminalStateName = terminal.Name
	lr.Phase = PhaseTerminalFound

	gateErr := gate.resolve()
	if gateErr != nil {
		lr.fail(gateErr)
	} else {
		lr.Phase = PhaseGateResolved
	}

	for _, s := range sm.States {
		if s == terminal {
			continue
		}
		for _, t := range s.Transitions {
			if t.Destination == terminal.Name {
				forceImmediate(lr, s.Name, terminal.Name, t, cfg.MaxForcedDuration)
			}
		}
	}
	lr.Phase = PhaseInboundNormalized

	ensureForcedTransition(lr, sm, terminal, cfg, gateErr == nil)

	recovery, found := FindFirstByNameSubstring(without(sm.States, terminal), cfg.RecoveryHints)
	if !found {
		lr.Phase = PhaseRecoveryAbsent
		return lr
	}
	lr.RecoveryStateFound = true
	lr.RecoveryStateName = recovery.Name
	lr.Phase = PhaseRecoveryFound

	ensureRecoveryTransition(lr, terminal, recovery, cfg, gateErr == nil)
	lr.Phase = PhaseDone
	return lr
}

// forceImmediate makes t preempt the current clip and blend in quickly.
func forceImmediate(lr *LayerReport, from, to string, t *domain.Transition, maxDuration float64) {
	edge := from + "→" + to
	if t.HasExitTime {
		lr.change("%s: hasExitTime true→false", edge)
		t.HasExitTime = false
	}
	if t.ExitTime != 0 {
		lr.change("%s: exitTime %s→0", edge, num(t.ExitTime))
		t.ExitTime = 0
	}
	capDuration(lr, edge, t, maxDuration)
}

func capDuration(lr *LayerReport, edge string, t *domain.Transition, maxDuration float64) {
	if t.Duration > maxDuration {
		lr.change("%s: duration %s→%s", edge, num(t.Duration), num(maxDuration))
		t.Duration = maxDuration
	}
}

// ensureCondition leaves exactly one condition matching param and mode on t.
func ensureCondition(lr *LayerReport, edge string, t *domain.Transition, param string, mode domain.ConditionMode) {
	found, dropped := false, 0
	kept := t.Conditions[:0]
	for _, c := range t.Conditions {
		if c.Matches(param, mode) {
			if found {
				dropped++
				continue
			}
			found = true
		}
		kept = append(kept, c)
	}
	t.Conditions = kept

	if dropped > 0 {
		lr.change("%s: %d duplicate condition(s) %s removed", edge, dropped, describeCondition(param, mode))
	}
	if !found {
		t.Conditions = append(t.Conditions, domain.Condition{Parameter: param, Mode: mode})
		lr.change("%s: condition %s added", edge, describeCondition(param, mode))
	}
}

func ensureForcedTransition(lr *LayerReport, sm *domain.StateMachine, terminal *domain.State, cfg Config, gateOK bool) {
	edge := anyStateLabel + "→" + terminal.Name

	var forced *domain.AnyStateTransition
	for i, t := range sm.AnyStateTransitions {
		if t.Destination != terminal.Name {
			continue
		}
		if forced == nil {
			forced = t
			continue
		}
		lr.warn("duplicate forced transition: %s (#%d) left untouched", edge, i)
	}

	switch {
	case forced != nil:
		forceImmediate(lr, anyStateLabel, terminal.Name, forced, cfg.MaxForcedDuration)
		if gateOK {
			ensureCondition(lr, edge, forced, cfg.GateParameter, domain.ConditionIsTrue)
		}
	case gateOK:
		sm.AddAnyStateTransition(&domain.AnyStateTransition{
			Destination: terminal.Name,
			HasExitTime: false,
			ExitTime:    0,
			Duration:    cfg.MaxForcedDuration,
			Conditions:  []domain.Condition{{Parameter: cfg.GateParameter, Mode: domain.ConditionIsTrue}},
		})
		lr.change("%s: created (%s)", edge, describeCondition(cfg.GateParameter, domain.ConditionIsTrue))
	default:
		lr.warn("%s: not created, gate parameter %q is unavailable", edge, cfg.GateParameter)
		return
	}
	lr.Phase = PhaseForcedTransitionEnsured
}

func ensureRecoveryTransition(lr *LayerReport, terminal, recovery *domain.State, cfg Config, gateOK bool) {
	edge := terminal.Name + "→" + recovery.Name

	var existing *domain.Transition
	for _, t := range terminal.Transitions {
		if t.Destination == recovery.Name {
			existing = t
			break
		}
	}

	if existing == nil {
		if !gateOK {
			lr.warn("%s: not created, gate parameter %q is unavailable", edge, cfg.GateParameter)
			return
		}
		terminal.AddTransition(&domain.Transition{
			Destination: recovery.Name,
			HasExitTime: true,
			ExitTime:    cfg.RecoveryExitTime,
			Duration:    cfg.MaxForcedDuration,
			Conditions:  []domain.Condition{{Parameter: cfg.GateParameter, Mode: domain.ConditionIsFalse}},
		})
		lr.change("%s: created (%s)", edge, describeCondition(cfg.GateParameter, domain.ConditionIsFalse))
		lr.Phase = PhaseRecoveryTransitionEnsured
		return
	}

	if !existing.HasExitTime {
		lr.change("%s: hasExitTime false→true", edge)
		existing.HasExitTime = true
	}
	// Only raise: an exit time at or above the floor is intentional tuning.
	if existing.ExitTime < cfg.RecoveryExitTimeFloor {
		lr.change("%s: exitTime %s→%s", edge, num(existing.ExitTime), num(cfg.RecoveryExitTime))
		existing.ExitTime = cfg.RecoveryExitTime
	}
	capDuration(lr, edge, existing, cfg.MaxForcedDuration)
	if gateOK {
		ensureCondition(lr, edge, existing, cfg.GateParameter, domain.ConditionIsFalse)
	}
	lr.Phase = PhaseRecoveryTransitionEnsured
}

func describeCondition(param string, mode domain.ConditionMode) string {
	switch mode {
	case domain.ConditionIsTrue:
		return param + " == true"
	case domain.ConditionIsFalse:
		return param + " == false"
	}
	return param + " " + string(mode)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
