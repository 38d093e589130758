package normalizer_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/animgate/pkg/domain"
	"github.com/aretw0/animgate/pkg/dsl"
	"github.com/aretw0/animgate/pkg/normalizer"
)

// heroController is the canonical death wiring case: a slow, exit-timed
// transition into Death and nothing leaving it.
func heroController() *domain.Controller {
	b := dsl.New("Hero")
	base := b.Layer("Base")
	base.State("Idle")
	base.State("Battle")
	base.State("Attack").To("Death").ExitTime(0.9).Duration(1.0)
	base.State("Death")
	return b.Build()
}

func findTransition(ts []*domain.Transition, dest string) *domain.Transition {
	for _, t := range ts {
		if t.Destination == dest {
			return t
		}
	}
	return nil
}

func TestNormalize_HeroScenario(t *testing.T) {
	c, report := normalizer.Normalize(heroController(), normalizer.DefaultConfig())
	require.NotNil(t, c)
	require.False(t, report.HasErrors())

	// Gate parameter
	p, ok := c.Parameter("isDead")
	require.True(t, ok)
	assert.Equal(t, domain.ParameterBool, p.Type)
	assert.False(t, p.DefaultBool)
	assert.True(t, report.GateParameterCreated)

	sm := c.Layers[0].StateMachine

	// Inbound transition forced
	attack, _ := sm.State("Attack")
	inbound := findTransition(attack.Transitions, "Death")
	require.NotNil(t, inbound)
	assert.False(t, inbound.HasExitTime)
	assert.Equal(t, 0.0, inbound.ExitTime)
	assert.Equal(t, 0.25, inbound.Duration)

	// Any State → Death
	require.Len(t, sm.AnyStateTransitions, 1)
	forced := sm.AnyStateTransitions[0]
	assert.Equal(t, "Death", forced.Destination)
	assert.False(t, forced.HasExitTime)
	assert.LessOrEqual(t, forced.Duration, 0.25)
	assert.True(t, forced.HasCondition("isDead", domain.ConditionIsTrue))

	// Death → Idle
	death, _ := sm.State("Death")
	recovery := findTransition(death.Transitions, "Idle")
	require.NotNil(t, recovery)
	assert.True(t, recovery.HasExitTime)
	assert.Equal(t, 0.95, recovery.ExitTime)
	assert.Equal(t, 0.25, recovery.Duration)
	assert.True(t, recovery.HasCondition("isDead", domain.ConditionIsFalse))

	// Report
	lr, ok := report.Layer("Base")
	require.True(t, ok)
	assert.True(t, lr.TerminalStateFound)
	assert.Equal(t, "Death", lr.TerminalStateName)
	assert.True(t, lr.RecoveryStateFound)
	assert.Equal(t, "Idle", lr.RecoveryStateName)
	assert.Equal(t, 5, lr.ChangedCount)
	assert.Equal(t, normalizer.PhaseDone, lr.Phase)
	assert.Contains(t, lr.Changes, "Attack→Death: hasExitTime true→false")
	assert.Contains(t, lr.Changes, "Attack→Death: exitTime 0.9→0")
	assert.Contains(t, lr.Changes, "Attack→Death: duration 1→0.25")
	assert.Contains(t, lr.Changes, "Any State→Death: created (isDead == true)")
	assert.Contains(t, lr.Changes, "Death→Idle: created (isDead == false)")
	assert.True(t, report.Changed())
	assert.Empty(t, normalizer.CheckInvariants(c, normalizer.DefaultConfig()))
}

func TestNormalize_Idempotent(t *testing.T) {
	tests := []struct {
		name           string
		build          func() *domain.Controller
		wantViolations bool
	}{
		{name: "hero", build: heroController},
		{
			name: "existing any-state transition",
			build: func() *domain.Controller {
				b := dsl.New("Hero")
				b.Bool("isDead", false)
				base := b.Layer("Base")
				base.State("Idle")
				base.State("Death")
				base.Any("Death").ExitTime(0.4).Duration(0.8).When("isDead", domain.ConditionIsTrue)
				return b.Build()
			},
		},
		{
			name: "duplicate forced transitions",
			build: func() *domain.Controller {
				b := dsl.New("Hero")
				base := b.Layer("Base")
				base.State("Idle")
				base.State("Death")
				base.Any("Death").Duration(1)
				base.Any("Death").Duration(2)
				return b.Build()
			},
		},
		{
			name: "recovery exit time below floor",
			build: func() *domain.Controller {
				b := dsl.New("Hero")
				base := b.Layer("Base")
				base.State("Idle")
				base.State("Death").To("Idle").ExitTime(0.3).Duration(0.8)
				return b.Build()
			},
		},
		{
			name: "gate parameter type mismatch",
			build: func() *domain.Controller {
				b := dsl.New("Hero")
				b.Float("isDead", 0)
				base := b.Layer("Base")
				base.State("Idle")
				base.State("Attack").To("Death").ExitTime(0.9).Duration(1.0)
				base.State("Death")
				return b.Build()
			},
			// Without a bool gate the forced and recovery edges cannot exist.
			wantViolations: true,
		},
		{
			name: "multi-layer",
			build: func() *domain.Controller {
				b := dsl.New("Hero")
				base := b.Layer("Base")
				base.State("Battle").To("Death").ExitTime(0.6).Duration(0.5)
				base.State("Death")
				upper := b.Layer("Upper")
				upper.State("Idle").To("Dead").Duration(0.9)
				upper.State("Dead").To("Idle").When("isDead", domain.ConditionIsFalse).When("isDead", domain.ConditionIsFalse)
				b.Layer("Face").State("Blink")
				return b.Build()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := normalizer.DefaultConfig()
			first, _ := normalizer.Normalize(tt.build(), cfg)
			snapshot := first.Clone()

			second, report := normalizer.Normalize(first, cfg)
			assert.Equal(t, 0, report.ChangedCount(), "second pass changes: %v", report.Changes())
			assert.False(t, report.Changed())
			assert.Equal(t, snapshot, second)

			violations := normalizer.CheckInvariants(second, cfg)
			if tt.wantViolations {
				assert.NotEmpty(t, violations)
			} else {
				assert.Empty(t, violations)
			}
			assertTerminalDurationCapped(t, second, cfg)
		})
	}
}

// assertTerminalDurationCapped checks every state transition into a terminal
// state and the first Any State one. Later duplicates are left as found.
func assertTerminalDurationCapped(t *testing.T, c *domain.Controller, cfg normalizer.Config) {
	t.Helper()
	for _, layer := range c.Layers {
		sm := layer.StateMachine
		terminal, ok := normalizer.FindFirstByNameSubstring(sm.States, cfg.TerminalHints)
		if !ok {
			continue
		}
		for _, s := range sm.States {
			if s == terminal {
				continue
			}
			for _, tr := range s.Transitions {
				if tr.Destination == terminal.Name {
					assert.LessOrEqual(t, tr.Duration, cfg.MaxForcedDuration, "%s: %s→%s", layer.Name, s.Name, tr.Destination)
					assert.False(t, tr.HasExitTime, "%s: %s→%s", layer.Name, s.Name, tr.Destination)
				}
			}
		}
		if forced := findTransition(sm.AnyStateTransitions, terminal.Name); forced != nil {
			assert.LessOrEqual(t, forced.Duration, cfg.MaxForcedDuration, "%s: Any State→%s", layer.Name, terminal.Name)
		}
	}
}

func TestNormalize_DuplicateGateConditionsCollapsed(t *testing.T) {
	b := dsl.New("Hero")
	b.Bool("isDead", false)
	base := b.Layer("Base")
	base.State("Idle")
	base.State("Death").To("Idle").ExitTime(0.95).Duration(0.25).
		When("isDead", domain.ConditionIsFalse).
		When("isDead", domain.ConditionIsFalse).
		Compare("hp", domain.ConditionGreaterThan, 0)
	base.Any("Death").
		When("isDead", domain.ConditionIsTrue).
		When("isDead", domain.ConditionIsTrue).
		When("isDead", domain.ConditionIsTrue)

	c, report := normalizer.Normalize(b.Build(), normalizer.DefaultConfig())
	require.False(t, report.HasErrors())

	sm := c.Layers[0].StateMachine
	death, _ := sm.State("Death")
	rec := findTransition(death.Transitions, "Idle")
	require.NotNil(t, rec)
	require.Len(t, rec.Conditions, 2)
	assert.Equal(t, "isDead", rec.Conditions[0].Parameter)
	assert.Equal(t, "hp", rec.Conditions[1].Parameter, "unrelated conditions keep their order")

	require.Len(t, sm.AnyStateTransitions, 1)
	assert.Len(t, sm.AnyStateTransitions[0].Conditions, 1)

	lr, _ := report.Layer("Base")
	assert.Equal(t, 2, lr.ChangedCount)
	assert.Contains(t, lr.Changes, "Death→Idle: 1 duplicate condition(s) isDead == false removed")
	assert.Contains(t, lr.Changes, "Any State→Death: 2 duplicate condition(s) isDead == true removed")

	_, again := normalizer.Normalize(c, normalizer.DefaultConfig())
	assert.Equal(t, 0, again.ChangedCount())
}

func TestNormalize_NoTerminalStateIsNoOp(t *testing.T) {
	b := dsl.New("Crate")
	base := b.Layer("Base")
	base.State("Closed").To("Open").ExitTime(0.5).Duration(2)
	base.State("Open")
	original := b.Build()

	c, report := normalizer.Normalize(original.Clone(), normalizer.DefaultConfig())
	assert.Equal(t, original, c)
	assert.False(t, report.Changed())
	assert.False(t, report.GateParameterCreated)
	lr, _ := report.Layer("Base")
	assert.False(t, lr.TerminalStateFound)
	assert.Equal(t, normalizer.PhaseTerminalAbsent, lr.Phase)
}

func TestNormalize_LeavesUnrelatedTransitionsAlone(t *testing.T) {
	b := dsl.New("Hero")
	base := b.Layer("Base")
	base.State("Idle").To("Run").ExitTime(0.75).Duration(0.6)
	base.State("Run")
	base.State("Death")
	c, _ := normalizer.Normalize(b.Build(), normalizer.DefaultConfig())

	idle, _ := c.Layers[0].StateMachine.State("Idle")
	run := findTransition(idle.Transitions, "Run")
	require.NotNil(t, run)
	assert.True(t, run.HasExitTime)
	assert.Equal(t, 0.75, run.ExitTime)
	assert.Equal(t, 0.6, run.Duration)
	assert.Empty(t, run.Conditions)
}

func TestNormalize_ExistingTransitionsAreFixedInPlace(t *testing.T) {
	b := dsl.New("Hero")
	b.Bool("isDead", true)
	base := b.Layer("Base")
	base.State("Idle")
	base.State("Death").To("Idle").ExitTime(0.3).Duration(0.8)
	base.Any("Death").ExitTime(0.4).Duration(0.1)

	c, report := normalizer.Normalize(b.Build(), normalizer.DefaultConfig())
	require.False(t, report.HasErrors())
	assert.False(t, report.GateParameterCreated)
	require.Len(t, c.Parameters, 1)
	assert.True(t, c.Parameters[0].DefaultBool, "existing default must be kept")

	sm := c.Layers[0].StateMachine
	require.Len(t, sm.AnyStateTransitions, 1)
	forced := sm.AnyStateTransitions[0]
	assert.False(t, forced.HasExitTime)
	assert.Equal(t, 0.0, forced.ExitTime)
	assert.Equal(t, 0.1, forced.Duration, "short durations are not stretched")
	assert.True(t, forced.HasCondition("isDead", domain.ConditionIsTrue))

	death, _ := sm.State("Death")
	require.Len(t, death.Transitions, 1)
	rec := death.Transitions[0]
	assert.True(t, rec.HasExitTime)
	assert.Equal(t, 0.95, rec.ExitTime)
	assert.Equal(t, 0.25, rec.Duration)
	assert.True(t, rec.HasCondition("isDead", domain.ConditionIsFalse))
}

func TestNormalize_RecoveryExitTimeOnlyRaised(t *testing.T) {
	b := dsl.New("Hero")
	base := b.Layer("Base")
	base.State("Idle")
	base.State("Death").To("Idle").ExitTime(0.7).Duration(0.1).When("isDead", domain.ConditionIsFalse)

	c, _ := normalizer.Normalize(b.Build(), normalizer.DefaultConfig())
	death, _ := c.Layers[0].StateMachine.State("Death")
	rec := death.Transitions[0]
	assert.Equal(t, 0.7, rec.ExitTime)
	assert.Len(t, rec.Conditions, 1, "existing condition must not be duplicated")
}

func TestNormalize_DuplicateForcedTransitionsWarn(t *testing.T) {
	b := dsl.New("Hero")
	base := b.Layer("Base")
	base.State("Idle")
	base.State("Death")
	base.Any("Death").Duration(1)
	base.Any("Death").Duration(2)

	c, report := normalizer.Normalize(b.Build(), normalizer.DefaultConfig())
	sm := c.Layers[0].StateMachine
	require.Len(t, sm.AnyStateTransitions, 2, "duplicates are never deleted")
	assert.Equal(t, 0.25, sm.AnyStateTransitions[0].Duration)
	assert.Equal(t, 2.0, sm.AnyStateTransitions[1].Duration)

	lr, _ := report.Layer("Base")
	require.Len(t, lr.Warnings, 1)
	assert.Contains(t, lr.Warnings[0], "duplicate forced transition")
}

func TestNormalize_GateParameterTypeMismatch(t *testing.T) {
	b := dsl.New("Hero")
	b.Float("isDead", 0)
	base := b.Layer("Base")
	base.State("Idle")
	base.State("Attack").To("Death").ExitTime(0.9).Duration(1.0)
	base.State("Death")

	c, report := normalizer.Normalize(b.Build(), normalizer.DefaultConfig())
	require.True(t, report.HasErrors())
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "isDead")

	p, _ := c.Parameter("isDead")
	assert.Equal(t, domain.ParameterFloat, p.Type, "mismatched parameter must not be replaced")
	require.Len(t, c.Parameters, 1)

	sm := c.Layers[0].StateMachine
	attack, _ := sm.State("Attack")
	assert.False(t, attack.Transitions[0].HasExitTime, "inbound normalization still runs")
	assert.Empty(t, sm.AnyStateTransitions)
	death, _ := sm.State("Death")
	assert.Empty(t, death.Transitions)

	lr, _ := report.Layer("Base")
	assert.Equal(t, 3, lr.ChangedCount)
	assert.Len(t, lr.Errors, 1)
	assert.Len(t, lr.Warnings, 2)
}

func TestNormalize_StructuralLayerSkipped(t *testing.T) {
	b := dsl.New("Hero")
	broken := b.Layer("Broken")
	broken.State("Attack").To("Nowhere")
	broken.State("Death")
	upper := b.Layer("Upper")
	upper.State("Idle")
	upper.State("Dead")
	original := b.Build()

	c, report := normalizer.Normalize(original.Clone(), normalizer.DefaultConfig())

	blr, _ := report.Layer("Broken")
	require.Len(t, blr.Errors, 1)
	assert.Equal(t, normalizer.PhaseDone, blr.Phase)
	assert.Equal(t, 0, blr.ChangedCount)
	assert.Equal(t, original.Layers[0].StateMachine, c.Layers[0].StateMachine)

	ulr, _ := report.Layer("Upper")
	assert.Empty(t, ulr.Errors)
	assert.Equal(t, "Dead", ulr.TerminalStateName)
	assert.Equal(t, 2, ulr.ChangedCount)
}

func TestCheckInvariants_SkipsNilTransitions(t *testing.T) {
	c := &domain.Controller{
		Name: "Hero",
		Layers: []domain.Layer{
			{Name: "NilEdge", StateMachine: &domain.StateMachine{
				States: []*domain.State{
					{Name: "Attack", Transitions: []*domain.Transition{nil}},
					{Name: "Death"},
				},
			}},
			{Name: "NilAny", StateMachine: &domain.StateMachine{
				States:              []*domain.State{{Name: "Idle"}, {Name: "Death"}},
				AnyStateTransitions: []*domain.AnyStateTransition{nil},
			}},
			{Name: "NoMachine"},
		},
	}

	var violations []normalizer.Violation
	require.NotPanics(t, func() {
		violations = normalizer.CheckInvariants(c, normalizer.DefaultConfig())
	})
	assert.Empty(t, violations)
	assert.Nil(t, normalizer.CheckInvariants(nil, normalizer.DefaultConfig()))

	_, report := normalizer.Normalize(c, normalizer.DefaultConfig())
	assert.Equal(t, 3, report.Summary().Errors, "each broken layer is reported, not fixed")
}

func TestNormalize_InvalidConfigLeavesControllerUntouched(t *testing.T) {
	cfg := normalizer.DefaultConfig()
	cfg.GateParameter = ""
	original := heroController()

	c, report := normalizer.Normalize(original.Clone(), cfg)
	assert.Equal(t, original, c)
	require.Len(t, report.Errors, 1)
	assert.Empty(t, report.Layers)
}

func TestNormalize_NilController(t *testing.T) {
	c, report := normalizer.Normalize(nil, normalizer.DefaultConfig())
	assert.Nil(t, c)
	assert.True(t, report.HasErrors())
}

func TestNormalize_LayersAreIndependent(t *testing.T) {
	b := dsl.New("Hero")
	b.Layer("Base").State("Death")
	b.Layer("Base").State("Idle")
	b.Layer("Face").State("Blink")

	c, report := normalizer.Normalize(b.Build(), normalizer.DefaultConfig())
	require.Len(t, report.Layers, 2)
	assert.Len(t, c.Layers[0].StateMachine.AnyStateTransitions, 1)
	assert.Empty(t, c.Layers[1].StateMachine.AnyStateTransitions)

	s := report.Summary()
	assert.Equal(t, 2, s.Layers)
	assert.Equal(t, 1, s.TerminalLayers)
	assert.Equal(t, 1, s.RecoveryLayers)
	assert.Equal(t, 2, s.ChangedCount)
}

func TestNormalize_RecoveryAbsent(t *testing.T) {
	b := dsl.New("Hero")
	b.Layer("Base").State("DeadLoop")
	c, report := normalizer.Normalize(b.Build(), normalizer.DefaultConfig())

	lr, _ := report.Layer("Base")
	assert.Equal(t, normalizer.PhaseRecoveryAbsent, lr.Phase)
	assert.False(t, lr.RecoveryStateFound)
	assert.Len(t, c.Layers[0].StateMachine.AnyStateTransitions, 1)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*normalizer.Config)
		field  string
	}{
		{"default", func(*normalizer.Config) {}, ""},
		{"empty gate", func(c *normalizer.Config) { c.GateParameter = " " }, "gate_parameter"},
		{"blank terminal hints", func(c *normalizer.Config) { c.TerminalHints = []string{""} }, "terminal_hints"},
		{"no recovery hints", func(c *normalizer.Config) { c.RecoveryHints = nil }, "recovery_hints"},
		{"negative duration", func(c *normalizer.Config) { c.MaxForcedDuration = -1 }, "max_forced_duration"},
		{"exit time above one", func(c *normalizer.Config) { c.RecoveryExitTime = 1.5 }, "recovery_exit_time"},
		{"floor above exit time", func(c *normalizer.Config) { c.RecoveryExitTimeFloor = 0.99 }, "recovery_exit_time_floor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := normalizer.DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}
