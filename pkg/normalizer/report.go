package normalizer

import "fmt"

// Phase is the step of the per-layer pass where normalization stopped.
type Phase string

const (
	PhaseStart                     Phase = "start"
	PhaseGateResolved              Phase = "gate_resolved"
	PhaseTerminalFound             Phase = "terminal_found"
	PhaseInboundNormalized         Phase = "inbound_normalized"
	PhaseForcedTransitionEnsured   Phase = "forced_transition_ensured"
	PhaseRecoveryFound             Phase = "recovery_found"
	PhaseRecoveryTransitionEnsured Phase = "recovery_transition_ensured"

	// Final phases.
	PhaseTerminalAbsent Phase = "terminal_absent"
	PhaseRecoveryAbsent Phase = "recovery_absent"
	PhaseDone           Phase = "done"
)

// LayerReport records what Normalize found and changed in one layer.
type LayerReport struct {
	Layer              string   `json:"layer"`
	TerminalStateFound bool     `json:"terminal_state_found"`
	TerminalStateName  string   `json:"terminal_state_name,omitempty"`
	RecoveryStateFound bool     `json:"recovery_state_found"`
	RecoveryStateName  string   `json:"recovery_state_name,omitempty"`
	ChangedCount       int      `json:"changed_count"`
	Changes            []string `json:"changes,omitempty"`
	Warnings           []string `json:"warnings,omitempty"`
	Errors             []string `json:"errors,omitempty"`
	Phase              Phase    `json:"phase"`
}

func (r *LayerReport) change(format string, args ...any) {
	r.ChangedCount++
	r.Changes = append(r.Changes, fmt.Sprintf(format, args...))
}

func (r *LayerReport) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *LayerReport) fail(err error) {
	r.Errors = append(r.Errors, err.Error())
}

// Report aggregates the layer reports of one controller.
type Report struct {
	Controller           string         `json:"controller"`
	GateParameterCreated bool           `json:"gate_parameter_created"`
	Layers               []*LayerReport `json:"layers"`
	Errors               []string       `json:"errors,omitempty"`
}

// ChangedCount sums the changes of every layer.
func (r *Report) ChangedCount() int {
	n := 0
	for _, l := range r.Layers {
		n += l.ChangedCount
	}
	return n
}

// Changed reports whether the controller was mutated and should be persisted.
func (r *Report) Changed() bool {
	return r.GateParameterCreated || r.ChangedCount() > 0
}

// HasErrors reports whether any validation or structural error was recorded.
func (r *Report) HasErrors() bool {
	if len(r.Errors) > 0 {
		return true
	}
	for _, l := range r.Layers {
		if len(l.Errors) > 0 {
			return true
		}
	}
	return false
}

// Layer returns the report of the named layer.
func (r *Report) Layer(name string) (*LayerReport, bool) {
	for _, l := range r.Layers {
		if l.Layer == name {
			return l, true
		}
	}
	return nil, false
}

// Changes returns every change prefixed with its layer name.
func (r *Report) Changes() []string {
	var out []string
	if r.GateParameterCreated {
		out = append(out, "parameters: gate parameter created")
	}
	for _, l := range r.Layers {
		for _, c := range l.Changes {
			out = append(out, l.Layer+": "+c)
		}
	}
	return out
}

// Summary is the controller-level rollup used by batch tooling.
type Summary struct {
	Controller           string `json:"controller"`
	Layers               int    `json:"layers"`
	TerminalLayers       int    `json:"terminal_layers"`
	RecoveryLayers       int    `json:"recovery_layers"`
	ChangedCount         int    `json:"changed_count"`
	Warnings             int    `json:"warnings"`
	Errors               int    `json:"errors"`
	GateParameterCreated bool   `json:"gate_parameter_created"`
}

// Summary rolls the layer reports up into counters.
func (r *Report) Summary() Summary {
	s := Summary{
		Controller:           r.Controller,
		Layers:               len(r.Layers),
		Errors:               len(r.Errors),
		GateParameterCreated: r.GateParameterCreated,
	}
	for _, l := range r.Layers {
		if l.TerminalStateFound {
			s.TerminalLayers++
		}
		if l.RecoveryStateFound {
			s.RecoveryLayers++
		}
		s.ChangedCount += l.ChangedCount
		s.Warnings += len(l.Warnings)
		s.Errors += len(l.Errors)
	}
	return s
}
