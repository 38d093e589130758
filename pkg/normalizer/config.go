package normalizer

import (
	"strings"

	"github.com/aretw0/animgate/pkg/domain"
)

// Config tunes role detection and the values written by Normalize.
// Durations are blend times in seconds; exit times are normalized clip time.
type Config struct {
	TerminalHints         []string `json:"terminal_hints" yaml:"terminal_hints" mapstructure:"terminal_hints"`
	RecoveryHints         []string `json:"recovery_hints" yaml:"recovery_hints" mapstructure:"recovery_hints"`
	GateParameter         string   `json:"gate_parameter" yaml:"gate_parameter" mapstructure:"gate_parameter"`
	MaxForcedDuration     float64  `json:"max_forced_duration" yaml:"max_forced_duration" mapstructure:"max_forced_duration"`
	RecoveryExitTime      float64  `json:"recovery_exit_time" yaml:"recovery_exit_time" mapstructure:"recovery_exit_time"`
	RecoveryExitTimeFloor float64  `json:"recovery_exit_time_floor" yaml:"recovery_exit_time_floor" mapstructure:"recovery_exit_time_floor"`
}

// DefaultConfig returns the settings used for death/respawn wiring.
func DefaultConfig() Config {
	return Config{
		TerminalHints:         []string{"Death", "Dead"},
		RecoveryHints:         []string{"Idle", "Battle"},
		GateParameter:         "isDead",
		MaxForcedDuration:     0.25,
		RecoveryExitTime:      0.95,
		RecoveryExitTimeFloor: 0.5,
	}
}

// Validate reports the first setting that would make Normalize unsafe.
func (c Config) Validate() error {
	if strings.TrimSpace(c.GateParameter) == "" {
		return &domain.ValidationError{Field: "gate_parameter", Msg: "is required"}
	}
	if !hasHint(c.TerminalHints) {
		return &domain.ValidationError{Field: "terminal_hints", Msg: "at least one non-empty hint is required"}
	}
	if !hasHint(c.RecoveryHints) {
		return &domain.ValidationError{Field: "recovery_hints", Msg: "at least one non-empty hint is required"}
	}
	if c.MaxForcedDuration < 0 {
		return &domain.ValidationError{Field: "max_forced_duration", Msg: "must not be negative"}
	}
	if c.RecoveryExitTime < 0 || c.RecoveryExitTime > 1 {
		return &domain.ValidationError{Field: "recovery_exit_time", Msg: "must be within [0,1]"}
	}
	if c.RecoveryExitTimeFloor < 0 || c.RecoveryExitTimeFloor > 1 {
		return &domain.ValidationError{Field: "recovery_exit_time_floor", Msg: "must be within [0,1]"}
	}
	if c.RecoveryExitTimeFloor > c.RecoveryExitTime {
		return &domain.ValidationError{Field: "recovery_exit_time_floor", Msg: "must not exceed recovery_exit_time"}
	}
	return nil
}

func hasHint(hints []string) bool {
	for _, h := range hints {
		if h != "" {
			return true
		}
	}
	return false
}
