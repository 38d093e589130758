package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/animgate/pkg/domain"
	"github.com/aretw0/animgate/pkg/normalizer"
)

// anyStateID is the Mermaid node standing for the Any State pseudo-node.
const anyStateID = "any_state"

// GraphOverlay marks the states the normalizer picked for a layer.
type GraphOverlay struct {
	Terminal string
	Recovery string
}

// OverlayFromReport builds the overlay for the layer described by lr.
func OverlayFromReport(lr *normalizer.LayerReport) *GraphOverlay {
	if lr == nil {
		return nil
	}
	return &GraphOverlay{Terminal: lr.TerminalStateName, Recovery: lr.RecoveryStateName}
}

// GenerateMermaid produces a Mermaid flowchart of one layer's state machine.
// It applies semantic styling:
// - Any State: ((Circle)), its transitions dotted
// - State: [Rectangle]
// Edge labels list the conditions, the exit time and the blend duration.
// Terminal and recovery states are highlighted when an overlay is provided.
func GenerateMermaid(layer *domain.Layer, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	sm := layer.StateMachine
	if sm == nil {
		return sb.String()
	}

	if len(sm.AnyStateTransitions) > 0 {
		fmt.Fprintf(&sb, "    %s((\"Any State\"))\n", anyStateID)
	}
	for _, s := range sm.States {
		if s == nil {
			continue
		}
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", sanitizeMermaidID(s.Name), escapeLabel(s.Name))
	}

	for _, s := range sm.States {
		if s == nil {
			continue
		}
		for _, t := range s.Transitions {
			if t != nil {
				writeEdge(&sb, sanitizeMermaidID(s.Name), t, false)
			}
		}
	}
	for _, t := range sm.AnyStateTransitions {
		if t != nil {
			writeEdge(&sb, anyStateID, t, true)
		}
	}

	// Apply Overlay Styles
	if overlay != nil && (overlay.Terminal != "" || overlay.Recovery != "") {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast regardless of theme (Light/Dark)
		sb.WriteString("    classDef terminal fill:#fecaca,stroke:#b91c1c,stroke-width:3px,color:#000;\n")
		sb.WriteString("    classDef recovery fill:#bbf7d0,stroke:#15803d,stroke-width:3px,color:#000;\n")
		if overlay.Terminal != "" {
			fmt.Fprintf(&sb, "    class %s terminal;\n", sanitizeMermaidID(overlay.Terminal))
		}
		if overlay.Recovery != "" {
			fmt.Fprintf(&sb, "    class %s recovery;\n", sanitizeMermaidID(overlay.Recovery))
		}
	}

	return sb.String()
}

func writeEdge(sb *strings.Builder, from string, t *domain.Transition, dotted bool) {
	to := sanitizeMermaidID(t.Destination)
	label := EdgeLabel(t)

	arrow := "-->"
	if dotted {
		arrow = "-.->"
	}
	if label != "" {
		arrow = fmt.Sprintf("-- \"%s\" -->", escapeLabel(label))
		if dotted {
			arrow = fmt.Sprintf("-. \"%s\" .->", escapeLabel(label))
		}
	}
	fmt.Fprintf(sb, "    %s %s %s\n", from, arrow, to)
}

// EdgeLabel summarizes a transition, e.g. "isDead && speed > 0.1 | exit 0.9 | 0.25s".
func EdgeLabel(t *domain.Transition) string {
	var parts []string
	if len(t.Conditions) > 0 {
		conds := make([]string, len(t.Conditions))
		for i, c := range t.Conditions {
			conds[i] = conditionText(c)
		}
		parts = append(parts, strings.Join(conds, " && "))
	}
	if t.HasExitTime {
		parts = append(parts, "exit "+formatNum(t.ExitTime))
	}
	if t.Duration > 0 {
		parts = append(parts, formatNum(t.Duration)+"s")
	}
	return strings.Join(parts, " | ")
}

func conditionText(c domain.Condition) string {
	switch c.Mode {
	case domain.ConditionIsTrue:
		return c.Parameter
	case domain.ConditionIsFalse:
		return "!" + c.Parameter
	case domain.ConditionGreaterThan:
		return c.Parameter + " > " + formatNum(c.Threshold)
	case domain.ConditionLessThan:
		return c.Parameter + " < " + formatNum(c.Threshold)
	case domain.ConditionEquals:
		return c.Parameter + " == " + formatNum(c.Threshold)
	case domain.ConditionNotEquals:
		return c.Parameter + " != " + formatNum(c.Threshold)
	}
	return c.Parameter + " " + string(c.Mode)
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return "s_" + s
}
