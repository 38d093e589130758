package tui

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/aretw0/animgate/pkg/batch"
	"github.com/aretw0/animgate/pkg/domain"
	"github.com/aretw0/animgate/pkg/normalizer"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// NewRenderer returns a function that renders markdown using glamour.
// The style follows the terminal background.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// StatusColor returns the color used for an outcome status.
func StatusColor(out *termenv.Output, status domain.OutcomeStatus) termenv.Color {
	switch status {
	case domain.OutcomeFixed:
		return out.Color("#4ade80")
	case domain.OutcomeFailed:
		return out.Color("#f87171")
	default:
		return out.Color("#9ca3af")
	}
}

// RunMarkdown renders a batch result as a markdown document.
func RunMarkdown(res *batch.Result) string {
	var sb strings.Builder
	run := res.Run

	mode := "apply"
	if run.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(&sb, "# Normalization run `%s`\n\n", run.ID)
	fmt.Fprintf(&sb, "Mode: **%s**. Fixed **%d**, skipped **%d**, failed **%d** of **%d** controllers.\n\n",
		mode, run.Fixed, run.Skipped, run.Failed, run.Total)

	sb.WriteString("| Controller | Status | Changes | Warnings |\n|---|---|---|---|\n")
	for _, o := range res.Outcomes {
		fmt.Fprintf(&sb, "| %s | %s | %d | %d |\n", o.Controller, o.Status, o.ChangedCount, o.Warnings)
	}

	ids := make([]string, 0, len(res.Reports))
	for id := range res.Reports {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if section := ReportMarkdown(id, res.Reports[id]); section != "" {
			sb.WriteString("\n")
			sb.WriteString(section)
		}
	}

	var failures []domain.Outcome
	for _, o := range res.Outcomes {
		if o.Status == domain.OutcomeFailed && o.Error != "" {
			failures = append(failures, o)
		}
	}
	if len(failures) > 0 {
		sb.WriteString("\n## Failures\n\n")
		for _, o := range failures {
			fmt.Fprintf(&sb, "- **%s**: %s\n", o.Controller, o.Error)
		}
	}
	return sb.String()
}

// ReportMarkdown renders the changes and warnings of one controller.
// It returns "" when the report has nothing to say.
func ReportMarkdown(id string, r *normalizer.Report) string {
	if r == nil || (!r.Changed() && r.Summary().Warnings == 0) {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", id)
	if r.GateParameterCreated {
		sb.WriteString("- created gate parameter\n")
	}
	for _, l := range r.Layers {
		if l.ChangedCount == 0 && len(l.Warnings) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "- layer **%s** (terminal `%s`", l.Layer, l.TerminalStateName)
		if l.RecoveryStateFound {
			fmt.Fprintf(&sb, ", recovery `%s`", l.RecoveryStateName)
		}
		sb.WriteString(")\n")
		for _, c := range l.Changes {
			fmt.Fprintf(&sb, "  - %s\n", c)
		}
		for _, w := range l.Warnings {
			fmt.Fprintf(&sb, "  - ⚠️ %s\n", w)
		}
	}
	return sb.String()
}
