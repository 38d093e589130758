package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/animgate/internal/presentation/tui"
	"github.com/aretw0/animgate/pkg/batch"
	"github.com/muesli/termenv"
)

// Output formats accepted by PrintRun.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// ResolveFormat picks the output format. "auto" means markdown on a
// terminal and plain text otherwise.
func ResolveFormat(format string, stdout *os.File) string {
	if format != "auto" {
		return format
	}
	if tui.IsTerminal(stdout) {
		return FormatMarkdown
	}
	return FormatText
}

// PrintRun writes a batch result to w in the requested format.
func PrintRun(w io.Writer, res *batch.Result, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case FormatMarkdown:
		rendered, err := tui.NewRenderer()(tui.RunMarkdown(res))
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, rendered)
		return err
	case FormatText:
		return printText(w, res)
	default:
		return fmt.Errorf("unknown format %q (want text, json or markdown)", format)
	}
}

func printText(w io.Writer, res *batch.Result) error {
	out := termenv.NewOutput(w)
	for _, o := range res.Outcomes {
		status := out.String(fmt.Sprintf("%-7s", o.Status)).Foreground(tui.StatusColor(out, o.Status))
		line := fmt.Sprintf("%s %s", status, o.Controller)
		if o.ChangedCount > 0 {
			line += fmt.Sprintf(" (%d changes)", o.ChangedCount)
		}
		if o.Warnings > 0 {
			line += fmt.Sprintf(" (%d warnings)", o.Warnings)
		}
		if o.Error != "" {
			line += ": " + o.Error
		}
		fmt.Fprintln(w, line)

		if report := res.Reports[o.Controller]; report != nil {
			for _, c := range report.Changes() {
				fmt.Fprintf(w, "    %s\n", c)
			}
		}
	}

	run := res.Run
	suffix := ""
	if run.DryRun {
		suffix = " (dry run, nothing saved)"
	}
	_, err := fmt.Fprintf(w, "fixed %d, skipped %d, failed %d, total %d%s\n",
		run.Fixed, run.Skipped, run.Failed, run.Total, suffix)
	return err
}
