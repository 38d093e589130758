package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the animgate ASCII banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	// Gradient from red (death) to green (respawn)
	lines := []struct {
		text  string
		color string
	}{
		{"   __ _ _ __ (_)_ __ ___   __ _  __ _| |_ ___", "#f87171"},
		{"  / _` | '_ \\| | '_ ` _ \\ / _` |/ _` | __/ _ \\", "#fb923c"},
		{" | (_| | | | | | | | | | | (_| | (_| | ||  __/", "#facc15"},
		{"  \\__,_|_| |_|_|_| |_| |_|\\__, |\\__,_|\\__\\___|", "#a3e635"},
		{"                          |___/", "#4ade80"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintf(w, "  %s\n\n", out.String("v"+strings.TrimSpace(version)).Faint())
}
