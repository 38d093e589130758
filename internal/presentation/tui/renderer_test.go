package tui

import (
	"bytes"
	"testing"

	"github.com/aretw0/animgate/pkg/batch"
	"github.com/aretw0/animgate/pkg/domain"
	"github.com/aretw0/animgate/pkg/dsl"
	"github.com/aretw0/animgate/pkg/normalizer"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func heroReport() *normalizer.Report {
	b := dsl.New("Hero")
	base := b.Layer("Base")
	base.State("Idle")
	base.State("Attack").To("Death").ExitTime(0.9).Duration(1.0)
	base.State("Death")
	_, report := normalizer.Normalize(b.Build(), normalizer.DefaultConfig())
	return report
}

func TestRunMarkdown(t *testing.T) {
	res := &batch.Result{
		Run: domain.Run{ID: "run-1", Total: 2, Fixed: 1, Failed: 1},
		Outcomes: []domain.Outcome{
			{Controller: "hero", Status: domain.OutcomeFixed, ChangedCount: 4},
			{Controller: "ghost", Status: domain.OutcomeFailed, Error: "controller not found"},
		},
		Reports: map[string]*normalizer.Report{"hero": heroReport()},
	}

	md := RunMarkdown(res)
	assert.Contains(t, md, "# Normalization run `run-1`")
	assert.Contains(t, md, "| hero | fixed | 4 | 0 |")
	assert.Contains(t, md, "## hero")
	assert.Contains(t, md, "created gate parameter")
	assert.Contains(t, md, "layer **Base** (terminal `Death`, recovery `Idle`)")
	assert.Contains(t, md, "- **ghost**: controller not found")
}

func TestReportMarkdown_Quiet(t *testing.T) {
	_, report := normalizer.Normalize(dsl.New("Empty").Build(), normalizer.DefaultConfig())
	assert.Empty(t, ReportMarkdown("empty", report))
	assert.Empty(t, ReportMarkdown("nil", nil))
}

func TestNewRenderer(t *testing.T) {
	render := NewRenderer()
	out, err := render("# Title\n")
	assert.NoError(t, err)
	assert.Contains(t, out, "Title")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "0.1.0\n")
	assert.Contains(t, buf.String(), "v0.1.0")
}

func TestStatusColor(t *testing.T) {
	out := termenv.NewOutput(&bytes.Buffer{}, termenv.WithProfile(termenv.TrueColor))
	assert.NotEqual(t, StatusColor(out, domain.OutcomeFixed), StatusColor(out, domain.OutcomeFailed))
}
