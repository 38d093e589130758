package loam_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/animgate/internal/testutils"
	loamstore "github.com/aretw0/animgate/pkg/adapters/loam"
	"github.com/aretw0/animgate/pkg/domain"
	"github.com/aretw0/animgate/pkg/dsl"
	"github.com/aretw0/animgate/pkg/normalizer"
	"github.com/aretw0/animgate/pkg/ports"
	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoamStore_Contract(t *testing.T) {
	_, repo := testutils.SetupTestRepo(t, loam.WithVersioning(false))
	ports.RunControllerStoreContract(t, loamstore.New(repo))
}

func TestLoamStore_LoadsFrontmatterController(t *testing.T) {
	_, repo := testutils.SetupTestRepo(t, loam.WithVersioning(false))
	ctx := context.Background()

	doc := core.Document{
		ID: "hero.md",
		Content: `---
name: Hero
layers:
  - name: Base
    state_machine:
      states:
        - name: Idle
        - name: Attack
          transitions:
            - destination: Death
              has_exit_time: true
              exit_time: 0.9
              duration: 1
        - name: Death
---
Player character rig.`,
	}
	require.NoError(t, repo.Save(ctx, doc))

	store := loamstore.New(repo)
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"hero"}, ids)

	c, err := store.Load(ctx, "hero")
	require.NoError(t, err)
	assert.Equal(t, "Hero", c.Name)
	attack, ok := c.Layers[0].StateMachine.State("Attack")
	require.True(t, ok)
	assert.Equal(t, 0.9, attack.Transitions[0].ExitTime)
	assert.Equal(t, 1.0, attack.Transitions[0].Duration)
}

func TestLoamStore_SaveKeepsBody(t *testing.T) {
	_, repo := testutils.SetupTestRepo(t, loam.WithVersioning(false))
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, core.Document{ID: "hero.md", Content: "---\nname: Hero\n---\nRig notes."}))

	store := loamstore.New(repo)
	c, err := store.Load(ctx, "hero")
	require.NoError(t, err)
	c.Name = "Hero v2"
	require.NoError(t, store.Save(ctx, "hero", c))

	doc, err := store.Repo.Get(ctx, "hero")
	require.NoError(t, err)
	assert.Contains(t, doc.Content, "Rig notes.")
	assert.Equal(t, "Hero v2", doc.Metadata["name"])
}

func TestLoamStore_NormalizedControllerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := loamstore.Open(dir)
	require.NoError(t, err)
	ctx := context.Background()

	b := dsl.New("Hero")
	base := b.Layer("Base")
	base.State("Idle")
	base.State("Battle")
	base.State("Attack").To("Death").ExitTime(0.9).Duration(1.0)
	base.State("Death")

	fixed, report := normalizer.Normalize(b.Build(), normalizer.DefaultConfig())
	require.True(t, report.Changed())
	require.NoError(t, store.Save(ctx, "hero", fixed))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"hero"}, ids)

	loaded, err := store.Load(ctx, "hero")
	require.NoError(t, err)
	assert.Equal(t, fixed.Name, loaded.Name)
	require.Len(t, loaded.Layers, 1)
	require.Len(t, loaded.Layers[0].StateMachine.AnyStateTransitions, 1)
	assert.Equal(t, 0.25, loaded.Layers[0].StateMachine.AnyStateTransitions[0].Duration)

	// A second run over the stored controller has nothing left to do.
	_, again := normalizer.Normalize(loaded, normalizer.DefaultConfig())
	assert.Equal(t, 0, again.ChangedCount())
	assert.False(t, again.Changed())
	assert.Empty(t, normalizer.CheckInvariants(loaded, normalizer.DefaultConfig()))

	matches, err := filepath.Glob(filepath.Join(dir, "hero.*"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	raw, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"0.25"`)
}

func TestLoamStore_LoadsQuotedScalars(t *testing.T) {
	_, repo := testutils.SetupTestRepo(t, loam.WithVersioning(false))
	ctx := context.Background()

	doc := core.Document{
		ID: "hero.md",
		Content: `---
name: Hero
parameters:
  - name: isDead
    type: bool
layers:
  - name: Base
    state_machine:
      states:
        - name: Death
          transitions:
            - destination: Idle
              has_exit_time: "true"
              exit_time: "0.95"
              duration: "0.25"
              conditions:
                - parameter: isDead
                  mode: if_not
        - name: Idle
---
`,
	}
	require.NoError(t, repo.Save(ctx, doc))

	c, err := loamstore.New(repo).Load(ctx, "hero")
	require.NoError(t, err)
	death, ok := c.Layers[0].StateMachine.State("Death")
	require.True(t, ok)
	tr := death.Transitions[0]
	assert.True(t, tr.HasExitTime)
	assert.Equal(t, 0.95, tr.ExitTime)
	assert.Equal(t, 0.25, tr.Duration)
	assert.True(t, tr.HasCondition("isDead", domain.ConditionIsFalse))
}
