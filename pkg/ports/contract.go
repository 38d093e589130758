package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/animgate/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractController(name string) *domain.Controller {
	return &domain.Controller{
		Name:       name,
		Parameters: []domain.Parameter{{Name: "isDead", Type: domain.ParameterBool}},
		Layers: []domain.Layer{{
			Name: "Base",
			StateMachine: &domain.StateMachine{
				States: []*domain.State{
					{Name: "Idle"},
					{Name: "Attack", Transitions: []*domain.Transition{{
						Destination: "Death",
						HasExitTime: true,
						ExitTime:    0.9,
						Duration:    1,
					}}},
					{Name: "Death"},
				},
				AnyStateTransitions: []*domain.AnyStateTransition{{
					Destination: "Death",
					Duration:    0.25,
					Conditions:  []domain.Condition{{Parameter: "isDead", Mode: domain.ConditionIsTrue}},
				}},
			},
		}},
	}
}

// RunControllerStoreContract runs a suite of tests to verify that a ControllerStore
// implementation adheres to the defined interface contract.
func RunControllerStoreContract(t *testing.T, store ControllerStore) {
	ctx := context.Background()
	id := "contract-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		// 1. Save
		c := contractController("Hero")
		err := store.Save(ctx, id, c)
		require.NoError(t, err, "Save should not return error")

		// 2. Load
		loaded, err := store.Load(ctx, id)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, c.Name, loaded.Name)
		require.Len(t, loaded.Layers, 1)

		// 3. State order and transition values survive the round trip
		sm := loaded.Layers[0].StateMachine
		require.NotNil(t, sm)
		require.Len(t, sm.States, 3)
		assert.Equal(t, "Idle", sm.States[0].Name)
		assert.Equal(t, "Attack", sm.States[1].Name)
		assert.Equal(t, "Death", sm.States[2].Name)
		tr := sm.States[1].Transitions[0]
		assert.Equal(t, "Death", tr.Destination)
		assert.True(t, tr.HasExitTime)
		assert.Equal(t, 0.9, tr.ExitTime)
		require.Len(t, sm.AnyStateTransitions, 1)
		assert.True(t, sm.AnyStateTransitions[0].HasCondition("isDead", domain.ConditionIsTrue))
	})

	t.Run("Loaded Copies Are Independent", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, id, contractController("Hero")))

		first, err := store.Load(ctx, id)
		require.NoError(t, err)
		first.Layers[0].StateMachine.States[0].Name = "Mutated"

		second, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Idle", second.Layers[0].StateMachine.States[0].Name)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+id)
		assert.ErrorIs(t, err, domain.ErrControllerNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		// Setup
		require.NoError(t, store.Save(ctx, id, contractController("Hero")))

		// Delete
		err := store.Delete(ctx, id)
		require.NoError(t, err, "Delete should not return error")

		// Verify gone
		_, err = store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrControllerNotFound, "Load after Delete should return ErrControllerNotFound")
	})

	t.Run("List", func(t *testing.T) {
		// Setup: create 2 controllers
		id1 := id + "-1"
		id2 := id + "-2"
		require.NoError(t, store.Save(ctx, id1, contractController("One")))
		require.NoError(t, store.Save(ctx, id2, contractController("Two")))

		// Ensure cleanup
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
		assert.IsNonDecreasing(t, ids)
	})
}
