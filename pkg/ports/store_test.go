package ports_test

import (
	"context"
	"sort"
	"testing"

	"github.com/aretw0/animgate/pkg/domain"
	"github.com/aretw0/animgate/pkg/ports"
)

// MockStore is a map-backed ControllerStore used to exercise the contract suite itself.
type MockStore struct {
	data map[string]*domain.Controller
}

func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string]*domain.Controller)}
}

func (m *MockStore) Load(ctx context.Context, id string) (*domain.Controller, error) {
	c, ok := m.data[id]
	if !ok {
		return nil, domain.ErrControllerNotFound
	}
	return c.Clone(), nil
}

func (m *MockStore) Save(ctx context.Context, id string, c *domain.Controller) error {
	m.data[id] = c.Clone()
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MockStore) Delete(ctx context.Context, id string) error {
	delete(m.data, id)
	return nil
}

func TestControllerStore_Contract(t *testing.T) {
	ports.RunControllerStoreContract(t, NewMockStore())
}

func TestRun_Tally(t *testing.T) {
	var run domain.Run
	run.Tally(domain.Outcome{Status: domain.OutcomeFixed})
	run.Tally(domain.Outcome{Status: domain.OutcomeSkipped})
	run.Tally(domain.Outcome{Status: domain.OutcomeSkipped})
	run.Tally(domain.Outcome{Status: domain.OutcomeFailed})

	if run.Total != 4 || run.Fixed != 1 || run.Skipped != 2 || run.Failed != 1 {
		t.Errorf("unexpected counters: %+v", run)
	}
}
