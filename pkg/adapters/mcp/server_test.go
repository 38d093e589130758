package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/animgate"
	"github.com/aretw0/animgate/pkg/adapters/memory"
	"github.com/aretw0/animgate/pkg/domain"
	"github.com/aretw0/animgate/pkg/dsl"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func heroController() *domain.Controller {
	b := dsl.New("Hero")
	base := b.Layer("Base")
	base.State("Idle")
	base.State("Attack").To("Death").ExitTime(0.9).Duration(1.0)
	base.State("Death")
	return b.Build()
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := memory.NewStore(map[string]*domain.Controller{"hero": heroController()})
	eng, err := animgate.New("", animgate.WithStore(store))
	require.NoError(t, err)
	return NewServer(eng)
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func TestHandleNormalize(t *testing.T) {
	s := newTestServer(t)
	raw, err := json.Marshal(heroController())
	require.NoError(t, err)

	resp, err := s.handleNormalize(context.Background(), mcp.CallToolRequest{}, map[string]any{
		"controller": string(raw),
	})
	require.NoError(t, err)
	assert.True(t, resp.Report.Changed())
	assert.Empty(t, resp.Violations)
	_, ok := resp.Controller.Parameter("isDead")
	assert.True(t, ok)
}

func TestHandleNormalize_InvalidInput(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleNormalize(ctx, mcp.CallToolRequest{}, map[string]any{"controller": "{not json"})
	assert.Error(t, err)

	raw, _ := json.Marshal(heroController())
	_, err = s.handleNormalize(ctx, mcp.CallToolRequest{}, map[string]any{
		"controller": string(raw),
		"config":     `{"gate_parameter": ""}`,
	})
	assert.ErrorContains(t, err, "gate_parameter")
}

func TestHandleNormalize_NullTransitions(t *testing.T) {
	s := newTestServer(t)
	raw := `{"name":"Hero","layers":[{"name":"Base","state_machine":{
		"states":[{"name":"Idle","transitions":[null]},{"name":"Death"}],
		"any_state_transitions":[null]}}]}`

	var resp NormalizeResponse
	var err error
	require.NotPanics(t, func() {
		resp, err = s.handleNormalize(context.Background(), mcp.CallToolRequest{}, map[string]any{"controller": raw})
	})
	require.NoError(t, err)
	assert.True(t, resp.Report.HasErrors())
	assert.Empty(t, resp.Violations)
}

func TestHandleNormalizeStored(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	resp, err := s.handleNormalizeStored(ctx, mcp.CallToolRequest{}, map[string]any{"id": "hero", "dry_run": true})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFixed, resp.Outcome.Status)

	resp, err = s.handleNormalizeStored(ctx, mcp.CallToolRequest{}, map[string]any{"id": "hero"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFixed, resp.Outcome.Status)

	resp, err = s.handleNormalizeStored(ctx, mcp.CallToolRequest{}, map[string]any{"id": "hero"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkipped, resp.Outcome.Status)

	_, err = s.handleNormalizeStored(ctx, mcp.CallToolRequest{}, map[string]any{"id": "ghost"})
	assert.ErrorContains(t, err, "not found")
}

func TestHandleRunBatch(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleRunBatch(context.Background(), callRequest(map[string]any{"ids": `["hero"]`, "dry_run": true}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	var res struct {
		Run domain.Run `json:"run"`
	}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &res))
	assert.True(t, res.Run.DryRun)
	assert.Equal(t, 1, res.Run.Fixed)

	result, err = s.handleRunBatch(context.Background(), callRequest(map[string]any{"ids": "hero"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestReadController(t *testing.T) {
	s := newTestServer(t)

	var req mcp.ReadResourceRequest
	req.Params.URI = controllersURI + "/hero"
	contents, err := s.readController(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	var c domain.Controller
	require.NoError(t, json.Unmarshal([]byte(text.Text), &c))
	assert.Equal(t, "Hero", c.Name)

	req.Params.URI = controllersURI + "/ghost"
	_, err = s.readController(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrControllerNotFound)

	req.Params.URI = "animgate://other"
	_, err = s.readController(context.Background(), req)
	assert.Error(t, err)
}
