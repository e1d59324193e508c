package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidreach/lead-finder/internal/agent"
	"github.com/rapidreach/lead-finder/internal/model"
	"github.com/rapidreach/lead-finder/internal/notify"
	"github.com/rapidreach/lead-finder/internal/search"
	"github.com/rapidreach/lead-finder/internal/store"
	"github.com/rapidreach/lead-finder/pkg/anthropic"
)

type failingLLM struct{}

func (failingLLM) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	return nil, eris.New("api unavailable")
}

// newTestEnv wires a mock-mode finder against a temp sqlite store.
func newTestEnv(t *testing.T, llm anthropic.Client) *appEnv {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "leads.db"), "business_leads")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	finder := search.NewFinder(nil, search.Options{PageTokenDelay: time.Millisecond})
	memory := store.NewMemory()
	notifier := notify.New("", time.Second)

	return &appEnv{
		Store:  st,
		Memory: memory,
		Agent:  agent.New(finder, st, memory, notifier, agent.Options{LLM: llm}),
	}
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	router := newRouter(newTestEnv(t, nil))

	rec := doRequest(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "lead_finder", body["service"])
	_, err := time.Parse(time.RFC3339, body["timestamp"])
	assert.NoError(t, err)
}

func TestFindLeadsMalformedBody(t *testing.T) {
	router := newRouter(newTestEnv(t, nil))

	rec := doRequest(t, router, http.MethodPost, "/find_leads", []byte(`{not json`))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "error", body.Status)
}

func TestFindLeadsMissingCity(t *testing.T) {
	router := newRouter(newTestEnv(t, nil))

	rec := doRequest(t, router, http.MethodPost, "/find_leads", []byte(`{}`))
	require.Equal(t, http.StatusOK, rec.Code, "domain errors keep a 200 status")

	var body model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "error", body.Status)
	assert.Contains(t, body.Message, "city is required")
}

func TestFindLeadsMockRun(t *testing.T) {
	env := newTestEnv(t, nil)
	router := newRouter(env)

	rec := doRequest(t, router, http.MethodPost, "/find_leads", []byte(`{"city":"Austin, TX"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var body model.FindLeadsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, "Austin, TX", body.City)
	assert.Equal(t, 3, body.TotalLeads)
	require.Len(t, body.Leads, 3)
	assert.Equal(t, "mock_austin,_tx_0", body.Leads[0].PlaceID)
	assert.True(t, body.Mock)
}

func TestListLeadsAfterDiscovery(t *testing.T) {
	env := newTestEnv(t, nil)
	router := newRouter(env)

	rec := doRequest(t, router, http.MethodPost, "/find_leads", []byte(`{"city":"Austin, TX"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/leads?city=Austin,+TX", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Total int             `json:"total"`
		Leads []model.RawLead `json:"leads"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Total)
	for _, lead := range body.Leads {
		assert.Equal(t, "Austin, TX", lead.City)
	}
}

func TestListLeadsCityFilterExcludes(t *testing.T) {
	env := newTestEnv(t, nil)
	router := newRouter(env)

	rec := doRequest(t, router, http.MethodPost, "/find_leads", []byte(`{"city":"Austin, TX"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/leads?city=Denver,+CO", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Total int             `json:"total"`
		Leads []model.RawLead `json:"leads"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Zero(t, body.Total)
	assert.NotNil(t, body.Leads, "empty list is [], never null")
}

func TestListLeadsLimit(t *testing.T) {
	env := newTestEnv(t, nil)
	router := newRouter(env)

	rec := doRequest(t, router, http.MethodPost, "/find_leads", []byte(`{"city":"Austin, TX"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/leads?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)
}

func TestListLeadsNoCityPrefersCurrentRun(t *testing.T) {
	env := newTestEnv(t, nil)
	router := newRouter(env)

	// Rows from an earlier run sit in the durable store; the latest run
	// lives in the cache. Without a city filter the cache wins.
	report := env.Store.InsertLeads(context.Background(), []model.Lead{
		{PlaceID: "stale", BusinessName: "Old Run", City: "Austin, TX", LeadStatus: model.LeadStatusNew},
	})
	require.Equal(t, 1, report.Uploaded)
	env.Memory.Put([]model.Lead{
		{PlaceID: "fresh", BusinessName: "Current Run", City: "Austin, TX", LeadStatus: model.LeadStatusNew},
	})

	rec := doRequest(t, router, http.MethodGet, "/api/leads", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Total int             `json:"total"`
		Leads []model.RawLead `json:"leads"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Total)
	assert.Equal(t, "fresh", body.Leads[0].PlaceID)
}

func TestListLeadsNoCityFallsBackToStore(t *testing.T) {
	env := newTestEnv(t, nil)
	router := newRouter(env)

	report := env.Store.InsertLeads(context.Background(), []model.Lead{
		{PlaceID: "persisted", BusinessName: "Earlier Run", City: "Austin, TX", LeadStatus: model.LeadStatusNew},
	})
	require.Equal(t, 1, report.Uploaded)

	// Empty cache (fresh process): persisted rows still answer.
	rec := doRequest(t, router, http.MethodGet, "/api/leads", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Total int             `json:"total"`
		Leads []model.RawLead `json:"leads"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Total)
	assert.Equal(t, "persisted", body.Leads[0].PlaceID)
}

func TestFindLeadsDomainErrorEnvelope(t *testing.T) {
	env := newTestEnv(t, failingLLM{})
	router := newRouter(env)

	rec := doRequest(t, router, http.MethodPost, "/find_leads", []byte(`{"city":"Austin, TX"}`))
	require.Equal(t, http.StatusOK, rec.Code, "domain failures never surface as 500s")

	var body model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "error", body.Status)
	assert.Contains(t, body.Message, "api unavailable")
}

func TestMemoryFallbackFiltering(t *testing.T) {
	env := newTestEnv(t, nil)
	env.Memory.Put([]model.Lead{
		{PlaceID: "a", City: "Austin, TX"},
		{PlaceID: "b", City: "Denver, CO"},
	})

	leads := memoryLeads(env, "Austin, TX", 10)
	require.Len(t, leads, 1)
	assert.Equal(t, "a", leads[0].PlaceID)

	leads = memoryLeads(env, "", 1)
	assert.Len(t, leads, 1)
}
