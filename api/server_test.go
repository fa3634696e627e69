package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudsave/decision/proposal"
	"cloudsave/decision/recommend"
	"cloudsave/decision/scenario"
	"cloudsave/decision/simulation"
	contracts "cloudsave/pkg/api"
	cserr "cloudsave/pkg/errors"
	"cloudsave/resolver"
)

type fakeResolver struct {
	entries map[string]*resolver.Resolved
}

func (f *fakeResolver) Resolve(ctx context.Context, id string) (*resolver.Resolved, error) {
	r, ok := f.entries[id]
	if !ok {
		return nil, cserr.NewNotFound("resource", id)
	}
	return r, nil
}

func (f *fakeResolver) List(ctx context.Context) ([]resolver.Resolved, error) {
	out := make([]resolver.Resolved, 0, len(f.entries))
	for _, r := range f.entries {
		out = append(out, *r)
	}
	return out, nil
}

func entry(id string) *resolver.Resolved {
	return &resolver.Resolved{
		Resource: contracts.ResourceInfo{ID: id, CSP: contracts.AWS, Service: "ec2", Region: "us-east-1"},
		Usage: contracts.UsageMetrics{
			AvgUtilization: 0.2,
			P99Utilization: 0.5,
			IdleRatio:      0.6,
			BilledUnits:    1.0,
		},
		Pricing: contracts.PricingInfo{
			Unit:               contracts.UnitHour,
			UnitPrice:          0.1,
			CommitmentEligible: true,
			CommitmentPrice:    0.06,
			Currency:           "USD",
		},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := zerolog.Nop()
	res := &fakeResolver{entries: map[string]*resolver.Resolved{
		"i-1": entry("i-1"),
		"i-2": entry("i-2"),
	}}
	builder := scenario.NewBuilder()
	coord := simulation.NewCoordinator(res, builder, log)
	ledger := proposal.NewLedger(proposal.NewMemoryStore(), log)
	ranker := recommend.NewRanker(res, builder)
	return NewServer(coord, ledger, ranker, log, nil)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndVersion(t *testing.T) {
	router := newTestServer(t).Router()

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/version", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["version"])
}

func TestSimulateEndpoint(t *testing.T) {
	router := newTestServer(t).Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/simulate", SimulateRequest{
		ResourceIDs: []string{"i-1", "i-2", "i-unknown"},
		Action:      contracts.ActionCommitment,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp contracts.SimulateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.TotalResources)
	assert.Equal(t, contracts.ActionCommitment, resp.ActionType)
	assert.Len(t, resp.Scenarios, 6) // three commitment levels per resolvable resource
}

func TestSimulateValidation(t *testing.T) {
	router := newTestServer(t).Router()

	cases := []struct {
		name string
		body any
	}{
		{"empty resource list", SimulateRequest{ResourceIDs: []string{}, Action: contracts.ActionOffHours}},
		{"missing action", SimulateRequest{ResourceIDs: []string{"i-1"}}},
		{"malformed json", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var rec *httptest.ResponseRecorder
			if tc.body == nil {
				req := httptest.NewRequest(http.MethodPost, "/api/v1/simulate", bytes.NewBufferString("{not json"))
				rec = httptest.NewRecorder()
				router.ServeHTTP(rec, req)
			} else {
				rec = doJSON(t, router, http.MethodPost, "/api/v1/simulate", tc.body)
			}
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestUnknownActionRejected(t *testing.T) {
	router := newTestServer(t).Router()
	rec := doJSON(t, router, http.MethodPost, "/api/v1/simulate", SimulateRequest{
		ResourceIDs: []string{"i-1"},
		Action:      contracts.ActionType("teleport"),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProposalLifecycleOverHTTP(t *testing.T) {
	router := newTestServer(t).Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/proposals", CreateProposalRequest{
		ScenarioID: "commitment-70-i-1",
		Result:     contracts.SimulationResult{ScenarioID: "commitment-70-i-1", ResourceID: "i-1"},
		Note:       "approved by finance",
		TTLDays:    7,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var created contracts.Proposal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, contracts.ProposalPending, created.Status)
	require.NotEmpty(t, created.ID)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/proposals/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/proposals/"+created.ID+"/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var approved contracts.Proposal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &approved))
	assert.Equal(t, contracts.ProposalApproved, approved.Status)

	// Deciding twice conflicts with the recorded state.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/proposals/"+created.ID+"/reject", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	var errBody map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errBody))
	assert.Equal(t, "INVALID_STATE", errBody["code"])
}

func TestProposalNotFound(t *testing.T) {
	router := newTestServer(t).Router()
	rec := doJSON(t, router, http.MethodGet, "/api/v1/proposals/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateProposalValidation(t *testing.T) {
	router := newTestServer(t).Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/proposals", CreateProposalRequest{TTLDays: 7})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/proposals", CreateProposalRequest{ScenarioID: "s-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecommendationsEndpoint(t *testing.T) {
	router := newTestServer(t).Router()

	rec := doJSON(t, router, http.MethodGet, "/api/v1/recommendations", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var recs []contracts.Recommendation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	assert.LessOrEqual(t, len(recs), recommend.DefaultLimit)
	assert.NotEmpty(t, recs)
	for i := 1; i < len(recs); i++ {
		assert.GreaterOrEqual(t, recs[i-1].Scenario.Priority, recs[i].Scenario.Priority)
	}
}
