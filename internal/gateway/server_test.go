package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"macro-resolver/config"
	"macro-resolver/internal/entity"
	"macro-resolver/internal/expression"
	"macro-resolver/internal/logger"
	"macro-resolver/internal/macro"
	"macro-resolver/internal/store"
	"macro-resolver/internal/timeseries"
	"macro-resolver/internal/valuefmt"
)

func testFixture() *store.Fixture {
	return &store.Fixture{
		Hosts: []entity.Host{{
			ID: "10084", Host: "web-01", Name: "Web server 01",
			Interfaces: []entity.Interface{{ID: "1", Type: entity.InterfaceAgent, Main: true, UseIP: true, IP: "10.0.0.5", Port: "10050"}},
		}},
		Items: []entity.Item{
			{ID: "23296", HostID: "10084", Key: "system.cpu.load[all,avg1]", ValueType: entity.ValueFloat, LastValue: "0.42", LastClock: 1760000000},
		},
		Functions: []entity.Function{{ID: "13000", ItemID: "23296", Name: "last"}},
	}
}

func newTestServer(t *testing.T, maxRecords int) *Server {
	t.Helper()
	log := logger.Wrap(zaptest.NewLogger(t))
	f := testFixture()
	engine, err := macro.NewEngine(macro.Collaborators{
		Repository: store.NewMemoryRepository(f),
		TimeSeries: timeseries.NewFixtureStore(f.History),
		Parser:     expression.NewParser(log),
		Formatter:  valuefmt.New(),
	}, config.ResolverConfig{}, log, nil)
	require.NoError(t, err)
	return NewServer(log, nil, engine, config.HTTPConfig{MaxRecords: maxRecords})
}

func do(t *testing.T, h http.Handler, method, url, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 0)
	w := do(t, s.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestScenarios(t *testing.T) {
	s := newTestServer(t, 0)
	w := do(t, s.Handler(), http.MethodGet, BasePath+"/scenarios", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got []ScenarioInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, len(macro.Scenarios()))
	assert.Equal(t, "trigger-name", got[0].Name)
	assert.True(t, got[0].Indexed)
	assert.Contains(t, got[0].Families, "user-macro")

	for _, info := range got {
		assert.NotEqual(t, "interface-field", info.Name)
	}
}

func TestResolveTriggerNames(t *testing.T) {
	s := newTestServer(t, 0)
	body := `{"triggers":[{"triggerid":"1","description":"High load on {HOST.NAME}: {ITEM.LASTVALUE} {$MISSING}","expression":"{13000}>5"}]}`

	w := do(t, s.Handler(), http.MethodPost, BasePath+"/resolve/trigger-name", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got macro.RecordsResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Triggers, 1)
	assert.Equal(t, "High load on Web server 01: 0.42 *UNKNOWN*", got.Triggers[0].Description)
	assert.Equal(t, "{13000}>5", got.Triggers[0].Expression)
	assert.Empty(t, got.Linked)
}

func TestResolveLinkedTriggerNames(t *testing.T) {
	s := newTestServer(t, 0)
	body := `{"triggers":[{"triggerid":"1","description":"Load is {ITEM.LASTVALUE}","expression":"{13000}>5"}]}`

	w := do(t, s.Handler(), http.MethodPost, BasePath+"/resolve/trigger-name-linked", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got macro.RecordsResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Linked, 1)
	assert.Equal(t, "Load is 0.42", got.Linked[0].Description)
	assert.Contains(t, got.Linked[0].Fragments, macro.Fragment{Text: "0.42", ItemID: "23296"})
}

func TestResolveRejectsBadRequests(t *testing.T) {
	s := newTestServer(t, 2)

	tests := []struct {
		name string
		url  string
		body string
	}{
		{"unknown scenario", BasePath + "/resolve/event-name", `{"triggers":[]}`},
		{"internal scenario", BasePath + "/resolve/interface-field", `{}`},
		{"malformed body", BasePath + "/resolve/trigger-name", `{"triggers":`},
		{"too many records", BasePath + "/resolve/item-key", `{"items":[{"itemid":"1"},{"itemid":"2"},{"itemid":"3"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s.Handler(), http.MethodPost, tt.url, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

type failingResolver struct {
	err error
}

func (f failingResolver) ResolveRecords(context.Context, macro.Scenario, entity.Records) (macro.RecordsResult, error) {
	return macro.RecordsResult{}, f.err
}

func TestResolveMapsEngineErrors(t *testing.T) {
	log := logger.Wrap(zaptest.NewLogger(t))

	tests := []struct {
		name string
		err  error
		code int
	}{
		{"collaborator failure", fmt.Errorf("%w: repository hosts: timeout", macro.ErrCollaborator), http.StatusBadGateway},
		{"other failure", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(log, nil, failingResolver{err: tt.err}, config.HTTPConfig{})
			w := do(t, s.Handler(), http.MethodPost, BasePath+"/resolve/graph-name", `{"graphs":[{"graphid":"1","name":"x"}]}`)
			assert.Equal(t, tt.code, w.Code)
			assert.NotContains(t, w.Body.String(), "graphs")
		})
	}
}
