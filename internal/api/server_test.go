package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewithboateng/rulescan/internal/ir"
	"github.com/codewithboateng/rulescan/internal/rules"
	"github.com/codewithboateng/rulescan/internal/storage"
)

type fakeStore struct {
	runs map[string]ir.Run
	err  error
}

func (f *fakeStore) ListRuns(limit, offset int) ([]storage.RunRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []storage.RunRow
	for id, r := range f.runs {
		out = append(out, storage.RunRow{ID: id, Failed: r.Summary.Failed()})
	}
	return out, nil
}

func (f *fakeStore) LoadRun(id string) (ir.Run, error) {
	r, ok := f.runs[id]
	if !ok {
		return ir.Run{}, storage.ErrRunNotFound
	}
	return r, nil
}

func (f *fakeStore) LoadLatestRun() (ir.Run, error) {
	if f.err != nil {
		return ir.Run{}, f.err
	}
	for _, r := range f.runs {
		return r, nil
	}
	return ir.Run{}, storage.ErrRunNotFound
}

func (f *fakeStore) ListOutcomes(runID string, kind ir.OutcomeKind) ([]ir.Outcome, error) {
	r, ok := f.runs[runID]
	if !ok {
		return nil, storage.ErrRunNotFound
	}
	if kind == "" {
		return r.Outcomes, nil
	}
	return r.Filter(kind), nil
}

type stubRule struct{ rules.Base }

func (stubRule) Supports(*ir.Class) (bool, error) { return true, nil }
func (stubRule) Execute(*ir.Class) (bool, error)  { return true, nil }

func newServer(store Store) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := rules.NewRegistry(logger, rules.Settings{})
	if err := reg.Register("needs-tag", stubRule{rules.Base{ID: "needs-tag", Summary: "classes carry a tag"}}); err != nil {
		panic(err)
	}
	s := &Server{DB: store, Logger: logger, Rules: reg}
	return s.Routes()
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func sampleStore() *fakeStore {
	return &fakeStore{runs: map[string]ir.Run{
		"r1": {
			ID:      "r1",
			Summary: ir.Summary{Failures: 1, Passes: 1},
			Outcomes: []ir.Outcome{
				{Class: "a.A", Rule: "needs-tag", Kind: ir.OutcomePass},
				{Class: "a.B", Rule: "needs-tag", Kind: ir.OutcomeFail, Message: "missing", Line: 3},
			},
		},
	}}
}

func TestHealth(t *testing.T) {
	rec, body := get(t, newServer(sampleStore()), "/api/v1/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestListRuns(t *testing.T) {
	rec, body := get(t, newServer(sampleStore()), "/api/v1/runs?limit=500&offset=-3")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 200, body["limit"])
	assert.EqualValues(t, 0, body["offset"])
	assert.Len(t, body["items"], 1)

	rec, body = get(t, newServer(&fakeStore{}), "/api/v1/runs")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, body["items"])
}

func TestGetRun(t *testing.T) {
	h := newServer(sampleStore())

	rec, body := get(t, h, "/api/v1/runs/r1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "r1", body["id"])

	rec, body = get(t, h, "/api/v1/runs/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "run not found", body["error"])

	rec, body = get(t, h, "/api/v1/runs/latest")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "r1", body["id"])
}

func TestLatest_Empty(t *testing.T) {
	rec, _ := get(t, newServer(&fakeStore{}), "/api/v1/runs/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStoreFailure_Is500(t *testing.T) {
	rec, body := get(t, newServer(&fakeStore{err: errors.New("disk gone")}), "/api/v1/runs")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "db error: disk gone", body["error"])
}

func TestListOutcomes(t *testing.T) {
	h := newServer(sampleStore())

	rec, body := get(t, h, "/api/v1/runs/r1/outcomes?kind=FAIL")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fail", body["kind"])
	items := body["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "missing", items[0].(map[string]any)["message"])

	_, body = get(t, h, "/api/v1/runs/r1/outcomes")
	assert.Len(t, body["items"], 2)

	rec, _ = get(t, h, "/api/v1/runs/r1/outcomes?kind=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = get(t, h, "/api/v1/runs/nope/outcomes")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRules(t *testing.T) {
	rec, body := get(t, newServer(sampleStore()), "/api/v1/rules")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])
	item := body["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "needs-tag", item["name"])
	assert.Equal(t, "plain", item["kind"])
	assert.Equal(t, "classes carry a tag", item["description"])

	s := &Server{DB: sampleStore(), Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	rec, _ = get(t, s.Routes(), "/api/v1/rules")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRuleByName(t *testing.T) {
	h := newServer(sampleStore())

	rec, body := get(t, h, "/api/v1/rules/needs-tag")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "needs-tag", body["name"])
	assert.Equal(t, "plain", body["kind"])
	assert.Equal(t, "classes carry a tag", body["description"])

	rec, body = get(t, h, "/api/v1/rules/needs-tg")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, body["error"], "did you mean needs-tag?")

	s := &Server{DB: sampleStore(), Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	rec, _ = get(t, s.Routes(), "/api/v1/rules/needs-tag")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORS(t *testing.T) {
	s := &Server{
		DB:             sampleStore(),
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		AllowedOrigins: []string{"https://dash.example.com"},
	}
	h := s.Routes()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/runs", nil)
	req.Header.Set("Origin", "https://dash.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://dash.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	rec, body := get(t, newServer(sampleStore()), "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", body["error"])
}
