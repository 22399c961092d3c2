package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/autopitch/callflow/agent/classifier"
	"github.com/autopitch/callflow/agent/composer"
	executorx "github.com/autopitch/callflow/agent/executor"
	orchestratorx "github.com/autopitch/callflow/agent/orchestrator"
	"github.com/autopitch/callflow/agent/slotfill"
	statex "github.com/autopitch/callflow/agent/state"
	"github.com/autopitch/callflow/agent/tool"
)

type testHarness struct {
	store  *statex.MemoryStore
	crm    *tool.MemoryCRM
	server *httptest.Server
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	store := statex.NewMemoryStore()
	crm := tool.NewMemoryCRM()
	exec, err := executorx.New(tool.NewMemoryCalendar(), crm)
	if err != nil {
		t.Fatalf("executor.New() error = %v", err)
	}
	orch, err := orchestratorx.New(store, classifier.NewKeyword(), slotfill.NewDateTimeExtractor(), exec, composer.NewTemplate())
	if err != nil {
		t.Fatalf("orchestrator.New() error = %v", err)
	}
	srv, err := NewServer(orch, crm)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return &testHarness{store: store, crm: crm, server: ts}
}

func (h *testHarness) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(h.server.URL+path, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func (h *testHarness) startSession(t *testing.T) string {
	t.Helper()
	resp := h.post(t, "/v1/sessions", map[string]any{
		"lead": map[string]string{"name": "Jane Doe", "phone": "+15550100"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start session status = %d", resp.StatusCode)
	}
	body := decode[map[string]string](t, resp)
	if body["session_id"] == "" {
		t.Fatal("missing session_id")
	}
	return body["session_id"]
}

func TestHealth(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	resp, err := http.Get(h.server.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	sessionID := h.startSession(t)

	resp := h.post(t, "/v1/sessions/"+sessionID+"/turns", map[string]string{"utterance": "Sounds interesting, go on"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("turn status = %d", resp.StatusCode)
	}
	turn := decode[map[string]any](t, resp)
	if turn["action"] != "propose_meeting" {
		t.Fatalf("turn action = %v", turn["action"])
	}
	if turn["done"] != false {
		t.Fatalf("turn done = %v", turn["done"])
	}

	snapResp, err := http.Get(h.server.URL + "/v1/sessions/" + sessionID)
	if err != nil {
		t.Fatalf("GET snapshot: %v", err)
	}
	if snapResp.StatusCode != http.StatusOK {
		t.Fatalf("snapshot status = %d", snapResp.StatusCode)
	}
	snap := decode[map[string]any](t, snapResp)
	if snap["phase"] != "propose_meeting" {
		t.Fatalf("snapshot phase = %v", snap["phase"])
	}

	req, _ := http.NewRequest(http.MethodDelete, h.server.URL+"/v1/sessions/"+sessionID, nil)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE session: %v", err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusNoContent {
		t.Fatalf("cancel status = %d", delResp.StatusCode)
	}

	// A turn after cancel is gone.
	resp = h.post(t, "/v1/sessions/"+sessionID+"/turns", map[string]string{"utterance": "hello?"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusGone {
		t.Fatalf("turn after cancel status = %d, want 410", resp.StatusCode)
	}
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	resp := h.post(t, "/v1/sessions/nope/turns", map[string]string{"utterance": "hi"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown session status = %d, want 404", resp.StatusCode)
	}

	sessionID := h.startSession(t)

	resp = h.post(t, "/v1/sessions/"+sessionID+"/turns", map[string]string{"utterance": "   "})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank utterance status = %d, want 400", resp.StatusCode)
	}

	raw, err := http.Post(h.server.URL+"/v1/sessions/"+sessionID+"/turns", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("POST malformed body: %v", err)
	}
	raw.Body.Close()
	if raw.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d, want 400", raw.StatusCode)
	}

	resp = h.post(t, "/v1/sessions", map[string]any{"lead": map[string]string{"phone": "+15550100"}})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("lead without name status = %d, want 400", resp.StatusCode)
	}

	release, err := h.store.Acquire(sessionID)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	resp = h.post(t, "/v1/sessions/"+sessionID+"/turns", map[string]string{"utterance": "hello"})
	resp.Body.Close()
	release()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("busy session status = %d, want 409", resp.StatusCode)
	}
}

func TestLeadEndpoints(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	resp := h.post(t, "/v1/leads", map[string]string{"name": "Sam Lee", "phone": "+15550111", "company": "Globex"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upsert lead status = %d", resp.StatusCode)
	}
	created := decode[statex.Lead](t, resp)
	if created.ID == "" {
		t.Fatal("upsert should assign a lead id")
	}

	listResp, err := http.Get(h.server.URL + "/v1/leads")
	if err != nil {
		t.Fatalf("GET /v1/leads: %v", err)
	}
	if listResp.StatusCode != http.StatusOK {
		t.Fatalf("list leads status = %d", listResp.StatusCode)
	}
	leads := decode[[]statex.Lead](t, listResp)
	if len(leads) != 1 || leads[0].Name != "Sam Lee" {
		t.Fatalf("leads = %+v", leads)
	}
}
