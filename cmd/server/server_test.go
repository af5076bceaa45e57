package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/agent-dungeon/internal/auth"
	"github.com/yourusername/agent-dungeon/internal/catalog"
	"github.com/yourusername/agent-dungeon/internal/engine"
	"github.com/yourusername/agent-dungeon/internal/mcp"
	"github.com/yourusername/agent-dungeon/internal/notify"
	"github.com/yourusername/agent-dungeon/internal/service"
	"github.com/yourusername/agent-dungeon/internal/storage/memory"
)

func newTestServer(t *testing.T, signer *auth.Signer) *Server {
	t.Helper()
	eng := engine.New(catalog.Default(), engine.Config{SetupExchanges: 0}, nil)
	store := memory.New()
	hub := notify.NewHub(nil, nil)
	svc := service.New(eng, store, service.Options{
		Characters:  store,
		Broadcaster: hub,
		Seed:        func() int64 { return 11 },
	})
	return newServer(svc, mcp.NewServer(svc, eng.Commands(), nil), hub, signer,
		[]string{"http://localhost:3000"}, zap.NewNop())
}

func do(t *testing.T, h http.Handler, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealthAndCORS(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/health", nil, map[string]string{"Origin": "http://localhost:3000"})
	if rec.Code != http.StatusOK {
		t.Fatalf("health = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("allow origin = %q", got)
	}

	rec = do(t, s, http.MethodOptions, "/api/v1/games", nil, map[string]string{"Origin": "http://evil.example"})
	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("preflight = %d %q", rec.Code, rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestCommandFlow(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/api/v1/games/g1/commands", map[string]any{"action": "new_game", "agent_id": "dm"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("new_game = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodPost, "/api/v1/games/g1/commands", map[string]any{"action": "new_game", "agent_id": "dm"}, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate new_game = %d", rec.Code)
	}

	rec = do(t, s, http.MethodPost, "/api/v1/games/g1/commands", map[string]any{"action": "join_game", "agent_id": "p1"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("join = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodPost, "/api/v1/games/g1/commands", map[string]any{"action": "join_game", "agent_id": "p1"}, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("second join = %d", rec.Code)
	}
	var rejected engine.Result
	decode(t, rec, &rejected)
	if rejected.OK || rejected.Code != "ALREADY_JOINED" {
		t.Fatalf("rejection = %+v", rejected)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/games/g1?agent_id=p1", nil, nil)
	var view engine.StatusView
	decode(t, rec, &view)
	if rec.Code != http.StatusOK || view.GameID != "g1" || len(view.Players) != 1 {
		t.Fatalf("status = %d %+v", rec.Code, view)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/games?phase=setup,playing", nil, nil)
	var listed struct {
		Games []service.GameSummary `json:"games"`
	}
	decode(t, rec, &listed)
	if len(listed.Games) != 1 || listed.Games[0].ID != "g1" {
		t.Fatalf("games = %+v", listed.Games)
	}
}

func TestCommandErrors(t *testing.T) {
	s := newTestServer(t, nil)
	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"missing game", "/api/v1/games/nope/commands", map[string]any{"action": "status", "agent_id": "p1"}, http.StatusNotFound},
		{"unknown command", "/api/v1/games/g1/commands", map[string]any{"action": "dance", "agent_id": "p1"}, http.StatusBadRequest},
		{"missing agent", "/api/v1/games/g1/commands", map[string]any{"action": "status"}, http.StatusBadRequest},
		{"bad body", "/api/v1/games/g1/commands", "not an object", http.StatusBadRequest},
	}
	do(t, s, http.MethodPost, "/api/v1/games/g1/commands", map[string]any{"action": "new_game", "agent_id": "dm"}, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, tt.path, tt.body, nil)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestCharacterNotFound(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/api/v1/characters/ghost", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestLegacyToolSurface(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/mcp/tools", nil, nil)
	var listed struct {
		Tools []mcp.Tool `json:"tools"`
	}
	decode(t, rec, &listed)
	if rec.Code != http.StatusOK || len(listed.Tools) == 0 {
		t.Fatalf("tools = %d %d", rec.Code, len(listed.Tools))
	}

	rec = do(t, s, http.MethodPost, "/mcp/call", map[string]any{
		"name":      "new_game",
		"arguments": map[string]any{"game_id": "g2", "agent_id": "dm"},
	}, nil)
	var result mcp.ToolResult
	decode(t, rec, &result)
	if rec.Code != http.StatusOK || result.IsError || result.Result == nil || result.Result.PhaseAfter != "setup" {
		t.Fatalf("call = %d %+v", rec.Code, result)
	}

	rec = do(t, s, http.MethodPost, "/mcp/call", map[string]any{"name": "fly"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown tool = %d", rec.Code)
	}
}

func TestAuthentication(t *testing.T) {
	signer := auth.NewSigner("secret", "issuer-key", time.Hour)
	s := newTestServer(t, signer)

	rec := do(t, s, http.MethodPost, "/api/v1/games/g1/commands", map[string]any{"action": "new_game", "agent_id": "dm"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated = %d", rec.Code)
	}

	for _, key := range []string{"", "guess"} {
		rec = do(t, s, http.MethodPost, "/api/v1/token", map[string]any{"agent_id": "dm"},
			map[string]string{auth.IssuerKeyHeader: key})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("token with issuer key %q = %d", key, rec.Code)
		}
	}

	rec = do(t, s, http.MethodPost, "/api/v1/token", map[string]any{"agent_id": "dm"},
		map[string]string{auth.IssuerKeyHeader: "issuer-key"})
	var issued struct {
		Token string `json:"token"`
	}
	decode(t, rec, &issued)
	if rec.Code != http.StatusOK || issued.Token == "" {
		t.Fatalf("token = %d %s", rec.Code, rec.Body.String())
	}
	bearer := map[string]string{"Authorization": "Bearer " + issued.Token}

	rec = do(t, s, http.MethodPost, "/api/v1/games/g1/commands", map[string]any{"action": "new_game"}, bearer)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated new_game = %d %s", rec.Code, rec.Body.String())
	}
	var created engine.Result
	decode(t, rec, &created)
	status, _ := created.Details["status"].(map[string]any)
	if status["host"] != "dm" {
		t.Fatalf("host = %v", status["host"])
	}

	rec = do(t, s, http.MethodPost, "/api/v1/games/g1/commands", map[string]any{"action": "join_game", "agent_id": "someone-else"}, bearer)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("impersonation = %d", rec.Code)
	}
}

func TestTokenDisabledWithoutSecret(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodPost, "/api/v1/token", map[string]any{"agent_id": "dm"}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}
