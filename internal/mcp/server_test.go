package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/yourusername/agent-dungeon/internal/auth"
	"github.com/yourusername/agent-dungeon/internal/catalog"
	"github.com/yourusername/agent-dungeon/internal/engine"
	apperrors "github.com/yourusername/agent-dungeon/internal/errors"
	"github.com/yourusername/agent-dungeon/internal/service"
	"github.com/yourusername/agent-dungeon/internal/storage/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	eng := engine.New(catalog.Default(), engine.Config{SetupExchanges: 0}, nil)
	svc := service.New(eng, memory.New(), service.Options{Seed: func() int64 { return 7 }})
	return NewServer(svc, eng.Commands(), nil)
}

func TestListTools(t *testing.T) {
	s := newTestServer(t)
	tools := s.ListTools()
	byName := map[string]Tool{}
	for _, tool := range tools {
		byName[tool.Name] = tool
	}
	for _, name := range []string{engine.ActionNewGame, engine.ActionAttack, engine.ActionBuyItem, engine.ActionSetupRespond} {
		if _, ok := byName[name]; !ok {
			t.Fatalf("missing tool %s", name)
		}
	}

	attack := byName[engine.ActionAttack].InputSchema
	props := attack["properties"].(map[string]any)
	if _, ok := props["target"]; !ok {
		t.Fatalf("attack schema lacks target: %v", props)
	}
	required := attack["required"].([]string)
	if len(required) != 3 || required[1] != "game_id" || required[2] != "target" {
		t.Fatalf("attack required = %v", required)
	}

	newGame := byName[engine.ActionNewGame].InputSchema["required"].([]string)
	if len(newGame) != 1 || newGame[0] != "agent_id" {
		t.Fatalf("new_game required = %v", newGame)
	}
}

func TestCallTool(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	created, err := s.CallTool(ctx, engine.ActionNewGame, map[string]any{"game_id": "g1", "agent_id": "dm"})
	if err != nil {
		t.Fatalf("new_game: %v", err)
	}
	if created.IsError || created.Result == nil || !created.Result.OK {
		t.Fatalf("new_game result = %+v", created)
	}

	joined, err := s.CallTool(ctx, engine.ActionJoinGame, map[string]any{"game_id": "g1", "agent_id": "p1"})
	if err != nil || joined.IsError {
		t.Fatalf("join: %v %+v", err, joined)
	}

	again, err := s.CallTool(ctx, engine.ActionJoinGame, map[string]any{"game_id": "g1", "agent_id": "p1"})
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if !again.IsError || again.Result.Code != string(apperrors.CodeAlreadyJoined) {
		t.Fatalf("second join = %+v", again)
	}
	if again.Content[0].Text != again.Result.Error {
		t.Fatalf("content = %q, want the rejection message", again.Content[0].Text)
	}
}

func TestCallToolErrors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	tests := []struct {
		name string
		tool string
		args map[string]any
		code apperrors.Code
	}{
		{"unknown tool", "dance", nil, apperrors.CodeUnknownCommand},
		{"missing agent", engine.ActionStatus, map[string]any{"game_id": "g1"}, apperrors.CodeInvalidArgument},
		{"bad argument type", engine.ActionStatus, map[string]any{"agent_id": 12}, apperrors.CodeInvalidArgument},
		{"missing game", engine.ActionStatus, map[string]any{"game_id": "nope", "agent_id": "p1"}, apperrors.CodeNoActiveGame},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CallTool(ctx, tt.tool, tt.args)
			if apperrors.CodeOf(err) != tt.code {
				t.Fatalf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func connect(t *testing.T, s *Server) *sdkmcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.Run(ctx, serverTransport)
	}()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	clientCtx, clientCancel := context.WithTimeout(context.Background(), time.Second)
	defer clientCancel()
	session, err := client.Connect(clientCtx, clientTransport, nil)
	if err != nil {
		cancel()
		t.Fatalf("connect client: %v", err)
	}
	t.Cleanup(func() {
		session.Close()
		cancel()
		select {
		case <-serveErr:
		case <-time.After(2 * time.Second):
			t.Error("server did not stop after cancel")
		}
	})
	return session
}

func TestDungeonToolOverMCP(t *testing.T) {
	s := newTestServer(t)
	session := connect(t, s)
	ctx := context.Background()

	listed, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	if len(listed.Tools) != 1 || listed.Tools[0].Name != ToolName {
		t.Fatalf("tools = %+v", listed.Tools)
	}

	call := func(args map[string]any) (engine.Result, bool) {
		t.Helper()
		out, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: ToolName, Arguments: args})
		if err != nil {
			t.Fatalf("call %v: %v", args["action"], err)
		}
		text, ok := out.Content[0].(*sdkmcp.TextContent)
		if !ok {
			t.Fatalf("content = %T", out.Content[0])
		}
		var res engine.Result
		if err := json.Unmarshal([]byte(text.Text), &res); err != nil {
			t.Fatalf("decode %q: %v", text.Text, err)
		}
		return res, out.IsError
	}

	res, isErr := call(map[string]any{"action": "new_game", "game_id": "g1", "agent_id": "dm"})
	if isErr || !res.OK || res.PhaseAfter != "setup" {
		t.Fatalf("new_game = %+v", res)
	}
	res, isErr = call(map[string]any{"action": "explore", "game_id": "g1", "agent_id": "dm"})
	if !isErr || res.OK || res.Code != string(apperrors.CodeWrongPhase) {
		t.Fatalf("explore during setup = %+v", res)
	}
}

func TestDungeonToolUnknownAction(t *testing.T) {
	s := newTestServer(t)
	session := connect(t, s)

	out, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{
		Name:      ToolName,
		Arguments: map[string]any{"action": "dance", "agent_id": "dm"},
	})
	if err == nil && !out.IsError {
		t.Fatalf("unknown action accepted: %+v", out)
	}
}

func TestDungeonToolActsAsTokenAgent(t *testing.T) {
	s := newTestServer(t)
	s.RequireAuth(func(token string) (string, error) {
		if token == "tok-dm" {
			return "dm", nil
		}
		return "", apperrors.New(apperrors.CodeUnauthenticated, "token is invalid")
	})
	ctx := context.Background()
	withHeader := func(value string) *sdkmcp.CallToolRequest {
		h := http.Header{}
		if value != "" {
			h.Set("Authorization", value)
		}
		return &sdkmcp.CallToolRequest{Extra: &sdkmcp.RequestExtra{Header: h}}
	}

	out, _, err := s.handleDungeon(ctx, withHeader("Bearer tok-dm"), Input{GameID: "g1", Action: engine.ActionNewGame})
	if err != nil {
		t.Fatalf("new_game: %v", err)
	}
	var res engine.Result
	if err := json.Unmarshal([]byte(out.Content[0].(*sdkmcp.TextContent).Text), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	status, _ := res.Details["status"].(map[string]any)
	if !res.OK || status["host"] != "dm" {
		t.Fatalf("new_game = ok %v host %v", res.OK, status["host"])
	}

	tests := []struct {
		name string
		ctx  context.Context
		req  *sdkmcp.CallToolRequest
		in   Input
	}{
		{"other agent", ctx, withHeader("Bearer tok-dm"), Input{GameID: "g1", AgentID: "p1", Action: engine.ActionJoinGame}},
		{"no token", ctx, withHeader(""), Input{GameID: "g1", AgentID: "p1", Action: engine.ActionJoinGame}},
		{"bad token", ctx, withHeader("Bearer forged"), Input{GameID: "g1", AgentID: "p1", Action: engine.ActionJoinGame}},
		{"context agent", auth.WithAgent(ctx, "dm"), nil, Input{GameID: "g1", AgentID: "p1", Action: engine.ActionJoinGame}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.handleDungeon(tt.ctx, tt.req, tt.in)
			if apperrors.CodeOf(err) != apperrors.CodeUnauthenticated {
				t.Fatalf("err = %v, want UNAUTHENTICATED", err)
			}
		})
	}

	view, err := s.CallTool(ctx, engine.ActionStatus, map[string]any{"game_id": "g1", "agent_id": "dm"})
	if err != nil || view.Result == nil || !view.Result.OK {
		t.Fatalf("status: %v %+v", err, view)
	}
	sv, ok := view.Result.Details["status"].(engine.StatusView)
	if !ok || len(sv.Players) != 0 {
		t.Fatalf("status = %+v, want nobody joined", view.Result.Details["status"])
	}
}
