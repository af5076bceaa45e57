// Package mcp exposes the dungeon commands to agents, both as the MCP tool
// "dungeon" and as the plain JSON tool surface served at /mcp/tools and
// /mcp/call.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/yourusername/agent-dungeon/internal/auth"
	"github.com/yourusername/agent-dungeon/internal/engine"
	apperrors "github.com/yourusername/agent-dungeon/internal/errors"
)

const (
	serverName    = "agent-dungeon"
	serverVersion = "0.1.0"

	// ToolName is the single MCP tool carrying every command
	ToolName = "dungeon"
)

// Runner executes one command against a stored game
type Runner interface {
	Execute(ctx context.Context, gameID string, cmd engine.Command) (engine.Result, error)
}

// Server adapts a Runner to the agent tool surfaces
type Server struct {
	runner   Runner
	commands []engine.CommandInfo
	logger   *zap.Logger
	sdk      *sdkmcp.Server
	verify   func(token string) (string, error)
}

// NewServer creates a tool server for the given commands
func NewServer(runner Runner, commands []engine.CommandInfo, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{runner: runner, commands: commands, logger: logger}
	s.sdk = sdkmcp.NewServer(&sdkmcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	sdkmcp.AddTool(s.sdk, &sdkmcp.Tool{
		Name:        ToolName,
		Description: s.toolDescription(),
	}, s.handleDungeon)
	return s
}

// RequireAuth makes tool calls arriving over HTTP act as the agent their
// bearer token was issued to. verify maps a token to that agent id.
func (s *Server) RequireAuth(verify func(token string) (string, error)) {
	s.verify = verify
}

// Tool represents an MCP tool definition
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ToolResult represents the result of a tool call
type ToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
	Result  *engine.Result `json:"result,omitempty"`
}

// ContentBlock represents a content block in the result
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Input is the argument object of every command
type Input struct {
	GameID       string `json:"game_id,omitempty" jsonschema:"game identifier; optional for new_game"`
	AgentID      string `json:"agent_id" jsonschema:"your agent identifier"`
	Action       string `json:"action" jsonschema:"command name, for example explore or attack"`
	Target       string `json:"target,omitempty" jsonschema:"enemy id or name, or party member name"`
	Text         string `json:"text,omitempty" jsonschema:"message or setup narration"`
	Name         string `json:"name,omitempty" jsonschema:"character name for create_character"`
	Class        string `json:"class,omitempty" jsonschema:"character class for create_character"`
	Spell        string `json:"spell,omitempty" jsonschema:"spell for cast_spell"`
	Skill        string `json:"skill,omitempty" jsonschema:"perception or first_aid for use_skill"`
	Item         string `json:"item,omitempty" jsonschema:"item for use_item, buy_item or sell_item"`
	Location     string `json:"location,omitempty" jsonschema:"town location for visit_location"`
	Done         bool   `json:"done,omitempty" jsonschema:"end your part of the setup interview"`
	Campaign     bool   `json:"campaign,omitempty" jsonschema:"new_game: return to town between adventures"`
	CampaignName string `json:"campaign_name,omitempty" jsonschema:"new_game: campaign name"`
	Freeform     bool   `json:"freeform,omitempty" jsonschema:"new_game: let anyone explore out of turn"`
}

func (in Input) command() engine.Command {
	return engine.Command{
		Action:       in.Action,
		Actor:        in.AgentID,
		Target:       in.Target,
		Text:         in.Text,
		Name:         in.Name,
		Class:        in.Class,
		Spell:        in.Spell,
		Skill:        in.Skill,
		Item:         in.Item,
		Location:     in.Location,
		Done:         in.Done,
		Campaign:     in.Campaign,
		CampaignName: in.CampaignName,
		Freeform:     in.Freeform,
	}
}

// commandArgs names the arguments each command reads beyond game_id and agent_id
var commandArgs = map[string][]string{
	engine.ActionNewGame:         {"campaign", "campaign_name", "freeform"},
	engine.ActionCreateCharacter: {"name", "class"},
	engine.ActionAttack:          {"target"},
	engine.ActionResurrect:       {"target"},
	engine.ActionCastSpell:       {"spell", "target"},
	engine.ActionUseSkill:        {"skill", "target"},
	engine.ActionUseItem:         {"item", "target"},
	engine.ActionVisitLocation:   {"location"},
	engine.ActionBuyItem:         {"item"},
	engine.ActionSellItem:        {"item"},
	engine.ActionSendMessage:     {"text"},
	engine.ActionSetupNarrate:    {"text"},
	engine.ActionSetupRespond:    {"text", "done"},
	engine.ActionSetupFinalize:   {"text"},
}

var requiredArgs = map[string][]string{
	engine.ActionCreateCharacter: {"name", "class"},
	engine.ActionAttack:          {"target"},
	engine.ActionResurrect:       {"target"},
	engine.ActionCastSpell:       {"spell"},
	engine.ActionUseSkill:        {"skill"},
	engine.ActionUseItem:         {"item"},
	engine.ActionVisitLocation:   {"location"},
	engine.ActionBuyItem:         {"item"},
	engine.ActionSellItem:        {"item"},
	engine.ActionSendMessage:     {"text"},
}

var argDescriptions = map[string]map[string]any{
	"game_id":       {"type": "string", "description": "Game identifier"},
	"agent_id":      {"type": "string", "description": "Your agent identifier"},
	"target":        {"type": "string", "description": "Enemy id or name, or party member name"},
	"text":          {"type": "string", "description": "What you say"},
	"name":          {"type": "string", "description": "Character name"},
	"class":         {"type": "string", "description": "Character class"},
	"spell":         {"type": "string", "description": "Spell name"},
	"skill":         {"type": "string", "description": "Skill to use", "enum": []string{"perception", "first_aid"}},
	"item":          {"type": "string", "description": "Item name"},
	"location":      {"type": "string", "description": "Town location"},
	"done":          {"type": "boolean", "description": "End your part of the setup interview"},
	"campaign":      {"type": "boolean", "description": "Return to town between adventures"},
	"campaign_name": {"type": "string", "description": "Campaign name"},
	"freeform":      {"type": "boolean", "description": "Let anyone explore out of turn"},
}

// ListTools describes every command as a tool with its own input schema
func (s *Server) ListTools() []Tool {
	tools := make([]Tool, 0, len(s.commands))
	for _, c := range s.commands {
		properties := map[string]any{
			"game_id":  argDescriptions["game_id"],
			"agent_id": argDescriptions["agent_id"],
		}
		for _, arg := range commandArgs[c.Name] {
			properties[arg] = argDescriptions[arg]
		}
		required := []string{"agent_id"}
		if c.Name != engine.ActionNewGame {
			required = append(required, "game_id")
		}
		required = append(required, requiredArgs[c.Name]...)
		tools = append(tools, Tool{
			Name:        c.Name,
			Description: c.Description,
			InputSchema: map[string]any{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		})
	}
	return tools
}

// CallTool executes the command called name. Rule rejections come back as a
// ToolResult with IsError set; malformed arguments and missing games are
// returned as errors.
func (s *Server) CallTool(ctx context.Context, name string, arguments map[string]any) (*ToolResult, error) {
	if !s.known(name) {
		return nil, apperrors.New(apperrors.CodeUnknownCommand, "unknown tool: "+name)
	}
	var in Input
	if len(arguments) > 0 {
		raw, err := json.Marshal(arguments)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid arguments", err)
		}
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid arguments", err)
		}
	}
	in.Action = name
	res, err := s.run(ctx, in)
	if err != nil {
		return nil, err
	}
	return toolResult(res), nil
}

func (s *Server) known(name string) bool {
	for _, c := range s.commands {
		if c.Name == name {
			return true
		}
	}
	return false
}

func (s *Server) run(ctx context.Context, in Input) (engine.Result, error) {
	in.AgentID = strings.TrimSpace(in.AgentID)
	if in.AgentID == "" {
		return engine.Result{}, apperrors.New(apperrors.CodeInvalidArgument, "agent_id is required")
	}
	res, err := s.runner.Execute(ctx, strings.TrimSpace(in.GameID), in.command())
	if err != nil {
		s.logger.Debug("tool call failed",
			zap.String("game_id", in.GameID),
			zap.String("action", in.Action),
			zap.Error(err),
		)
		return engine.Result{}, err
	}
	return res, nil
}

func toolResult(res engine.Result) *ToolResult {
	text := res.Narrative
	if !res.OK {
		text = res.Error
	}
	if text == "" {
		text = res.Action + " done."
	}
	return &ToolResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: !res.OK,
		Result:  &res,
	}
}

func (s *Server) toolDescription() string {
	names := make([]string, 0, len(s.commands))
	for _, c := range s.commands {
		names = append(names, c.Name)
	}
	return "Play the multiplayer dungeon crawl. Set action to one of: " + strings.Join(names, ", ") +
		". Pass game_id for every action except new_game, and agent_id always."
}

func (s *Server) handleDungeon(ctx context.Context, req *sdkmcp.CallToolRequest, in Input) (*sdkmcp.CallToolResult, any, error) {
	in.Action = strings.TrimSpace(in.Action)
	if !s.known(strings.ToLower(in.Action)) {
		return nil, nil, fmt.Errorf("unknown action %q", in.Action)
	}
	agentID, err := s.caller(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	if agentID != "" {
		if claimed := strings.TrimSpace(in.AgentID); claimed != "" && claimed != agentID {
			return nil, nil, apperrors.New(apperrors.CodeUnauthenticated, "agent_id does not match the token")
		}
		in.AgentID = agentID
	}
	res, err := s.run(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(payload)}},
		IsError: !res.OK,
	}, nil, nil
}

// caller returns the authenticated agent behind req, or "" when the call
// did not come over HTTP or authentication is off.
func (s *Server) caller(ctx context.Context, req *sdkmcp.CallToolRequest) (string, error) {
	if agentID, ok := auth.AgentFromContext(ctx); ok {
		return agentID, nil
	}
	if s.verify == nil || req == nil || req.Extra == nil || req.Extra.Header == nil {
		return "", nil
	}
	token, ok := strings.CutPrefix(req.Extra.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return "", apperrors.New(apperrors.CodeUnauthenticated, "missing bearer token")
	}
	return s.verify(token)
}

// Run serves the MCP tool over transport until ctx is done
func (s *Server) Run(ctx context.Context, transport sdkmcp.Transport) error {
	err := s.sdk.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// RunStdio serves the MCP tool over stdin and stdout
func (s *Server) RunStdio(ctx context.Context) error {
	return s.Run(ctx, &sdkmcp.StdioTransport{})
}

// HTTPHandler serves the MCP tool over streamable HTTP
func (s *Server) HTTPHandler() http.Handler {
	return sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		return s.sdk
	}, nil)
}
