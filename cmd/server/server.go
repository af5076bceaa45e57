package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/yourusername/agent-dungeon/internal/auth"
	"github.com/yourusername/agent-dungeon/internal/engine"
	apperrors "github.com/yourusername/agent-dungeon/internal/errors"
	"github.com/yourusername/agent-dungeon/internal/mcp"
	"github.com/yourusername/agent-dungeon/internal/notify"
	"github.com/yourusername/agent-dungeon/internal/service"
)

// CORS middleware to allow requests from browser clients
func corsMiddleware(allowedOrigins []string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if originAllowed(allowedOrigins, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Mcp-Session-Id")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(allowedOrigins []string, origin string) bool {
	for _, o := range allowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// Server holds the HTTP surfaces
type Server struct {
	svc       *service.Service
	mcpServer *mcp.Server
	hub       *notify.Hub
	signer    *auth.Signer
	logger    *zap.Logger
	router    *mux.Router
}

func newServer(svc *service.Service, mcpServer *mcp.Server, hub *notify.Hub, signer *auth.Signer, origins []string, logger *zap.Logger) *Server {
	s := &Server{
		svc:       svc,
		mcpServer: mcpServer,
		hub:       hub,
		signer:    signer,
		logger:    logger,
		router:    mux.NewRouter(),
	}
	s.setupRoutes(origins)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes(origins []string) {
	s.router.Use(corsMiddleware(origins))

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET", "OPTIONS")

	// Token issuing is guarded by the issuer key rather than a bearer token
	s.router.HandleFunc("/api/v1/token", s.handleIssueToken).Methods("POST", "OPTIONS")

	// Game event stream
	s.router.HandleFunc("/ws/games/{id}", s.handleWatch).Methods("GET")

	secured := s.router.NewRoute().Subrouter()
	secured.Use(auth.Middleware(s.signer, s.writeError))

	// MCP endpoints
	secured.HandleFunc("/mcp/tools", s.handleListTools).Methods("GET", "OPTIONS")
	secured.HandleFunc("/mcp/call", s.handleCallTool).Methods("POST", "OPTIONS")
	secured.PathPrefix("/mcp").Handler(s.mcpServer.HTTPHandler())

	api := secured.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/games", s.handleListGames).Methods("GET", "OPTIONS")
	api.HandleFunc("/games/{id}", s.handleGetGame).Methods("GET", "OPTIONS")
	api.HandleFunc("/games/{id}/commands", s.handleCommand).Methods("POST", "OPTIONS")
	api.HandleFunc("/characters/{agent}", s.handleGetCharacter).Methods("GET", "OPTIONS")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("write response failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("code", string(code)), zap.Error(err))
	}
	s.writeJSON(w, status, map[string]string{
		"code":  string(code),
		"error": err.Error(),
	})
}

// identity resolves the acting agent. An authenticated agent always wins
// over the one named in the request.
func identity(r *http.Request, claimed string) (string, error) {
	agentID, ok := auth.AgentFromContext(r.Context())
	if !ok {
		return strings.TrimSpace(claimed), nil
	}
	if claimed != "" && claimed != agentID {
		return "", apperrors.New(apperrors.CodeUnauthenticated, "agent_id does not match the token")
	}
	return agentID, nil
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	if s.signer == nil {
		s.writeError(w, apperrors.New(apperrors.CodeNotFound, "authentication is disabled"))
		return
	}
	if err := s.signer.Authorize(r.Header.Get(auth.IssuerKeyHeader)); err != nil {
		s.writeError(w, err)
		return
	}
	var req struct {
		AgentID string `json:"agent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid request body", err))
		return
	}
	token, exp, err := s.signer.Issue(req.AgentID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"agent_id":   req.AgentID,
		"expires_at": exp,
	})
}

// MCP tool listing handler
func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"tools": s.mcpServer.ListTools(),
	})
}

// MCP tool call handler
func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid request body", err))
		return
	}
	if req.Arguments == nil {
		req.Arguments = map[string]any{}
	}
	claimed, _ := req.Arguments["agent_id"].(string)
	agentID, err := identity(r, claimed)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if agentID != "" {
		req.Arguments["agent_id"] = agentID
	}

	result, err := s.mcpServer.CallTool(r.Context(), req.Name, req.Arguments)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd engine.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid request body", err))
		return
	}
	agentID, err := identity(r, cmd.Actor)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if agentID == "" {
		s.writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "agent_id is required"))
		return
	}
	cmd.Actor = agentID

	res, err := s.svc.Execute(r.Context(), mux.Vars(r)["id"], cmd)
	if err != nil {
		s.writeError(w, err)
		return
	}
	status := http.StatusOK
	if !res.OK {
		status = apperrors.Code(res.Code).HTTPStatus()
	}
	s.writeJSON(w, status, res)
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	var phases []string
	for _, p := range r.URL.Query()["phase"] {
		for _, part := range strings.Split(p, ",") {
			if part = strings.TrimSpace(part); part != "" {
				phases = append(phases, part)
			}
		}
	}
	games, err := s.svc.List(r.Context(), phases...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"games": games})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	agentID, err := identity(r, r.URL.Query().Get("agent_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	view, err := s.svc.Status(r.Context(), mux.Vars(r)["id"], agentID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetCharacter(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Character(r.Context(), mux.Vars(r)["agent"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	s.hub.ServeWS(w, r, mux.Vars(r)["id"])
}
