package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/wricardo/parking-lot-game/game/config"
	"github.com/wricardo/parking-lot-game/game/engine"
	"github.com/wricardo/parking-lot-game/game/service"
	"github.com/wricardo/parking-lot-game/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	handler http.Handler
	decoder *schema.Decoder
	log     logrus.FieldLogger
}

// NewServer creates a new API server
func NewServer(gameService service.GameService, hub *websocket.Hub) *Server {
	return NewServerWithLogger(gameService, hub, logrus.StandardLogger())
}

// NewServerWithLogger creates a new API server that logs through log
func NewServerWithLogger(gameService service.GameService, hub *websocket.Hub, log logrus.FieldLogger) *Server {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		decoder: decoder,
		log:     log.WithField("component", "api"),
	}

	s.setupRoutes()
	s.handler = cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(s.router)
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	// Unified sessions for multi-session view (must be before {id} pattern)
	api.HandleFunc("/sessions/unified", s.handleUnifiedSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Game operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetGameState).Methods("GET")
	api.HandleFunc("/sessions/{id}/move", s.handleMove).Methods("POST")
	api.HandleFunc("/sessions/{id}/bulk-move", s.handleBulkMove).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")
	api.HandleFunc("/sessions/{id}/legal-moves", s.handleLegalMoves).Methods("GET")
	api.HandleFunc("/sessions/{id}/observation", s.handleObservation).Methods("GET")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the mux router so callers can mount extra handlers
func (s *Server) Router() *mux.Router {
	return s.router
}

// logRequests logs every request once it has been served
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Debug("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrader take over the connection
func (r *statusRecorder) Hijack() (c net.Conn, rw *bufio.ReadWriter, err error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, config.ErrConfigNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConfigUnavailable), errors.Is(err, config.ErrInvalidConfig):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID   string `json:"config_id,omitempty"`
		ConfigName string `json:"config_name,omitempty"` // Deprecated, use config_id
	}

	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	// Support both parameter names, but prefer config_id
	configID := req.ConfigID
	if configID == "" {
		configID = req.ConfigName
	}

	session, err := s.service.CreateSession(r.Context(), configID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

// listSessionsQuery holds the query parameters of GET /api/sessions
type listSessionsQuery struct {
	Sort  string `schema:"sort"`  // "created", "accessed" (default)
	Order string `schema:"order"` // "asc", "desc" (default)
	Limit int    `schema:"limit"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	q := listSessionsQuery{Sort: "accessed", Order: "desc"}
	if err := s.decoder.Decode(&q, r.URL.Query()); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid query: %v", err))
		return
	}

	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total := len(sessions)

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if q.Sort == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if q.Order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	if q.Limit > 0 && q.Limit < len(sessions) {
		sessions = sessions[:q.Limit]
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     q.Sort,
		"order":    q.Order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	session, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game Operation Handlers

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.GetGameState(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, state)
}

// MoveRequest is the body of POST /api/sessions/{id}/move
type MoveRequest struct {
	Vehicle      string `json:"vehicle"`
	Displacement int    `json:"displacement"`
	Reset        bool   `json:"reset,omitempty"`
}

// BulkMoveRequest is the body of POST /api/sessions/{id}/bulk-move
type BulkMoveRequest struct {
	Moves []engine.Step `json:"moves"`
	Reset bool          `json:"reset,omitempty"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Vehicle == "" {
		respondError(w, http.StatusBadRequest, "vehicle is required")
		return
	}

	result, err := s.service.Move(r.Context(), sessionID, req.Vehicle, req.Displacement, req.Reset)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	s.broadcast(sessionID, result.GameState, req.Reset)

	entry := s.log.WithFields(logrus.Fields{
		"session":      sessionID,
		"vehicle":      req.Vehicle,
		"displacement": req.Displacement,
		"success":      result.Success,
	})
	if result.Step != nil {
		entry = entry.WithFields(logrus.Fields{
			"from":   fmt.Sprintf("(%d,%d)", result.Step.From.X, result.Step.From.Y),
			"to":     fmt.Sprintf("(%d,%d)", result.Step.To.X, result.Step.To.Y),
			"solved": result.Step.Solved,
		})
	} else if result.Offending != nil {
		entry = entry.WithFields(logrus.Fields{
			"error":     result.Error,
			"offending": fmt.Sprintf("(%d,%d) %s %s", result.Offending.X, result.Offending.Y, result.Offending.Kind, result.Offending.Vehicle),
		})
	} else {
		entry = entry.WithField("error", result.Error)
	}
	entry.Info("move")

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleBulkMove(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req BulkMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Moves) == 0 {
		respondError(w, http.StatusBadRequest, "moves must not be empty")
		return
	}

	result, err := s.service.BulkMove(r.Context(), sessionID, req.Moves, req.Reset)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	s.broadcast(sessionID, result.GameState, req.Reset)

	s.log.WithFields(logrus.Fields{
		"session":   sessionID,
		"executed":  result.MovesExecuted,
		"requested": result.RequestedMoves,
		"stop":      result.StopReasonCode,
		"solved":    result.Solved,
	}).Info("bulk move")

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	s.broadcast(sessionID, state, true)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Game reset successfully",
		"state":   state,
	})
}

// broadcast pushes the new state, plus reset and solved events, to websocket clients
func (s *Server) broadcast(sessionID string, state *engine.GameState, reset bool) {
	if s.hub == nil || state == nil {
		return
	}
	// Session IDs are case-insensitive; the hub keys them lowercase
	sessionID = strings.ToLower(sessionID)
	if reset {
		s.hub.BroadcastEvent(sessionID, websocket.EventReset, nil)
	}
	s.hub.BroadcastToSession(sessionID, state)
	if state.Solved {
		s.hub.BroadcastEvent(sessionID, websocket.EventSolved, map[string]int{"moves": state.Moves})
	}
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}
	if err := s.decoder.Decode(&opts, r.URL.Query()); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid query: %v", err))
		return
	}
	if opts.Order != "asc" && opts.Order != "desc" {
		respondError(w, http.StatusBadRequest, "order must be asc or desc")
		return
	}
	if opts.Page < 1 {
		opts.Page = 1
	}

	history, err := s.service.GetMoveHistory(r.Context(), sessionID, opts)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleLegalMoves(w http.ResponseWriter, r *http.Request) {
	moves, err := s.service.GetLegalMoves(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, moves)
}

func (s *Server) handleObservation(w http.ResponseWriter, r *http.Request) {
	obs, err := s.service.GetObservation(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, obs)
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	configName := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	puzzle, err := s.service.LoadConfig(r.Context(), configName)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, puzzle)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID string `json:"config_id,omitempty"`
		engine.PuzzleConfig
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}

	// The file name defaults to a slug of the display name
	configID := req.ConfigID
	if configID == "" {
		configID = slugify(req.Name)
	}

	if err := s.service.SaveConfig(r.Context(), configID, &req.PuzzleConfig); err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			respondError(w, status, fmt.Sprintf("Failed to save config: %v", err))
			return
		}
		respondError(w, status, err.Error())
		return
	}

	s.log.WithField("config", configID).Info("config saved")

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Configuration saved successfully",
		"config_id": configID,
	})
}

// slugify lowercases a display name and keeps letters, digits and dashes
func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Unified Sessions Handler

func (s *Server) handleUnifiedSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var sessions []*service.SessionInfo

	if sessionIDs := query.Get("sessionIds"); sessionIDs != "" {
		for _, id := range strings.Split(sessionIDs, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if session, err := s.service.GetSession(r.Context(), id); err == nil {
				sessions = append(sessions, session)
			}
		}
	} else {
		allSessions, err := s.service.ListSessions(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		configName := query.Get("configName")
		for _, session := range allSessions {
			if configName == "" || session.ConfigName == configName {
				sessions = append(sessions, session)
			}
		}
	}

	configName := ""
	vehicles := 0
	if len(sessions) > 0 {
		configName = sessions[0].ConfigName
		if sessions[0].GameState != nil {
			vehicles = len(sessions[0].GameState.Vehicles)
		}
	}

	unified := make([]map[string]interface{}, 0, len(sessions))
	solved := 0
	for _, session := range sessions {
		if session.GameState != nil && session.GameState.Solved {
			solved++
		}
		unified = append(unified, map[string]interface{}{
			"session_id":    session.ID,
			"config_name":   session.ConfigName,
			"game_state":    session.GameState,
			"created_at":    session.CreatedAt,
			"last_accessed": session.LastAccessedAt,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"config_name": configName,
		"vehicles":    vehicles,
		"solved":      solved,
		"sessions":    unified,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "websocket not available", http.StatusServiceUnavailable)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = r.URL.Query().Get("sessionId")
	}
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, strings.ToLower(info.ID))
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
