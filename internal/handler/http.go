package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/scrabble-score/internal/domain"
	"github.com/scrabble-score/internal/service"
	"github.com/scrabble-score/internal/websocket"
)

// ReadinessCheck reports whether a dependency is usable
type ReadinessCheck func(ctx context.Context) error

// Handler provides HTTP handlers for the session API
type Handler struct {
	service *service.GameService
	hub     *websocket.Hub
	checks  map[string]ReadinessCheck
	logger  *slog.Logger
}

// NewHandler creates a new HTTP handler. hub may be nil to disable the websocket endpoint.
func NewHandler(service *service.GameService, hub *websocket.Hub, checks map[string]ReadinessCheck, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		checks:  checks,
		logger:  logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	if h.hub != nil {
		r.Get("/ws", h.hub.ServeWs)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Put("/players", h.SetPlayers)
			r.Post("/start", h.StartGame)
			r.Post("/turns", h.SubmitScore)
			r.Put("/turns/{index}", h.EditTurn)
			r.Post("/end", h.EndGame)
			r.Post("/new", h.NewGame)
		})

		r.Get("/games", h.ListGames)
		r.Get("/head-to-head", h.GetHeadToHead)
		r.Get("/format-duration", h.FormatDuration)
	})

	return r
}

// requestLogger logs each request through slog
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to write response", "error", err)
	}
}

func (h *Handler) writeSuccess(w http.ResponseWriter, data any) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string, data any) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Data:    data,
		Error:   message,
	})
}

// writeDomainError maps a service error to a status and message
func (h *Handler) writeDomainError(w http.ResponseWriter, err error, data any) {
	status := http.StatusInternalServerError
	message := domain.UserMessage(err)

	switch {
	case domain.IsValidationError(err), errors.Is(err, domain.ErrInvalidScore), errors.Is(err, domain.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrTurnNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNoActiveSession), errors.Is(err, domain.ErrInvalidPhase), errors.Is(err, domain.ErrSaveInProgress):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrSaveFailed):
	default:
		h.logger.Error("request failed", "error", err)
		err = domain.ErrInternalError
	}

	if message == "" {
		message = err.Error()
	}
	h.writeError(w, status, message, data)
}

// HealthCheck reports liveness
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck runs every readiness check
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		h.writeError(w, http.StatusServiceUnavailable, "not ready", failed)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// GetSession returns the current session view
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, h.service.View())
}

type playersRequest struct {
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
}

// SetPlayers updates the names typed during setup
func (h *Handler) SetPlayers(w http.ResponseWriter, r *http.Request) {
	var req playersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeDomainError(w, domain.ErrInvalidRequest, nil)
		return
	}

	view, err := h.service.SetPlayerNames(req.Player1, req.Player2)
	if err != nil {
		h.writeDomainError(w, err, view)
		return
	}
	h.writeSuccess(w, view)
}

// StartGame starts a session. A body with names replaces the current ones first.
func (h *Handler) StartGame(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength != 0 {
		var req playersRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeDomainError(w, domain.ErrInvalidRequest, nil)
			return
		}
		if _, err := h.service.SetPlayerNames(req.Player1, req.Player2); err != nil {
			h.writeDomainError(w, err, nil)
			return
		}
	}

	view, err := h.service.StartGame(r.Context())
	if err != nil {
		h.writeDomainError(w, err, view)
		return
	}
	h.writeSuccess(w, view)
}

// decodeScore reads {"score": ...}, accepting a string or a bare number as raw input
func decodeScore(r *http.Request) (string, error) {
	var req struct {
		Score json.RawMessage `json:"score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", domain.ErrInvalidRequest
	}
	var input string
	if err := json.Unmarshal(req.Score, &input); err == nil {
		return input, nil
	}
	return string(req.Score), nil
}

// SubmitScore records a turn for the current player
func (h *Handler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	input, err := decodeScore(r)
	if err != nil {
		h.writeDomainError(w, err, nil)
		return
	}

	turn, err := h.service.SubmitScore(r.Context(), input)
	if err != nil {
		h.writeDomainError(w, err, nil)
		return
	}
	h.writeSuccess(w, map[string]any{
		"turn":    turn,
		"session": h.service.View(),
	})
}

// EditTurn replaces a turn score
func (h *Handler) EditTurn(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		h.writeDomainError(w, domain.ErrTurnNotFound, nil)
		return
	}
	input, err := decodeScore(r)
	if err != nil {
		h.writeDomainError(w, err, nil)
		return
	}

	view, err := h.service.EditTurn(r.Context(), index, input)
	if err != nil {
		h.writeDomainError(w, err, view)
		return
	}
	h.writeSuccess(w, view)
}

// EndGame saves and finishes the session
func (h *Handler) EndGame(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.EndGame(r.Context())
	if err != nil {
		h.writeDomainError(w, err, view)
		return
	}
	h.writeSuccess(w, view)
}

// NewGame returns to setup after a finished session
func (h *Handler) NewGame(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.NewGame(r.Context())
	if err != nil {
		h.writeDomainError(w, err, view)
		return
	}
	h.writeSuccess(w, view)
}

// ListGames returns the stored history, most recent first
func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, h.service.History(r.Context()))
}

// GetHeadToHead returns player1's record against player2
func (h *Handler) GetHeadToHead(w http.ResponseWriter, r *http.Request) {
	player1 := r.URL.Query().Get("player1")
	player2 := r.URL.Query().Get("player2")

	record, err := h.service.HeadToHead(r.Context(), player1, player2)
	if err != nil {
		h.writeDomainError(w, err, nil)
		return
	}
	h.writeSuccess(w, map[string]any{
		"player1": player1,
		"player2": player2,
		"record":  record,
		"total":   record.Total(),
	})
}

// FormatDuration renders a millisecond count
func (h *Handler) FormatDuration(w http.ResponseWriter, r *http.Request) {
	ms, err := strconv.ParseInt(r.URL.Query().Get("ms"), 10, 64)
	if err != nil {
		h.writeDomainError(w, domain.ErrInvalidRequest, nil)
		return
	}
	h.writeSuccess(w, map[string]any{
		"ms":        ms,
		"formatted": domain.FormatDuration(ms),
	})
}
