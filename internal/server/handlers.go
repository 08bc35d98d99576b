package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"gazette/internal/core"
	"gazette/internal/persistence"
)

// recentNewsletterLimit caps GET /newsletters at the last seven issues.
const recentNewsletterLimit = 7

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	if err := s.db.Ping(r.Context()); err != nil {
		checks["database"] = "error"
		s.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unhealthy",
			Checks: checks,
		})
		return
	}
	checks["database"] = "ok"

	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status: "healthy",
		Checks: checks,
	})
}

// handleListNewsletters handles GET /newsletters.
func (s *Server) handleListNewsletters(w http.ResponseWriter, r *http.Request) {
	newsletters, err := s.db.Newsletters().ListRecent(r.Context(), recentNewsletterLimit)
	if err != nil {
		s.log.Error("Failed to list newsletters", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to load newsletters")
		return
	}

	if len(newsletters) == 0 {
		s.respondError(w, http.StatusNotFound, "No newsletters found")
		return
	}

	s.respondJSON(w, http.StatusOK, newsletters)
}

// handleGetNewsletter handles GET /newsletters/{id}.
func (s *Server) handleGetNewsletter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	newsletter, err := s.db.Newsletters().Get(r.Context(), id)
	if errors.Is(err, persistence.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "Newsletter not found")
		return
	}
	if err != nil {
		s.log.Error("Failed to get newsletter", "id", id, "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to load newsletter")
		return
	}

	s.respondJSON(w, http.StatusOK, newsletter)
}

// CreateNewsletterRequest is the POST /newsletters payload.
type CreateNewsletterRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// handleCreateNewsletter handles POST /newsletters.
func (s *Server) handleCreateNewsletter(w http.ResponseWriter, r *http.Request) {
	var req CreateNewsletterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" || req.Content == "" {
		s.respondError(w, http.StatusBadRequest, "Title and content are required")
		return
	}

	newsletter := core.Newsletter{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Content:   req.Content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.Newsletters().Create(r.Context(), &newsletter); err != nil {
		s.log.Error("Failed to create newsletter", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to create newsletter")
		return
	}

	s.respondJSON(w, http.StatusCreated, newsletter)
}

// respondJSON writes a JSON response with the given status.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("Failed to encode JSON response", "error", err)
	}
}

// respondError writes a JSON error body with a human-readable detail string.
func (s *Server) respondError(w http.ResponseWriter, status int, detail string) {
	s.respondJSON(w, status, map[string]interface{}{
		"detail": detail,
	})
}
