package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/askdb/internal/agent"
)

const maxRequestBodySize = 1 << 20 // 1MB

// QuestionRequest is the body of POST /api/question.
type QuestionRequest struct {
	UserID   string `json:"user_id"`
	Question string `json:"question"`
}

// QuestionProcessor is the pipeline entry point the API layer calls.
// Implemented by agent.Agent.
type QuestionProcessor interface {
	Process(ctx context.Context, userID, question string) agent.Outcome
}

// Deps holds the API handler dependencies.
type Deps struct {
	Agent QuestionProcessor
	// Token, when non-empty, protects the question endpoint with bearer auth.
	Token string
}

// NewHandler returns the HTTP handler exposing the question endpoint and
// the liveness probe.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(recoverer)

	r.Get("/api/health", handleHealth)

	r.Group(func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}
		r.Post("/api/question", handleQuestion(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleQuestion(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req QuestionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Question == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "question is required")
			return
		}

		outcome := deps.Agent.Process(r.Context(), req.UserID, req.Question)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(outcome); err != nil {
			slog.Error("encoding question response", "error", err)
		}
	}
}

// recoverer converts panics into a generic 500 JSON failure so transport
// errors never leak stack traces to clients.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic in request handler", "panic", rec, "path", r.URL.Path)
				httpError(w, http.StatusInternalServerError, "api_error", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
