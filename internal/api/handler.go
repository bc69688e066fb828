package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/akorchak/intentd/internal/chat"
	"github.com/akorchak/intentd/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// InteractionLister reads the interaction log.
type InteractionLister interface {
	RecentInteractions(limit int) ([]storage.Interaction, error)
}

// NewHandler returns the HTTP API. Both /chat and /api/chat accept the same
// payload so frontends can use either prefix.
func NewHandler(responder *chat.Responder, log InteractionLister) http.Handler {
	r := chi.NewRouter()

	// Dev CORS: allow everything.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/", handleHome)
	r.Get("/health", handleHealth)
	r.Get("/interactions", handleInteractions(log))

	for _, route := range []string{"/chat", "/api/chat"} {
		r.Post(route, handleChat(responder))
		r.Options(route, handleOptions)
	}

	return r
}

func handleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "intentd is running. POST /chat or /api/chat to talk.")
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"ok":true}`))
}

func handleChat(responder *chat.Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req chat.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Empty() {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "no messages, contents, or text provided")
			return
		}

		res := responder.Respond(r.Context(), req)

		status := http.StatusOK
		if res.Source == chat.SourceError {
			// No reply of any kind could be produced locally.
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(res)
	}
}

func handleInteractions(log InteractionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := storage.MaxInteractions
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid limit %q", raw)
				return
			}
			limit = n
		}

		records, err := log.RecentInteractions(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "reading interaction log: %v", err)
			return
		}
		if records == nil {
			records = []storage.Interaction{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(records)
	}
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
