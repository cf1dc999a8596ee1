package httpadapter

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const healthTimeout = 2 * time.Second

type healthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
	Uptime  string `json:"uptime"`
	Error   string `json:"error,omitempty"`
}

type indexResponse struct {
	Name      string            `json:"name"`
	Endpoints map[string]string `json:"endpoints"`
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Backend: h.opts.Backend,
		Uptime:  time.Since(h.startedAt).Round(time.Second).String(),
	}

	if h.opts.Pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := h.opts.Pinger.Ping(ctx); err != nil {
			resp.Status = "unavailable"
			resp.Error = err.Error()
			writeJSON(w, r, http.StatusServiceUnavailable, resp)
			return
		}
	}

	writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	endpoints := map[string]string{
		"users":    "/api/users",
		"search":   "/api/users/search/{term}",
		"comments": "/api/users/{id}/comments",
		"health":   "/health",
	}
	if h.opts.Metrics != nil {
		endpoints["metrics"] = "/metrics"
	}

	writeJSON(w, r, http.StatusOK, indexResponse{Name: "crudserver", Endpoints: endpoints})
}

func (h *Handler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, fmt.Sprintf("route %s %s not found", r.Method, r.URL.Path), "")
}

func (h *Handler) HandleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed on %s", r.Method, r.URL.Path), "")
}
