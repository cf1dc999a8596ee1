package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"crudserver/internal/core/service/resource"
	"crudserver/internal/pkg/logger"
)

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.From(r.Context()).Error("failed to encode response", logger.Err(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message, detail string) {
	writeJSON(w, r, status, errorResponse{Message: message, Error: detail})
}

// handleError maps service errors onto status codes. Clients only see the service's own message; the wrapped
// chain goes to the log. Anything the service did not anticipate is an adapter failure and becomes a 500.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch resource.Kind(err) {

	case resource.KindNotFound:
		logger.From(r.Context()).Debug("not found", logger.Err(err))
		writeError(w, r, http.StatusNotFound, resource.PublicMessage(err), "")

	case resource.KindBadRequest, resource.KindConstraintViolation:
		logger.From(r.Context()).Debug("rejected request", logger.Err(err))
		writeError(w, r, http.StatusBadRequest, resource.PublicMessage(err), "")

	default:
		logger.From(r.Context()).Error("unhandled error from service", logger.Backend(h.opts.Backend), logger.Err(err))
		if h.opts.Metrics != nil {
			h.opts.Metrics.StorageError(h.opts.Backend)
		}

		detail := "internal error"
		if h.opts.ExposeInternalErrors {
			detail = err.Error()
		}
		writeError(w, r, http.StatusInternalServerError, "internal server error", detail)
	}
}

// decodeBody reads a JSON request body into v. An empty body is ErrNoDataProvided.
func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return resource.ErrNoDataProvided
		}
		return err
	}
	return nil
}

func (h *Handler) handleDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large", err.Error())
	case errors.Is(err, resource.ErrNoDataProvided):
		writeError(w, r, http.StatusBadRequest, err.Error(), "")
	default:
		logger.From(r.Context()).Debug("failed to decode request", logger.Err(err))
		writeError(w, r, http.StatusBadRequest, "invalid JSON body", err.Error())
	}
}
