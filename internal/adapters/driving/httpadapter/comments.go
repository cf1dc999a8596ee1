package httpadapter

import (
	"net/http"

	"crudserver/internal/core/domain"

	"github.com/go-chi/chi/v5"
)

type commentRequest struct {
	Content string `json:"content"`
}

func (h *Handler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.commentService.ListForOwner(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, comments)
}

func (h *Handler) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeBody(r, &req); err != nil {
		h.handleDecodeError(w, r, err)
		return
	}

	newID, err := h.commentService.Create(r.Context(), chi.URLParam(r, "userID"), domain.NewComment{Content: req.Content})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, messageResponse{Message: "comment created", ID: newID})
}

func (h *Handler) HandleUpdateComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeBody(r, &req); err != nil {
		h.handleDecodeError(w, r, err)
		return
	}

	commentID := chi.URLParam(r, "commentID")

	if err := h.commentService.Update(r.Context(), chi.URLParam(r, "userID"), commentID, req.Content); err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, messageResponse{Message: "comment updated", ID: commentID})
}

func (h *Handler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	commentID := chi.URLParam(r, "commentID")

	if err := h.commentService.Remove(r.Context(), chi.URLParam(r, "userID"), commentID); err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, messageResponse{Message: "comment deleted", ID: commentID})
}
