package httpadapter

import (
	"net/http"

	"crudserver/internal/core/domain"

	"github.com/go-chi/chi/v5"
)

type createUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   *int   `json:"age"`
}

// updateUserRequest keeps every field optional; a field present in the body is applied even when falsy.
type updateUserRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Age   *int    `json:"age"`
}

func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListAll(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, users)
}

func (h *Handler) HandleSearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.SearchByName(r.Context(), chi.URLParam(r, "term"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, users)
}

func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetOne(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, user)
}

func (h *Handler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeBody(r, &req); err != nil {
		h.handleDecodeError(w, r, err)
		return
	}

	newID, err := h.userService.Create(r.Context(), domain.NewUser{Name: req.Name, Email: req.Email, Age: req.Age})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, messageResponse{Message: "user created", ID: newID})
}

func (h *Handler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decodeBody(r, &req); err != nil {
		h.handleDecodeError(w, r, err)
		return
	}

	patch := domain.UserPatch{Name: req.Name, Email: req.Email, Age: req.Age}

	updated, err := h.userService.Update(r.Context(), chi.URLParam(r, "userID"), patch)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, updated)
}

func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := h.userService.Remove(r.Context(), userID); err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, messageResponse{Message: "user deleted", ID: userID})
}
