package users

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/s1natex/tasktracker-api/internal/middleware"
	"github.com/s1natex/tasktracker-api/internal/web"
)

// RegisterRoutes mounts GET /users/me and PATCH /users behind middleware.Authenticate.
func RegisterRoutes(r chi.Router, store Store, logger *slog.Logger) {
	h := handler{store: store, logger: logger}
	r.Get("/users/me", h.me)
	r.Patch("/users", h.edit)
}

type handler struct {
	store  Store
	logger *slog.Logger
}

func (h handler) me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		web.WriteError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}
	u, err := h.store.GetByID(r.Context(), userID)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, u)
}

func (h handler) edit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		web.WriteError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}
	var req EditUser
	if err := web.Decode(r, &req); err != nil {
		web.WriteDecodeError(w, err)
		return
	}
	u, err := h.store.Update(r.Context(), userID, req)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, u)
}

func (h handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		// token outlived its user
		web.WriteError(w, http.StatusUnauthorized, "unauthorized", "")
	case errors.Is(err, ErrEmailTaken):
		web.WriteError(w, http.StatusForbidden, "forbidden", ErrEmailTaken.Error())
	default:
		web.WriteInternal(w, r, h.logger, err)
	}
}
