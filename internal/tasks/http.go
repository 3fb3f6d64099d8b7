package tasks

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/s1natex/tasktracker-api/internal/middleware"
	"github.com/s1natex/tasktracker-api/internal/web"
)

// RegisterRoutes mounts the task endpoints. The router must already run
// middleware.Authenticate so that a user id is present in the request context.
func RegisterRoutes(r chi.Router, svc *Service, logger *slog.Logger) {
	h := handler{svc: svc, logger: logger}
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Patch("/{id}", h.edit)
		r.Delete("/{id}", h.delete)
	})
}

type handler struct {
	svc    *Service
	logger *slog.Logger
}

func (h handler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		web.WriteError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}
	tasks, err := h.svc.List(r.Context(), userID)
	if err != nil {
		web.WriteInternal(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, tasks)
}

func (h handler) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		web.WriteError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}
	var req CreateTask
	if err := web.Decode(r, &req); err != nil {
		web.WriteDecodeError(w, err)
		return
	}
	t, err := h.svc.Create(r.Context(), userID, req)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusCreated, t)
}

func (h handler) get(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := h.ids(w, r)
	if !ok {
		return
	}
	t, err := h.svc.Get(r.Context(), userID, taskID)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, t)
}

func (h handler) edit(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := h.ids(w, r)
	if !ok {
		return
	}
	var req EditTask
	if err := web.Decode(r, &req); err != nil {
		web.WriteDecodeError(w, err)
		return
	}
	t, err := h.svc.Edit(r.Context(), userID, taskID, req)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, t)
}

func (h handler) delete(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := h.ids(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), userID, taskID); err != nil {
		h.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h handler) ids(w http.ResponseWriter, r *http.Request) (userID, taskID int64, ok bool) {
	userID, ok = middleware.UserIDFrom(r.Context())
	if !ok {
		web.WriteError(w, http.StatusUnauthorized, "unauthorized", "")
		return 0, 0, false
	}
	taskID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || taskID <= 0 {
		web.WriteJSON(w, http.StatusBadRequest, web.ErrResponse{
			Error:   "validation_error",
			Details: []web.FieldError{{Field: "id", Message: "id must be a positive integer"}},
		})
		return 0, 0, false
	}
	return userID, taskID, true
}

func (h handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *web.ValidationError
	switch {
	case errors.As(err, &vErr):
		web.WriteDecodeError(w, err)
	case errors.Is(err, ErrAccessDenied):
		web.WriteError(w, http.StatusForbidden, "forbidden", ErrAccessDenied.Error())
	case errors.Is(err, ErrNotFound):
		web.WriteError(w, http.StatusNotFound, "not_found", ErrNotFound.Error())
	case errors.Is(err, ErrUnknownOwner):
		// token outlived its user
		web.WriteError(w, http.StatusUnauthorized, "unauthorized", "")
	default:
		web.WriteInternal(w, r, h.logger, err)
	}
}
