package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/s1natex/tasktracker-api/internal/web"
)

// RegisterRoutes mounts POST /auth/signup and POST /auth/signin.
func RegisterRoutes(r chi.Router, svc *Service, logger *slog.Logger) {
	h := handler{svc: svc, logger: logger}
	r.Post("/auth/signup", h.signup)
	r.Post("/auth/signin", h.signin)
}

type handler struct {
	svc    *Service
	logger *slog.Logger
}

func (h handler) signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := web.Decode(r, &req); err != nil {
		web.WriteDecodeError(w, err)
		return
	}
	resp, err := h.svc.Signup(r.Context(), req)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusCreated, resp)
}

func (h handler) signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if err := web.Decode(r, &req); err != nil {
		web.WriteDecodeError(w, err)
		return
	}
	resp, err := h.svc.Signin(r.Context(), req)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, resp)
}

func (h handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *web.ValidationError
	switch {
	case errors.As(err, &vErr):
		web.WriteDecodeError(w, err)
	case errors.Is(err, ErrCredentialsTaken), errors.Is(err, ErrCredentialsIncorrect):
		web.WriteError(w, http.StatusForbidden, "forbidden", err.Error())
	default:
		web.WriteInternal(w, r, h.logger, err)
	}
}
