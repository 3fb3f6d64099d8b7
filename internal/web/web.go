// Package web holds the JSON request/response helpers shared by the HTTP handlers.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

var (
	ErrEmptyBody   = errors.New("request body is empty")
	ErrInvalidJSON = errors.New("invalid JSON")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned by request models that fail their Validate method.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields accumulates field errors for a request model.
type Fields []FieldError

func (f *Fields) Add(field, msg string) {
	*f = append(*f, FieldError{Field: field, Message: msg})
}

// Err returns nil when no field failed.
func (f Fields) Err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

type ErrResponse struct {
	Error   string       `json:"error"`
	Message string       `json:"message,omitempty"`
	Details []FieldError `json:"details,omitempty"`
}

type validator interface {
	Validate() error
}

// Decode reads a JSON body into v and runs v.Validate when v implements it.
// Type mismatches are reported as a ValidationError on the offending field.
func Decode(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return ErrEmptyBody
	}
	if err := json.Unmarshal(data, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			var f Fields
			if typeErr.Field == "" {
				f.Add("body", "must be a JSON object")
			} else {
				f.Add(typeErr.Field, "must be a "+typeErr.Type.Kind().String())
			}
			return f.Err()
		}
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if val, ok := v.(validator); ok {
		return val.Validate()
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string) {
	WriteJSON(w, status, ErrResponse{Error: code, Message: msg})
}

// WriteDecodeError maps a Decode failure to a 400 response.
func WriteDecodeError(w http.ResponseWriter, err error) {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		WriteJSON(w, http.StatusBadRequest, ErrResponse{
			Error:   "validation_error",
			Details: vErr.Fields,
		})
	case errors.Is(err, ErrEmptyBody):
		WriteError(w, http.StatusBadRequest, "validation_error", ErrEmptyBody.Error())
	default:
		WriteError(w, http.StatusBadRequest, "invalid_json", ErrInvalidJSON.Error())
	}
}

// WriteInternal logs err with the request id and answers 500 without leaking details.
func WriteInternal(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	logger.ErrorContext(r.Context(), "request_failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("req_id", chimw.GetReqID(r.Context())),
		slog.String("error", err.Error()),
	)
	WriteError(w, http.StatusInternalServerError, "unexpected_error", "")
}
