package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type sample struct {
	Name  string `json:"name"`
	Count *int   `json:"count"`
}

func (s sample) Validate() error {
	var f Fields
	if strings.TrimSpace(s.Name) == "" {
		f.Add("name", "name is required")
	}
	return f.Err()
}

func decode(body string) (sample, error) {
	var s sample
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	err := Decode(r, &s)
	return s, err
}

func TestDecode(t *testing.T) {
	s, err := decode(`{"name":"x","count":3,"extra":true}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Name != "x" || s.Count == nil || *s.Count != 3 {
		t.Fatalf("unexpected decode result %+v", s)
	}

	if _, err := decode(""); !errors.Is(err, ErrEmptyBody) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
	if _, err := decode(`{"name":`); !errors.Is(err, ErrInvalidJSON) {
		t.Fatalf("expected ErrInvalidJSON, got %v", err)
	}

	var vErr *ValidationError
	if _, err := decode(`{"name":""}`); !errors.As(err, &vErr) || vErr.Fields[0].Field != "name" {
		t.Fatalf("expected validation error on name, got %v", err)
	}
	if _, err := decode(`{"name":"x","count":"three"}`); !errors.As(err, &vErr) || vErr.Fields[0].Field != "count" {
		t.Fatalf("expected type error on count, got %v", err)
	}
}

func TestDecode_NonObjectBody(t *testing.T) {
	for _, body := range []string{`[]`, `"x"`, `42`, `true`} {
		_, err := decode(body)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("%s: expected validation error, got %v", body, err)
		}
		if got := vErr.Fields[0]; got.Field != "body" || got.Message != "must be a JSON object" {
			t.Fatalf("%s: unexpected field error %+v", body, got)
		}
	}
}

func TestWriteDecodeError(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{ErrEmptyBody, "validation_error"},
		{(&Fields{{Field: "a", Message: "b"}}).Err(), "validation_error"},
		{ErrInvalidJSON, "invalid_json"},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		WriteDecodeError(rec, c.err)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		var resp ErrResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("bad JSON: %v", err)
		}
		if resp.Error != c.code {
			t.Errorf("expected %q, got %q", c.code, resp.Error)
		}
	}
}

func TestWriteInternal_HidesError(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	WriteInternal(rec, req, logger, errors.New("db password is hunter2"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "hunter2") {
		t.Fatalf("internal error leaked: %s", rec.Body.String())
	}
}
