package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/s1natex/tasktracker-api/internal/middleware"
)

// asUser stands in for bearer authentication: the X-Test-User header becomes the caller.
func asUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := strconv.ParseInt(r.Header.Get("X-Test-User"), 10, 64); err == nil {
			r = r.WithContext(middleware.WithUserID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func newTestServer() (*chi.Mux, *InMemoryRepo) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	repo := NewInMemoryRepo()
	r := chi.NewRouter()
	r.Use(asUser)
	RegisterRoutes(r, NewService(repo, logger), logger)
	return r, repo
}

func do(t *testing.T, r http.Handler, method, path string, user int64, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if user != 0 {
		req.Header.Set("X-Test-User", strconv.FormatInt(user, 10))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("failed to parse error JSON: %v (body=%s)", err, rec.Body.String())
	}
	return m
}

func TestPostTasks_Success(t *testing.T) {
	r, _ := newTestServer()

	rec := do(t, r, http.MethodPost, "/tasks", userU, `{"text":"First task"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d, body=%s", rec.Code, rec.Body.String())
	}

	var got Task
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if got.ID == 0 {
		t.Errorf("expected non-zero ID")
	}
	if got.Text != "First task" || got.UserID != userU {
		t.Errorf("unexpected task %+v", got)
	}
	if got.IsDone {
		t.Errorf("new tasks should default to isDone=false")
	}
	if got.CreatedAt.IsZero() {
		t.Errorf("expected createdAt to be set")
	}
	if !strings.Contains(rec.Body.String(), `"isDone":false`) || !strings.Contains(rec.Body.String(), `"userId":1`) {
		t.Errorf("expected camelCase fields, body=%s", rec.Body.String())
	}
}

func TestPostTasks_TextRequired(t *testing.T) {
	r, _ := newTestServer()

	for _, body := range []string{`{"text":""}`, `{}`, `{"text":"   "}`, ""} {
		rec := do(t, r, http.MethodPost, "/tasks", userU, body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%q: expected status 400, got %d, body=%s", body, rec.Code, rec.Body.String())
		}
		if m := decodeErr(t, rec); m["error"] != "validation_error" {
			t.Errorf("%q: expected error 'validation_error', got %v", body, m["error"])
		}
	}
}

func TestPostTasks_InvalidJSON(t *testing.T) {
	r, _ := newTestServer()

	rec := do(t, r, http.MethodPost, "/tasks", userU, `{"text":`) // truncated/invalid JSON
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d, body=%s", rec.Code, rec.Body.String())
	}
	if m := decodeErr(t, rec); m["error"] != "invalid_json" {
		t.Errorf("expected error 'invalid_json', got %v", m["error"])
	}

	rec = do(t, r, http.MethodPost, "/tasks", userU, `{"text":42}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for non-string text, got %d", rec.Code)
	}
}

func TestGetTasks_HappyPath(t *testing.T) {
	r, _ := newTestServer()

	created := do(t, r, http.MethodPost, "/tasks", userU, `{"text":"First task"}`)
	var seed Task
	_ = json.Unmarshal(created.Body.Bytes(), &seed)
	do(t, r, http.MethodPost, "/tasks", userV, `{"text":"someone else"}`)

	rec := do(t, r, http.MethodGet, "/tasks", userU, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d, body=%s", rec.Code, rec.Body.String())
	}

	var list []Task
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 task, got %d", len(list))
	}
	if list[0].ID != seed.ID {
		t.Errorf("expected task %d, got %d", seed.ID, list[0].ID)
	}
}

func TestGetTasks_EmptyIsArray(t *testing.T) {
	r, _ := newTestServer()
	rec := do(t, r, http.MethodGet, "/tasks", userU, "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected [], got %s", rec.Body.String())
	}
}

func TestGetTaskByID(t *testing.T) {
	r, repo := newTestServer()
	task, _ := repo.Create(context.Background(), userU, CreateTask{Text: "mine"})
	path := "/tasks/" + strconv.FormatInt(task.ID, 10)

	if rec := do(t, r, http.MethodGet, path, userU, ""); rec.Code != http.StatusOK {
		t.Fatalf("owner: expected 200, got %d", rec.Code)
	}
	if rec := do(t, r, http.MethodGet, path, userV, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("non-owner: expected 404, got %d", rec.Code)
	}
	if rec := do(t, r, http.MethodGet, "/tasks/999", userU, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing: expected 404, got %d", rec.Code)
	}
	if rec := do(t, r, http.MethodGet, "/tasks/abc", userU, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: expected 400, got %d", rec.Code)
	}
}

func TestPatchTask(t *testing.T) {
	r, repo := newTestServer()
	task, _ := repo.Create(context.Background(), userU, CreateTask{Text: "First task"})
	path := "/tasks/" + strconv.FormatInt(task.ID, 10)

	rec := do(t, r, http.MethodPatch, path, userU, `{"isDone":true,"text":"test1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", rec.Code, rec.Body.String())
	}
	var got Task
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if !got.IsDone || got.Text != "test1" {
		t.Fatalf("expected both fields updated, got %+v", got)
	}

	if rec := do(t, r, http.MethodPatch, path, userV, `{"isDone":false}`); rec.Code != http.StatusForbidden {
		t.Fatalf("non-owner: expected 403, got %d", rec.Code)
	}
	if rec := do(t, r, http.MethodPatch, "/tasks/999", userU, `{"isDone":false}`); rec.Code != http.StatusForbidden {
		t.Fatalf("missing: expected 403, got %d", rec.Code)
	}
	if rec := do(t, r, http.MethodPatch, path, userU, `{"isDone":"yes"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad type: expected 400, got %d", rec.Code)
	}
}

func TestDeleteTask(t *testing.T) {
	r, repo := newTestServer()
	task, _ := repo.Create(context.Background(), userU, CreateTask{Text: "First task"})
	path := "/tasks/" + strconv.FormatInt(task.ID, 10)

	if rec := do(t, r, http.MethodDelete, path, userV, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("non-owner: expected 403, got %d", rec.Code)
	}

	rec := do(t, r, http.MethodDelete, path, userU, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rec.Body.String())
	}

	rec = do(t, r, http.MethodGet, "/tasks", userU, "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty list after delete, got %s", rec.Body.String())
	}
	if rec := do(t, r, http.MethodDelete, path, userU, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("repeat delete: expected 403, got %d", rec.Code)
	}
}

func TestTasks_RequireUser(t *testing.T) {
	r, _ := newTestServer()
	if rec := do(t, r, http.MethodGet, "/tasks", 0, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user, got %d", rec.Code)
	}
}

type orphanStore struct {
	*InMemoryRepo
}

func (orphanStore) Create(context.Context, int64, CreateTask) (Task, error) {
	return Task{}, ErrUnknownOwner
}

func TestPostTasks_DeletedUserIsUnauthorized(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	r := chi.NewRouter()
	r.Use(asUser)
	RegisterRoutes(r, NewService(orphanStore{NewInMemoryRepo()}, logger), logger)

	rec := do(t, r, http.MethodPost, "/tasks", userU, `{"text":"First task"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d, body=%s", rec.Code, rec.Body.String())
	}
	if m := decodeErr(t, rec); m["error"] != "unauthorized" {
		t.Errorf("expected error 'unauthorized', got %v", m["error"])
	}
}
