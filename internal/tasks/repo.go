package tasks

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	ErrNotFound     = errors.New("task not found")
	ErrAccessDenied = errors.New("access to resource denied")
	// ErrUnknownOwner means the user a task was created for no longer exists.
	ErrUnknownOwner = errors.New("task owner does not exist")
)

// Store is the persistence gateway for tasks. It applies no ownership rules
// beyond the filters its methods name.
type Store interface {
	ListByOwner(ctx context.Context, userID int64) ([]Task, error)
	GetByID(ctx context.Context, id int64) (Task, error)
	GetByIDAndOwner(ctx context.Context, id, userID int64) (Task, error)
	Create(ctx context.Context, userID int64, in CreateTask) (Task, error)
	Update(ctx context.Context, id int64, patch EditTask) (Task, error)
	Delete(ctx context.Context, id int64) error
}

type InMemoryRepo struct {
	mu    sync.Mutex
	seq   int64
	store map[int64]Task
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		store: make(map[int64]Task),
	}
}

func (r *InMemoryRepo) ListByOwner(_ context.Context, userID int64) ([]Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Task, 0)
	for _, t := range r.store {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InMemoryRepo) GetByID(_ context.Context, id int64) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.store[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	return t, nil
}

func (r *InMemoryRepo) GetByIDAndOwner(_ context.Context, id, userID int64) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.store[id]
	if !ok || t.UserID != userID {
		return Task{}, ErrNotFound
	}
	return t, nil
}

func (r *InMemoryRepo) Create(_ context.Context, userID int64, in CreateTask) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	now := time.Now().UTC()
	t := Task{
		ID:        r.seq,
		UserID:    userID,
		Text:      in.Text,
		IsDone:    false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.store[t.ID] = t
	return t, nil
}

func (r *InMemoryRepo) Update(_ context.Context, id int64, patch EditTask) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.store[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	if patch.empty() {
		return t, nil
	}
	t = patch.apply(t)
	t.UpdatedAt = time.Now().UTC()
	r.store[id] = t
	return t, nil
}

func (r *InMemoryRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[id]; !ok {
		return ErrNotFound
	}
	delete(r.store, id)
	return nil
}
