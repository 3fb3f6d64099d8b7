package users

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("credentials taken")
)

type Store interface {
	Create(ctx context.Context, in NewUser) (User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Update(ctx context.Context, id int64, patch EditUser) (User, error)
}

type InMemoryRepo struct {
	mu    sync.Mutex
	seq   int64
	store map[int64]User
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{store: make(map[int64]User)}
}

func (r *InMemoryRepo) emailTaken(email string, except int64) bool {
	for _, u := range r.store {
		if u.Email == email && u.ID != except {
			return true
		}
	}
	return false
}

func (r *InMemoryRepo) Create(_ context.Context, in NewUser) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := NormalizeEmail(in.Email)
	if r.emailTaken(email, 0) {
		return User{}, ErrEmailTaken
	}
	r.seq++
	now := time.Now().UTC()
	u := User{
		ID:           r.seq,
		Email:        email,
		UserName:     in.UserName,
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.store[u.ID] = u
	return u, nil
}

func (r *InMemoryRepo) GetByID(_ context.Context, id int64) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.store[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *InMemoryRepo) GetByEmail(_ context.Context, email string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email = NormalizeEmail(email)
	for _, u := range r.store {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *InMemoryRepo) Update(_ context.Context, id int64, patch EditUser) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.store[id]
	if !ok {
		return User{}, ErrNotFound
	}
	patch = patch.normalized()
	if patch.empty() {
		return u, nil
	}
	if patch.Email != nil {
		if r.emailTaken(*patch.Email, id) {
			return User{}, ErrEmailTaken
		}
		u.Email = *patch.Email
	}
	if patch.UserName != nil {
		u.UserName = *patch.UserName
	}
	u.UpdatedAt = time.Now().UTC()
	r.store[id] = u
	return u, nil
}
