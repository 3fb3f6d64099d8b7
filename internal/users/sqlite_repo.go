package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/s1natex/tasktracker-api/internal/database"
)

type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{db: db}
}

const userColumns = `id, email, user_name, password_hash, created_at, updated_at`

func (r *SQLiteRepo) one(row *sql.Row) (User, error) {
	var u User
	var created, updated string
	err := row.Scan(&u.ID, &u.Email, &u.UserName, &u.PasswordHash, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = database.ParseTime(created)
	u.UpdatedAt = database.ParseTime(updated)
	return u, nil
}

func (r *SQLiteRepo) Create(ctx context.Context, in NewUser) (User, error) {
	now := time.Now().UTC()
	email := NormalizeEmail(in.Email)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (email, user_name, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, email, in.UserName, in.PasswordHash, database.FormatTime(now), database.FormatTime(now))
	if database.IsUniqueViolation(err) {
		return User{}, ErrEmailTaken
	}
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, err
	}
	return User{
		ID:           id,
		Email:        email,
		UserName:     in.UserName,
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (r *SQLiteRepo) GetByID(ctx context.Context, id int64) (User, error) {
	return r.one(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *SQLiteRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.one(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, NormalizeEmail(email)))
}

func (r *SQLiteRepo) Update(ctx context.Context, id int64, patch EditUser) (User, error) {
	patch = patch.normalized()
	if patch.empty() {
		return r.GetByID(ctx, id)
	}

	sets := []string{"updated_at = ?"}
	args := []any{database.FormatTime(time.Now())}
	if patch.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *patch.Email)
	}
	if patch.UserName != nil {
		sets = append(sets, "user_name = ?")
		args = append(args, *patch.UserName)
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if database.IsUniqueViolation(err) {
		return User{}, ErrEmailTaken
	}
	if err != nil {
		return User{}, fmt.Errorf("update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return User{}, ErrNotFound
	}
	return r.GetByID(ctx, id)
}
