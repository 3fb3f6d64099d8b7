package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/s1natex/tasktracker-api/internal/database"
)

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(pool *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{pool: pool}
}

func scanPgUser(row pgx.Row, op string) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.UserName, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return User{}, ErrNotFound
	case database.IsUniqueViolation(err):
		return User{}, ErrEmailTaken
	case err != nil:
		return User{}, fmt.Errorf("%s user: %w", op, err)
	}
	return u, nil
}

func (r *PostgresRepo) Create(ctx context.Context, in NewUser) (User, error) {
	return scanPgUser(r.pool.QueryRow(ctx, `
		INSERT INTO users (email, user_name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns,
		NormalizeEmail(in.Email), in.UserName, in.PasswordHash), "insert")
}

func (r *PostgresRepo) GetByID(ctx context.Context, id int64) (User, error) {
	return scanPgUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id), "get")
}

func (r *PostgresRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	return scanPgUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, NormalizeEmail(email)), "get")
}

func (r *PostgresRepo) Update(ctx context.Context, id int64, patch EditUser) (User, error) {
	patch = patch.normalized()
	if patch.empty() {
		return r.GetByID(ctx, id)
	}

	sets := []string{"updated_at = now()"}
	var args []any
	if patch.Email != nil {
		args = append(args, *patch.Email)
		sets = append(sets, "email = $"+strconv.Itoa(len(args)))
	}
	if patch.UserName != nil {
		args = append(args, *patch.UserName)
		sets = append(sets, "user_name = $"+strconv.Itoa(len(args)))
	}
	args = append(args, id)

	q := `UPDATE users SET ` + strings.Join(sets, ", ") +
		` WHERE id = $` + strconv.Itoa(len(args)) + ` RETURNING ` + userColumns
	return scanPgUser(r.pool.QueryRow(ctx, q, args...), "update")
}
