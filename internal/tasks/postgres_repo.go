package tasks

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

const pgTaskColumns = `id, user_id, text, is_done, created_at, updated_at`

func scanPgTask(row pgx.Row) (Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.UserID, &t.Text, &t.IsDone, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	return t, err
}

func (r *PostgresRepo) ListByOwner(ctx context.Context, userID int64) ([]Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+pgTaskColumns+` FROM tasks WHERE user_id = $1 ORDER BY id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	out := make([]Task, 0)
	for rows.Next() {
		t, err := scanPgTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) GetByID(ctx context.Context, id int64) (Task, error) {
	t, err := scanPgTask(r.pool.QueryRow(ctx, `SELECT `+pgTaskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, err
}

func (r *PostgresRepo) GetByIDAndOwner(ctx context.Context, id, userID int64) (Task, error) {
	t, err := scanPgTask(r.pool.QueryRow(ctx,
		`SELECT `+pgTaskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, err
}

func (r *PostgresRepo) Create(ctx context.Context, userID int64, in CreateTask) (Task, error) {
	t, err := scanPgTask(r.pool.QueryRow(ctx, `
		INSERT INTO tasks (user_id, text)
		VALUES ($1, $2)
		RETURNING `+pgTaskColumns, userID, in.Text))
	if database.IsForeignKeyViolation(err) {
		return Task{}, ErrUnknownOwner
	}
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

func (r *PostgresRepo) Update(ctx context.Context, id int64, patch EditTask) (Task, error) {
	if patch.empty() {
		return r.GetByID(ctx, id)
	}

	sets := []string{"updated_at = now()"}
	args := []any{}
	if patch.Text != nil {
		args = append(args, *patch.Text)
		sets = append(sets, "text = $"+strconv.Itoa(len(args)))
	}
	if patch.IsDone != nil {
		args = append(args, *patch.IsDone)
		sets = append(sets, "is_done = $"+strconv.Itoa(len(args)))
	}
	args = append(args, id)

	q := `UPDATE tasks SET ` + strings.Join(sets, ", ") +
		` WHERE id = $` + strconv.Itoa(len(args)) + ` RETURNING ` + pgTaskColumns
	t, err := scanPgTask(r.pool.QueryRow(ctx, q, args...))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Task{}, fmt.Errorf("update task: %w", err)
	}
	return t, err
}

func (r *PostgresRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
