package tasks

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

// NewSQLiteRepo wraps an open database; the caller owns its lifetime.
func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{db: db}
}

const sqliteTaskColumns = `id, user_id, text, is_done, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTask(row rowScanner) (Task, error) {
	var t Task
	var created, updated string
	if err := row.Scan(&t.ID, &t.UserID, &t.Text, &t.IsDone, &created, &updated); err != nil {
		return Task{}, err
	}
	t.CreatedAt = database.ParseTime(created)
	t.UpdatedAt = database.ParseTime(updated)
	return t, nil
}

func (r *SQLiteRepo) ListByOwner(ctx context.Context, userID int64) ([]Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sqliteTaskColumns+`
		FROM tasks
		WHERE user_id = ?
		ORDER BY id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	out := make([]Task, 0)
	for rows.Next() {
		t, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) GetByID(ctx context.Context, id int64) (Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sqliteTaskColumns+` FROM tasks WHERE id = ?`, id)
	return r.one(row)
}

func (r *SQLiteRepo) GetByIDAndOwner(ctx context.Context, id, userID int64) (Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sqliteTaskColumns+` FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	return r.one(row)
}

func (r *SQLiteRepo) one(row *sql.Row) (Task, error) {
	t, err := scanSQLiteTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepo) Create(ctx context.Context, userID int64, in CreateTask) (Task, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (user_id, text, is_done, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?)
	`, userID, in.Text, database.FormatTime(now), database.FormatTime(now))
	if database.IsForeignKeyViolation(err) {
		return Task{}, ErrUnknownOwner
	}
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Task{}, err
	}
	return Task{
		ID:        id,
		UserID:    userID,
		Text:      in.Text,
		IsDone:    false,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (r *SQLiteRepo) Update(ctx context.Context, id int64, patch EditTask) (Task, error) {
	if patch.empty() {
		return r.GetByID(ctx, id)
	}

	sets := []string{"updated_at = ?"}
	args := []any{database.FormatTime(time.Now())}
	if patch.Text != nil {
		sets = append(sets, "text = ?")
		args = append(args, *patch.Text)
	}
	if patch.IsDone != nil {
		sets = append(sets, "is_done = ?")
		args = append(args, *patch.IsDone)
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, `UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return Task{}, fmt.Errorf("update task: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Task{}, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *SQLiteRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
