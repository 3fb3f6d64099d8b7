package tasks

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/s1natex/tasktracker-api/internal/database"
)

func newTempDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn, err := database.SQLiteFileDSN(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("dsn error: %v", err)
	}
	db, err := database.OpenSQLite(dsn)
	if err != nil {
		t.Fatalf("open error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.MigrateSQLite(context.Background(), db); err != nil {
		t.Fatalf("migrate error: %v", err)
	}
	return db
}

// seedSQLiteUser inserts a bare user row so task foreign keys resolve.
func seedSQLiteUser(t *testing.T, db *sql.DB, email string) int64 {
	t.Helper()
	now := database.FormatTime(time.Now())
	res, err := db.Exec(`INSERT INTO users (email, user_name, password_hash, created_at, updated_at)
		VALUES (?, 'u', 'x', ?, ?)`, email, now, now)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("seed user id: %v", err)
	}
	return id
}

// testStoreContract exercises a Store implementation; alice and bob must be existing user ids.
func testStoreContract(t *testing.T, s Store, alice, bob int64) {
	t.Helper()
	ctx := context.Background()

	a, err := s.Create(ctx, alice, CreateTask{Text: "first"})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	if a.ID == 0 || a.Text != "first" || a.IsDone || a.UserID != alice {
		t.Fatalf("bad first task: %+v", a)
	}

	b, err := s.Create(ctx, alice, CreateTask{Text: "second"})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if b.ID <= a.ID {
		t.Fatalf("expected monotonic IDs: a=%d b=%d", a.ID, b.ID)
	}
	if _, err := s.Create(ctx, bob, CreateTask{Text: "bob's"}); err != nil {
		t.Fatalf("create bob's: %v", err)
	}

	list, err := s.ListByOwner(ctx, alice)
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(list))
	}
	if list[0].Text != "first" || list[1].Text != "second" {
		t.Fatalf("unexpected order: %+v", list)
	}

	if _, err := s.GetByIDAndOwner(ctx, a.ID, bob); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
	got, err := s.GetByID(ctx, a.ID)
	if err != nil || got.UserID != alice {
		t.Fatalf("get by id: %+v, %v", got, err)
	}

	done := true
	upd, err := s.Update(ctx, a.ID, EditTask{IsDone: &done})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !upd.IsDone || upd.Text != "first" || upd.UserID != alice {
		t.Fatalf("partial update changed the wrong fields: %+v", upd)
	}
	same, err := s.Update(ctx, a.ID, EditTask{})
	if err != nil || same.Text != "first" || !same.IsDone {
		t.Fatalf("empty patch: %+v, %v", same, err)
	}
	if _, err := s.Update(ctx, 1<<40, EditTask{IsDone: &done}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating missing task, got %v", err)
	}

	if err := s.Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetByID(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	empty, err := s.ListByOwner(ctx, 1<<40)
	if err != nil {
		t.Fatalf("list unknown owner: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", empty)
	}
}

func TestInMemoryRepo_Contract(t *testing.T) {
	testStoreContract(t, NewInMemoryRepo(), 1, 2)
}

func TestSQLiteRepo_Contract(t *testing.T) {
	db := newTempDB(t)
	alice := seedSQLiteUser(t, db, "alice@example.com")
	bob := seedSQLiteUser(t, db, "bob@example.com")
	testStoreContract(t, NewSQLiteRepo(db), alice, bob)
}

func TestSQLiteRepo_Timestamps(t *testing.T) {
	db := newTempDB(t)
	repo := NewSQLiteRepo(db)
	uid := seedSQLiteUser(t, db, "ts@example.com")
	ctx := context.Background()

	created, err := repo.Create(ctx, uid, CreateTask{Text: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	stored, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.CreatedAt.IsZero() || !stored.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("created_at not round-tripped: %v vs %v", stored.CreatedAt, created.CreatedAt)
	}

	text := "y"
	upd, err := repo.Update(ctx, created.ID, EditTask{Text: &text})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if upd.UpdatedAt.Before(created.UpdatedAt) {
		t.Fatalf("updated_at went backwards")
	}
}

func TestSQLiteRepo_CreateForDeletedUser(t *testing.T) {
	db := newTempDB(t)
	repo := NewSQLiteRepo(db)
	uid := seedSQLiteUser(t, db, "gone@example.com")
	if _, err := db.Exec(`DELETE FROM users WHERE id = ?`, uid); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	if _, err := repo.Create(context.Background(), uid, CreateTask{Text: "orphan"}); !errors.Is(err, ErrUnknownOwner) {
		t.Fatalf("expected ErrUnknownOwner, got %v", err)
	}
}
