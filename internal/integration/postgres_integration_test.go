package integration

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"todo_api/internal/config"
	"todo_api/internal/db"
	"todo_api/internal/domain"
	"todo_api/internal/metrics"
	"todo_api/internal/repository"

	"github.com/jmoiron/sqlx"
)

func openPostgres(t *testing.T) (*sqlx.DB, db.Dialect) {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	conn, dialect, err := db.Open(context.Background(), config.StoreConfig{Driver: config.DriverPostgres, URL: dsn})
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, dialect
}

func TestPostgresConcurrentMigrate(t *testing.T) {
	conn, dialect := openPostgres(t)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := db.NewMigrator(conn, dialect).Migrate(context.Background()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("migrate: %v", err)
	}

	m := db.NewMigrator(conn, dialect)
	v, err := m.Version(context.Background())
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v != m.Latest() {
		t.Fatalf("expected version %d, got %d", m.Latest(), v)
	}

	added, err := m.EnsureColumns(context.Background(), conn, db.TodosTable, db.OptionalTodoColumns)
	if err != nil {
		t.Fatalf("ensure columns: %v", err)
	}
	if len(added) != 0 {
		t.Fatalf("expected no columns added, got %v", added)
	}
}

func TestPostgresTodoLifecycle(t *testing.T) {
	conn, dialect := openPostgres(t)
	ctx := context.Background()
	if _, err := db.NewMigrator(conn, dialect).Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := repository.NewTodoRepository(conn, dialect, metrics.New())

	// anchor: only rows created by this test are listed after it
	anchor, err := repo.Create(ctx, repository.NewTodo{Title: "anchor"})
	if err != nil {
		t.Fatalf("create anchor: %v", err)
	}

	high := domain.PriorityHigh
	past := time.Now().Add(-time.Hour)
	a, err := repo.Create(ctx, repository.NewTodo{Title: "a", Priority: &high})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err := repo.Create(ctx, repository.NewTodo{Title: "b", DueAt: &past, Completed: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.ID <= a.ID || a.ID <= anchor.ID {
		t.Fatalf("ids not increasing: %d %d %d", anchor.ID, a.ID, b.ID)
	}

	got, err := repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "a" || got.Priority == nil || *got.Priority != high {
		t.Fatalf("unexpected todo: %+v", got)
	}

	if err := repo.SoftDelete(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	page, err := repo.List(ctx, repository.ListQuery{Limit: 10, Cursor: &anchor.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != b.ID {
		t.Fatalf("expected only %d, got %+v", b.ID, page.Items)
	}

	page, err = repo.List(ctx, repository.ListQuery{Limit: 1, Cursor: &anchor.ID, IncludeDeleted: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 1 || page.HasMore == nil || !*page.HasMore || page.NextCursor == nil || *page.NextCursor != a.ID {
		t.Fatalf("unexpected cursor page: %+v", page)
	}

	restored, err := repo.Restore(ctx, a.ID)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.Lifecycle.IsDeleted() {
		t.Fatalf("expected active todo after restore")
	}

	done := true
	overdue, err := repo.List(ctx, repository.ListQuery{Limit: 200, Overdue: true, Completed: &done})
	if err != nil {
		t.Fatalf("list overdue: %v", err)
	}
	found := false
	for _, it := range overdue.Items {
		if it.ID == b.ID {
			found = true
		}
		if !it.IsOverdue(time.Now()) {
			t.Fatalf("todo %d is not overdue", it.ID)
		}
	}
	if !found && overdue.Total <= 200 {
		t.Fatalf("overdue todo %d missing", b.ID)
	}
}
