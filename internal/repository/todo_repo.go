package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"todo_api/internal/db"
	"todo_api/internal/domain"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

var todoColumns = []string{"id", "title", "completed", "created_at", "due_at", "priority", "deleted_at"}

type todoRow struct {
	ID        int64          `db:"id"`
	Title     string         `db:"title"`
	Completed bool           `db:"completed"`
	CreatedAt time.Time      `db:"created_at"`
	DueAt     sql.NullTime   `db:"due_at"`
	Priority  sql.NullString `db:"priority"`
	DeletedAt sql.NullTime   `db:"deleted_at"`
}

func (r todoRow) toDomain() domain.Todo {
	t := domain.Todo{
		ID:        r.ID,
		Title:     r.Title,
		Completed: r.Completed,
		CreatedAt: r.CreatedAt.UTC(),
		Lifecycle: domain.LifecycleActive(),
	}
	if r.DueAt.Valid {
		due := r.DueAt.Time.UTC()
		t.DueAt = &due
	}
	if r.Priority.Valid {
		p := domain.Priority(r.Priority.String)
		t.Priority = &p
	}
	if r.DeletedAt.Valid {
		t.Lifecycle = domain.LifecycleDeleted(r.DeletedAt.Time)
	}
	return t
}

// NewTodo is the input of Create.
type NewTodo struct {
	Title     string
	Completed bool
	DueAt     *time.Time
	Priority  *domain.Priority
}

// Patch lists the fields an Update applies. Nil pointers and false Set*
// flags leave the stored value alone; SetDueAt/SetPriority with a nil value
// clears the column.
type Patch struct {
	Title       *string
	Completed   *bool
	SetDueAt    bool
	DueAt       *time.Time
	SetPriority bool
	Priority    *domain.Priority
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Completed == nil && !p.SetDueAt && !p.SetPriority
}

// TodoRepository runs every operation in its own transaction.
type TodoRepository struct {
	conn     *sqlx.DB
	dialect  db.Dialect
	observer ErrorObserver
	now      func() time.Time
}

func NewTodoRepository(conn *sqlx.DB, dialect db.Dialect, observer ErrorObserver) *TodoRepository {
	if observer == nil {
		observer = noopObserver{}
	}
	return &TodoRepository{
		conn:     conn,
		dialect:  dialect,
		observer: observer,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *TodoRepository) Create(ctx context.Context, in NewTodo) (domain.Todo, error) {
	var out domain.Todo
	err := r.withTx(ctx, "create", func(tx *sqlx.Tx) error {
		q, args, err := r.dialect.Builder().
			Insert(db.TodosTable).
			Columns("title", "completed", "created_at", "due_at", "priority").
			Values(in.Title, in.Completed, r.now(), nullTime(in.DueAt), nullPriority(in.Priority)).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return err
		}
		var id int64
		if err := tx.GetContext(ctx, &id, q, args...); err != nil {
			return err
		}
		out, err = r.get(ctx, tx, id)
		return err
	})
	return out, err
}

// GetByID returns the todo whatever its lifecycle.
func (r *TodoRepository) GetByID(ctx context.Context, id int64) (domain.Todo, error) {
	var out domain.Todo
	err := r.withTx(ctx, "get", func(tx *sqlx.Tx) error {
		var err error
		out, err = r.get(ctx, tx, id)
		return err
	})
	return out, err
}

func (r *TodoRepository) Update(ctx context.Context, id int64, p Patch) (domain.Todo, error) {
	var out domain.Todo
	err := r.withTx(ctx, "update", func(tx *sqlx.Tx) error {
		if !p.Empty() {
			set := map[string]any{}
			if p.Title != nil {
				set["title"] = *p.Title
			}
			if p.Completed != nil {
				set["completed"] = *p.Completed
			}
			if p.SetDueAt {
				set["due_at"] = nullTime(p.DueAt)
			}
			if p.SetPriority {
				set["priority"] = nullPriority(p.Priority)
			}
			if err := r.exec(ctx, tx, r.dialect.Builder().
				Update(db.TodosTable).
				SetMap(set).
				Where(squirrel.Eq{"id": id})); err != nil {
				return err
			}
		}
		var err error
		out, err = r.get(ctx, tx, id)
		return err
	})
	return out, err
}

// SoftDelete stamps deleted_at; calling it again moves the stamp forward.
func (r *TodoRepository) SoftDelete(ctx context.Context, id int64) error {
	return r.withTx(ctx, "delete", func(tx *sqlx.Tx) error {
		return r.exec(ctx, tx, r.dialect.Builder().
			Update(db.TodosTable).
			Set("deleted_at", r.now()).
			Where(squirrel.Eq{"id": id}))
	})
}

func (r *TodoRepository) Restore(ctx context.Context, id int64) (domain.Todo, error) {
	var out domain.Todo
	err := r.withTx(ctx, "restore", func(tx *sqlx.Tx) error {
		if err := r.exec(ctx, tx, r.dialect.Builder().
			Update(db.TodosTable).
			Set("deleted_at", nil).
			Where(squirrel.Eq{"id": id})); err != nil {
			return err
		}
		var err error
		out, err = r.get(ctx, tx, id)
		return err
	})
	return out, err
}

// Ping reports whether the store answers.
func (r *TodoRepository) Ping(ctx context.Context) error {
	return r.conn.PingContext(ctx)
}

func (r *TodoRepository) get(ctx context.Context, tx *sqlx.Tx, id int64) (domain.Todo, error) {
	q, args, err := r.dialect.Builder().
		Select(todoColumns...).
		From(db.TodosTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Todo{}, err
	}
	var row todoRow
	if err := tx.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Todo{}, ErrNotFound
		}
		return domain.Todo{}, err
	}
	return row.toDomain(), nil
}

// exec runs an UPDATE and maps "no row matched" to ErrNotFound.
func (r *TodoRepository) exec(ctx context.Context, tx *sqlx.Tx, b squirrel.UpdateBuilder) error {
	q, args, err := b.ToSql()
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// withTx runs fn in a deferred transaction. Writers issue their write
// statement first so SQLite takes the write lock before any read.
func (r *TodoRepository) withTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.conn.BeginTxx(ctx, nil)
	if err != nil {
		return r.fail(op, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return r.fail(op, err)
	}
	if err := tx.Commit(); err != nil {
		return r.fail(op, err)
	}
	return nil
}

func (r *TodoRepository) fail(op string, err error) error {
	r.observer.ObserveStoreError(op)
	return &StoreError{Op: op, Table: db.TodosTable, Err: err}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullPriority(p *domain.Priority) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*p), Valid: true}
}
