package repository

import (
	"context"
	"time"

	"todo_api/internal/db"
	"todo_api/internal/domain"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// ListQuery is an already validated list request. Cursor and SortDue are
// mutually exclusive.
type ListQuery struct {
	Limit          int
	Offset         int
	Cursor         *int64
	Completed      *bool
	Priority       *string
	Overdue        bool
	SortDue        bool
	IncludeDeleted bool
	// Now is the reference time for Overdue; zero means the current time.
	Now time.Time
}

// Page is one page of todos. Offset is set in offset mode; NextCursor and
// HasMore are set in cursor mode.
type Page struct {
	Items      []domain.Todo
	Total      int
	Limit      int
	Offset     *int
	NextCursor *int64
	HasMore    *bool
}

// List counts the filtered rows and fetches one page of them inside a single
// transaction.
func (r *TodoRepository) List(ctx context.Context, q ListQuery) (Page, error) {
	if q.Now.IsZero() {
		q.Now = r.now()
	}
	where := filters(q)

	var page Page
	err := r.withTx(ctx, "list", func(tx *sqlx.Tx) error {
		total, err := r.count(ctx, tx, where)
		if err != nil {
			return err
		}

		sel := r.dialect.Builder().Select(todoColumns...).From(db.TodosTable)
		if len(where) > 0 {
			sel = sel.Where(where)
		}

		if q.Cursor != nil {
			sel = sel.Where(squirrel.Gt{"id": *q.Cursor}).
				OrderBy("id ASC").
				Limit(uint64(q.Limit) + 1)
		} else {
			if q.SortDue {
				sel = sel.OrderBy("due_at IS NULL", "due_at ASC", "id ASC")
			} else {
				sel = sel.OrderBy("id ASC")
			}
			sel = sel.Limit(uint64(q.Limit)).Offset(uint64(q.Offset))
		}

		items, err := r.selectTodos(ctx, tx, sel)
		if err != nil {
			return err
		}

		page = Page{Total: total, Limit: q.Limit}
		if q.Cursor != nil {
			hasMore := len(items) > q.Limit
			if hasMore {
				items = items[:q.Limit]
				next := items[len(items)-1].ID
				page.NextCursor = &next
			}
			page.HasMore = &hasMore
		} else {
			offset := q.Offset
			page.Offset = &offset
		}
		page.Items = items
		return nil
	})
	return page, err
}

// filters ANDs every requested predicate.
func filters(q ListQuery) squirrel.And {
	where := squirrel.And{}
	if q.Completed != nil {
		where = append(where, squirrel.Eq{"completed": *q.Completed})
	}
	if q.Priority != nil {
		where = append(where, squirrel.Eq{"priority": *q.Priority})
	}
	if q.Overdue {
		where = append(where,
			squirrel.NotEq{"due_at": nil},
			squirrel.Lt{"due_at": q.Now.UTC()},
		)
	}
	if !q.IncludeDeleted {
		where = append(where, squirrel.Eq{"deleted_at": nil})
	}
	return where
}

func (r *TodoRepository) count(ctx context.Context, tx *sqlx.Tx, where squirrel.And) (int, error) {
	b := r.dialect.Builder().Select("COUNT(*)").From(db.TodosTable)
	if len(where) > 0 {
		b = b.Where(where)
	}
	q, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := tx.GetContext(ctx, &n, q, args...); err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *TodoRepository) selectTodos(ctx context.Context, tx *sqlx.Tx, b squirrel.SelectBuilder) ([]domain.Todo, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	var rows []todoRow
	if err := tx.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	items := make([]domain.Todo, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toDomain())
	}
	return items, nil
}
