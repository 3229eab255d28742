package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"todo_api/internal/domain"
	"todo_api/internal/logger"
	"todo_api/internal/repository"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

var ErrNotFound = errors.New("todo not found")

// ValidationError is a client mistake detected before the store is touched.
// Message is returned to the caller verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// TodoStore is the persistence the service needs.
type TodoStore interface {
	Create(ctx context.Context, in repository.NewTodo) (domain.Todo, error)
	GetByID(ctx context.Context, id int64) (domain.Todo, error)
	Update(ctx context.Context, id int64, p repository.Patch) (domain.Todo, error)
	SoftDelete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) (domain.Todo, error)
	List(ctx context.Context, q repository.ListQuery) (repository.Page, error)
	Ping(ctx context.Context) error
}

// ListParams are the raw list options. Nil Limit/Offset take the defaults;
// an empty Cursor means offset mode.
type ListParams struct {
	Limit          *int
	Offset         *int
	Cursor         string
	Completed      *bool
	Priority       *string
	Overdue        bool
	SortDue        bool
	IncludeDeleted bool
}

// ListResult mirrors repository.Page with the cursor in its wire form.
type ListResult struct {
	Items      []domain.Todo
	Total      int
	Limit      int
	Offset     *int
	NextCursor *string
	HasMore    *bool
}

type CreateInput struct {
	Title     string
	Completed bool
	DueAt     *time.Time
	Priority  *string
}

// UpdateInput carries only the fields the caller sent. DueAtSet and
// PrioritySet distinguish "clear" (set, nil value) from "leave alone".
type UpdateInput struct {
	Title       *string
	Completed   *bool
	DueAtSet    bool
	DueAt       *time.Time
	PrioritySet bool
	Priority    *string
}

type TodoService struct {
	store TodoStore
	now   func() time.Time
}

func NewTodoService(store TodoStore) *TodoService {
	return &TodoService{
		store: store,
		now:   time.Now,
	}
}

// ParseCursor decodes the opaque cursor handed out as next_cursor.
func ParseCursor(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, invalid("invalid cursor")
	}
	return id, nil
}

func FormatCursor(id int64) string {
	return strconv.FormatInt(id, 10)
}

// BuildListQuery validates p and turns it into a repository query. Checks run
// in a fixed order so that the first violated rule is the one reported.
func BuildListQuery(p ListParams) (repository.ListQuery, error) {
	limit := DefaultLimit
	if p.Limit != nil {
		limit = *p.Limit
	}
	offset := 0
	if p.Offset != nil {
		offset = *p.Offset
	}

	switch {
	case limit < 1:
		return repository.ListQuery{}, invalid("limit must be >= 1")
	case limit > MaxLimit:
		return repository.ListQuery{}, invalid("limit must be <= 200")
	case offset < 0:
		return repository.ListQuery{}, invalid("offset must be >= 0")
	case p.Cursor != "" && p.SortDue:
		return repository.ListQuery{}, invalid("cursor is incompatible with sort_due")
	}

	q := repository.ListQuery{
		Limit:          limit,
		Offset:         offset,
		Completed:      p.Completed,
		Priority:       p.Priority,
		Overdue:        p.Overdue,
		SortDue:        p.SortDue,
		IncludeDeleted: p.IncludeDeleted,
	}
	if p.Cursor != "" {
		id, err := ParseCursor(p.Cursor)
		if err != nil {
			return repository.ListQuery{}, err
		}
		q.Cursor = &id
	}
	return q, nil
}

func (s *TodoService) List(ctx context.Context, p ListParams) (ListResult, error) {
	q, err := BuildListQuery(p)
	if err != nil {
		return ListResult{}, err
	}
	q.Now = s.now().UTC()

	page, err := s.store.List(ctx, q)
	if err != nil {
		return ListResult{}, s.storeFailure(ctx, "list", err)
	}

	res := ListResult{
		Items:   page.Items,
		Total:   page.Total,
		Limit:   page.Limit,
		Offset:  page.Offset,
		HasMore: page.HasMore,
	}
	if page.NextCursor != nil {
		c := FormatCursor(*page.NextCursor)
		res.NextCursor = &c
	}
	return res, nil
}

func (s *TodoService) Create(ctx context.Context, in CreateInput) (domain.Todo, error) {
	title, ok := domain.NormalizeTitle(in.Title)
	if !ok {
		return domain.Todo{}, invalid(titleMessage)
	}
	prio, err := parsePriority(in.Priority)
	if err != nil {
		return domain.Todo{}, err
	}

	todo, err := s.store.Create(ctx, repository.NewTodo{
		Title:     title,
		Completed: in.Completed,
		DueAt:     in.DueAt,
		Priority:  prio,
	})
	if err != nil {
		return domain.Todo{}, s.storeFailure(ctx, "create", err)
	}
	logger.WithContext(ctx).Info("todo created", "todo_id", todo.ID)
	return todo, nil
}

func (s *TodoService) Get(ctx context.Context, id int64) (domain.Todo, error) {
	todo, err := s.store.GetByID(ctx, id)
	if err != nil {
		return domain.Todo{}, s.storeFailure(ctx, "get", err)
	}
	return todo, nil
}

func (s *TodoService) Update(ctx context.Context, id int64, in UpdateInput) (domain.Todo, error) {
	var patch repository.Patch
	if in.Title != nil {
		title, ok := domain.NormalizeTitle(*in.Title)
		if !ok {
			return domain.Todo{}, invalid(titleMessage)
		}
		patch.Title = &title
	}
	patch.Completed = in.Completed
	if in.DueAtSet {
		patch.SetDueAt = true
		patch.DueAt = in.DueAt
	}
	if in.PrioritySet {
		prio, err := parsePriority(in.Priority)
		if err != nil {
			return domain.Todo{}, err
		}
		patch.SetPriority = true
		patch.Priority = prio
	}

	todo, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return domain.Todo{}, s.storeFailure(ctx, "update", err)
	}
	return todo, nil
}

func (s *TodoService) Delete(ctx context.Context, id int64) error {
	if err := s.store.SoftDelete(ctx, id); err != nil {
		return s.storeFailure(ctx, "delete", err)
	}
	logger.WithContext(ctx).Info("todo deleted", "todo_id", id)
	return nil
}

func (s *TodoService) Restore(ctx context.Context, id int64) (domain.Todo, error) {
	todo, err := s.store.Restore(ctx, id)
	if err != nil {
		return domain.Todo{}, s.storeFailure(ctx, "restore", err)
	}
	logger.WithContext(ctx).Info("todo restored", "todo_id", id)
	return todo, nil
}

// Ping reports whether the store is reachable.
func (s *TodoService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

const titleMessage = "title must be between 1 and 200 characters"

func parsePriority(raw *string) (*domain.Priority, error) {
	if raw == nil {
		return nil, nil
	}
	p := domain.Priority(*raw)
	if !p.Valid() {
		return nil, invalid("priority must be one of low, medium, high")
	}
	return &p, nil
}

// storeFailure maps a missing row to ErrNotFound and logs anything else.
// Store errors are returned unchanged.
func (s *TodoService) storeFailure(ctx context.Context, op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	logger.WithContext(ctx).Error("todo store failure", "op", op, "error", err)
	return err
}
