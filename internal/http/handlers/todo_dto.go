package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"todo_api/internal/domain"
	"todo_api/internal/service"
)

var errDueAtFormat = errors.New("due_at must be RFC3339 (2006-01-02T15:04:05Z07:00) or a date (2006-01-02)")

var dueAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// DueAt accepts a full timestamp or a bare date. Times without an offset are
// taken as UTC; a bare date means the start of that day.
type DueAt struct {
	time.Time
}

func ParseDueAt(s string) (time.Time, error) {
	for _, layout := range dueAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errDueAtFormat
}

func (d *DueAt) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errDueAtFormat
	}
	t, err := ParseDueAt(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// Optional tells an absent field from an explicit null. Set is true whenever
// the key appeared in the body.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

type CreateTodoRequest struct {
	Title     *string `json:"title"`
	Completed bool    `json:"completed"`
	DueAt     *DueAt  `json:"due_at"`
	Priority  *string `json:"priority"`
}

func (r CreateTodoRequest) input() service.CreateInput {
	in := service.CreateInput{
		Completed: r.Completed,
		Priority:  r.Priority,
	}
	if r.Title != nil {
		in.Title = *r.Title
	}
	if r.DueAt != nil {
		t := r.DueAt.Time
		in.DueAt = &t
	}
	return in
}

// UpdateTodoRequest applies only the keys present in the body; null clears
// due_at or priority.
type UpdateTodoRequest struct {
	Title     *string          `json:"title"`
	Completed *bool            `json:"completed"`
	DueAt     Optional[DueAt]  `json:"due_at"`
	Priority  Optional[string] `json:"priority"`
}

func (r UpdateTodoRequest) input() service.UpdateInput {
	in := service.UpdateInput{
		Title:       r.Title,
		Completed:   r.Completed,
		DueAtSet:    r.DueAt.Set,
		PrioritySet: r.Priority.Set,
		Priority:    r.Priority.Value,
	}
	if r.DueAt.Value != nil {
		t := r.DueAt.Value.Time
		in.DueAt = &t
	}
	return in
}

type ListTodosQuery struct {
	Limit          *int    `form:"limit"`
	Offset         *int    `form:"offset"`
	Cursor         string  `form:"cursor"`
	Completed      *bool   `form:"completed"`
	Priority       *string `form:"priority"`
	Overdue        bool    `form:"overdue"`
	SortDue        bool    `form:"sort_due"`
	IncludeDeleted bool    `form:"include_deleted"`
}

func (q ListTodosQuery) params() service.ListParams {
	return service.ListParams{
		Limit:          q.Limit,
		Offset:         q.Offset,
		Cursor:         q.Cursor,
		Completed:      q.Completed,
		Priority:       q.Priority,
		Overdue:        q.Overdue,
		SortDue:        q.SortDue,
		IncludeDeleted: q.IncludeDeleted,
	}
}

type TodoResponse struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Completed bool       `json:"completed"`
	CreatedAt time.Time  `json:"created_at"`
	DueAt     *time.Time `json:"due_at"`
	Priority  *string    `json:"priority"`
	DeletedAt *time.Time `json:"deleted_at"`
}

func NewTodoResponse(t domain.Todo) TodoResponse {
	resp := TodoResponse{
		ID:        t.ID,
		Title:     t.Title,
		Completed: t.Completed,
		CreatedAt: t.CreatedAt,
		DueAt:     t.DueAt,
		DeletedAt: t.Lifecycle.DeletedAt(),
	}
	if t.Priority != nil {
		p := string(*t.Priority)
		resp.Priority = &p
	}
	return resp
}

// ListTodosResponse keeps every key; the fields that do not apply to the
// pagination mode in use are null.
type ListTodosResponse struct {
	Items      []TodoResponse `json:"items"`
	Total      int            `json:"total"`
	Limit      int            `json:"limit"`
	Offset     *int           `json:"offset"`
	NextCursor *string        `json:"next_cursor"`
	HasMore    *bool          `json:"has_more"`
}

func NewListTodosResponse(res service.ListResult) ListTodosResponse {
	items := make([]TodoResponse, 0, len(res.Items))
	for _, t := range res.Items {
		items = append(items, NewTodoResponse(t))
	}
	return ListTodosResponse{
		Items:      items,
		Total:      res.Total,
		Limit:      res.Limit,
		Offset:     res.Offset,
		NextCursor: res.NextCursor,
		HasMore:    res.HasMore,
	}
}
