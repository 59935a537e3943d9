package task

import (
	"errors"

	"github.com/goto/sift/core/search"
)

const EntityName = "tasks"

var (
	Statuses   = []string{"todo", "in_progress", "review", "done"}
	Priorities = []string{"low", "medium", "high", "urgent"}
)

// Task is the searchable projection of a task.
type Task struct {
	ID            string   `json:"id" db:"id"`
	ProjectID     *string  `json:"project_id,omitempty" db:"project_id"`
	AssigneeID    *string  `json:"assignee_id,omitempty" db:"assignee_id"`
	Title         *string  `json:"title,omitempty" db:"title"`
	Description   *string  `json:"description,omitempty" db:"description"`
	Status        *string  `json:"status,omitempty" db:"status"`
	Priority      *string  `json:"priority,omitempty" db:"priority"`
	EstimateHours *float64 `json:"estimate_hours,omitempty" db:"estimate_hours"`
	DueDate       *string  `json:"due_date,omitempty" db:"due_date"`
	CreatedAt     *string  `json:"created_at,omitempty" db:"created_at"`
}

var Whitelist = search.MustWhitelist(EntityName,
	search.UUID("project_id"),
	search.UUID("assignee_id"),
	search.Contains("title").AsSearchable().AsSortable(),
	search.Contains("description").AsSearchable(),
	search.Enum("status", Statuses...),
	search.Enum("priority", Priorities...).AsSortable(),
	search.NumberRange("estimate_hours").AsSortable(),
	search.DateRange("due_date").AsSortable(),
	search.SortOnly("created_at"),
)

var Columns = []string{
	"id", "project_id", "assignee_id", "title", "description",
	"status", "priority", "estimate_hours", "due_date", "created_at",
}

var Entity = search.Entity[Task]{
	Name:        EntityName,
	Table:       "tasks",
	Key:         "id",
	Columns:     Columns,
	Whitelist:   Whitelist,
	DefaultSort: search.SortKey{Field: "created_at", Direction: search.Descending},
	MapRow:      FromRow,
	Scope:       []search.Predicate{search.IsNull("deleted_at")},
}

var ErrMissingID = errors.New("task row has no id")

func FromRow(r search.Row) (Task, error) {
	id := r.String("id")
	if id == nil {
		return Task{}, ErrMissingID
	}
	return Task{
		ID:            *id,
		ProjectID:     r.String("project_id"),
		AssigneeID:    r.String("assignee_id"),
		Title:         r.String("title"),
		Description:   r.String("description"),
		Status:        r.String("status"),
		Priority:      r.String("priority"),
		EstimateHours: r.Float("estimate_hours"),
		DueDate:       r.Time("due_date"),
		CreatedAt:     r.Time("created_at"),
	}, nil
}

func NewSearcher(ds search.DataSource, opts ...search.SearcherOption) (*search.Searcher[Task], error) {
	return search.NewSearcher(Entity, ds, opts...)
}
