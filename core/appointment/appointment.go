package appointment

import (
	"errors"

	"github.com/goto/sift/core/search"
)

const (
	EntityName = "appointments"

	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

// Appointment is the summary returned by appointment searches. Absent values
// are omitted rather than serialized as null.
type Appointment struct {
	ID          string  `json:"id" db:"id"`
	PatientID   *string `json:"patient_id,omitempty" db:"patient_id"`
	ProviderID  *string `json:"provider_id,omitempty" db:"provider_id"`
	Status      *string `json:"status,omitempty" db:"status"`
	Reason      *string `json:"reason,omitempty" db:"reason"`
	Location    *string `json:"location,omitempty" db:"location"`
	ScheduledAt *string `json:"scheduled_at,omitempty" db:"scheduled_at"`
	CreatedAt   *string `json:"created_at,omitempty" db:"created_at"`
}

var Whitelist = search.MustWhitelist(EntityName,
	search.UUID("patient_id"),
	search.UUID("provider_id"),
	search.Enum("status", StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow).AsSortable(),
	search.Contains("reason").AsSearchable(),
	search.Exact("location"),
	search.DateRange("scheduled_at").AsSortable(),
	search.DateRange("created_at").AsSortable(),
)

// Columns are the only columns read for a summary.
var Columns = []string{"id", "patient_id", "provider_id", "status", "reason", "location", "scheduled_at", "created_at"}

var Entity = search.Entity[Appointment]{
	Name:        EntityName,
	Table:       "appointments",
	Key:         "id",
	Columns:     Columns,
	Whitelist:   Whitelist,
	DefaultSort: search.SortKey{Field: "scheduled_at", Direction: search.Descending},
	MapRow:      FromRow,
	Scope:       []search.Predicate{search.IsNull("deleted_at")},
}

var ErrMissingID = errors.New("appointment row has no id")

func FromRow(r search.Row) (Appointment, error) {
	id := r.String("id")
	if id == nil {
		return Appointment{}, ErrMissingID
	}
	return Appointment{
		ID:          *id,
		PatientID:   r.String("patient_id"),
		ProviderID:  r.String("provider_id"),
		Status:      r.String("status"),
		Reason:      r.String("reason"),
		Location:    r.String("location"),
		ScheduledAt: r.Time("scheduled_at"),
		CreatedAt:   r.Time("created_at"),
	}, nil
}

func NewSearcher(ds search.DataSource, opts ...search.SearcherOption) (*search.Searcher[Appointment], error) {
	return search.NewSearcher(Entity, ds, opts...)
}
