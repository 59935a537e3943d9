package candidate

import (
	"errors"

	"github.com/goto/sift/core/search"
)

const EntityName = "candidates"

var (
	Stages  = []string{"applied", "screening", "interview", "offer", "hired", "rejected"}
	Sources = []string{"referral", "job_board", "career_site", "agency", "sourced"}
)

// Candidate is an applicant as exposed to pipeline searches. Resume tokens and
// recruiter notes stay in storage.
type Candidate struct {
	ID              string  `json:"id" db:"id"`
	JobPostingID    *string `json:"job_posting_id,omitempty" db:"job_posting_id"`
	Name            *string `json:"name,omitempty" db:"name"`
	Email           *string `json:"email,omitempty" db:"email"`
	Stage           *string `json:"stage,omitempty" db:"stage"`
	Source          *string `json:"source,omitempty" db:"source"`
	YearsExperience *int64  `json:"years_experience,omitempty" db:"years_experience"`
	AppliedAt       *string `json:"applied_at,omitempty" db:"applied_at"`
}

var Whitelist = search.MustWhitelist(EntityName,
	search.UUID("job_posting_id"),
	search.Contains("name").AsSearchable().AsSortable(),
	search.Exact("email"),
	search.Enum("stage", Stages...),
	search.Enum("source", Sources...),
	search.NumberRange("years_experience").AsSortable(),
	search.DateRange("applied_at").AsSortable(),
)

var Columns = []string{"id", "job_posting_id", "name", "email", "stage", "source", "years_experience", "applied_at"}

var Entity = search.Entity[Candidate]{
	Name:        EntityName,
	Table:       "candidates",
	Key:         "id",
	Columns:     Columns,
	Whitelist:   Whitelist,
	DefaultSort: search.SortKey{Field: "applied_at", Direction: search.Descending},
	MapRow:      FromRow,
	Scope:       []search.Predicate{search.IsNull("deleted_at")},
}

var ErrMissingID = errors.New("candidate row has no id")

func FromRow(r search.Row) (Candidate, error) {
	id := r.String("id")
	if id == nil {
		return Candidate{}, ErrMissingID
	}
	return Candidate{
		ID:              *id,
		JobPostingID:    r.String("job_posting_id"),
		Name:            r.String("name"),
		Email:           r.String("email"),
		Stage:           r.String("stage"),
		Source:          r.String("source"),
		YearsExperience: r.Int("years_experience"),
		AppliedAt:       r.Time("applied_at"),
	}, nil
}

func NewSearcher(ds search.DataSource, opts ...search.SearcherOption) (*search.Searcher[Candidate], error) {
	return search.NewSearcher(Entity, ds, opts...)
}
