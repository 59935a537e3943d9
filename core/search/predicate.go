package search

type Operator string

const (
	OpEq           Operator = "eq"
	OpIn           Operator = "in"
	OpContains     Operator = "contains"
	OpContainsFold Operator = "icontains"
	OpGTE          Operator = "gte"
	OpLTE          Operator = "lte"
	OpIsNull       Operator = "isnull"
)

// Predicate is a single resolved constraint. Value is a string, float64 or
// time.Time for scalar operators, a []string for OpIn and nil for OpIsNull.
type Predicate struct {
	Field  string
	Column string
	Op     Operator
	Value  interface{}
}

// TextMatch is a free-text term matched against any of Columns.
type TextMatch struct {
	Columns []string
	Term    string
	Fold    bool
}

// PredicateTree is the conjunction of Predicates (and Text, if set). It is
// owned by the request that compiled it.
type PredicateTree struct {
	Predicates []Predicate
	Text       *TextMatch
}

// IsNull is a scope predicate matching rows where column holds no value.
func IsNull(column string) Predicate {
	return Predicate{Field: column, Column: column, Op: OpIsNull}
}
