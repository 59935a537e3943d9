package search

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNilDataSource = errors.New("search data source is nil")
	ErrNilWhitelist  = errors.New("search whitelist is nil")
)

// InvalidFilterFieldError reports a request field the entity does not expose
// for filtering.
type InvalidFilterFieldError struct {
	Entity string
	Field  string
}

func (e InvalidFilterFieldError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("invalid filter field %q", e.Field)
	}
	return fmt.Sprintf("invalid filter field %q for %s", e.Field, e.Entity)
}

// InvalidFilterValueError reports a value whose shape does not match the
// declared kind of its field.
type InvalidFilterValueError struct {
	Field  string
	Kind   FilterKind
	Reason string
}

func (e InvalidFilterValueError) Error() string {
	var s strings.Builder
	s.WriteString("invalid filter value")
	if e.Field != "" {
		s.WriteString(fmt.Sprintf(" for %q", e.Field))
	}
	if e.Kind != 0 {
		s.WriteString(" (" + e.Kind.String() + ")")
	}
	if e.Reason != "" {
		s.WriteString(": " + e.Reason)
	}
	return s.String()
}

// DataSourceError wraps a failure of one of the two reads issued per search.
type DataSourceError struct {
	Op     string
	Entity string
	Err    error
}

func (e DataSourceError) Error() string {
	var s strings.Builder
	s.WriteString("data source error: ")
	if e.Op != "" {
		s.WriteString(e.Op + ": ")
	}
	if e.Entity != "" {
		s.WriteString(e.Entity + ": ")
	}
	if e.Err != nil {
		s.WriteString(e.Err.Error())
	}
	return s.String()
}

func (e DataSourceError) Unwrap() error { return e.Err }

// IsClientError reports whether err was caused by the request itself rather
// than by the backend.
func IsClientError(err error) bool {
	return errors.As(err, new(InvalidFilterFieldError)) || errors.As(err, new(InvalidFilterValueError))
}
