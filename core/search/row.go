package search

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// TimeLayout is the single serialization of every date-time in a summary.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Row is one record as returned by a DataSource, keyed by column name.
type Row map[string]interface{}

// NormalizeTime renders t in UTC with millisecond precision.
func NormalizeTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// The accessors below return nil when the column is missing or NULL, which
// summaries turn into an absent key through omitempty.

func (r Row) String(col string) *string {
	switch v := r[col].(type) {
	case nil:
		return nil
	case string:
		return &v
	case []byte:
		s := string(v)
		return &s
	case [16]byte:
		s := uuid.UUID(v).String()
		return &s
	case fmt.Stringer:
		s := v.String()
		return &s
	default:
		s := fmt.Sprint(v)
		return &s
	}
}

func (r Row) Time(col string) *string {
	switch v := r[col].(type) {
	case time.Time:
		s := NormalizeTime(v)
		return &s
	case *time.Time:
		if v == nil {
			return nil
		}
		s := NormalizeTime(*v)
		return &s
	case string:
		t, err := parseStoredTime(v)
		if err != nil {
			return nil
		}
		s := NormalizeTime(t)
		return &s
	case []byte:
		t, err := parseStoredTime(string(v))
		if err != nil {
			return nil
		}
		s := NormalizeTime(t)
		return &s
	}
	return nil
}

func (r Row) Int(col string) *int64 {
	var n int64
	switch v := r[col].(type) {
	case int64:
		n = v
	case int32:
		n = int64(v)
	case int:
		n = int64(v)
	case float64:
		n = int64(v)
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return nil
		}
		n = i
	case string:
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil
		}
		n = i
	case []byte:
		i, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return nil
		}
		n = i
	default:
		return nil
	}
	return &n
}

func (r Row) Float(col string) *float64 {
	var f float64
	switch v := r[col].(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int64:
		f = float64(v)
	case int32:
		f = float64(v)
	case int:
		f = float64(v)
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return nil
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil
		}
		f = n
	case []byte:
		n, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return nil
		}
		f = n
	default:
		return nil
	}
	return &f
}

var storedTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func parseStoredTime(s string) (time.Time, error) {
	for _, layout := range storedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
