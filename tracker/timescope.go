package tracker

import (
	"errors"
	"net/url"
	"time"
)

// Errors returned by scope parsing and scoped queries. Handlers map both to
// 400 responses with no body.
var (
	ErrInvalidTimeScope = errors.New("invalid time scope")
	ErrRangeUnsupported = errors.New("range scope not supported for all-project stats")
)

// ScopeKind selects one of the four time scope variants.
type ScopeKind int

const (
	ScopeDate ScopeKind = iota
	ScopeMonth
	ScopeYear
	ScopeRange
)

// TimeScope restricts an aggregate query to a calendar window. The variants
// are mutually exclusive: Value carries the day, month, or year string, and
// Start/End are set only for ScopeRange. A nil *TimeScope means all time.
type TimeScope struct {
	Kind  ScopeKind
	Value string // ScopeDate: YYYY-MM-DD, ScopeMonth: YYYY-MM, ScopeYear: YYYY
	Start string // ScopeRange: YYYY-MM-DD, inclusive
	End   string // ScopeRange: YYYY-MM-DD, inclusive
}

// ParseTimeScope selects a scope variant from query parameters by field
// presence: date, then month, then year, then the start_date/end_date pair.
// The parameters are not self-describing, so this precedence order is the
// documented tie-break when a client sends more than one. No scope
// parameters at all yields (nil, nil). A lone start_date or end_date, or
// any value that fails its format check, returns ErrInvalidTimeScope.
func ParseTimeScope(params url.Values) (*TimeScope, error) {
	if date := params.Get("date"); date != "" {
		if !validDate(date) {
			return nil, ErrInvalidTimeScope
		}
		return &TimeScope{Kind: ScopeDate, Value: date}, nil
	}
	if month := params.Get("month"); month != "" {
		if _, err := time.Parse("2006-01", month); err != nil {
			return nil, ErrInvalidTimeScope
		}
		return &TimeScope{Kind: ScopeMonth, Value: month}, nil
	}
	if year := params.Get("year"); year != "" {
		if _, err := time.Parse("2006", year); err != nil {
			return nil, ErrInvalidTimeScope
		}
		return &TimeScope{Kind: ScopeYear, Value: year}, nil
	}
	start, end := params.Get("start_date"), params.Get("end_date")
	if start == "" && end == "" {
		return nil, nil
	}
	if !validDate(start) || !validDate(end) {
		return nil, ErrInvalidTimeScope
	}
	return &TimeScope{Kind: ScopeRange, Start: start, End: end}, nil
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// condition returns the SQL predicate and bind arguments that restrict a
// query on the visits table to this scope.
func (ts *TimeScope) condition() (string, []any) {
	switch ts.Kind {
	case ScopeDate:
		return "DATE(created_at) = ?", []any{ts.Value}
	case ScopeMonth:
		return "strftime('%Y-%m', created_at) = ?", []any{ts.Value}
	case ScopeYear:
		return "strftime('%Y', created_at) = ?", []any{ts.Value}
	default:
		return "DATE(created_at) BETWEEN ? AND ?", []any{ts.Start, ts.End}
	}
}
