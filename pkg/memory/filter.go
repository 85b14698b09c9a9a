package memory

import "time"

// Scope selects which memory tier(s) a search runs against.
type Scope string

const (
	ScopeShortTerm Scope = "short-term"
	ScopeLongTerm  Scope = "long-term"
	ScopeBoth      Scope = "both"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	switch s {
	case ScopeShortTerm, ScopeLongTerm, ScopeBoth:
		return true
	}
	return false
}

// Filter describes one search request. All predicates are
// conjunctive; absent fields do not constrain the result. An empty Filter
// matches every record up to the engine's default cap.
type Filter struct {
	// Query is an optional case-insensitive substring matched against
	// message content (short-term) or summary/key-insights (long-term).
	Query string

	// Topics is an optional set of case-insensitive substrings; a
	// long-term entry matches when ANY requested topic is a substring of
	// one of its stored topics ("db" matches a stored "database").
	// Short-term records carry no topics and ignore this predicate.
	Topics []string

	// StartTime and EndTime are optional inclusive bounds. Out-of-order
	// bounds are not an error; they simply match nothing.
	StartTime *time.Time
	EndTime   *time.Time

	// Limit caps the ordered result. Zero means the engine default.
	Limit int

	// Scope selects the tier(s); the zero value is treated as ScopeBoth.
	Scope Scope
}
