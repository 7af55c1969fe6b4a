package models

// Outcome describes how an optional enrichment lookup ended.
type Outcome int

const (
	// OutcomeUnavailable means the lookup failed or was not attempted.
	OutcomeUnavailable Outcome = iota
	// OutcomeFetched means the lookup succeeded and returned data.
	OutcomeFetched
	// OutcomeEmpty means the lookup succeeded but there was nothing to return.
	OutcomeEmpty
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFetched:
		return "fetched"
	case OutcomeEmpty:
		return "empty"
	default:
		return "unavailable"
	}
}

// Result wraps an optional enrichment value so "no data" and "fetch failed"
// are never conflated. The zero value is unavailable.
type Result[T any] struct {
	Value   T
	Outcome Outcome
	Err     error
}

// Fetched wraps a successfully fetched value.
func Fetched[T any](v T) Result[T] {
	return Result[T]{Value: v, Outcome: OutcomeFetched}
}

// Empty records a successful lookup that produced nothing.
func Empty[T any]() Result[T] {
	return Result[T]{Outcome: OutcomeEmpty}
}

// Unavailable records a failed lookup. err may be nil when the lookup was skipped.
func Unavailable[T any](err error) Result[T] {
	return Result[T]{Outcome: OutcomeUnavailable, Err: err}
}

// Get returns the value and whether the lookup succeeded (fetched or empty).
func (r Result[T]) Get() (T, bool) {
	return r.Value, r.Outcome != OutcomeUnavailable
}

// Available reports whether the lookup succeeded.
func (r Result[T]) Available() bool {
	return r.Outcome != OutcomeUnavailable
}
