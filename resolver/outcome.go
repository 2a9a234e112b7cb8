package resolver

import "fmt"

// Status is the tag of an Outcome.
type Status int

const (
	StatusNotFound Status = iota
	StatusFound
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusFailed:
		return "failed"
	default:
		return "not found"
	}
}

// Outcome is the result of a resolution: a value, nothing, or a hard
// failure. Not finding something is never an error by itself.
type Outcome[T any] struct {
	status   Status
	value    T
	err      error
	rejected []Rejection
}

// Found returns a successful outcome.
func Found[T any](value T) Outcome[T] {
	return Outcome[T]{status: StatusFound, value: value}
}

// NotFound returns an empty outcome, optionally reporting the candidates
// that were considered and rejected.
func NotFound[T any](rejected ...Rejection) Outcome[T] {
	return Outcome[T]{status: StatusNotFound, rejected: rejected}
}

// Failed returns a failed outcome.
func Failed[T any](err error) Outcome[T] {
	return Outcome[T]{status: StatusFailed, err: err}
}

func (o Outcome[T]) Status() Status { return o.status }

func (o Outcome[T]) IsFound() bool { return o.status == StatusFound }

func (o Outcome[T]) IsNotFound() bool { return o.status == StatusNotFound }

// Value returns the value of a found outcome.
func (o Outcome[T]) Value() (T, bool) {
	return o.value, o.status == StatusFound
}

// Err returns the failure of a failed outcome.
func (o Outcome[T]) Err() error {
	return o.err
}

// Rejected returns the rejected candidates of a not found outcome.
func (o Outcome[T]) Rejected() []Rejection {
	return o.rejected
}

// Get returns the value, whether it was found, and the failure.
func (o Outcome[T]) Get() (T, bool, error) {
	return o.value, o.status == StatusFound, o.err
}

func (o Outcome[T]) String() string {
	switch o.status {
	case StatusFound:
		return fmt.Sprintf("found %v", o.value)
	case StatusFailed:
		return "failed: " + o.err.Error()
	default:
		return "not found"
	}
}

// Reason explains why a dynamic candidate was skipped.
type Reason string

const (
	ReasonMatcher            Reason = "rejected by version matcher"
	ReasonUnreachable        Reason = "unreachable"
	ReasonTooYoung           Reason = "too young"
	ReasonNoDescriptor       Reason = "impossible to get module descriptor resource"
	ReasonDefaultDescriptor  Reason = "no module descriptor available"
	ReasonDescriptorRejected Reason = "md rejected by version matcher"
)

// Rejection records a skipped candidate.
type Rejection struct {
	Version  string
	Reason   Reason
	Resource string
}

func (r Rejection) String() string {
	if r.Resource == "" {
		return fmt.Sprintf("%s: %s", r.Version, r.Reason)
	}
	return fmt.Sprintf("%s [%s]: %s", r.Version, r.Resource, r.Reason)
}
