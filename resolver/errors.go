package resolver

import (
	"errors"
	"fmt"
	"strings"

	"ocm.software/open-component-model/artifactresolver/descriptor"
)

var (
	// ErrUnsupportedConfiguration marks operations the resolver is not
	// configured for, e.g. publishing with checksums.
	ErrUnsupportedConfiguration = errors.New("unsupported resolver configuration")
	// ErrInconsistentDescriptor marks descriptors whose identity does not
	// match the request.
	ErrInconsistentDescriptor = errors.New("inconsistent module descriptor")
)

// ConsistencyError lists every mismatch between a request and the
// descriptor found for it.
type ConsistencyError struct {
	Resource   string
	Mismatches []string
}

func (e *ConsistencyError) Error() string {
	var b strings.Builder
	for _, m := range e.Mismatches {
		b.WriteString(m)
		b.WriteString("; ")
	}
	return fmt.Sprintf("inconsistent module descriptor file found in '%s': %s", e.Resource, b.String())
}

func (e *ConsistencyError) Unwrap() []error {
	return []error{ErrInconsistentDescriptor, descriptor.ErrParse}
}

// ResolveError adds the operation, module and repository to a hard
// resolution failure.
type ResolveError struct {
	Op         string
	Module     string
	Repository string
	Err        error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("%s: unable to %s %s: %v", e.Repository, e.Op, e.Module, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}
