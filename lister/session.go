// Package lister enumerates the versions of a module available in a
// repository.
package lister

import (
	"context"
	"errors"
	"strings"

	"ocm.software/open-component-model/artifactresolver/coordinate"
	"ocm.software/open-component-model/artifactresolver/transport"
	"ocm.software/open-component-model/artifactresolver/version"
)

type listing struct {
	entries []string
	err     error
}

// Session is the state of one version listing of one module. Directory
// listings and visited metadata locations are memoized for the lifetime of
// the session only. A Session is not safe for concurrent use.
type Session struct {
	Module   coordinate.ModuleID
	Versions *version.List

	repo     transport.Repository
	listings map[string]listing
	visited  map[string]struct{}
}

// NewSession starts a listing of module against repo.
func NewSession(repo transport.Repository, module coordinate.ModuleID) *Session {
	return &Session{
		Module:   module,
		Versions: version.NewList(),
		repo:     repo,
		listings: map[string]listing{},
		visited:  map[string]struct{}{},
	}
}

// Repository returns the repository being listed.
func (s *Session) Repository() transport.Repository {
	return s.repo
}

// List returns the entries of dir, listing it at most once per session.
func (s *Session) List(ctx context.Context, dir string) ([]string, error) {
	key := strings.TrimSuffix(dir, "/")
	if l, ok := s.listings[key]; ok {
		return l.entries, l.err
	}
	entries, err := s.repo.List(ctx, dir)
	if err != nil && !errors.Is(err, transport.ErrNotFound) {
		// hard failures are not memoized, a later pattern may retry
		return nil, err
	}
	s.listings[key] = listing{entries: entries, err: err}
	return entries, err
}

// Visit marks a location as searched. It returns false if the location was
// already searched in this session.
func (s *Session) Visit(location string) bool {
	if _, ok := s.visited[location]; ok {
		return false
	}
	s.visited[location] = struct{}{}
	return true
}
