package descriptor

import (
	"slices"
)

// Default statuses ordered from most to least mature.
const (
	StatusRelease     = "release"
	StatusMilestone   = "milestone"
	StatusIntegration = "integration"
)

// StatusManager knows the recognized statuses and their maturity.
type StatusManager struct {
	statuses []string
}

// DefaultStatusManager recognizes release, milestone and integration.
var DefaultStatusManager = NewStatusManager(StatusRelease, StatusMilestone, StatusIntegration)

// NewStatusManager creates a manager. Statuses are ordered from most to
// least mature.
func NewStatusManager(statuses ...string) *StatusManager {
	return &StatusManager{statuses: slices.Clone(statuses)}
}

// IsStatus reports whether the status is recognized.
func (m *StatusManager) IsStatus(status string) bool {
	return slices.Contains(m.statuses, status)
}

// Priority returns the rank of a status, lower is more mature. Unknown
// statuses rank below all known ones.
func (m *StatusManager) Priority(status string) int {
	if i := slices.Index(m.statuses, status); i >= 0 {
		return i
	}
	return len(m.statuses)
}

// Lowest returns the least mature status.
func (m *StatusManager) Lowest() string {
	if len(m.statuses) == 0 {
		return ""
	}
	return m.statuses[len(m.statuses)-1]
}

// Statuses returns the recognized statuses.
func (m *StatusManager) Statuses() []string {
	return slices.Clone(m.statuses)
}
