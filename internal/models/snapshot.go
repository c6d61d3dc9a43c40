package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// SnapshotKey builds the composite cache key for one course/assignment pair.
func SnapshotKey(courseID, assignmentID int64) string {
	return fmt.Sprintf("%d_%d", courseID, assignmentID)
}

// GradeSnapshot is the last-observed submission for one assignment, persisted
// so grade changes survive restarts. The full submission JSON is kept
// alongside the fields the monitor compares on.
type GradeSnapshot struct {
	CacheKey      string          `json:"cache_key"`
	CourseID      int64           `json:"course_id"`
	AssignmentID  int64           `json:"assignment_id"`
	Score         *float64        `json:"score"`
	WorkflowState string          `json:"workflow_state"`
	Submission    json.RawMessage `json:"submission"`
	CheckedAt     time.Time       `json:"checked_at"`
}

// NewGradeSnapshot captures the current submission state for caching.
func NewGradeSnapshot(courseID, assignmentID int64, sub *Submission) *GradeSnapshot {
	raw, err := json.Marshal(sub)
	if err != nil {
		raw = json.RawMessage("{}")
	}
	return &GradeSnapshot{
		CacheKey:      SnapshotKey(courseID, assignmentID),
		CourseID:      courseID,
		AssignmentID:  assignmentID,
		Score:         sub.Score,
		WorkflowState: sub.WorkflowState,
		Submission:    raw,
		CheckedAt:     time.Now().UTC(),
	}
}

// SameScore reports whether the cached score equals the given one. Both
// being unrecorded counts as equal.
func (s *GradeSnapshot) SameScore(score *float64) bool {
	if s.Score == nil || score == nil {
		return s.Score == nil && score == nil
	}
	return *s.Score == *score
}
