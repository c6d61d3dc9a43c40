package models

import "time"

// Grade event kinds, used as the routing key when publishing.
const (
	EventGradeNew     = "grade.new"
	EventGradeChanged = "grade.changed"
)

// GradeEvent is published to the message broker whenever the monitor
// observes a new or changed grade.
type GradeEvent struct {
	ID              string    `json:"id"`
	Kind            string    `json:"kind"`
	CourseID        int64     `json:"course_id"`
	CourseName      string    `json:"course_name,omitempty"`
	AssignmentID    int64     `json:"assignment_id"`
	AssignmentName  string    `json:"assignment_name,omitempty"`
	PreviousScore   *float64  `json:"previous_score,omitempty"`
	Score           *float64  `json:"score"`
	HasDiscrepancy  bool      `json:"has_discrepancy"`
	ScoreDifference float64   `json:"score_difference,omitempty"`
	DetectedAt      time.Time `json:"detected_at"`
}
