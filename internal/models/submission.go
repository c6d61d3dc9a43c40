package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// Workflow states Canvas reports on submissions. Only graded submissions are
// interesting to the monitor.
const (
	WorkflowStateGraded      = "graded"
	WorkflowStateSubmitted   = "submitted"
	WorkflowStateUnsubmitted = "unsubmitted"
)

// Submission is a student's submission record for one assignment, as returned
// by GET .../submissions/self. RubricAssessment is kept as raw JSON: Canvas
// normally returns an object keyed by criterion id, but has been observed to
// return an array for some moderated assignments, and the debug endpoint
// needs to report the shape it actually received.
type Submission struct {
	ID               int64           `json:"id"`
	UserID           int64           `json:"user_id,omitempty"`
	AssignmentID     int64           `json:"assignment_id,omitempty"`
	Score            *float64        `json:"score"`
	Grade            string          `json:"grade,omitempty"`
	WorkflowState    string          `json:"workflow_state"`
	SubmittedAt      *time.Time      `json:"submitted_at,omitempty"`
	GradedAt         *time.Time      `json:"graded_at,omitempty"`
	Late             bool            `json:"late,omitempty"`
	RubricAssessment json.RawMessage `json:"rubric_assessment,omitempty"`
	Assignment       *Assignment     `json:"assignment,omitempty"`
}

// CriterionAssessment is the per-criterion grading a rubric assessment
// assigns to a submission.
type CriterionAssessment struct {
	Points   *float64 `json:"points"`
	RatingID string   `json:"rating_id,omitempty"`
	Comments string   `json:"comments,omitempty"`
}

// RubricAssessment maps criterion id to its assessment.
type RubricAssessment map[string]CriterionAssessment

// AssessmentMap decodes the raw rubric assessment. The second return value is
// false when there is no assessment or it is not a JSON object.
func (s *Submission) AssessmentMap() (RubricAssessment, bool) {
	if s == nil || s.AssessmentShape() != "object" {
		return RubricAssessment{}, false
	}
	var m RubricAssessment
	if err := json.Unmarshal(s.RubricAssessment, &m); err != nil {
		return RubricAssessment{}, false
	}
	return m, true
}

// AssessmentShape names the JSON shape of the raw rubric assessment:
// "object", "array", "string", "number", "bool", "null" or "absent".
func (s *Submission) AssessmentShape() string {
	if s == nil {
		return "absent"
	}
	raw := bytes.TrimSpace(s.RubricAssessment)
	if len(raw) == 0 {
		return "absent"
	}
	switch raw[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "bool"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

// ScoreValue returns the score, or 0 when none has been recorded.
func (s *Submission) ScoreValue() float64 {
	if s == nil || s.Score == nil {
		return 0
	}
	return *s.Score
}

// PointsPossible returns the assignment's maximum points when the assignment
// sub-object was included in the response.
func (s *Submission) PointsPossible() float64 {
	if s == nil || s.Assignment == nil {
		return 0
	}
	return s.Assignment.PointsPossible
}
