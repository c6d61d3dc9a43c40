package models

import "time"

// Course is a Canvas course as returned by GET /api/v1/courses.
type Course struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	CourseCode    string `json:"course_code,omitempty"`
	WorkflowState string `json:"workflow_state,omitempty"`
}

// Assignment is a Canvas assignment. HasSubmittedSubmissions gates whether
// the grade monitor bothers fetching the submission at all.
type Assignment struct {
	ID                      int64      `json:"id"`
	CourseID                int64      `json:"course_id,omitempty"`
	Name                    string     `json:"name"`
	Description             string     `json:"description,omitempty"`
	DueAt                   *time.Time `json:"due_at,omitempty"`
	PointsPossible          float64    `json:"points_possible,omitempty"`
	HasSubmittedSubmissions bool       `json:"has_submitted_submissions,omitempty"`
}

// User is a Canvas user record (the current student or an instructor).
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}
