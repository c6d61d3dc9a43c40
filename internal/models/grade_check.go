package models

// Grade-check statuses.
const (
	GradeCheckNoRubric  = "no_rubric"
	GradeCheckCompleted = "completed"
)

// GradeCheckResult bundles a submission with its rubric and the computed
// analysis. Status is "no_rubric" when the assignment has no rubric, in which
// case Analysis is nil and only the submission is attached.
type GradeCheckResult struct {
	Status     string          `json:"status"`
	Message    string          `json:"message,omitempty"`
	Submission *Submission     `json:"submission"`
	Rubric     *Rubric         `json:"rubric,omitempty"`
	Analysis   *RubricAnalysis `json:"analysis,omitempty"`
}

// HasDiscrepancy reports whether the analysis flagged a mismatch between the
// recorded score and the rubric-implied score.
func (r *GradeCheckResult) HasDiscrepancy() bool {
	return r != nil && r.Analysis != nil && r.Analysis.HasDiscrepancy
}

// CriterionAnalysis is the per-criterion row of a rubric analysis.
type CriterionAnalysis struct {
	CriterionID       string   `json:"criterion_id"`
	Description       string   `json:"description,omitempty"`
	PossiblePoints    float64  `json:"possible_points"`
	PointsAwarded     float64  `json:"points_awarded"`
	RatingID          string   `json:"rating_id,omitempty"`
	RatingDescription string   `json:"rating_description,omitempty"`
	ExpectedPoints    *float64 `json:"expected_points"`
	HasDiscrepancy    bool     `json:"has_discrepancy"`
	DiscrepancyReason string   `json:"discrepancy_reason,omitempty"`
	Comments          string   `json:"comments,omitempty"`
}

// RubricAnalysis is the result of comparing a submission's recorded score
// against the score implied by its rubric assessment.
type RubricAnalysis struct {
	Status                    string              `json:"status"`
	ActualScore               float64             `json:"actual_score"`
	CalculatedScore           float64             `json:"calculated_score"`
	ScoreDifference           float64             `json:"score_difference"`
	HasDiscrepancy            bool                `json:"has_discrepancy"`
	CriteriaAnalysis          []CriterionAnalysis `json:"criteria_analysis"`
	CriteriaWithDiscrepancies int                 `json:"criteria_with_discrepancies"`
	Message                   string              `json:"message"`
}
