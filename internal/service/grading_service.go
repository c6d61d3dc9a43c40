package service

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/blaybrigidi/4Salvage/internal/models"
	"github.com/blaybrigidi/4Salvage/internal/service/integration"
)

// scoreEpsilon absorbs float rounding when comparing awarded points against
// rubric ratings.
const scoreEpsilon = 0.01

type GradingService interface {
	GetMyGrade(ctx context.Context, courseID, assignmentID int64) (*models.Submission, error)
	GetAssignmentRubric(ctx context.Context, assignmentID int64) (*models.Rubric, error)
	CheckGradeAgainstRubric(ctx context.Context, courseID, assignmentID int64) (*models.GradeCheckResult, error)
}

type gradingService struct {
	canvas integration.CanvasClient
	logger zerolog.Logger
}

func NewGradingService(canvas integration.CanvasClient, logger zerolog.Logger) GradingService {
	return &gradingService{
		canvas: canvas,
		logger: logger,
	}
}

func (s *gradingService) GetMyGrade(ctx context.Context, courseID, assignmentID int64) (*models.Submission, error) {
	return s.canvas.FetchMyGrade(ctx, courseID, assignmentID)
}

func (s *gradingService) GetAssignmentRubric(ctx context.Context, assignmentID int64) (*models.Rubric, error) {
	return s.canvas.FetchAssignmentRubric(ctx, assignmentID)
}

// CheckGradeAgainstRubric fetches the current user's submission and the
// assignment rubric, then compares the recorded score against the score the
// rubric assessment implies. An assignment without a rubric is not an error:
// the result carries status "no_rubric" and the submission only.
func (s *gradingService) CheckGradeAgainstRubric(ctx context.Context, courseID, assignmentID int64) (*models.GradeCheckResult, error) {
	submission, err := s.canvas.FetchMyGrade(ctx, courseID, assignmentID)
	if err != nil {
		return nil, err
	}

	rubric, err := s.canvas.FetchAssignmentRubric(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	if !rubric.HasRubric() {
		return &models.GradeCheckResult{
			Status:     models.GradeCheckNoRubric,
			Message:    "No rubric found for this assignment",
			Submission: submission,
		}, nil
	}

	assessment, _ := submission.AssessmentMap()
	analysis := AnalyzeGradeAgainstRubric(submission, rubric, assessment)

	return &models.GradeCheckResult{
		Status:     models.GradeCheckCompleted,
		Submission: submission,
		Rubric:     rubric,
		Analysis:   analysis,
	}, nil
}

// AnalyzeGradeAgainstRubric sums the points the rubric assessment awarded per
// criterion, flags criteria whose awarded points diverge from the assessed
// rating's point value, and compares the calculated total against the
// recorded score.
func AnalyzeGradeAgainstRubric(submission *models.Submission, rubric *models.Rubric, assessment models.RubricAssessment) *models.RubricAnalysis {
	actualScore := submission.ScoreValue()

	var calculatedScore float64
	criteriaAnalysis := make([]models.CriterionAnalysis, 0, len(rubric.Criteria))

	for _, criterion := range rubric.Criteria {
		criterionAssessment := assessment[criterion.ID]

		var awardedPoints float64
		if criterionAssessment.Points != nil {
			awardedPoints = *criterionAssessment.Points
		}

		var ratingDescription string
		var expectedPoints *float64
		if rating, ok := criterion.FindRating(criterionAssessment.RatingID); ok {
			ratingDescription = rating.Description
			v := rating.Points
			expectedPoints = &v
		}

		calculatedScore += awardedPoints

		var criterionDiscrepancy bool
		var discrepancyReason string
		if expectedPoints != nil && math.Abs(*expectedPoints-awardedPoints) > scoreEpsilon {
			criterionDiscrepancy = true
			discrepancyReason = fmt.Sprintf(
				"Rating %q should be worth %g points, but %g were awarded",
				ratingDescription, *expectedPoints, awardedPoints,
			)
		}

		criteriaAnalysis = append(criteriaAnalysis, models.CriterionAnalysis{
			CriterionID:       criterion.ID,
			Description:       criterion.Description,
			PossiblePoints:    criterion.Points,
			PointsAwarded:     awardedPoints,
			RatingID:          criterionAssessment.RatingID,
			RatingDescription: ratingDescription,
			ExpectedPoints:    expectedPoints,
			HasDiscrepancy:    criterionDiscrepancy,
			DiscrepancyReason: discrepancyReason,
			Comments:          criterionAssessment.Comments,
		})
	}

	scoreDifference := math.Abs(calculatedScore - actualScore)
	hasDiscrepancy := scoreDifference > scoreEpsilon

	var criteriaWithDiscrepancies int
	for _, c := range criteriaAnalysis {
		if c.HasDiscrepancy {
			criteriaWithDiscrepancies++
		}
	}

	message := "Grade appears correct"
	if hasDiscrepancy {
		message = fmt.Sprintf("Possible grade discrepancy of %g points", scoreDifference)
	}

	return &models.RubricAnalysis{
		Status:                    "analysis_complete",
		ActualScore:               actualScore,
		CalculatedScore:           calculatedScore,
		ScoreDifference:           scoreDifference,
		HasDiscrepancy:            hasDiscrepancy,
		CriteriaAnalysis:          criteriaAnalysis,
		CriteriaWithDiscrepancies: criteriaWithDiscrepancies,
		Message:                   message,
	}
}
