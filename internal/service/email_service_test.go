package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blaybrigidi/4Salvage/internal/models"
)

func discrepancyCheck() *models.GradeCheckResult {
	return &models.GradeCheckResult{
		Status: models.GradeCheckCompleted,
		Analysis: &models.RubricAnalysis{
			Status:          "analysis_complete",
			ActualScore:     15,
			CalculatedScore: 18,
			ScoreDifference: 3,
			HasDiscrepancy:  true,
			CriteriaAnalysis: []models.CriterionAnalysis{
				{
					Description:       "Thesis",
					PossiblePoints:    10,
					PointsAwarded:     8,
					HasDiscrepancy:    true,
					DiscrepancyReason: `Rating "Full marks" should be worth 10 points, but 8 were awarded`,
				},
				{Description: "Evidence", PossiblePoints: 10, PointsAwarded: 10},
			},
			CriteriaWithDiscrepancies: 1,
			Message:                   "Possible grade discrepancy of 3 points",
		},
	}
}

func emailFakeCanvas() *fakeCanvas {
	return &fakeCanvas{
		fetchCourseInstructor: func(context.Context, int64) (*models.User, error) {
			return &models.User{ID: 9, Name: "Ama Mensah", Email: "amensah@ashesi.edu.gh"}, nil
		},
		fetchAssignmentDet: func(context.Context, int64) (*models.Assignment, error) {
			return &models.Assignment{ID: 202, Name: "Final Essay"}, nil
		},
		fetchCourse: func(context.Context, int64) (*models.Course, error) {
			return &models.Course{ID: 101, Name: "Intro to Writing"}, nil
		},
		fetchCurrentUser: func(context.Context) (*models.User, error) {
			return &models.User{ID: 7, Name: "Kofi Boateng", Email: "kboateng@ashesi.edu.gh"}, nil
		},
	}
}

func TestDraftDiscrepancyEmail_NoDiscrepancy(t *testing.T) {
	check := &models.GradeCheckResult{
		Status:   models.GradeCheckCompleted,
		Analysis: &models.RubricAnalysis{HasDiscrepancy: false},
	}
	svc := NewEmailService(emailFakeCanvas(), zerolog.Nop())

	msg, err := svc.DraftDiscrepancyEmail(context.Background(), 101, 202, check)
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestDraftDiscrepancyEmail_NoRubricResult(t *testing.T) {
	check := &models.GradeCheckResult{Status: models.GradeCheckNoRubric}
	svc := NewEmailService(emailFakeCanvas(), zerolog.Nop())

	msg, err := svc.DraftDiscrepancyEmail(context.Background(), 101, 202, check)
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestDraftDiscrepancyEmail_AddressedToInstructor(t *testing.T) {
	svc := NewEmailService(emailFakeCanvas(), zerolog.Nop())

	msg, err := svc.DraftDiscrepancyEmail(context.Background(), 101, 202, discrepancyCheck())
	require.NoError(t, err)
	require.NotNil(t, msg)

	assert.Equal(t, "amensah@ashesi.edu.gh", msg.To)
	assert.Equal(t, "Ama Mensah", msg.ToName)
	assert.Equal(t, "Grade Review Request: Final Essay in Intro to Writing", msg.Subject)

	assert.Contains(t, msg.Body, "Dear Professor Ama Mensah")
	assert.Contains(t, msg.Body, "discrepancy of approximately 3 points")
	assert.Contains(t, msg.Body, "current score of 15")
	assert.Contains(t, msg.Body, "calculated score of 18")
	assert.Contains(t, msg.Body, "- Thesis: 8 / 10 points")
	assert.Contains(t, msg.Body, `* Issue: Rating "Full marks" should be worth 10 points, but 8 were awarded`)
	assert.Contains(t, msg.Body, "Kofi Boateng")
	assert.Contains(t, msg.Body, "kboateng@ashesi.edu.gh")
}

func TestDraftDiscrepancyEmail_InstructorLookupFails(t *testing.T) {
	canvas := emailFakeCanvas()
	canvas.fetchCourseInstructor = func(context.Context, int64) (*models.User, error) {
		return nil, errors.New("no teacher enrollment")
	}
	svc := NewEmailService(canvas, zerolog.Nop())

	_, err := svc.DraftDiscrepancyEmail(context.Background(), 101, 202, discrepancyCheck())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch instructor")
}
