package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/rs/zerolog"

	"github.com/blaybrigidi/4Salvage/internal/models"
	"github.com/blaybrigidi/4Salvage/internal/notify"
	"github.com/blaybrigidi/4Salvage/internal/service/integration"
)

const discrepancyEmailBody = `Dear Professor {{.Instructor.Name}},

I hope this email finds you well. I am writing to request a review of my grade for the assignment "{{.Assignment.Name}}" in {{.Course.Name}}.

Based on my review of the rubric, I believe there may be a discrepancy of approximately {{printf "%g" .Analysis.ScoreDifference}} points between my current score of {{printf "%g" .Analysis.ActualScore}} and the calculated score of {{printf "%g" .Analysis.CalculatedScore}} based on the rubric criteria.

Here's a breakdown of the rubric assessment:

{{.CriteriaDetails}}
I would greatly appreciate it if you could review my submission and rubric assessment at your convenience.

Thank you for your time and consideration.

Sincerely,
{{.Student.Name}}
{{.Student.Email}}`

var discrepancyEmailTmpl = template.Must(template.New("discrepancy").Parse(discrepancyEmailBody))

type EmailService interface {
	// DraftDiscrepancyEmail turns a grade-check result into a review-request
	// email addressed to the course instructor. Returns nil when the check
	// found no discrepancy.
	DraftDiscrepancyEmail(ctx context.Context, courseID, assignmentID int64, check *models.GradeCheckResult) (*notify.Message, error)
}

type emailService struct {
	canvas integration.CanvasClient
	logger zerolog.Logger
}

func NewEmailService(canvas integration.CanvasClient, logger zerolog.Logger) EmailService {
	return &emailService{
		canvas: canvas,
		logger: logger,
	}
}

func (s *emailService) DraftDiscrepancyEmail(ctx context.Context, courseID, assignmentID int64, check *models.GradeCheckResult) (*notify.Message, error) {
	if !check.HasDiscrepancy() {
		return nil, nil
	}

	instructor, err := s.canvas.FetchCourseInstructor(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch instructor: %w", err)
	}

	assignment, err := s.canvas.FetchAssignmentDetails(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch assignment: %w", err)
	}

	course, err := s.canvas.FetchCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch course: %w", err)
	}

	student, err := s.canvas.FetchCurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch current user: %w", err)
	}

	data := struct {
		Instructor      *models.User
		Student         *models.User
		Course          *models.Course
		Assignment      *models.Assignment
		Analysis        *models.RubricAnalysis
		CriteriaDetails string
	}{
		Instructor:      instructor,
		Student:         student,
		Course:          course,
		Assignment:      assignment,
		Analysis:        check.Analysis,
		CriteriaDetails: formatCriteriaDetails(check.Analysis),
	}

	var body bytes.Buffer
	if err := discrepancyEmailTmpl.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("failed to render email body: %w", err)
	}

	msg := &notify.Message{
		To:      instructor.Email,
		ToName:  instructor.Name,
		Subject: fmt.Sprintf("Grade Review Request: %s in %s", assignment.Name, course.Name),
		Body:    body.String(),
	}

	s.logger.Debug().
		Str("to", msg.To).
		Int64("course_id", courseID).
		Int64("assignment_id", assignmentID).
		Msg("Drafted discrepancy email")

	return msg, nil
}

func formatCriteriaDetails(analysis *models.RubricAnalysis) string {
	var b strings.Builder
	for _, criterion := range analysis.CriteriaAnalysis {
		fmt.Fprintf(&b, "- %s: %g / %g points\n", criterion.Description, criterion.PointsAwarded, criterion.PossiblePoints)
		if criterion.HasDiscrepancy {
			fmt.Fprintf(&b, "  * Issue: %s\n", criterion.DiscrepancyReason)
		}
	}
	return b.String()
}
