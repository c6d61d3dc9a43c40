package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/blaybrigidi/4Salvage/internal/models"
	"github.com/blaybrigidi/4Salvage/internal/notify"
	"github.com/blaybrigidi/4Salvage/internal/repository"
	"github.com/blaybrigidi/4Salvage/internal/service"
	"github.com/blaybrigidi/4Salvage/internal/service/integration"
	"github.com/blaybrigidi/4Salvage/internal/worker/queue"
)

// GradeMonitor periodically sweeps all courses for new or changed grades,
// runs a rubric check on each, and emails the instructor when a discrepancy
// is found.
type GradeMonitor interface {
	Start(ctx context.Context)
	RunCycle(ctx context.Context) error
	Stats() MonitorStats
}

type MonitorStats struct {
	CyclesCompleted    int `json:"cycles_completed"`
	GradesSeen         int `json:"grades_seen"`
	NewGrades          int `json:"new_grades"`
	ChangedGrades      int `json:"changed_grades"`
	DiscrepanciesFound int `json:"discrepancies_found"`
	EmailsSent         int `json:"emails_sent"`
	FailedAssignments  int `json:"failed_assignments"`
}

type gradeMonitor struct {
	canvas    integration.CanvasClient
	grading   service.GradingService
	emails    service.EmailService
	sender    notify.EmailSender
	snapshots repository.SnapshotRepository
	publisher queue.EventPublisher
	interval  time.Duration
	logger    zerolog.Logger

	statsMutex sync.RWMutex
	stats      MonitorStats
}

func NewGradeMonitor(
	canvas integration.CanvasClient,
	grading service.GradingService,
	emails service.EmailService,
	sender notify.EmailSender,
	snapshots repository.SnapshotRepository,
	publisher queue.EventPublisher,
	interval time.Duration,
	logger zerolog.Logger,
) GradeMonitor {
	return &gradeMonitor{
		canvas:    canvas,
		grading:   grading,
		emails:    emails,
		sender:    sender,
		snapshots: snapshots,
		publisher: publisher,
		interval:  interval,
		logger:    logger,
	}
}

// Start runs an immediate cycle and then one per interval until ctx is done.
// Only one instance is expected to run; cycles never overlap.
func (m *gradeMonitor) Start(ctx context.Context) {
	m.logger.Info().Dur("interval", m.interval).Msg("Grade monitor started")

	if err := m.RunCycle(ctx); err != nil {
		m.logger.Error().Err(err).Msg("Grade monitoring cycle failed")
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("Grade monitor stopped")
			return
		case <-ticker.C:
			if err := m.RunCycle(ctx); err != nil {
				m.logger.Error().Err(err).Msg("Grade monitoring cycle failed")
			}
		}
	}
}

// RunCycle performs one full sweep. The snapshot cache is loaded up front,
// mutated in memory as graded submissions are observed, and persisted in one
// batch at the end. Failures before the per-assignment loop abort the cycle
// without persisting anything; failures inside it only skip that assignment.
func (m *gradeMonitor) RunCycle(ctx context.Context) error {
	m.logger.Info().Msg("Running grade monitoring cycle")

	cache, err := m.snapshots.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load grade snapshots: %w", err)
	}

	courses, err := m.canvas.FetchUserCourses(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch courses: %w", err)
	}

	for _, course := range courses {
		assignments, err := m.canvas.FetchAssignments(ctx, course.ID)
		if err != nil {
			m.logger.Error().Err(err).
				Int64("course_id", course.ID).
				Str("course", course.Name).
				Msg("Failed to fetch assignments, skipping course")
			continue
		}

		for _, assignment := range assignments {
			if !assignment.HasSubmittedSubmissions {
				continue
			}

			if err := m.processAssignment(ctx, cache, course, assignment); err != nil {
				m.logger.Error().Err(err).
					Int64("course_id", course.ID).
					Int64("assignment_id", assignment.ID).
					Msg("Error processing assignment")

				m.statsMutex.Lock()
				m.stats.FailedAssignments++
				m.statsMutex.Unlock()
			}
		}
	}

	if err := m.snapshots.SaveAll(ctx, cache); err != nil {
		return fmt.Errorf("failed to save grade snapshots: %w", err)
	}

	m.statsMutex.Lock()
	m.stats.CyclesCompleted++
	m.statsMutex.Unlock()

	m.logger.Info().Int("snapshots", len(cache)).Msg("Grade monitoring cycle completed")
	return nil
}

func (m *gradeMonitor) processAssignment(ctx context.Context, cache map[string]*models.GradeSnapshot, course models.Course, assignment models.Assignment) error {
	submission, err := m.canvas.FetchMyGrade(ctx, course.ID, assignment.ID)
	if err != nil {
		return err
	}

	if submission.WorkflowState != models.WorkflowStateGraded {
		return nil
	}

	m.statsMutex.Lock()
	m.stats.GradesSeen++
	m.statsMutex.Unlock()

	cacheKey := models.SnapshotKey(course.ID, assignment.ID)
	cached := cache[cacheKey]

	switch {
	case cached == nil:
		m.logger.Info().
			Str("assignment", assignment.Name).
			Str("course", course.Name).
			Float64("score", submission.ScoreValue()).
			Msg("New grade detected")

		m.statsMutex.Lock()
		m.stats.NewGrades++
		m.statsMutex.Unlock()

		if err := m.checkAndNotify(ctx, course, assignment, submission, models.EventGradeNew, nil); err != nil {
			return err
		}

	case !cached.SameScore(submission.Score):
		m.logger.Info().
			Str("assignment", assignment.Name).
			Str("course", course.Name).
			Interface("previous_score", cached.Score).
			Float64("score", submission.ScoreValue()).
			Msg("Grade changed")

		m.statsMutex.Lock()
		m.stats.ChangedGrades++
		m.statsMutex.Unlock()

		if err := m.checkAndNotify(ctx, course, assignment, submission, models.EventGradeChanged, cached.Score); err != nil {
			return err
		}
	}

	cache[cacheKey] = models.NewGradeSnapshot(course.ID, assignment.ID, submission)
	return nil
}

// checkAndNotify runs the rubric check and, on a discrepancy, drafts and
// sends the review-request email. Email failures are logged, never raised.
func (m *gradeMonitor) checkAndNotify(ctx context.Context, course models.Course, assignment models.Assignment, submission *models.Submission, kind string, previousScore *float64) error {
	check, err := m.grading.CheckGradeAgainstRubric(ctx, course.ID, assignment.ID)
	if err != nil {
		return err
	}

	if check.HasDiscrepancy() {
		m.logger.Warn().
			Str("assignment", assignment.Name).
			Float64("score_difference", check.Analysis.ScoreDifference).
			Msg("Grade discrepancy detected")

		m.statsMutex.Lock()
		m.stats.DiscrepanciesFound++
		m.statsMutex.Unlock()

		m.sendDiscrepancyEmail(ctx, course, assignment, check)
	}

	m.publishEvent(ctx, course, assignment, submission, check, kind, previousScore)
	return nil
}

func (m *gradeMonitor) sendDiscrepancyEmail(ctx context.Context, course models.Course, assignment models.Assignment, check *models.GradeCheckResult) {
	msg, err := m.emails.DraftDiscrepancyEmail(ctx, course.ID, assignment.ID, check)
	if err != nil || msg == nil {
		m.logger.Error().Err(err).
			Str("assignment", assignment.Name).
			Msg("Email drafting failed")
		return
	}

	if err := m.sender.Send(ctx, msg); err != nil {
		m.logger.Error().Err(err).
			Str("assignment", assignment.Name).
			Msg("Failed to send discrepancy email")
		return
	}

	m.statsMutex.Lock()
	m.stats.EmailsSent++
	m.statsMutex.Unlock()

	m.logger.Info().
		Str("assignment", assignment.Name).
		Str("to", msg.To).
		Msg("Discrepancy email sent")
}

func (m *gradeMonitor) publishEvent(ctx context.Context, course models.Course, assignment models.Assignment, submission *models.Submission, check *models.GradeCheckResult, kind string, previousScore *float64) {
	if m.publisher == nil {
		return
	}

	event := &models.GradeEvent{
		ID:             uuid.New().String(),
		Kind:           kind,
		CourseID:       course.ID,
		CourseName:     course.Name,
		AssignmentID:   assignment.ID,
		AssignmentName: assignment.Name,
		PreviousScore:  previousScore,
		Score:          submission.Score,
		HasDiscrepancy: check.HasDiscrepancy(),
		DetectedAt:     time.Now().UTC(),
	}
	if check.Analysis != nil {
		event.ScoreDifference = check.Analysis.ScoreDifference
	}

	if err := m.publisher.PublishGradeEvent(ctx, event); err != nil {
		m.logger.Error().Err(err).
			Str("kind", kind).
			Int64("assignment_id", assignment.ID).
			Msg("Failed to publish grade event")
	}
}

func (m *gradeMonitor) Stats() MonitorStats {
	m.statsMutex.RLock()
	defer m.statsMutex.RUnlock()
	return m.stats
}
