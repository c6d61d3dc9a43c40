package httpd

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/blaybrigidi/4Salvage/internal/notify"
	"github.com/blaybrigidi/4Salvage/internal/service"
	"github.com/blaybrigidi/4Salvage/internal/service/integration"
	"github.com/blaybrigidi/4Salvage/internal/worker"
)

type Handler struct {
	canvas  integration.CanvasClient
	grading service.GradingService
	emails  service.EmailService
	sender  notify.EmailSender
	monitor worker.GradeMonitor
	logger  zerolog.Logger
}

func NewHandler(
	canvas integration.CanvasClient,
	grading service.GradingService,
	emails service.EmailService,
	sender notify.EmailSender,
	monitor worker.GradeMonitor,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		canvas:  canvas,
		grading: grading,
		emails:  emails,
		sender:  sender,
		monitor: monitor,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)
	router.Get("/stats", h.GetMonitorStats)

	router.Route("/canvas", func(r chi.Router) {
		r.Get("/test", h.TestRoute)
		r.Get("/grades/{course_id}/{assignment_id}/self", h.GetMyAssignmentGrade)
		r.Get("/debug-rubric-assessment/{course_id}/{assignment_id}", h.DebugRubricAssessment)
		r.Get("/rubrics/assignment/{assignment_id}", h.GetAssignmentRubric)
		r.Get("/grade-check/{course_id}/{assignment_id}", h.CheckGradeAgainstRubric)
		r.Get("/course-id", h.GetCourseID)
		r.Get("/assignments/{course_id}", h.GetCourseAssignments)
		r.Get("/draft-email/{course_id}/{assignment_id}", h.DraftDiscrepancyEmail)
		r.Post("/send-grade-email/{course_id}/{assignment_id}", h.SendDiscrepancyEmail)
	})
}

func idParam(r *http.Request, key string) (int64, error) {
	value := chi.URLParam(r, key)
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, value)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]interface{}{
		"status_code": status,
		"detail":      detail,
	})
}

// handleCanvasError is the two-tier error translation: upstream Canvas HTTP
// failures propagate their status code with the upstream body embedded in
// the detail; everything else becomes a 500 with the action where it failed.
func (h *Handler) handleCanvasError(w http.ResponseWriter, err error, action string) {
	var apiErr *integration.APIError
	if errors.As(err, &apiErr) {
		writeError(w, apiErr.StatusCode, apiErr.Error())
		return
	}

	h.logger.Error().Err(err).Msgf("Error %s", action)
	writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error %s: %v", action, err))
}
