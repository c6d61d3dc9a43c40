package httpd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blaybrigidi/4Salvage/internal/models"
	"github.com/blaybrigidi/4Salvage/internal/notify"
	"github.com/blaybrigidi/4Salvage/internal/service/integration"
	"github.com/blaybrigidi/4Salvage/internal/worker"
)

var errFake = errors.New("not stubbed")

type fakeCanvas struct {
	fetchMyGrade          func(ctx context.Context, courseID, assignmentID int64) (*models.Submission, error)
	fetchAssignmentRubric func(ctx context.Context, assignmentID int64) (*models.Rubric, error)
	fetchUserCourses      func(ctx context.Context) ([]models.Course, error)
	fetchAssignments      func(ctx context.Context, courseID int64) ([]models.Assignment, error)
	fetchCourse           func(ctx context.Context, courseID int64) (*models.Course, error)
	fetchAssignmentDet    func(ctx context.Context, assignmentID int64) (*models.Assignment, error)
	fetchCourseInstructor func(ctx context.Context, courseID int64) (*models.User, error)
	fetchCurrentUser      func(ctx context.Context) (*models.User, error)
}

func (f *fakeCanvas) FetchMyGrade(ctx context.Context, courseID, assignmentID int64) (*models.Submission, error) {
	if f.fetchMyGrade == nil {
		return nil, errFake
	}
	return f.fetchMyGrade(ctx, courseID, assignmentID)
}

func (f *fakeCanvas) FetchAssignmentRubric(ctx context.Context, assignmentID int64) (*models.Rubric, error) {
	if f.fetchAssignmentRubric == nil {
		return nil, errFake
	}
	return f.fetchAssignmentRubric(ctx, assignmentID)
}

func (f *fakeCanvas) FetchUserCourses(ctx context.Context) ([]models.Course, error) {
	if f.fetchUserCourses == nil {
		return nil, errFake
	}
	return f.fetchUserCourses(ctx)
}

func (f *fakeCanvas) FetchAssignments(ctx context.Context, courseID int64) ([]models.Assignment, error) {
	if f.fetchAssignments == nil {
		return nil, errFake
	}
	return f.fetchAssignments(ctx, courseID)
}

func (f *fakeCanvas) FetchCourse(ctx context.Context, courseID int64) (*models.Course, error) {
	if f.fetchCourse == nil {
		return nil, errFake
	}
	return f.fetchCourse(ctx, courseID)
}

func (f *fakeCanvas) FetchAssignmentDetails(ctx context.Context, assignmentID int64) (*models.Assignment, error) {
	if f.fetchAssignmentDet == nil {
		return nil, errFake
	}
	return f.fetchAssignmentDet(ctx, assignmentID)
}

func (f *fakeCanvas) FetchCourseInstructor(ctx context.Context, courseID int64) (*models.User, error) {
	if f.fetchCourseInstructor == nil {
		return nil, errFake
	}
	return f.fetchCourseInstructor(ctx, courseID)
}

func (f *fakeCanvas) FetchCurrentUser(ctx context.Context) (*models.User, error) {
	if f.fetchCurrentUser == nil {
		return nil, errFake
	}
	return f.fetchCurrentUser(ctx)
}

type fakeGrading struct {
	getMyGrade      func(ctx context.Context, courseID, assignmentID int64) (*models.Submission, error)
	getRubric       func(ctx context.Context, assignmentID int64) (*models.Rubric, error)
	checkGrade      func(ctx context.Context, courseID, assignmentID int64) (*models.GradeCheckResult, error)
	checkGradeCalls int
}

func (f *fakeGrading) GetMyGrade(ctx context.Context, courseID, assignmentID int64) (*models.Submission, error) {
	if f.getMyGrade == nil {
		return nil, errFake
	}
	return f.getMyGrade(ctx, courseID, assignmentID)
}

func (f *fakeGrading) GetAssignmentRubric(ctx context.Context, assignmentID int64) (*models.Rubric, error) {
	if f.getRubric == nil {
		return nil, errFake
	}
	return f.getRubric(ctx, assignmentID)
}

func (f *fakeGrading) CheckGradeAgainstRubric(ctx context.Context, courseID, assignmentID int64) (*models.GradeCheckResult, error) {
	f.checkGradeCalls++
	if f.checkGrade == nil {
		return nil, errFake
	}
	return f.checkGrade(ctx, courseID, assignmentID)
}

type fakeEmails struct {
	draft func(ctx context.Context, courseID, assignmentID int64, check *models.GradeCheckResult) (*notify.Message, error)
}

func (f *fakeEmails) DraftDiscrepancyEmail(ctx context.Context, courseID, assignmentID int64, check *models.GradeCheckResult) (*notify.Message, error) {
	if f.draft == nil {
		return nil, errFake
	}
	return f.draft(ctx, courseID, assignmentID, check)
}

type testDeps struct {
	canvas  *fakeCanvas
	grading *fakeGrading
	emails  *fakeEmails
	sender  *notify.DummySender
	monitor worker.GradeMonitor
}

func newTestRouter(deps testDeps) http.Handler {
	if deps.canvas == nil {
		deps.canvas = &fakeCanvas{}
	}
	if deps.grading == nil {
		deps.grading = &fakeGrading{}
	}
	if deps.emails == nil {
		deps.emails = &fakeEmails{}
	}
	if deps.sender == nil {
		deps.sender = &notify.DummySender{}
	}

	h := NewHandler(deps.canvas, deps.grading, deps.emails, deps.sender, deps.monitor, zerolog.Nop())
	router := chi.NewRouter()
	h.RegisterRoutes(router)
	return router
}

func doRequest(t *testing.T, router http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestTestRoute(t *testing.T) {
	rec := doRequest(t, newTestRouter(testDeps{}), http.MethodGet, "/canvas/test")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message": "Grading router is working"}`, rec.Body.String())
}

func TestHealthCheck(t *testing.T) {
	rec := doRequest(t, newTestRouter(testDeps{}), http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "autograder", body["service"])
}

func TestGetMonitorStats_NoMonitor(t *testing.T) {
	rec := doRequest(t, newTestRouter(testDeps{}), http.MethodGet, "/stats")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Grade monitor is not running", body["detail"])
}

func TestGetMyAssignmentGrade(t *testing.T) {
	score := 42.5
	grading := &fakeGrading{
		getMyGrade: func(_ context.Context, courseID, assignmentID int64) (*models.Submission, error) {
			assert.Equal(t, int64(101), courseID)
			assert.Equal(t, int64(202), assignmentID)
			return &models.Submission{ID: 7, Score: &score, WorkflowState: models.WorkflowStateGraded}, nil
		},
	}

	rec := doRequest(t, newTestRouter(testDeps{grading: grading}), http.MethodGet, "/canvas/grades/101/202/self")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(7), body["id"])
	assert.Equal(t, 42.5, body["score"])
}

func TestGetMyAssignmentGrade_InvalidID(t *testing.T) {
	rec := doRequest(t, newTestRouter(testDeps{}), http.MethodGet, "/canvas/grades/abc/202/self")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(http.StatusBadRequest), body["status_code"])
	assert.Contains(t, body["detail"], "course_id")
}

func TestGetMyAssignmentGrade_UpstreamErrorPassthrough(t *testing.T) {
	grading := &fakeGrading{
		getMyGrade: func(context.Context, int64, int64) (*models.Submission, error) {
			return nil, &integration.APIError{StatusCode: http.StatusNotFound, Body: `{"errors":[{"message":"not found"}]}`}
		},
	}

	rec := doRequest(t, newTestRouter(testDeps{grading: grading}), http.MethodGet, "/canvas/grades/101/202/self")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(http.StatusNotFound), body["status_code"])
	assert.Contains(t, body["detail"], "Canvas API error: 404")
	assert.Contains(t, body["detail"], "not found")
}

func TestGetMyAssignmentGrade_GenericError(t *testing.T) {
	grading := &fakeGrading{
		getMyGrade: func(context.Context, int64, int64) (*models.Submission, error) {
			return nil, errors.New("connection refused")
		},
	}

	rec := doRequest(t, newTestRouter(testDeps{grading: grading}), http.MethodGet, "/canvas/grades/101/202/self")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Error fetching grade: connection refused", body["detail"])
}

func TestGetAssignmentRubric(t *testing.T) {
	grading := &fakeGrading{
		getRubric: func(_ context.Context, assignmentID int64) (*models.Rubric, error) {
			assert.Equal(t, int64(202), assignmentID)
			return &models.Rubric{
				AssignmentID: 202,
				Title:        "Essay Rubric",
				Criteria:     []models.Criterion{{ID: "crit_1", Points: 10}},
			}, nil
		},
	}

	rec := doRequest(t, newTestRouter(testDeps{grading: grading}), http.MethodGet, "/canvas/rubrics/assignment/202")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Essay Rubric", body["title"])
}

func TestCheckGradeAgainstRubric_NoRubricStatus(t *testing.T) {
	grading := &fakeGrading{
		checkGrade: func(context.Context, int64, int64) (*models.GradeCheckResult, error) {
			return &models.GradeCheckResult{
				Status:     models.GradeCheckNoRubric,
				Message:    "No rubric found for this assignment",
				Submission: &models.Submission{ID: 7},
			}, nil
		},
	}

	rec := doRequest(t, newTestRouter(testDeps{grading: grading}), http.MethodGet, "/canvas/grade-check/101/202")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "no_rubric", body["status"])
	assert.Equal(t, "No rubric found for this assignment", body["message"])
	assert.NotContains(t, body, "analysis")
}

func TestDebugRubricAssessment_ObjectAssessment(t *testing.T) {
	score := 15.0
	grading := &fakeGrading{
		getMyGrade: func(context.Context, int64, int64) (*models.Submission, error) {
			return &models.Submission{
				ID:               7,
				Score:            &score,
				RubricAssessment: json.RawMessage(`{"crit_b": {"points": 5}, "crit_a": {"points": 10}}`),
			}, nil
		},
		getRubric: func(context.Context, int64) (*models.Rubric, error) {
			return &models.Rubric{Criteria: []models.Criterion{{ID: "crit_a"}, {ID: "crit_b"}}}, nil
		},
	}

	rec := doRequest(t, newTestRouter(testDeps{grading: grading}), http.MethodGet, "/canvas/debug-rubric-assessment/101/202")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "object", body["rubric_assessment_type"])
	assert.Equal(t, []interface{}{"crit_a", "crit_b"}, body["assessment_keys"])
}

func TestDebugRubricAssessment_ArrayAssessment(t *testing.T) {
	grading := &fakeGrading{
		getMyGrade: func(context.Context, int64, int64) (*models.Submission, error) {
			return &models.Submission{
				ID:               7,
				RubricAssessment: json.RawMessage(`[{"points": 5}]`),
			}, nil
		},
		getRubric: func(context.Context, int64) (*models.Rubric, error) {
			return &models.Rubric{}, nil
		},
	}

	rec := doRequest(t, newTestRouter(testDeps{grading: grading}), http.MethodGet, "/canvas/debug-rubric-assessment/101/202")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "array", body["rubric_assessment_type"])
	assert.Equal(t, []interface{}{}, body["assessment_keys"])
}

func TestDebugRubricAssessment_MissingAssessment(t *testing.T) {
	grading := &fakeGrading{
		getMyGrade: func(context.Context, int64, int64) (*models.Submission, error) {
			return &models.Submission{ID: 7}, nil
		},
		getRubric: func(context.Context, int64) (*models.Rubric, error) {
			return &models.Rubric{}, nil
		},
	}

	rec := doRequest(t, newTestRouter(testDeps{grading: grading}), http.MethodGet, "/canvas/debug-rubric-assessment/101/202")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "absent", body["rubric_assessment_type"])
	assert.Equal(t, map[string]interface{}{}, body["rubric_assessment"])
}

func TestDebugRubricAssessment_ErrorsBecome500(t *testing.T) {
	grading := &fakeGrading{
		getMyGrade: func(context.Context, int64, int64) (*models.Submission, error) {
			return nil, &integration.APIError{StatusCode: http.StatusNotFound, Body: "gone"}
		},
	}

	rec := doRequest(t, newTestRouter(testDeps{grading: grading}), http.MethodGet, "/canvas/debug-rubric-assessment/101/202")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body["detail"], "Error debugging rubric assessment")
}

func TestGetCourseID_ExactMatchWinsOverPartial(t *testing.T) {
	canvas := &fakeCanvas{
		fetchUserCourses: func(context.Context) ([]models.Course, error) {
			return []models.Course{
				{ID: 1, Name: "Algorithms and Data Structures"},
				{ID: 2, Name: "Algorithms"},
			}, nil
		},
	}

	rec := doRequest(t, newTestRouter(testDeps{canvas: canvas}), http.MethodGet, "/canvas/course-id?course_name=algorithms")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["course_id"])
}

func TestGetCourseID_PartialMatch(t *testing.T) {
	canvas := &fakeCanvas{
		fetchUserCourses: func(context.Context) ([]models.Course, error) {
			return []models.Course{{ID: 3, Name: "Introduction to Computer Science"}}, nil
		},
	}

	rec := doRequest(t, newTestRouter(testDeps{canvas: canvas}), http.MethodGet, "/canvas/course-id?course_name=computer+science")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(3), body["course_id"])
}

func TestGetCourseID_NotFound(t *testing.T) {
	canvas := &fakeCanvas{
		fetchUserCourses: func(context.Context) ([]models.Course, error) {
			return []models.Course{{ID: 3, Name: "Biology"}}, nil
		},
	}

	rec := doRequest(t, newTestRouter(testDeps{canvas: canvas}), http.MethodGet, "/canvas/course-id?course_name=chemistry")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Course not found", body["detail"])
}

func TestGetCourseID_MissingQueryParam(t *testing.T) {
	rec := doRequest(t, newTestRouter(testDeps{}), http.MethodGet, "/canvas/course-id")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "course_name query parameter is required", body["detail"])
}

func TestGetCourseAssignments(t *testing.T) {
	canvas := &fakeCanvas{
		fetchAssignments: func(_ context.Context, courseID int64) ([]models.Assignment, error) {
			assert.Equal(t, int64(101), courseID)
			return []models.Assignment{{ID: 202, Name: "Final Essay"}}, nil
		},
	}

	rec := doRequest(t, newTestRouter(testDeps{canvas: canvas}), http.MethodGet, "/canvas/assignments/101")

	assert.Equal(t, http.StatusOK, rec.Code)
	var assignments []models.Assignment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &assignments))
	require.Len(t, assignments, 1)
	assert.Equal(t, "Final Essay", assignments[0].Name)
}

func discrepancyCheckResult() *models.GradeCheckResult {
	return &models.GradeCheckResult{
		Status: models.GradeCheckCompleted,
		Analysis: &models.RubricAnalysis{
			HasDiscrepancy:  true,
			ScoreDifference: 3,
		},
	}
}

func TestDraftDiscrepancyEmail_NoDiscrepancy(t *testing.T) {
	grading := &fakeGrading{
		checkGrade: func(context.Context, int64, int64) (*models.GradeCheckResult, error) {
			return &models.GradeCheckResult{
				Status:   models.GradeCheckCompleted,
				Analysis: &models.RubricAnalysis{HasDiscrepancy: false},
			}, nil
		},
	}

	rec := doRequest(t, newTestRouter(testDeps{grading: grading}), http.MethodGet, "/canvas/draft-email/101/202")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "no_discrepancy", body["status"])
	assert.Equal(t, "No grade discrepancy found - no email needed", body["message"])
}

func TestDraftDiscrepancyEmail_Drafted(t *testing.T) {
	grading := &fakeGrading{
		checkGrade: func(context.Context, int64, int64) (*models.GradeCheckResult, error) {
			return discrepancyCheckResult(), nil
		},
	}
	emails := &fakeEmails{
		draft: func(context.Context, int64, int64, *models.GradeCheckResult) (*notify.Message, error) {
			return &notify.Message{To: "prof@example.edu", Subject: "Grade Review Request: Essay in Writing"}, nil
		},
	}

	rec := doRequest(t, newTestRouter(testDeps{grading: grading, emails: emails}), http.MethodGet, "/canvas/draft-email/101/202")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "email_drafted", body["status"])
	email := body["email"].(map[string]interface{})
	assert.Equal(t, "prof@example.edu", email["to"])
}

func TestSendDiscrepancyEmail_Sent(t *testing.T) {
	grading := &fakeGrading{
		checkGrade: func(context.Context, int64, int64) (*models.GradeCheckResult, error) {
			return discrepancyCheckResult(), nil
		},
	}
	emails := &fakeEmails{
		draft: func(context.Context, int64, int64, *models.GradeCheckResult) (*notify.Message, error) {
			return &notify.Message{To: "prof@example.edu", Subject: "Grade Review Request"}, nil
		},
	}
	sender := &notify.DummySender{}

	rec := doRequest(t, newTestRouter(testDeps{grading: grading, emails: emails, sender: sender}), http.MethodPost, "/canvas/send-grade-email/101/202")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "email_sent", body["status"])
	require.Len(t, sender.Sent(), 1)
	assert.Equal(t, "prof@example.edu", sender.Sent()[0].To)
}

func TestSendDiscrepancyEmail_NoEmailNeeded(t *testing.T) {
	grading := &fakeGrading{
		checkGrade: func(context.Context, int64, int64) (*models.GradeCheckResult, error) {
			return &models.GradeCheckResult{Status: models.GradeCheckNoRubric}, nil
		},
	}
	sender := &notify.DummySender{}

	rec := doRequest(t, newTestRouter(testDeps{grading: grading, sender: sender}), http.MethodPost, "/canvas/send-grade-email/101/202")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "no_email_needed", body["status"])
	assert.Empty(t, sender.Sent())
}

func TestSendDiscrepancyEmail_SendFailureIsNotHTTPError(t *testing.T) {
	grading := &fakeGrading{
		checkGrade: func(context.Context, int64, int64) (*models.GradeCheckResult, error) {
			return discrepancyCheckResult(), nil
		},
	}
	emails := &fakeEmails{
		draft: func(context.Context, int64, int64, *models.GradeCheckResult) (*notify.Message, error) {
			return &notify.Message{To: "prof@example.edu"}, nil
		},
	}
	sender := &notify.DummySender{Err: errors.New("smtp unavailable")}

	rec := doRequest(t, newTestRouter(testDeps{grading: grading, emails: emails, sender: sender}), http.MethodPost, "/canvas/send-grade-email/101/202")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "email_failed", body["status"])
	assert.Empty(t, sender.Sent())
}
