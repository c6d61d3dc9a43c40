package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/blaybrigidi/4Salvage/internal/models"
)

// APIError is a non-success HTTP response from the Canvas API. It is passed
// through to API callers with the upstream status code intact.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Canvas API error: %d - %s", e.StatusCode, e.Body)
}

// CanvasClient covers the Canvas REST calls this service depends on.
type CanvasClient interface {
	FetchMyGrade(ctx context.Context, courseID, assignmentID int64) (*models.Submission, error)
	FetchAssignmentRubric(ctx context.Context, assignmentID int64) (*models.Rubric, error)
	FetchUserCourses(ctx context.Context) ([]models.Course, error)
	FetchAssignments(ctx context.Context, courseID int64) ([]models.Assignment, error)
	FetchCourse(ctx context.Context, courseID int64) (*models.Course, error)
	FetchAssignmentDetails(ctx context.Context, assignmentID int64) (*models.Assignment, error)
	FetchCourseInstructor(ctx context.Context, courseID int64) (*models.User, error)
	FetchCurrentUser(ctx context.Context) (*models.User, error)
}

type canvasClient struct {
	baseURL    string
	token      string
	perPage    int
	retryCount int
	retryDelay time.Duration
	client     *http.Client
	logger     zerolog.Logger
}

func NewCanvasClient(baseURL, token string, timeout time.Duration, retryCount int, retryDelay time.Duration, perPage int, logger zerolog.Logger) CanvasClient {
	if perPage <= 0 {
		perPage = 100
	}
	return &canvasClient{
		baseURL:    baseURL,
		token:      token,
		perPage:    perPage,
		retryCount: retryCount,
		retryDelay: retryDelay,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// getJSON performs an authenticated GET and decodes the response into out.
// Transport errors and 5xx responses are retried with a linear delay; any
// other non-2xx response is returned immediately as an *APIError.
func (c *canvasClient) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var lastErr error

	for i := 0; i <= c.retryCount; i++ {
		if i > 0 {
			c.logger.Warn().Int("attempt", i).Str("path", path).Msg("Retrying Canvas request")
			time.Sleep(c.retryDelay * time.Duration(i))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("canvas request failed: %w", err)
			continue
		}

		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("failed to decode canvas response: %w", err)
			}
			return nil
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(body)}
		if resp.StatusCode < http.StatusInternalServerError {
			return apiErr
		}
		lastErr = apiErr
	}

	return lastErr
}

func (c *canvasClient) FetchMyGrade(ctx context.Context, courseID, assignmentID int64) (*models.Submission, error) {
	path := fmt.Sprintf("/api/v1/courses/%d/assignments/%d/submissions/self", courseID, assignmentID)
	query := url.Values{}
	query.Add("include[]", "rubric_assessment")
	query.Add("include[]", "assignment")

	var submission models.Submission
	if err := c.getJSON(ctx, path, query, &submission); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int64("course_id", courseID).
		Int64("assignment_id", assignmentID).
		Str("workflow_state", submission.WorkflowState).
		Msg("Fetched submission")

	return &submission, nil
}

func (c *canvasClient) FetchAssignmentRubric(ctx context.Context, assignmentID int64) (*models.Rubric, error) {
	path := fmt.Sprintf("/api/v1/assignments/%d", assignmentID)

	var payload struct {
		ID             int64              `json:"id"`
		Name           string             `json:"name"`
		PointsPossible float64            `json:"points_possible"`
		Rubric         []models.Criterion `json:"rubric"`
		RubricSettings struct {
			Title          string  `json:"title"`
			PointsPossible float64 `json:"points_possible"`
		} `json:"rubric_settings"`
	}
	if err := c.getJSON(ctx, path, nil, &payload); err != nil {
		return nil, err
	}

	title := payload.RubricSettings.Title
	if title == "" {
		title = payload.Name
	}
	points := payload.RubricSettings.PointsPossible
	if points == 0 {
		points = payload.PointsPossible
	}

	return &models.Rubric{
		AssignmentID:   payload.ID,
		Title:          title,
		PointsPossible: points,
		Criteria:       payload.Rubric,
	}, nil
}

func (c *canvasClient) FetchUserCourses(ctx context.Context) ([]models.Course, error) {
	query := url.Values{}
	query.Set("per_page", strconv.Itoa(c.perPage))

	var courses []models.Course
	if err := c.getJSON(ctx, "/api/v1/courses", query, &courses); err != nil {
		return nil, err
	}

	c.logger.Debug().Int("count", len(courses)).Msg("Fetched courses")
	return courses, nil
}

func (c *canvasClient) FetchAssignments(ctx context.Context, courseID int64) ([]models.Assignment, error) {
	path := fmt.Sprintf("/api/v1/courses/%d/assignments", courseID)
	query := url.Values{}
	query.Set("per_page", strconv.Itoa(c.perPage))

	var assignments []models.Assignment
	if err := c.getJSON(ctx, path, query, &assignments); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int64("course_id", courseID).
		Int("count", len(assignments)).
		Msg("Fetched assignments")

	return assignments, nil
}

func (c *canvasClient) FetchCourse(ctx context.Context, courseID int64) (*models.Course, error) {
	path := fmt.Sprintf("/api/v1/courses/%d", courseID)

	var course models.Course
	if err := c.getJSON(ctx, path, nil, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

func (c *canvasClient) FetchAssignmentDetails(ctx context.Context, assignmentID int64) (*models.Assignment, error) {
	path := fmt.Sprintf("/api/v1/assignments/%d", assignmentID)

	var assignment models.Assignment
	if err := c.getJSON(ctx, path, nil, &assignment); err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (c *canvasClient) FetchCourseInstructor(ctx context.Context, courseID int64) (*models.User, error) {
	path := fmt.Sprintf("/api/v1/courses/%d/users", courseID)
	query := url.Values{}
	query.Add("enrollment_type[]", "teacher")
	query.Add("include[]", "email")

	var users []models.User
	if err := c.getJSON(ctx, path, query, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("no instructor found for course %d", courseID)
	}
	return &users[0], nil
}

func (c *canvasClient) FetchCurrentUser(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.getJSON(ctx, "/api/v1/users/self", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
