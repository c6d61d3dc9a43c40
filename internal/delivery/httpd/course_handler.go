package httpd

import (
	"net/http"
	"strings"
)

// GetCourseID resolves a course id by name. Exact (case-insensitive) matches
// win over partial ones.
func (h *Handler) GetCourseID(w http.ResponseWriter, r *http.Request) {
	courseName := r.URL.Query().Get("course_name")
	if courseName == "" {
		writeError(w, http.StatusBadRequest, "course_name query parameter is required")
		return
	}

	courses, err := h.canvas.FetchUserCourses(r.Context())
	if err != nil {
		h.handleCanvasError(w, err, "fetching courses")
		return
	}

	needle := strings.ToLower(courseName)
	for _, course := range courses {
		if strings.ToLower(course.Name) == needle {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"course_name": courseName,
				"course_id":   course.ID,
			})
			return
		}
	}
	for _, course := range courses {
		if strings.Contains(strings.ToLower(course.Name), needle) {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"course_name": courseName,
				"course_id":   course.ID,
			})
			return
		}
	}

	writeError(w, http.StatusNotFound, "Course not found")
}

func (h *Handler) GetCourseAssignments(w http.ResponseWriter, r *http.Request) {
	courseID, err := idParam(r, "course_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	assignments, err := h.canvas.FetchAssignments(r.Context(), courseID)
	if err != nil {
		h.handleCanvasError(w, err, "fetching assignments")
		return
	}

	writeJSON(w, http.StatusOK, assignments)
}
