package httpd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"sort"
)

func (h *Handler) GetMyAssignmentGrade(w http.ResponseWriter, r *http.Request) {
	courseID, err := idParam(r, "course_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	assignmentID, err := idParam(r, "assignment_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	submission, err := h.grading.GetMyGrade(r.Context(), courseID, assignmentID)
	if err != nil {
		h.handleCanvasError(w, err, "fetching grade")
		return
	}

	writeJSON(w, http.StatusOK, submission)
}

// DebugRubricAssessment dumps the raw rubric assessment alongside its JSON
// shape and criterion keys, for diagnosing assessments Canvas returns in an
// unexpected form.
func (h *Handler) DebugRubricAssessment(w http.ResponseWriter, r *http.Request) {
	courseID, err := idParam(r, "course_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	assignmentID, err := idParam(r, "assignment_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()

	submission, err := h.grading.GetMyGrade(ctx, courseID, assignmentID)
	if err != nil {
		h.debugError(w, err)
		return
	}

	rubric, err := h.grading.GetAssignmentRubric(ctx, assignmentID)
	if err != nil {
		h.debugError(w, err)
		return
	}

	rawAssessment := submission.RubricAssessment
	if len(rawAssessment) == 0 {
		rawAssessment = json.RawMessage("{}")
	}

	assessmentKeys := []string{}
	if assessment, ok := submission.AssessmentMap(); ok {
		for key := range assessment {
			assessmentKeys = append(assessmentKeys, key)
		}
		sort.Strings(assessmentKeys)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"submission_id":          submission.ID,
		"score":                  submission.Score,
		"rubric":                 rubric.Criteria,
		"rubric_assessment":      rawAssessment,
		"rubric_assessment_type": submission.AssessmentShape(),
		"assessment_keys":        assessmentKeys,
	})
}

// debugError surfaces every failure as a 500 and logs the stack, so the
// debug endpoint always shows where parsing went wrong.
func (h *Handler) debugError(w http.ResponseWriter, err error) {
	h.logger.Error().Err(err).
		Str("stack", string(debug.Stack())).
		Msg("Error debugging rubric assessment")
	writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error debugging rubric assessment: %v", err))
}

func (h *Handler) CheckGradeAgainstRubric(w http.ResponseWriter, r *http.Request) {
	courseID, err := idParam(r, "course_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	assignmentID, err := idParam(r, "assignment_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	check, err := h.grading.CheckGradeAgainstRubric(r.Context(), courseID, assignmentID)
	if err != nil {
		h.handleCanvasError(w, err, "checking grade")
		return
	}

	writeJSON(w, http.StatusOK, check)
}
