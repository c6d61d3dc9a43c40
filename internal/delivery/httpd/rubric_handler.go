package httpd

import "net/http"

func (h *Handler) GetAssignmentRubric(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := idParam(r, "assignment_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rubric, err := h.grading.GetAssignmentRubric(r.Context(), assignmentID)
	if err != nil {
		h.handleCanvasError(w, err, "fetching rubric")
		return
	}

	writeJSON(w, http.StatusOK, rubric)
}
