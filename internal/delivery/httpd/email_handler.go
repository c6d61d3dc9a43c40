package httpd

import "net/http"

// DraftDiscrepancyEmail runs the grade check and, when a discrepancy exists,
// returns the email that would be sent without sending it.
func (h *Handler) DraftDiscrepancyEmail(w http.ResponseWriter, r *http.Request) {
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

	check, err := h.grading.CheckGradeAgainstRubric(ctx, courseID, assignmentID)
	if err != nil {
		h.handleCanvasError(w, err, "drafting email")
		return
	}

	if !check.HasDiscrepancy() {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":      "no_discrepancy",
			"message":     "No grade discrepancy found - no email needed",
			"grade_check": check,
		})
		return
	}

	msg, err := h.emails.DraftDiscrepancyEmail(ctx, courseID, assignmentID, check)
	if err != nil {
		h.handleCanvasError(w, err, "drafting email")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "email_drafted",
		"email":       msg,
		"grade_check": check,
	})
}

// SendDiscrepancyEmail drafts and immediately sends the review-request
// email. A send failure is reported in the response body, not as an HTTP
// error.
func (h *Handler) SendDiscrepancyEmail(w http.ResponseWriter, r *http.Request) {
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

	check, err := h.grading.CheckGradeAgainstRubric(ctx, courseID, assignmentID)
	if err != nil {
		h.handleCanvasError(w, err, "sending email")
		return
	}

	if !check.HasDiscrepancy() {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "no_email_needed",
			"message": "No grade discrepancy detected - no email sent",
		})
		return
	}

	msg, err := h.emails.DraftDiscrepancyEmail(ctx, courseID, assignmentID, check)
	if err != nil {
		h.handleCanvasError(w, err, "sending email")
		return
	}

	if err := h.sender.Send(ctx, msg); err != nil {
		h.logger.Error().Err(err).Str("to", msg.To).Msg("Failed to send discrepancy email")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "email_failed",
			"message": "Failed to send email - check email settings",
			"email":   msg,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "email_sent",
		"message": "Grade discrepancy email sent successfully",
		"email":   msg,
	})
}
