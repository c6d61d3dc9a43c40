package models

// Rating is one selectable level of a rubric criterion.
type Rating struct {
	ID          string  `json:"id"`
	Description string  `json:"description,omitempty"`
	Points      float64 `json:"points"`
}

// Criterion is one scoring criterion of a rubric.
type Criterion struct {
	ID          string   `json:"id"`
	Description string   `json:"description,omitempty"`
	Points      float64  `json:"points"`
	Ratings     []Rating `json:"ratings,omitempty"`
}

// Rubric is the set of scoring criteria attached to an assignment. Canvas
// embeds it in the assignment document under the "rubric" key.
type Rubric struct {
	AssignmentID   int64       `json:"assignment_id"`
	Title          string      `json:"title,omitempty"`
	PointsPossible float64     `json:"points_possible,omitempty"`
	Criteria       []Criterion `json:"rubric"`
}

// HasRubric reports whether the assignment actually carries rubric criteria.
func (r *Rubric) HasRubric() bool {
	return r != nil && len(r.Criteria) > 0
}

// FindRating resolves a rating id within a criterion.
func (c *Criterion) FindRating(ratingID string) (Rating, bool) {
	if ratingID == "" {
		return Rating{}, false
	}
	for _, rating := range c.Ratings {
		if rating.ID == ratingID {
			return rating, true
		}
	}
	return Rating{}, false
}
