package models

import "time"

// FeedbackType classifies a greeter's absence note.
type FeedbackType string

const (
	FeedbackAbsent FeedbackType = "absent"
	FeedbackLate   FeedbackType = "late"
	FeedbackNoShow FeedbackType = "no_show"
	FeedbackOther  FeedbackType = "other"
)

// Valid reports whether the feedback type is a supported value.
func (t FeedbackType) Valid() bool {
	switch t {
	case FeedbackAbsent, FeedbackLate, FeedbackNoShow, FeedbackOther:
		return true
	default:
		return false
	}
}

// FeedbackReviewStatus tracks the admin review cycle.
type FeedbackReviewStatus string

const (
	FeedbackPending  FeedbackReviewStatus = "pending"
	FeedbackReviewed FeedbackReviewStatus = "reviewed"
	FeedbackResolved FeedbackReviewStatus = "resolved"
)

// Valid reports whether the review status is a supported value.
func (s FeedbackReviewStatus) Valid() bool {
	switch s {
	case FeedbackPending, FeedbackReviewed, FeedbackResolved:
		return true
	default:
		return false
	}
}

// MaxFeedbackLength bounds the free-text feedback body.
const MaxFeedbackLength = 1000

// AbsentFeedback is the greeter-submitted absence/lateness note for one
// student on one travel date. Any edit re-opens the review cycle: status
// resets to pending and the reviewer fields are cleared.
type AbsentFeedback struct {
	ID          string               `db:"id" json:"id"`
	StudentID   string               `db:"student_id" json:"student_id"`
	TravelDate  string               `db:"travel_date" json:"travel_date"`
	Feedback    string               `db:"feedback" json:"feedback"`
	Type        FeedbackType         `db:"feedback_type" json:"feedback_type"`
	Status      FeedbackReviewStatus `db:"status" json:"status"`
	SubmittedBy string               `db:"submitted_by" json:"submitted_by"`
	ReviewedBy  *string              `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewNotes *string              `db:"review_notes" json:"review_notes,omitempty"`
	Active      bool                 `db:"active" json:"active"`
	CreatedAt   time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time            `db:"updated_at" json:"updated_at"`
}

// AbsentFeedbackFilter scopes feedback listings.
type AbsentFeedbackFilter struct {
	StudentID string
	Date      string
	Type      *FeedbackType
	Status    *FeedbackReviewStatus
	Page      int
	PageSize  int
}
