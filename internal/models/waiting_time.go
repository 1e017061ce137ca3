package models

import "time"

// WaitingStatus tracks the greeter-observed progression for a student.
type WaitingStatus string

const (
	WaitingStatusWaiting   WaitingStatus = "waiting"
	WaitingStatusPickedUp  WaitingStatus = "picked_up"
	WaitingStatusCompleted WaitingStatus = "completed"
)

// Valid reports whether the waiting status is a supported value.
func (s WaitingStatus) Valid() bool {
	switch s {
	case WaitingStatusWaiting, WaitingStatusPickedUp, WaitingStatusCompleted:
		return true
	default:
		return false
	}
}

// Waiting time bounds in minutes.
const (
	WaitingMinutesMin = 0
	WaitingMinutesMax = 120
)

// WaitingTime is the greeter's per-student-per-date observation record.
// WaitingStartedAt is stamped on first write and never overwritten; one
// active record exists per (student, travel date).
type WaitingTime struct {
	ID               string        `db:"id" json:"id"`
	StudentID        string        `db:"student_id" json:"student_id"`
	TravelDate       string        `db:"travel_date" json:"travel_date"`
	WaitingMinutes   int           `db:"waiting_minutes" json:"waiting_minutes"`
	WaitingStartedAt time.Time     `db:"waiting_started_at" json:"waiting_started_at"`
	PickupTime       *time.Time    `db:"pickup_time" json:"pickup_time,omitempty"`
	Status           WaitingStatus `db:"status" json:"status"`
	Notes            string        `db:"notes" json:"notes"`
	Active           bool          `db:"active" json:"active"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}
