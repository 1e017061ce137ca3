package models

import "time"

// AssignmentStatus is the lifecycle state of an assignment record.
type AssignmentStatus string

const (
	AssignmentAssigned  AssignmentStatus = "Assigned"
	AssignmentCompleted AssignmentStatus = "Completed"
	AssignmentCancelled AssignmentStatus = "Cancelled"
)

// Valid reports whether the status is a supported value.
func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentAssigned, AssignmentCompleted, AssignmentCancelled:
		return true
	default:
		return false
	}
}

// LegStatus tracks the pickup and delivery sub-statuses independently.
type LegStatus string

const (
	LegPending   LegStatus = "Pending"
	LegCompleted LegStatus = "Completed"
)

// Valid reports whether the leg status is a supported value.
func (s LegStatus) Valid() bool {
	return s == LegPending || s == LegCompleted
}

// Assignment maps a student to exactly one driver or subdriver. Exactly one
// of DriverID/SubdriverID is set. At most one active assignment exists per
// student; the partial unique index on (student_id) WHERE active is the
// authoritative guard.
type Assignment struct {
	ID             string           `db:"id" json:"id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	DriverID       *string          `db:"driver_id" json:"driver_id,omitempty"`
	SubdriverID    *string          `db:"subdriver_id" json:"subdriver_id,omitempty"`
	AssignedBy     string           `db:"assigned_by" json:"assigned_by"`
	AssignmentDate time.Time        `db:"assignment_date" json:"assignment_date"`
	Status         AssignmentStatus `db:"status" json:"status"`
	PickupStatus   LegStatus        `db:"pickup_status" json:"pickup_status"`
	DeliveryStatus LegStatus        `db:"delivery_status" json:"delivery_status"`
	PickupTime     *time.Time       `db:"pickup_time" json:"pickup_time,omitempty"`
	DeliveryTime   *time.Time       `db:"delivery_time" json:"delivery_time,omitempty"`
	Notes          string           `db:"notes" json:"notes"`
	Active         bool             `db:"active" json:"active"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// ActorID returns whichever of driver/subdriver is set.
func (a Assignment) ActorID() string {
	if a.DriverID != nil {
		return *a.DriverID
	}
	if a.SubdriverID != nil {
		return *a.SubdriverID
	}
	return ""
}

// AssignmentDetail joins the assignment with student and actor metadata.
type AssignmentDetail struct {
	Assignment
	StudentNo   string  `db:"student_no" json:"student_no"`
	StudentName string  `db:"student_name" json:"student_name"`
	TravelDate  string  `db:"travel_date" json:"travel_date"`
	FlightCode  string  `db:"flight_code" json:"flight_code"`
	ActorName   *string `db:"actor_name" json:"actor_name,omitempty"`
}

// AssignmentFilter scopes assignment listings.
type AssignmentFilter struct {
	StudentID   string
	DriverID    string
	SubdriverID string
	Status      *AssignmentStatus
	Date        string
	Page        int
	PageSize    int
}
