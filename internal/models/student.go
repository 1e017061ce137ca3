package models

import "time"

// TravelDirection distinguishes departures from international arrivals.
type TravelDirection string

const (
	DirectionDeparture TravelDirection = "D"
	DirectionArrival   TravelDirection = "I"
)

// Valid reports whether the direction flag is supported.
func (d TravelDirection) Valid() bool {
	return d == DirectionDeparture || d == DirectionArrival
}

// StudentRecord is one student's arrival record for a single travel date.
// A student number is unique per travel date among active rows; deletion is
// a soft deactivate, never a purge.
type StudentRecord struct {
	ID             string          `db:"id" json:"id"`
	StudentNo      string          `db:"student_no" json:"student_no"`
	TravelDate     string          `db:"travel_date" json:"travel_date"`
	TripCode       string          `db:"trip_code" json:"trip_code"`
	ScheduledTime  string          `db:"scheduled_time" json:"scheduled_time"`
	ActualTime     string          `db:"actual_time" json:"actual_time"`
	FlightCode     string          `db:"flight_code" json:"flight_code"`
	Direction      TravelDirection `db:"direction" json:"direction"`
	Sex            string          `db:"sex" json:"sex"`
	GivenName      string          `db:"given_name" json:"given_name"`
	FamilyName     string          `db:"family_name" json:"family_name"`
	HostGivenName  string          `db:"host_given_name" json:"host_given_name"`
	HostFamilyName string          `db:"host_family_name" json:"host_family_name"`
	Phone          string          `db:"phone" json:"phone"`
	Address        string          `db:"address" json:"address"`
	City           string          `db:"city" json:"city"`
	SchoolID       *string         `db:"school_id" json:"school_id,omitempty"`
	ClientID       *string         `db:"client_id" json:"client_id,omitempty"`
	ExcelOrder     int             `db:"excel_order" json:"excel_order"`
	Active         bool            `db:"active" json:"active"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// StudentDetail joins the record with school and client names for display.
type StudentDetail struct {
	StudentRecord
	SchoolName *string `db:"school_name" json:"school_name,omitempty"`
	ClientName *string `db:"client_name" json:"client_name,omitempty"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
// Date holds the caller's raw input; repositories expand it to both stored
// representations before querying.
type StudentFilter struct {
	Search    string
	Date      string
	SchoolID  string
	ClientID  string
	Direction *TravelDirection
	Active    *bool
	Page      int
	PageSize  int
}
