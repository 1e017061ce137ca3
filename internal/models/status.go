package models

import "time"

// DisplayStatus is the derived day-of-travel state shown on dashboards.
// It is computed at read time from the assignment and waiting-time stores
// and never persisted.
type DisplayStatus string

const (
	StatusWaiting   DisplayStatus = "Waiting"
	StatusInCar     DisplayStatus = "In Car"
	StatusDelivered DisplayStatus = "Delivered"
)

// StudentStatus is one dashboard row: a student record joined with the
// derived status and the preferred pickup timestamp.
type StudentStatus struct {
	StudentID   string        `json:"student_id"`
	StudentNo   string        `json:"student_no"`
	StudentName string        `json:"student_name"`
	TravelDate  string        `json:"travel_date"`
	FlightCode  string        `json:"flight_code"`
	Direction   string        `json:"direction"`
	SchoolName  *string       `json:"school_name,omitempty"`
	Status      DisplayStatus `json:"status"`
	PickupTime  *time.Time    `json:"pickup_time,omitempty"`
	DriverName  *string       `json:"driver_name,omitempty"`
}

// StatusStats aggregates derived statuses over a filtered student set.
// Counts are recomputed from the live join on every call.
type StatusStats struct {
	Total            int     `json:"total"`
	Waiting          int     `json:"waiting"`
	InCar            int     `json:"in_car"`
	Delivered        int     `json:"delivered"`
	WaitingPercent   float64 `json:"waiting_percent"`
	InCarPercent     float64 `json:"in_car_percent"`
	DeliveredPercent float64 `json:"delivered_percent"`
}

// StatusFilter scopes dashboard queries. SchoolID is forced to the caller's
// school for school accounts.
type StatusFilter struct {
	Date     string
	SchoolID string
	Search   string
	Page     int
	PageSize int
}

// StatusJoinRow is the raw repository row the derivation works on: one
// student plus the nullable signals owned by the other stores.
type StatusJoinRow struct {
	StudentID          string     `db:"student_id"`
	StudentNo          string     `db:"student_no"`
	StudentName        string     `db:"student_name"`
	TravelDate         string     `db:"travel_date"`
	FlightCode         string     `db:"flight_code"`
	Direction          string     `db:"direction"`
	SchoolName         *string    `db:"school_name"`
	WaitingPickupTime  *time.Time `db:"waiting_pickup_time"`
	AssignPickupTime   *time.Time `db:"assign_pickup_time"`
	DeliveryStatus     *string    `db:"delivery_status"`
	DriverName         *string    `db:"driver_name"`
}
