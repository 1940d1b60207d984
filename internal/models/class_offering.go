package models

import "time"

// ClassOffering is a scheduled class section for one academic year with a
// bounded number of seats. Capacity must stay >= 1 and may never drop
// below the current confirmed occupancy.
type ClassOffering struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	Level        string    `db:"level" json:"level"`
	TimeSlot     string    `db:"time_slot" json:"time_slot"`
	Capacity     int       `db:"capacity" json:"capacity"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ClassAvailability pairs an offering with its derived seat availability.
// Occupancy is recomputed from confirmed students on every read; it is
// never stored.
type ClassAvailability struct {
	ClassOffering
	ConfirmedCount int `db:"confirmed_count" json:"confirmed_count"`
	AvailableSpots int `db:"available_spots" json:"available_spots"`
}

// ClassOfferingFilter defines filter criteria for listing offerings.
type ClassOfferingFilter struct {
	AcademicYear string
	Level        string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
