package models

import "time"

// RegistrationStatus represents the lifecycle of a student registration.
type RegistrationStatus string

// Registration lifecycle. Only CONFIRMED students count toward an
// offering's occupancy; PENDING registrations form an unbounded waiting
// pool and CANCELLED ones keep their row for history.
const (
	RegistrationStatusPending   RegistrationStatus = "PENDING"
	RegistrationStatusConfirmed RegistrationStatus = "CONFIRMED"
	RegistrationStatusCancelled RegistrationStatus = "CANCELLED"
)

// Student is a registered learner. Every student references exactly one
// guardian and at most one class offering.
type Student struct {
	ID              string             `db:"id" json:"id"`
	FullName        string             `db:"full_name" json:"full_name"`
	Gender          string             `db:"gender" json:"gender"`
	BirthDate       time.Time          `db:"birth_date" json:"birth_date"`
	AcademicYear    string             `db:"academic_year" json:"academic_year"`
	ParentID        string             `db:"parent_id" json:"parent_id"`
	ClassOfferingID *string            `db:"class_offering_id" json:"class_offering_id,omitempty"`
	Status          RegistrationStatus `db:"status" json:"status"`
	ConfirmedAt     *time.Time         `db:"confirmed_at" json:"confirmed_at,omitempty"`
	CreatedAt       time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `db:"updated_at" json:"updated_at"`
}

// StudentDetail enriches Student with guardian and class context.
type StudentDetail struct {
	Student
	ParentName  string  `db:"parent_name" json:"parent_name"`
	ParentPhone string  `db:"parent_phone" json:"parent_phone"`
	ClassName   *string `db:"class_name" json:"class_name,omitempty"`
}

// StudentFilter encapsulates the allowed search parameters for listing
// students. Search matches student and guardian names case-insensitively;
// the remaining fields are ANDed equality/range filters.
type StudentFilter struct {
	Search          string
	Status          RegistrationStatus
	ClassOfferingID string
	AcademicYear    string
	RegisteredFrom  *time.Time
	RegisteredTo    *time.Time
	Page            int
	PageSize        int
	SortBy          string
	SortOrder       string
}
