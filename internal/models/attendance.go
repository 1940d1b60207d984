package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusSick    AttendanceStatus = "SICK"
	AttendanceStatusPermit  AttendanceStatus = "PERMIT"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusSick, AttendanceStatusPermit, AttendanceStatusAbsent:
		return true
	default:
		return false
	}
}

// Attendance represents a single daily attendance row. One row exists per
// (student, date); repeated writes for the same day overwrite the status.
type Attendance struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Notes     *string          `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceRecord extends the model with student metadata.
type AttendanceRecord struct {
	Attendance
	StudentName string  `db:"student_name" json:"student_name"`
	ClassName   *string `db:"class_name" json:"class_name,omitempty"`
}

// AttendanceFilter defines query filters.
type AttendanceFilter struct {
	StudentID       string
	ClassOfferingID string
	Status          *AttendanceStatus
	DateFrom        *time.Time
	DateTo          *time.Time
	Page            int
	PageSize        int
	SortBy          string
	SortOrder       string
}
