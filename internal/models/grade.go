package models

import "time"

// Grade represents a subject score for a student, 0-100.
type Grade struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Subject   string    `db:"subject" json:"subject"`
	Term      string    `db:"term" json:"term"`
	Score     float64   `db:"score" json:"score"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// GradeRecord extends Grade with student metadata.
type GradeRecord struct {
	Grade
	StudentName string `db:"student_name" json:"student_name"`
}

// GradeFilter defines query filters for listing grades.
type GradeFilter struct {
	StudentID string
	Subject   string
	Term      string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
