package models

import "time"

// StudentFlag is a mutable annotation on a student record, typically a
// payment issue raised by staff. Many flags may exist per student; only a
// subset is active at a time.
type StudentFlag struct {
	ID         string     `db:"id" json:"id"`
	StudentID  string     `db:"student_id" json:"student_id"`
	Reason     string     `db:"reason" json:"reason"`
	Active     bool       `db:"active" json:"active"`
	ResolvedAt *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}
