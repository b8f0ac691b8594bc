package models

import "time"

// Student is a learner on a class roster. The grading workflow treats
// students as a read-only join: rosters are owned by class management.
type Student struct {
	ID              string    `db:"id" json:"id"`
	SchoolID        string    `db:"school_id" json:"school_id"`
	ClassID         string    `db:"class_id" json:"class_id"`
	Name            string    `db:"name" json:"name"`
	AdmissionNumber *string   `db:"admission_number" json:"admission_number,omitempty"`
	RollNumber      *string   `db:"roll_number" json:"roll_number,omitempty"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
