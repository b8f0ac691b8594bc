package models

import "time"

// Class is a school class. CurriculumType drives the grading scheme; it is
// nullable in storage because legacy classes may predate curriculum setup,
// and the classifier refuses to grade such classes until it is set.
type Class struct {
	ID             string    `db:"id" json:"id"`
	SchoolID       string    `db:"school_id" json:"school_id"`
	Name           string    `db:"name" json:"name"`
	CurriculumType *string   `db:"curriculum_type" json:"curriculum_type,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
