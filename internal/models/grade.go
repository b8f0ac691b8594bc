package models

import "time"

// GradeStatus is the lifecycle state of a grade batch.
type GradeStatus string

const (
	StatusDraft     GradeStatus = "draft"
	StatusSubmitted GradeStatus = "submitted"
	StatusApproved  GradeStatus = "approved"
	StatusRejected  GradeStatus = "rejected"
	StatusReleased  GradeStatus = "released"
)

// CanTransitionTo reports whether the approval workflow allows moving from
// this status to the next one. Draft/submitted movement is handled by the
// capture workflow itself; this covers the principal-side transitions.
func (s GradeStatus) CanTransitionTo(next GradeStatus) bool {
	switch s {
	case StatusSubmitted:
		return next == StatusApproved || next == StatusRejected
	case StatusApproved:
		return next == StatusReleased
	default:
		return false
	}
}

// Terminal reports whether no further transition is possible.
func (s GradeStatus) Terminal() bool {
	return s == StatusReleased
}

// GradeCell is one in-progress cell of the grading sheet: the value a teacher
// has entered for one student and subject, before it is flushed to storage.
// Which fields are meaningful depends on the class curriculum.
type GradeCell struct {
	Score           *float64                    `json:"score,omitempty"`
	Percentage      *float64                    `json:"percentage,omitempty"`
	LetterGrade     *string                     `json:"letter_grade,omitempty"`
	CourseworkScore *float64                    `json:"coursework_score,omitempty"`
	ExamScore       *float64                    `json:"exam_score,omitempty"`
	StrandScores    map[string]PerformanceLevel `json:"strand_scores,omitempty"`
	TeacherRemarks  string                      `json:"teacher_remarks,omitempty"`
}

// GradeBatch stages edits before a save or submit flushes them as a set,
// keyed student ID then subject ID.
type GradeBatch map[string]map[string]GradeCell

// Cell returns the staged cell for a student/subject pair.
func (b GradeBatch) Cell(studentID, subjectID string) (GradeCell, bool) {
	subjects, ok := b[studentID]
	if !ok {
		return GradeCell{}, false
	}
	cell, ok := subjects[subjectID]
	return cell, ok
}

// Put stages a cell, allocating the inner map on first use.
func (b GradeBatch) Put(studentID, subjectID string, cell GradeCell) {
	if b[studentID] == nil {
		b[studentID] = make(map[string]GradeCell)
	}
	b[studentID][subjectID] = cell
}

// GradeRow is a persisted grade record for the standard and certificate
// curricula. The natural identity is
// (school_id, student_id, subject_id, class_id, term, exam_type, submitted_by);
// upserts resolve on that tuple.
type GradeRow struct {
	ID              string      `db:"id" json:"id"`
	SchoolID        string      `db:"school_id" json:"school_id"`
	StudentID       string      `db:"student_id" json:"student_id"`
	SubjectID       string      `db:"subject_id" json:"subject_id"`
	ClassID         string      `db:"class_id" json:"class_id"`
	Term            string      `db:"term" json:"term"`
	ExamType        string      `db:"exam_type" json:"exam_type"`
	CurriculumType  Curriculum  `db:"curriculum_type" json:"curriculum_type"`
	Score           *float64    `db:"score" json:"score,omitempty"`
	MaxScore        float64     `db:"max_score" json:"max_score"`
	Percentage      *float64    `db:"percentage" json:"percentage,omitempty"`
	LetterGrade     *string     `db:"letter_grade" json:"letter_grade,omitempty"`
	CourseworkScore *float64    `db:"coursework_score" json:"coursework_score,omitempty"`
	ExamScore       *float64    `db:"exam_score" json:"exam_score,omitempty"`
	Comments        *string     `db:"comments" json:"comments,omitempty"`
	Status          GradeStatus `db:"status" json:"status"`
	SubmittedBy     string      `db:"submitted_by" json:"submitted_by"`
	SubmittedAt     time.Time   `db:"submitted_at" json:"submitted_at"`
	ApprovedBy      *string     `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time  `db:"approved_at" json:"approved_at,omitempty"`
	ReleasedAt      *time.Time  `db:"released_at" json:"released_at,omitempty"`
	PrincipalNotes  *string     `db:"principal_notes" json:"principal_notes,omitempty"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`
}

// StrandAssessmentRow is a persisted competency assessment. A competency
// grade cell fans out into one row per assessed strand; the natural identity
// is (school_id, student_id, subject_id, class_id, term, assessment_type,
// strand_name, teacher_id).
type StrandAssessmentRow struct {
	ID               string           `db:"id" json:"id"`
	SchoolID         string           `db:"school_id" json:"school_id"`
	StudentID        string           `db:"student_id" json:"student_id"`
	SubjectID        string           `db:"subject_id" json:"subject_id"`
	ClassID          string           `db:"class_id" json:"class_id"`
	TeacherID        string           `db:"teacher_id" json:"teacher_id"`
	StrandName       string           `db:"strand_name" json:"strand_name"`
	PerformanceLevel PerformanceLevel `db:"performance_level" json:"performance_level"`
	AssessmentType   string           `db:"assessment_type" json:"assessment_type"`
	Term             string           `db:"term" json:"term"`
	TeacherRemarks   string           `db:"teacher_remarks" json:"teacher_remarks"`
	AssessmentDate   string           `db:"assessment_date" json:"assessment_date"`
	Status           GradeStatus      `db:"status" json:"status"`
	SubmittedAt      *time.Time       `db:"submitted_at" json:"submitted_at,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// GradeFilter narrows a scoped grade query. SubmittedBy limits rows to one
// author; Statuses limits rows to the given lifecycle states.
type GradeFilter struct {
	SubmittedBy string
	Statuses    []GradeStatus
}

// StrandFilter narrows a scoped strand assessment query.
type StrandFilter struct {
	TeacherID string
	Statuses  []GradeStatus
}

// SheetStatus carries the permission-relevant fields of the most recently
// loaded batch: the status and author of the first matching record. When
// multiple authors' records coexist in one scope this is a simplifying
// convention, not an authoritative per-cell value.
type SheetStatus struct {
	Status      GradeStatus `json:"status,omitempty"`
	SubmittedBy string      `json:"submitted_by,omitempty"`
}

// EditDecision is the permission gate's verdict for the current actor.
type EditDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}
