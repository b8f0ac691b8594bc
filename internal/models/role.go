package models

import "fmt"

// Role is the closed set of actor roles the grading workflow distinguishes.
// The permission gate and subject resolver branch on the role variant, never
// on raw strings from the client.
type Role string

const (
	RoleTeacher        Role = "TEACHER"
	RolePrincipal      Role = "PRINCIPAL"
	RoleSchoolDirector Role = "SCHOOL_DIRECTOR"
	RoleFinanceOfficer Role = "FINANCE_OFFICER"
	RoleParent         Role = "PARENT"
)

// ParseRole validates a raw role value.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleTeacher, RolePrincipal, RoleSchoolDirector, RoleFinanceOfficer, RoleParent:
		return Role(raw), nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// Administrative reports whether the role carries principal-level rights over
// grade batches: edit regardless of ownership, approve, reject and release.
func (r Role) Administrative() bool {
	return r == RolePrincipal || r == RoleSchoolDirector
}

// CanGrade reports whether the role may create grade records at all.
func (r Role) CanGrade() bool {
	return r == RoleTeacher || r.Administrative()
}

// Actor identifies the authenticated user driving a grading request. It is
// passed explicitly into every resolver and adapter call rather than read
// from ambient session state.
type Actor struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// Scope is the tuple that bounds every grading query and write.
type Scope struct {
	SchoolID string `json:"school_id" validate:"required"`
	ClassID  string `json:"class_id" validate:"required"`
	Term     string `json:"term" validate:"required"`
	ExamType string `json:"exam_type" validate:"required"`
}

// CacheKey builds a structured cache key for this scope. Extra segments
// narrow the key further (for example a teacher ID for role-scoped subject
// lists).
func (s Scope) CacheKey(kind string, extra ...string) string {
	key := fmt.Sprintf("gradebook:%s:%s:%s:%s:%s", kind, s.SchoolID, s.ClassID, s.Term, s.ExamType)
	for _, part := range extra {
		key += ":" + part
	}
	return key
}

// CachePattern matches every cached entry for the school/class pair so a
// scope change can invalidate rosters, subjects and sheets together.
func (s Scope) CachePattern() string {
	return fmt.Sprintf("gradebook:*:%s:%s:*", s.SchoolID, s.ClassID)
}
