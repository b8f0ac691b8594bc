package service

import "github.com/edufam/gradebook-api/internal/models"

// Edit-denial reasons surfaced to the client verbatim.
const (
	ReasonNotOwner        = "these grades were created by another teacher"
	ReasonSubmitted       = "grades already submitted - only principals can edit"
	ReasonApproved        = "grades already approved - only principals can edit"
	ReasonReleased        = "grades have been released and can no longer be changed"
	ReasonRoleCannotGrade = "your role does not permit entering grades"
)

// EvaluateEdit decides whether the actor may edit the sheet in its current
// state. It is a total function over every role/status/ownership combination;
// callers enforce the verdict before any write.
//
// An empty status means no grades exist yet for the scope, so anyone who can
// grade at all may start a draft. Released is terminal for every role.
func EvaluateEdit(actor models.Actor, status models.GradeStatus, submittedBy string) models.EditDecision {
	if !actor.Role.CanGrade() {
		return models.EditDecision{Reason: ReasonRoleCannotGrade}
	}
	if status == "" {
		return models.EditDecision{Allowed: true}
	}
	if status == models.StatusReleased {
		return models.EditDecision{Reason: ReasonReleased}
	}
	if actor.Role.Administrative() {
		return models.EditDecision{Allowed: true}
	}

	// Teachers from here on.
	switch status {
	case models.StatusDraft, models.StatusRejected:
		if submittedBy == "" || submittedBy == actor.UserID {
			return models.EditDecision{Allowed: true}
		}
		return models.EditDecision{Reason: ReasonNotOwner}
	case models.StatusSubmitted, models.StatusApproved:
		// Ownership message wins over the status message for foreign batches.
		if submittedBy != "" && submittedBy != actor.UserID {
			return models.EditDecision{Reason: ReasonNotOwner}
		}
		if status == models.StatusApproved {
			return models.EditDecision{Reason: ReasonApproved}
		}
		return models.EditDecision{Reason: ReasonSubmitted}
	default:
		return models.EditDecision{Reason: ReasonSubmitted}
	}
}
