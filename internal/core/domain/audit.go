package domain

import "time"

// AuditAction names a user-management operation.
type AuditAction string

const (
	AuditSignup         AuditAction = "signup"
	AuditUpdate         AuditAction = "update"
	AuditRoleChange     AuditAction = "role_change"
	AuditDelete         AuditAction = "delete"
	AuditPasswordChange AuditAction = "password_change"
)

// AuditOutcome records whether the policy allowed the operation.
type AuditOutcome string

const (
	OutcomeAllowed AuditOutcome = "allowed"
	OutcomeDenied  AuditOutcome = "denied"
)

// AuditEvent is an append-only record of a user-management decision.
type AuditEvent struct {
	ActorID    string
	TargetID   string
	Action     AuditAction
	Outcome    AuditOutcome
	Reason     string // deny reason, empty when allowed
	OccurredAt time.Time
}
