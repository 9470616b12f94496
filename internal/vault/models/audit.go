package models

import "time"

// AuditAction names a recorded operation on a secret.
type AuditAction string

const (
	AuditCreated  AuditAction = "created"
	AuditAccessed AuditAction = "accessed"
	AuditUpdated  AuditAction = "updated"
	AuditDeleted  AuditAction = "deleted"
)

// AuditRecord is one append-only row of the audit log. Rows are removed only
// by the cascading delete of their secret.
type AuditRecord struct {
	Id        int64
	SecretId  string
	Timestamp time.Time
	Action    AuditAction
	Actor     string
	Details   string
}
