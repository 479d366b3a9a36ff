package ports

import (
	"context"

	"github.com/clinical-meteor/checklist-manifesto/internal/core/domain"
)

// AuditSink accepts login attempts for asynchronous recording. Enqueue must
// not block the caller beyond channel buffering and must never fail the
// login path.
type AuditSink interface {
	Enqueue(attempt domain.LoginAttempt)
}

// AuditRecorder persists a single login attempt.
type AuditRecorder interface {
	Record(ctx context.Context, attempt domain.LoginAttempt) error
}

// AuditRepository is the storage contract for the audit trail.
type AuditRepository interface {
	InsertAttempt(ctx context.Context, attempt *domain.LoginAttempt) error
}
