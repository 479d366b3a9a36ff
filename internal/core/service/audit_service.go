package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/clinical-meteor/checklist-manifesto/internal/core/domain"
	"github.com/clinical-meteor/checklist-manifesto/internal/core/ports"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService returns an AuditRecorder that persists login attempts to
// the audit trail.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditRecorder {
	return &auditService{repo: repo, log: log}
}

// Record persists one attempt. Failures are returned to the dispatcher for
// logging; the attempt is dropped, never retried. The audit trail is
// best-effort by contract.
func (s *auditService) Record(ctx context.Context, attempt domain.LoginAttempt) error {
	if err := s.repo.InsertAttempt(ctx, &attempt); err != nil {
		return fmt.Errorf("record login attempt: %w", err)
	}

	s.log.Debug().
		Str("username", attempt.Username).
		Str("method", attempt.Method).
		Bool("success", attempt.Success).
		Msg("login attempt recorded")
	return nil
}
