package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-service/internal/core/domain"
	"github.com/99minutos/accounts-service/internal/core/ports"
	"github.com/99minutos/accounts-service/internal/pkg/metrics"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService returns an AuditService that persists each event.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Process stores a single audit event.
func (s *auditService) Process(ctx context.Context, event domain.AuditEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	start := time.Now()
	err := s.repo.InsertEvent(ctx, &event)
	metrics.AuditWriteDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AuditEventsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("store audit event: %w", err)
	}

	metrics.AuditEventsTotal.WithLabelValues("stored").Inc()
	s.log.Debug().
		Str("actor_id", event.ActorID).
		Str("user_id", event.TargetID).
		Str("action", string(event.Action)).
		Str("outcome", string(event.Outcome)).
		Msg("audit event stored")
	return nil
}

type nopAuditRecorder struct{}

func (nopAuditRecorder) Record(context.Context, domain.AuditEvent) {}
