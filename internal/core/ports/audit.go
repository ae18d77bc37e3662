package ports

import (
	"context"

	"github.com/99minutos/accounts-service/internal/core/domain"
)

// AuditRecorder accepts audit events without blocking the caller on storage.
type AuditRecorder interface {
	Record(ctx context.Context, event domain.AuditEvent)
}

// AuditRepository persists audit events.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event *domain.AuditEvent) error
}

// AuditService processes a single dequeued audit event.
type AuditService interface {
	Process(ctx context.Context, event domain.AuditEvent) error
}
