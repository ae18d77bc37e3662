package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/accounts-service/internal/core/domain"
	"github.com/99minutos/accounts-service/internal/core/ports"
)

const auditCollection = "audit_events"

// AuditRepository implements ports.AuditRepository using MongoDB.
type AuditRepository struct {
	coll *mongo.Collection
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *mongo.Database) ports.AuditRepository {
	return &AuditRepository{coll: db.Collection(auditCollection)}
}

// InsertEvent appends an audit event to the audit_events collection.
func (r *AuditRepository) InsertEvent(ctx context.Context, event *domain.AuditEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.coll.InsertOne(ctx, auditDocument(event, time.Now().UTC()))
	return err
}

func auditDocument(event *domain.AuditEvent, storedAt time.Time) bson.M {
	doc := bson.M{
		"actor_id":    event.ActorID,
		"target_id":   event.TargetID,
		"action":      string(event.Action),
		"outcome":     string(event.Outcome),
		"occurred_at": event.OccurredAt.UTC(),
		"stored_at":   storedAt,
	}
	if event.Reason != "" {
		doc["reason"] = event.Reason
	}
	return doc
}
