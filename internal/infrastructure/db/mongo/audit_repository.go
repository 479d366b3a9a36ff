package mongo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/clinical-meteor/checklist-manifesto/internal/core/domain"
)

const auditCollection = "login_audit"

// MongoAuditRepository stores the login audit trail.
type MongoAuditRepository struct {
	coll *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *MongoAuditRepository {
	return &MongoAuditRepository{coll: db.Collection(auditCollection)}
}

type auditDoc struct {
	ID       string `bson:"_id"`
	Username string `bson:"username"`
	UserID   string `bson:"user_id,omitempty"`
	Method   string `bson:"method"`
	Success  bool   `bson:"success"`
	Reason   string `bson:"reason,omitempty"`
	RemoteIP string `bson:"remote_ip,omitempty"`
	At       int64  `bson:"at"`
}

func (r *MongoAuditRepository) InsertAttempt(ctx context.Context, attempt *domain.LoginAttempt) error {
	doc := auditDoc{
		ID:       uuid.NewString(),
		Username: attempt.Username,
		UserID:   attempt.UserID,
		Method:   attempt.Method,
		Success:  attempt.Success,
		Reason:   attempt.Reason,
		RemoteIP: attempt.RemoteIP,
		At:       attempt.At.Unix(),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert login attempt: %w", err)
	}
	return nil
}
