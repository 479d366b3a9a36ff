package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/clinical-meteor/checklist-manifesto/internal/core/ports"
)

const scratchCollection = "diagnostics_scratch"

// Prober implements the database liveness probe against a disposable
// scratch collection. Probe documents are deleted on the way out; a crashed
// probe leaves at most one stray document behind, keyed by a fresh UUID.
type Prober struct {
	db *mongo.Database
}

func NewProber(db *mongo.Database) *Prober {
	return &Prober{db: db}
}

// Ping measures a round trip to the server.
func (p *Prober) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := p.db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return 0, fmt.Errorf("mongo ping: %w", err)
	}
	return time.Since(start), nil
}

// Scratch runs an insert/find/remove cycle against the scratch collection
// and reports which stages completed.
func (p *Prober) Scratch(ctx context.Context) (ports.ScratchResult, error) {
	var result ports.ScratchResult
	coll := p.db.Collection(scratchCollection)

	probeID := uuid.NewString()
	doc := bson.M{"_id": probeID, "probe": true, "at": time.Now().Unix()}

	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return result, fmt.Errorf("scratch insert: %w", err)
	}
	result.InsertWorked = true

	var found bson.M
	if err := coll.FindOne(ctx, bson.M{"_id": probeID}).Decode(&found); err != nil {
		return result, fmt.Errorf("scratch find: %w", err)
	}
	result.FindWorked = true

	res, err := coll.DeleteOne(ctx, bson.M{"_id": probeID})
	if err != nil {
		return result, fmt.Errorf("scratch remove: %w", err)
	}
	result.RemoveWorked = res.DeletedCount == 1

	return result, nil
}
