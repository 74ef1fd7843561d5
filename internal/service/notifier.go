package service

import (
	"context"
	"encoding/json"

	"github.com/edustack/assess-backend/internal/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DecisionNote tells an author what happened to their submission.
type DecisionNote struct {
	RecipientID  int       `json:"recipient_id"`
	AssessmentID uuid.UUID `json:"assessment_id"`
	Title        string    `json:"title"`
	Decision     string    `json:"decision"`
	Reason       string    `json:"reason,omitempty"`
}

// Notifier delivers review-decision notes to authors. Delivery is
// fire-and-forget: callers log failures and never roll back on them.
type Notifier interface {
	NotifyDecision(ctx context.Context, note DecisionNote) error
}

// QueueNotifier enqueues notes onto the notification worker's Redis queue.
type QueueNotifier struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewQueueNotifier creates a QueueNotifier.
func NewQueueNotifier(rdb *redis.Client, log zerolog.Logger) *QueueNotifier {
	return &QueueNotifier{
		rdb: rdb,
		log: log.With().Str("component", "queue_notifier").Logger(),
	}
}

// NotifyDecision pushes the note onto the queue for async delivery.
func (n *QueueNotifier) NotifyDecision(ctx context.Context, note DecisionNote) error {
	raw, err := json.Marshal(note)
	if err != nil {
		return err
	}
	return n.rdb.RPush(ctx, config.WorkerKey.NotifyDecisionsQueue, raw).Err()
}
