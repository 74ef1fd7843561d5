package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/edustack/assess-backend/internal/config"
	"github.com/edustack/assess-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Sender delivers one review decision notification. The default sender
// only logs; mail or push delivery plugs in here.
type Sender interface {
	Send(ctx context.Context, note *service.DecisionNote) error
}

// LogSender writes each notification to the structured log.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log.With().Str("component", "log_sender").Logger()}
}

func (s *LogSender) Send(_ context.Context, note *service.DecisionNote) error {
	s.log.Info().
		Int("recipient_id", note.RecipientID).
		Str("assessment_id", note.AssessmentID.String()).
		Str("decision", note.Decision).
		Str("title", note.Title).
		Msg("Review decision notification")
	return nil
}

// NotifyWorker consumes notify_decisions_queue and delivers review
// decision notifications to authors.
type NotifyWorker struct {
	sender Sender
	rdb    *redis.Client
	log    zerolog.Logger
}

// NewNotifyWorker creates a new NotifyWorker.
func NewNotifyWorker(sender Sender, rdb *redis.Client, log zerolog.Logger) *NotifyWorker {
	return &NotifyWorker{
		sender: sender,
		rdb:    rdb,
		log:    log.With().Str("component", "notify_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *NotifyWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *NotifyWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.NotifyDecisionsQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var note service.DecisionNote
	if err := json.Unmarshal([]byte(result[1]), &note); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.sender.Send(ctx, &note); err != nil {
		w.log.Error().Err(err).
			Int("recipient_id", note.RecipientID).
			Msg("Send error, retrying in 5s")
		w.rdb.RPush(ctx, config.WorkerKey.NotifyDecisionsQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

// drain delivers all remaining notifications before shutdown.
func (w *NotifyWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.NotifyDecisionsQueue).Result()
		if err != nil {
			break
		}

		var note service.DecisionNote
		if err := json.Unmarshal([]byte(result), &note); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.sender.Send(ctx, &note); err != nil {
			w.log.Error().Err(err).Msg("Drain send error")
			w.rdb.RPush(ctx, config.WorkerKey.NotifyDecisionsQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
