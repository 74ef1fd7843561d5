package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/edustack/assess-backend/internal/config"
	"github.com/edustack/assess-backend/internal/model"
	"github.com/edustack/assess-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// ResultWorker drains finalized attempt results off the persistence queue
// and writes them to the append-only results table in batches. Result ids
// are assigned at grading time, so a retried batch never double-inserts.
type ResultWorker struct {
	results *repository.ResultRepository
	rdb     *redis.Client
	log     zerolog.Logger
}

func NewResultWorker(results *repository.ResultRepository, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		results: results,
		rdb:     rdb,
		log:     log.With().Str("component", "result_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	batch := make([]*model.Result, 0, ResultBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= ResultBatchSize || time.Since(lastFlush) >= ResultBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.drain(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var res model.Result
			if err := json.Unmarshal([]byte(item[1]), &res); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &res)
		}
	}
}

// ----------------------------------------------------------------
// Batch insert wrapper
// ----------------------------------------------------------------

func (w *ResultWorker) flushSafe(ctx context.Context, batch []*model.Result) {
	if len(batch) == 0 {
		return
	}

	if err := w.results.InsertBatch(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk result insert failed, using fallback")

		for _, res := range batch {
			if err := w.results.Insert(ctx, res); err != nil {
				w.log.Error().Err(err).Str("result_id", res.ID.String()).Msg("single insert failed — requeueing")
				raw, _ := json.Marshal(res)
				w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw)
			}
		}
		return
	}

	w.log.Debug().Int("count", len(batch)).Msg("Result batch persisted")
}

// drain empties the queue on shutdown so no graded attempt is stranded
// in Redis across a restart.
func (w *ResultWorker) drain(ctx context.Context, batch []*model.Result) {
	for {
		item, err := w.rdb.LPop(ctx, config.WorkerKey.PersistResultsQueue).Result()
		if err != nil {
			break
		}
		var res model.Result
		if err := json.Unmarshal([]byte(item), &res); err != nil {
			w.log.Error().Err(err).Msg("Invalid JSON payload during drain")
			continue
		}
		batch = append(batch, &res)
	}

	w.flushSafe(ctx, batch)
}
