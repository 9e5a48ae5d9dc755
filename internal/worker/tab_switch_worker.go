package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/recruitment-portal/internal/config"
	"github.com/stemsi/recruitment-portal/internal/metrics"
	"github.com/stemsi/recruitment-portal/internal/model"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

var auditColumns = []string{"candidate_id", "switch_count", "cancelled", "recorded_at"}

// auditDB is the slice of pgxpool.Pool the worker writes through.
type auditDB interface {
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// TabSwitchWorker drains the tab-switch audit queue into PostgreSQL in batches.
type TabSwitchWorker struct {
	db  auditDB
	rdb *redis.Client
	log zerolog.Logger
}

func NewTabSwitchWorker(db auditDB, rdb *redis.Client, log zerolog.Logger) *TabSwitchWorker {
	return &TabSwitchWorker{
		db:  db,
		rdb: rdb,
		log: log.With().Str("component", "tab_switch_worker").Logger(),
	}
}

// Start blocks until ctx is done, then flushes whatever is buffered.
func (w *TabSwitchWorker) Start(ctx context.Context) {
	w.log.Info().Msg("TabSwitchWorker started")

	buffer := make([]model.TabSwitchEvent, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		if len(buffer) > 0 && (len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout) {
			w.flushSafe(ctx, buffer)
			buffer = buffer[:0]
			lastFlushTime = time.Now()
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistTabSwitchQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		ev, err := decodeTabSwitch(result[1])
		if err != nil {
			// Malformed payloads can never succeed.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed tab switch event")
			continue
		}
		buffer = append(buffer, ev)
	}
}

func decodeTabSwitch(data string) (model.TabSwitchEvent, error) {
	var ev model.TabSwitchEvent
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		return ev, err
	}
	if ev.CandidateID == "" {
		return ev, errors.New("missing candidate_id")
	}
	if ev.RecordedAt.IsZero() {
		ev.RecordedAt = time.Now().UTC()
	}
	return ev, nil
}

func auditRow(ev model.TabSwitchEvent) []interface{} {
	return []interface{}{ev.CandidateID, ev.Count, ev.Cancelled, ev.RecordedAt}
}

// flushSafe attempts a bulk copy, then row-by-row insert, then requeue.
func (w *TabSwitchWorker) flushSafe(ctx context.Context, batch []model.TabSwitchEvent) {
	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		metrics.AuditBatches.WithLabelValues("fallback").Inc()
		w.fallbackInsert(ctx, batch)
		return
	}
	metrics.AuditBatches.WithLabelValues("bulk").Inc()
}

func (w *TabSwitchWorker) bulkInsert(ctx context.Context, batch []model.TabSwitchEvent) error {
	rows := make([][]interface{}, 0, len(batch))
	for _, ev := range batch {
		rows = append(rows, auditRow(ev))
	}

	_, err := w.db.CopyFrom(ctx, pgx.Identifier{"tab_switch_events"}, auditColumns, pgx.CopyFromRows(rows))
	return err
}

func (w *TabSwitchWorker) fallbackInsert(ctx context.Context, batch []model.TabSwitchEvent) {
	var requeueList []model.TabSwitchEvent

	for _, ev := range batch {
		_, err := w.db.Exec(ctx,
			`INSERT INTO tab_switch_events (candidate_id, switch_count, cancelled, recorded_at)
             VALUES ($1, $2, $3, $4)`,
			auditRow(ev)...,
		)
		if err != nil {
			w.log.Error().Err(err).Str("candidate_id", ev.CandidateID).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, ev)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *TabSwitchWorker) requeue(ctx context.Context, items []model.TabSwitchEvent) {
	if w.rdb == nil {
		w.log.Error().Int("count", len(items)).Msg("No queue to requeue into, audit events dropped")
		return
	}

	pipe := w.rdb.Pipeline()
	for _, ev := range items {
		data, _ := json.Marshal(ev)
		pipe.RPush(ctx, config.WorkerKey.PersistTabSwitchQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue tab switch events. Data loss occurred.")
		return
	}
	metrics.AuditBatches.WithLabelValues("requeue").Inc()
	w.log.Info().Int("count", len(items)).Msg("Requeued failed events back to Redis")
	// Back off while the database is down.
	time.Sleep(2 * time.Second)
}

func (w *TabSwitchWorker) shutdown(buffer []model.TabSwitchEvent) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}
