package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/recruitment-portal/internal/model"
)

// MonitorRepository reads the tab-switch audit trail for the live monitor.
type MonitorRepository struct {
	pool *pgxpool.Pool
}

// NewMonitorRepository creates a new MonitorRepository.
func NewMonitorRepository(pool *pgxpool.Pool) *MonitorRepository {
	return &MonitorRepository{pool: pool}
}

// TabSwitchCounts returns the number of audited tab switches per candidate.
func (r *MonitorRepository) TabSwitchCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT candidate_id, COUNT(*)
		 FROM tab_switch_events
		 GROUP BY candidate_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var id string
		var count int64
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		counts[id] = count
	}
	return counts, rows.Err()
}

// RecentTabSwitches returns the latest audit records, newest first.
func (r *MonitorRepository) RecentTabSwitches(ctx context.Context, limit int) ([]model.TabSwitchEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT candidate_id, switch_count, cancelled, recorded_at
		 FROM tab_switch_events
		 ORDER BY recorded_at DESC
		 LIMIT $1`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.TabSwitchEvent
	for rows.Next() {
		var ev model.TabSwitchEvent
		if err := rows.Scan(&ev.CandidateID, &ev.Count, &ev.Cancelled, &ev.RecordedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
