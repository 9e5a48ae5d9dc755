package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/stemsi/recruitment-portal/internal/model"
)

// recentTabSwitchLimit caps the audit lines shown in a monitor snapshot.
const recentTabSwitchLimit = 50

// TabSwitchAudit is the read side of the tab-switch audit trail.
type TabSwitchAudit interface {
	TabSwitchCounts(ctx context.Context) (map[string]int64, error)
	RecentTabSwitches(ctx context.Context, limit int) ([]model.TabSwitchEvent, error)
}

// MonitorSnapshot is the first event an administrator receives on the live feed.
type MonitorSnapshot struct {
	Summary       model.TestStatusSummary `json:"summary"`
	TabSwitches   map[string]int64        `json:"tab_switches"`
	TotalSwitches int64                   `json:"total_switches"`
	Recent        []model.TabSwitchEvent  `json:"recent"`
}

// MonitorService builds live monitor snapshots.
type MonitorService struct {
	statuses TestStatusStore
	audit    TabSwitchAudit
	log      zerolog.Logger
}

// NewMonitorService creates a new MonitorService. audit may be nil.
func NewMonitorService(statuses TestStatusStore, audit TabSwitchAudit, log zerolog.Logger) *MonitorService {
	return &MonitorService{
		statuses: statuses,
		audit:    audit,
		log:      log.With().Str("component", "monitor_service").Logger(),
	}
}

// Snapshot fetches status counts and the audit trail concurrently. Status
// counts are required; the audit trail is best-effort.
func (s *MonitorService) Snapshot(ctx context.Context) (*MonitorSnapshot, error) {
	snap := &MonitorSnapshot{TabSwitches: make(map[string]int64), Recent: []model.TabSwitchEvent{}}

	var (
		summary    *model.TestStatusSummary
		counts     map[string]int64
		recent     []model.TabSwitchEvent
		summaryErr error
		countsErr  error
		recentErr  error
		wg         sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		summary, summaryErr = s.statuses.Summary(ctx)
	}()

	if s.audit != nil {
		wg.Add(2)
		go func() {
			defer wg.Done()
			counts, countsErr = s.audit.TabSwitchCounts(ctx)
		}()
		go func() {
			defer wg.Done()
			recent, recentErr = s.audit.RecentTabSwitches(ctx, recentTabSwitchLimit)
		}()
	}

	wg.Wait()

	if summaryErr != nil {
		return nil, persistence("summarize test status", summaryErr)
	}
	snap.Summary = *summary

	if countsErr != nil {
		s.log.Warn().Err(countsErr).Msg("Tab switch counts unavailable")
	} else if counts != nil {
		snap.TabSwitches = counts
		for _, n := range counts {
			snap.TotalSwitches += n
		}
	}
	if recentErr != nil {
		s.log.Warn().Err(recentErr).Msg("Recent tab switches unavailable")
	} else if recent != nil {
		snap.Recent = recent
	}
	return snap, nil
}
