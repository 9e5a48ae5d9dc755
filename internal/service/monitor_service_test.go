package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/recruitment-portal/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAudit struct {
	counts map[string]int64
	err    error
}

func (f *fakeAudit) TabSwitchCounts(context.Context) (map[string]int64, error) {
	return f.counts, f.err
}

func (f *fakeAudit) RecentTabSwitches(context.Context, int) ([]model.TabSwitchEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []model.TabSwitchEvent{{CandidateID: "m01", Count: 2, RecordedAt: testStart}}, nil
}

func TestMonitorSnapshot(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for _, id := range []string{"m01", "m02", "m03"} {
		f.seedCandidate(id)
	}
	f.clock.Set(testStart)

	_, err := f.tests.Start(ctx, "m01")
	require.NoError(t, err)
	_, err = f.tests.Start(ctx, "m02")
	require.NoError(t, err)
	_, err = f.tests.Submit(ctx, "m02", answerKey, false)
	require.NoError(t, err)
	_, err = f.statuses.GetOrCreate(ctx, "m03")
	require.NoError(t, err)

	svc := NewMonitorService(f.statuses, &fakeAudit{counts: map[string]int64{"m01": 2, "m03": 1}}, zerolog.Nop())
	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, snap.Summary.Total)
	assert.Equal(t, 1, snap.Summary.InProgress)
	assert.Equal(t, 1, snap.Summary.Submitted)
	assert.Equal(t, int64(3), snap.TotalSwitches)
	assert.Len(t, snap.Recent, 1)
}

func TestMonitorSnapshot_AuditIsBestEffort(t *testing.T) {
	f := newFixture()
	svc := NewMonitorService(f.statuses, &fakeAudit{err: errStore}, zerolog.Nop())

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.TabSwitches)
	assert.Empty(t, snap.Recent)
	assert.Zero(t, snap.TotalSwitches)

	svc = NewMonitorService(f.statuses, nil, zerolog.Nop())
	_, err = svc.Snapshot(context.Background())
	require.NoError(t, err)
}
