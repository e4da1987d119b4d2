package jobs_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"shiptrack/internal/core/application/realtime"
	"shiptrack/internal/jobs"
	"shiptrack/internal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeFlusher struct {
	mu      sync.Mutex
	pending int
	flushes int
}

func (f *fakeFlusher) Flush(context.Context) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	n := f.pending
	f.pending = 0
	return n
}

func (f *fakeFlusher) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

func (f *fakeFlusher) add(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending += n
}

func (f *fakeFlusher) flushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushes
}

type fixedStats realtime.Stats

func (s fixedStats) Stats() realtime.Stats { return realtime.Stats(s) }

func TestLocationFlushJob_Run(t *testing.T) {
	reg := prometheus.NewRegistry()
	flusher := &fakeFlusher{}
	job := jobs.NewLocationFlushJob(flusher, metrics.NewJobMetrics(reg), discard)

	job.Run(t.Context())
	assert.Zero(t, flusher.flushCount(), "nothing pending, nothing flushed")

	flusher.add(3)
	job.Run(t.Context())
	assert.Equal(t, 1, flusher.flushCount())
	assert.Zero(t, flusher.Pending())

	count, err := testutil.GatherAndCount(reg, "shiptrack_job_success_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRoomStatsJob_Run(t *testing.T) {
	reg := prometheus.NewRegistry()
	job := jobs.NewRoomStatsJob(
		fixedStats{Rooms: 2, Channels: 1, Connections: 3},
		metrics.NewRealtimeMetrics(reg),
		metrics.NewJobMetrics(reg),
		discard,
	)

	job.Run(t.Context())

	expected := `
# HELP shiptrack_connections Connections holding at least one membership.
# TYPE shiptrack_connections gauge
shiptrack_connections 3
# HELP shiptrack_room_keys Non-empty rooms and channels, by kind.
# TYPE shiptrack_room_keys gauge
shiptrack_room_keys{kind="channel"} 1
shiptrack_room_keys{kind="room"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"shiptrack_connections", "shiptrack_room_keys"))
}

func TestJobManager_StopAllFlushesPendingLocations(t *testing.T) {
	flusher := &fakeFlusher{}
	manager := jobs.NewJobManager(flusher, fixedStats{}, nil, nil, discard)

	require.NoError(t, manager.StartAll())
	flusher.add(2)
	manager.StopAll()

	assert.Zero(t, flusher.Pending())
	assert.GreaterOrEqual(t, flusher.flushCount(), 1)
}
