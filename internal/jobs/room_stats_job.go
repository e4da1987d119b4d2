package jobs

import (
	"context"
	"log/slog"
	"time"

	"shiptrack/internal/core/application/realtime"
	"shiptrack/internal/pkg/metrics"

	"github.com/robfig/cron/v3"
)

const roomStatsJobName = "room_stats"

// StatsSource reports current membership sizes.
type StatsSource interface {
	Stats() realtime.Stats
}

// RoomStatsJob exports room, channel and connection counts as gauges.
type RoomStatsJob struct {
	rooms    StatsSource
	realtime *metrics.RealtimeMetrics
	metrics  *metrics.JobMetrics
	cron     *cron.Cron
	logger   *slog.Logger
}

func NewRoomStatsJob(rooms StatsSource, rm *metrics.RealtimeMetrics, jm *metrics.JobMetrics, logger *slog.Logger) *RoomStatsJob {
	return &RoomStatsJob{
		rooms:    rooms,
		realtime: rm,
		metrics:  jm,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger.With("component", "room_stats_job"),
	}
}

// Start schedules the export every 15 seconds.
func (j *RoomStatsJob) Start() error {
	_, err := j.cron.AddFunc("*/15 * * * * *", func() {
		j.Run(context.Background())
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Room stats job started (running every 15 seconds)")
	return nil
}

// Run takes one snapshot.
func (j *RoomStatsJob) Run(ctx context.Context) {
	started := time.Now()
	stats := j.rooms.Stats()
	j.realtime.SetMembership(stats.Rooms, stats.Channels, stats.Connections)
	j.metrics.Observe(roomStatsJobName, time.Since(started), nil)
	j.logger.DebugContext(ctx, "Room stats exported",
		"rooms", stats.Rooms, "channels", stats.Channels, "connections", stats.Connections)
}

func (j *RoomStatsJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.InfoContext(context.Background(), "Room stats job stopped")
}
