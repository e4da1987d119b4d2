package jobs

import (
	"fmt"
	"log/slog"

	"shiptrack/internal/pkg/metrics"
)

// JobManager coordinates all scheduled jobs in the application.
// Provides a unified interface to start and stop all background jobs.
type JobManager struct {
	locationFlushJob *LocationFlushJob
	roomStatsJob     *RoomStatsJob
}

// NewJobManager creates a new job manager with all required jobs.
func NewJobManager(
	writer LocationFlusher,
	rooms StatsSource,
	realtimeMetrics *metrics.RealtimeMetrics,
	jobMetrics *metrics.JobMetrics,
	logger *slog.Logger,
) *JobManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobManager{
		locationFlushJob: NewLocationFlushJob(writer, jobMetrics, logger),
		roomStatsJob:     NewRoomStatsJob(rooms, realtimeMetrics, jobMetrics, logger),
	}
}

// StartAll starts all scheduled jobs.
// Returns an error if any job fails to start.
func (jm *JobManager) StartAll() error {
	if err := jm.locationFlushJob.Start(); err != nil {
		return fmt.Errorf("failed to start location flush job: %w", err)
	}

	if err := jm.roomStatsJob.Start(); err != nil {
		// Stop already started jobs if this one fails
		jm.locationFlushJob.Stop()
		return fmt.Errorf("failed to start room stats job: %w", err)
	}

	return nil
}

// StopAll stops all scheduled jobs gracefully. Pending locations are
// flushed before it returns.
func (jm *JobManager) StopAll() {
	jm.roomStatsJob.Stop()
	jm.locationFlushJob.Stop()
}
