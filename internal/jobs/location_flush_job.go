package jobs

import (
	"context"
	"log/slog"
	"time"

	"shiptrack/internal/pkg/metrics"

	"github.com/robfig/cron/v3"
)

const locationFlushJobName = "location_flush"

// LocationFlusher persists coalesced location samples.
type LocationFlusher interface {
	Flush(ctx context.Context) int
	Pending() int
}

// LocationFlushJob writes the newest pending location of every shipment.
// Runs every second so the stored location trails the live one by at most
// about a second.
type LocationFlushJob struct {
	writer  LocationFlusher
	metrics *metrics.JobMetrics
	cron    *cron.Cron
	logger  *slog.Logger
}

// NewLocationFlushJob creates a new job that drains writer every second.
func NewLocationFlushJob(writer LocationFlusher, m *metrics.JobMetrics, logger *slog.Logger) *LocationFlushJob {
	return &LocationFlushJob{
		writer:  writer,
		metrics: m,
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger.With("component", "location_flush_job"),
	}
}

// Start schedules the flush to run every second.
func (j *LocationFlushJob) Start() error {
	_, err := j.cron.AddFunc("* * * * * *", func() {
		j.Run(context.Background())
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Location flush job started (running every second)")
	return nil
}

// Run performs one flush. Nothing is logged when there is nothing to write.
func (j *LocationFlushJob) Run(ctx context.Context) {
	pending := j.writer.Pending()
	if pending == 0 {
		return
	}

	started := time.Now()
	stored := j.writer.Flush(ctx)
	j.metrics.Observe(locationFlushJobName, time.Since(started), nil)
	j.logger.DebugContext(ctx, "Locations flushed", "pending", pending, "stored", stored)
}

// Stop waits for a running flush to finish, then flushes once more so no
// sample accepted before shutdown is lost.
func (j *LocationFlushJob) Stop() {
	<-j.cron.Stop().Done()
	j.Run(context.Background())
	j.logger.InfoContext(context.Background(), "Location flush job stopped")
}
