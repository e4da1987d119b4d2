// Package jobs provides scheduled background tasks for the tracking service.
//
// This package implements cron-based jobs using github.com/robfig/cron/v3.
//
// # Available Jobs
//
// 1. LocationFlushJob - Runs every second to persist the newest location sample of each shipment
// 2. RoomStatsJob - Runs every 15 seconds to export room, channel and connection gauges
//
// # Usage
//
// Jobs are managed through JobManager which provides a unified interface:
//
//	jobManager := jobs.NewJobManager(locationWriter, roomRegistry, realtimeMetrics, jobMetrics, logger)
//
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//
//	// Stop all jobs when shutting down; this also performs a final flush
//	defer jobManager.StopAll()
//
// # Error Handling
//
// - Location write failures are counted and logged by the writer itself
// - Failed job starts will stop any already running jobs
package jobs
