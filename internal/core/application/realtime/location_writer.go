package realtime

import (
	"context"
	"log/slog"
	"sync"

	"shiptrack/internal/core/domain/model/shipment"
	"shiptrack/internal/core/ports"
	"shiptrack/internal/pkg/metrics"
)

// LocationWriter coalesces location samples and persists the newest one per
// shipment when flushed. Enqueue never blocks on storage.
//
// Failures are logged and counted, then forgotten: a sample that failed to
// persist is superseded by the agent's next one.
type LocationWriter struct {
	store   ports.LocationWriter
	metrics *metrics.RealtimeMetrics
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[shipment.TrackingCode]shipment.LocationSample

	flushMu sync.Mutex
}

func NewLocationWriter(store ports.LocationWriter, m *metrics.RealtimeMetrics, logger *slog.Logger) *LocationWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocationWriter{
		store:   store,
		metrics: m,
		logger:  logger.With("component", "location_writer"),
		pending: make(map[shipment.TrackingCode]shipment.LocationSample),
	}
}

// Enqueue records sample unless a newer one for code is already pending.
func (w *LocationWriter) Enqueue(code shipment.TrackingCode, sample shipment.LocationSample) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if current, ok := w.pending[code]; ok && !sample.IsNewerThan(current) {
		return
	}
	w.pending[code] = sample
}

// Pending returns the number of shipments with an unflushed sample.
func (w *LocationWriter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Flush writes every pending sample and returns how many the store kept.
// Samples older than the stored location are not counted. Flushes are
// serialized; samples enqueued during a flush wait for the next one.
func (w *LocationWriter) Flush(ctx context.Context) int {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.mu.Lock()
	batch := w.pending
	w.pending = make(map[shipment.TrackingCode]shipment.LocationSample, len(batch))
	w.mu.Unlock()

	written := 0
	for code, sample := range batch {
		stored, err := w.store.SetCurrentLocation(ctx, code, sample)
		if err != nil {
			w.metrics.IncPersistFailure()
			w.logger.ErrorContext(ctx, "Failed to persist location", "tracking_code", code.String(), "error", err)
			continue
		}
		if stored {
			written++
		}
	}
	return written
}
