package drowsinessService

import (
	"BlinkRise/internal/entity"
	"BlinkRise/pkg/log"
	"context"
	"time"
)

const SnapshotKey = "drowsiness:state"

// SnapshotSink stores the latest snapshot for out-of-process readers.
// RefreshSnapshot extends the TTL of the stored value and fails when the key
// no longer exists.
type SnapshotSink interface {
	SetSnapshot(ctx context.Context, key string, st entity.DrowsinessState, ttl time.Duration) error
	RefreshSnapshot(ctx context.Context, key string, ttl time.Duration) error
}

// MirrorSnapshots copies the current snapshot to sink on every state tick
// until ctx ends. An unchanged snapshot only has its TTL refreshed, so the
// key outlives its TTL exactly as long as the process keeps ticking.
// Failures are retried on the next tick.
func (s *drowsinessService) MirrorSnapshots(ctx context.Context, sink SnapshotSink) {
	ticker := time.NewTicker(s.opts.StateInterval)
	defer ticker.Stop()

	var (
		lastVersion uint64
		mirrored    bool
	)
	for {
		st, version := s.state.Snapshot()
		writeCtx, cancel := context.WithTimeout(ctx, time.Second)

		refreshed := false
		if mirrored && version == lastVersion {
			if err := sink.RefreshSnapshot(writeCtx, SnapshotKey, s.opts.SnapshotTTL); err == nil {
				refreshed = true
			} else {
				s.log.Debugf("Snapshot refresh failed, rewriting: %v", err)
			}
		}

		if !refreshed {
			err := sink.SetSnapshot(writeCtx, SnapshotKey, st, s.opts.SnapshotTTL)
			if err != nil {
				s.log.WithFields(log.Fields{
					"key":   SnapshotKey,
					"error": err.Error(),
				}).Warn("Failed to mirror drowsiness snapshot")
			} else {
				lastVersion = version
				mirrored = true
			}
		}
		cancel()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
