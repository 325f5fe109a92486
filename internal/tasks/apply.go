package tasks

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
)

// apply pushes one entry to the remote collection. Add and remove batches go out in chunks,
// each chunk a separate throttled call; a failed chunk fails the entry.
func (s *Scheduler) apply(ctx context.Context, run *Run, collectionID string, e *models.SyncQueueEntry) error {
	payload, err := e.Decode()
	if err != nil {
		return err
	}

	switch p := payload.(type) {
	case *models.TrackIDsPayload:
		call := s.remote.AddTracks
		if e.Operation == models.OpRemoveTracks {
			call = s.remote.RemoveTracks
		}
		for chunk := range slices.Chunk(p.TrackIDs, s.opts.ChunkSize) {
			err := s.call(ctx, run, e, func(ctx context.Context) error {
				return call(ctx, collectionID, chunk)
			})
			if err != nil {
				return err
			}
		}
		return nil
	case *models.ReorderPayload:
		return s.call(ctx, run, e, func(ctx context.Context) error {
			return s.remote.Reorder(ctx, collectionID, p.TrackID, p.Position)
		})
	case *models.MetadataPayload:
		return s.call(ctx, run, e, func(ctx context.Context) error {
			return s.remote.UpdateMetadata(ctx, collectionID, p.Name, p.Description)
		})
	default:
		return &shared.ValidationError{Field: "operation", Reason: fmt.Sprintf("unsupported operation %q", e.Operation)}
	}
}

// call waits for the throttle and issues fn. Transient failures are retried in place only when
// RetryLimit is set; a stop during the backoff gives up with the last error.
func (s *Scheduler) call(ctx context.Context, run *Run, e *models.SyncQueueEntry, fn func(context.Context) error) error {
	for attempt := 0; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		err := fn(ctx)
		s.metrics.RemoteCall(string(e.Operation), outcome(err))
		if err == nil || !shared.IsTransient(err) || attempt >= s.opts.RetryLimit {
			return err
		}

		if recErr := s.queue.RecordAttempt(ctx, e.ID, err.Error()); recErr != nil {
			return recErr
		}
		s.logger.Debug("retrying transient failure", "entry", e.ID, "attempt", attempt+1, "err", err)

		backoff := time.NewTimer(s.opts.RetryBackoff)
		select {
		case <-backoff.C:
		case <-run.stop:
			backoff.Stop()
			return err
		}
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case shared.IsTransient(err):
		return "transient"
	case shared.IsAuthExpired(err):
		return "auth"
	default:
		return "error"
	}
}
