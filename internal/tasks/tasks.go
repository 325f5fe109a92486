// package tasks drains the sync queue against the remote platform and plans mirror reconciliations.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmirror/internal/metrics"
	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/services"
	"github.com/desertthunder/ytmirror/internal/shared"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Queue is the outbox surface the scheduler drives. [repositories.SyncQueueRepository] implements it.
type Queue interface {
	ClaimNext(ctx context.Context, playlistID int64) (*models.SyncQueueEntry, error)
	InFlight(ctx context.Context, playlistID int64) (bool, error)
	Complete(ctx context.Context, id int64) error
	Fail(ctx context.Context, id int64, reason string) error
	FailPending(ctx context.Context, playlistID int64, reason string) (int, error)
	RecordAttempt(ctx context.Context, id int64, reason string) error
	CountPending(ctx context.Context, playlistID int64) (int, error)
	PendingPlaylists(ctx context.Context) ([]int64, error)
	RecoverInterrupted(ctx context.Context) (int, error)
}

// PlaylistGetter loads playlists. [repositories.PlaylistRepository] implements it.
type PlaylistGetter interface {
	Get(ctx context.Context, id int64) (*models.Playlist, error)
}

// Options tunes a [Scheduler].
type Options struct {
	Workers        int           // concurrent drains across playlists
	CallDelay      time.Duration // minimum spacing between remote calls
	ChunkSize      int           // track IDs per add/remove call
	RetryLimit     int           // in-drain retries of transient errors, 0 for manual retry only
	RetryBackoff   time.Duration // pause between in-drain retries
	ProgressBuffer int           // capacity of each run's progress channel
}

// DefaultOptions returns one worker, 300ms call spacing and chunks of 20 with manual retry only.
func DefaultOptions() Options {
	return Options{
		Workers:        1,
		CallDelay:      300 * time.Millisecond,
		ChunkSize:      20,
		RetryBackoff:   2 * time.Second,
		ProgressBuffer: 64,
	}
}

// OptionsFromConfig maps the [shared.SyncConfig] section onto scheduler options.
func OptionsFromConfig(c shared.SyncConfig) Options {
	opts := DefaultOptions()
	if c.Workers > 0 {
		opts.Workers = c.Workers
	}
	if c.CallDelayMS >= 0 {
		opts.CallDelay = time.Duration(c.CallDelayMS) * time.Millisecond
	}
	if c.ChunkSize > 0 {
		opts.ChunkSize = c.ChunkSize
	}
	if c.RetryLimit > 0 {
		opts.RetryLimit = c.RetryLimit
	}
	if c.RetryBackoffMS > 0 {
		opts.RetryBackoff = time.Duration(c.RetryBackoffMS) * time.Millisecond
	}
	return opts
}

// TriggerResult reports the outcome of [Scheduler.TriggerSync].
type TriggerResult int

const (
	Started TriggerResult = iota
	AlreadyRunning
)

func (r TriggerResult) String() string {
	if r == AlreadyRunning {
		return "already_running"
	}
	return "started"
}

// Summary is the outcome of one drain.
type Summary struct {
	PlaylistID  int64 `json:"playlist_id"`
	Succeeded   int   `json:"succeeded"`
	Failed      int   `json:"failed"`
	Stopped     bool  `json:"stopped,omitempty"`
	AuthExpired bool  `json:"auth_expired,omitempty"`
	Err         error `json:"-"`
}

// Stage returns the terminal stage the summary maps to.
func (s Summary) Stage() Stage {
	switch {
	case s.Err != nil:
		return StageFailed
	case s.Stopped:
		return StageStopped
	case s.Failed > 0:
		return StagePartialFailure
	default:
		return StageCompleted
	}
}

// Run is one active drain of a playlist's queue.
type Run struct {
	ID         string
	PlaylistID int64

	updates  chan Progress
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	summary  Summary
	scope    *authScope
}

// Updates returns the ordered progress stream. The last value has a terminal stage, then the channel closes.
//
// Intermediate updates are dropped while the buffer is full; the terminal update never is.
func (r *Run) Updates() <-chan Progress {
	return r.updates
}

// Stop asks the drain to stop once the in-flight entry has reached a terminal status.
func (r *Run) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Done is closed when the drain has finished.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the drain finishes and returns its summary.
func (r *Run) Wait() Summary {
	<-r.done
	return r.summary
}

func (r *Run) stopRequested(ctx context.Context) bool {
	select {
	case <-r.stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// sendProgress sends an intermediate update without blocking, keeping the last buffer slot for the terminal update.
func (r *Run) sendProgress(update Progress) {
	if len(r.updates) >= cap(r.updates)-1 {
		return
	}
	select {
	case r.updates <- update:
	default:
	}
}

// Scheduler owns the worker pool, the call throttle and the per-playlist lock table.
type Scheduler struct {
	queue     Queue
	playlists PlaylistGetter
	remote    services.RemoteAPI
	opts      Options
	pool      *semaphore.Weighted
	limiter   *rate.Limiter
	metrics   *metrics.Metrics
	logger    *log.Logger

	mu      sync.Mutex
	running map[int64]*Run
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler. metrics may be nil.
func NewScheduler(queue Queue, playlists PlaylistGetter, remote services.RemoteAPI, opts Options, mt *metrics.Metrics, logger *log.Logger) *Scheduler {
	defaults := DefaultOptions()
	if opts.Workers <= 0 {
		opts.Workers = defaults.Workers
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaults.ChunkSize
	}
	if opts.ProgressBuffer < 2 {
		opts.ProgressBuffer = defaults.ProgressBuffer
	}

	limit := rate.Inf
	if opts.CallDelay > 0 {
		limit = rate.Every(opts.CallDelay)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Scheduler{
		queue:     queue,
		playlists: playlists,
		remote:    remote,
		opts:      opts,
		pool:      semaphore.NewWeighted(int64(opts.Workers)),
		limiter:   rate.NewLimiter(limit, 1),
		metrics:   mt,
		logger:    logger,
		running:   make(map[int64]*Run),
	}
}

// authScope is shared by the drains of one trigger. Once any of them meets an expired credential,
// the others fail their pending entries without calling the remote.
type authScope struct {
	mu  sync.Mutex
	err error
}

func (a *authScope) trip(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err == nil {
		a.err = err
	}
}

func (a *authScope) expired() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Drain starts draining playlistID's queue. ctx bounds the drain, not just the call.
//
// Returns [shared.ErrAlreadyRunning] when a drain of the playlist is active here, or when another
// process sharing the database has one of its entries in flight.
func (s *Scheduler) Drain(ctx context.Context, playlistID int64) (*Run, error) {
	return s.start(ctx, playlistID, &authScope{})
}

// DrainAll starts a drain for every playlist with pending entries, skipping those already running.
// The drains share one auth scope.
func (s *Scheduler) DrainAll(ctx context.Context) ([]*Run, error) {
	runs, _, err := s.startAll(ctx)
	return runs, err
}

func (s *Scheduler) start(ctx context.Context, playlistID int64, scope *authScope) (*Run, error) {
	s.mu.Lock()
	if _, ok := s.running[playlistID]; ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: playlist %d", shared.ErrAlreadyRunning, playlistID)
	}
	busy, err := s.queue.InFlight(ctx, playlistID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if busy {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: playlist %d has an entry in flight elsewhere", shared.ErrAlreadyRunning, playlistID)
	}

	run := &Run{
		ID:         shared.GenerateID(),
		PlaylistID: playlistID,
		updates:    make(chan Progress, s.opts.ProgressBuffer),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		scope:      scope,
	}
	s.running[playlistID] = run
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		stopOnCancel := context.AfterFunc(ctx, run.Stop)
		defer stopOnCancel()
		defer func() {
			s.mu.Lock()
			delete(s.running, playlistID)
			s.mu.Unlock()
			close(run.done)
		}()
		s.drain(ctx, run)
	}()

	return run, nil
}

// TriggerSync starts a drain unless one is already running for playlistID.
func (s *Scheduler) TriggerSync(ctx context.Context, playlistID int64) (TriggerResult, error) {
	_, err := s.Drain(ctx, playlistID)
	if errors.Is(err, shared.ErrAlreadyRunning) {
		return AlreadyRunning, nil
	}
	if err != nil {
		return Started, err
	}
	return Started, nil
}

// TriggerAll triggers a drain for every playlist with pending entries. The drains share one auth
// scope, so an expired credential costs a single remote call across all of them.
func (s *Scheduler) TriggerAll(ctx context.Context) (map[int64]TriggerResult, error) {
	_, results, err := s.startAll(ctx)
	return results, err
}

func (s *Scheduler) startAll(ctx context.Context) ([]*Run, map[int64]TriggerResult, error) {
	ids, err := s.queue.PendingPlaylists(ctx)
	if err != nil {
		return nil, nil, err
	}

	scope := &authScope{}
	runs := make([]*Run, 0, len(ids))
	results := make(map[int64]TriggerResult, len(ids))
	for _, id := range ids {
		run, err := s.start(ctx, id, scope)
		if errors.Is(err, shared.ErrAlreadyRunning) {
			s.logger.Info("playlist already draining, skipped", "playlist", id)
			results[id] = AlreadyRunning
			continue
		}
		if err != nil {
			return runs, results, err
		}
		results[id] = Started
		runs = append(runs, run)
	}
	return runs, results, nil
}

// Recover resets entries left processing by a crash back to pending.
func (s *Scheduler) Recover(ctx context.Context) (int, error) {
	n, err := s.queue.RecoverInterrupted(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Warn("recovered interrupted entries", "count", n)
	}
	return n, nil
}

// Running returns the playlists with an active drain, ascending.
func (s *Scheduler) Running() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.running))
	for id := range s.running {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Active returns the running drain of playlistID, if any.
func (s *Scheduler) Active(playlistID int64) (*Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.running[playlistID]
	return run, ok
}

// StopAll asks every running drain to stop after its in-flight entry.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, run := range s.running {
		run.Stop()
	}
}

// Wait blocks until every started drain has finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Loop calls [Scheduler.TriggerAll] every interval until ctx is done.
func (s *Scheduler) Loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.TriggerAll(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("scheduled sync failed", "err", err)
			}
		}
	}
}

func (s *Scheduler) drain(ctx context.Context, run *Run) {
	logger := shared.WithLogger(s.logger, "playlist", run.PlaylistID, "run", run.ID)
	finish := s.metrics.DrainStarted()
	sum := Summary{PlaylistID: run.PlaylistID}
	current, remaining := 0, 0

	defer func() {
		run.summary = sum
		final := terminalUpdate(current, current+remaining, sum)
		finish(final.Stage.String())
		run.updates <- final
		close(run.updates)

		switch final.Stage {
		case StageFailed:
			logger.Error("drain aborted", "err", sum.Err)
		case StagePartialFailure:
			logger.Warn("drain finished with failures", "succeeded", sum.Succeeded, "failed", sum.Failed)
		default:
			logger.Info("drain finished", "stage", final.Stage, "succeeded", sum.Succeeded, "failed", sum.Failed)
		}
	}()

	// Store writes after a claim must land even when ctx is cancelled.
	bg := context.WithoutCancel(ctx)

	var err error
	if remaining, err = s.queue.CountPending(bg, run.PlaylistID); err != nil {
		sum.Err = err
		return
	}
	run.sendProgress(startingUpdate(run.PlaylistID, remaining))

	if err := s.pool.Acquire(ctx, 1); err != nil {
		sum.Stopped = true
		return
	}
	defer s.pool.Release(1)

	playlist, err := s.playlists.Get(bg, run.PlaylistID)
	if err != nil {
		sum.Err = err
		return
	}

	if !playlist.IsMirror() {
		n, err := s.queue.FailPending(bg, run.PlaylistID, shared.ErrNotMirror.Error())
		if err != nil {
			sum.Err = err
			return
		}
		sum.Failed += n
		remaining = 0
		logger.Warn("playlist has no remote collection", "failed", n)
		return
	}

	for {
		if run.stopRequested(ctx) {
			sum.Stopped = true
			return
		}

		if authErr := run.scope.expired(); authErr != nil {
			n, err := s.queue.FailPending(bg, run.PlaylistID, authErr.Error())
			if err != nil {
				sum.Err = err
				return
			}
			sum.Failed += n
			sum.AuthExpired = true
			run.sendProgress(authExpiredUpdate(current, current+n, n))
			remaining = 0
			logger.Warn("credential expired in this sync, entries failed without remote calls", "failed", n)
			return
		}

		entry, err := s.queue.ClaimNext(bg, run.PlaylistID)
		if errors.Is(err, shared.ErrNoPendingEntries) {
			remaining = 0
			return
		}
		if err != nil {
			sum.Err = err
			return
		}

		current++
		if remaining, err = s.queue.CountPending(bg, run.PlaylistID); err != nil {
			sum.Err = err
			return
		}
		total := current + remaining
		run.sendProgress(processingUpdate(current, total, entry))

		applyErr := s.apply(bg, run, playlist.RemoteSyncID, entry)
		if applyErr == nil {
			if err := s.queue.Complete(bg, entry.ID); err != nil {
				sum.Err = err
				return
			}
			sum.Succeeded++
			s.metrics.EntryFinished(string(entry.Operation), string(models.StatusCompleted))
			run.sendProgress(entryDoneUpdate(current, total, entry))
			logger.Debug("entry completed", "entry", entry.ID, "op", entry.Operation)
			continue
		}

		if err := s.queue.Fail(bg, entry.ID, applyErr.Error()); err != nil {
			sum.Err = err
			return
		}
		sum.Failed++
		s.metrics.EntryFinished(string(entry.Operation), string(models.StatusFailed))
		run.sendProgress(entryFailedUpdate(current, total, entry, applyErr))
		logger.Warn("entry failed", "entry", entry.ID, "op", entry.Operation, "err", applyErr)

		if shared.IsAuthExpired(applyErr) {
			run.scope.trip(applyErr)
			n, err := s.queue.FailPending(bg, run.PlaylistID, applyErr.Error())
			if err != nil {
				sum.Err = err
				return
			}
			sum.Failed += n
			sum.AuthExpired = true
			remaining = 0
			run.sendProgress(authExpiredUpdate(current, total, n))
			return
		}
	}
}
