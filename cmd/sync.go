package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/ytmirror/internal/server"
	"github.com/desertthunder/ytmirror/internal/shared"
	"github.com/desertthunder/ytmirror/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SyncRun drains one playlist in the foreground, streaming progress.
//
// An interrupt or --stop-after lets the in-flight entry finish and leaves the rest pending.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID("playlist-id", cmd.StringArg("playlist-id"))
	if err != nil {
		return err
	}

	store, done, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer done()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	run, err := r.scheduler(store).Drain(ctx, id)
	if errors.Is(err, shared.ErrAlreadyRunning) {
		r.writePlain("%s\n", r.styles.Help("Another ytmirror process is draining this playlist. If none is, 'ytmirror sync all' recovers entries left by a crash."))
		return err
	}
	if err != nil {
		return err
	}
	if after := cmd.Duration("stop-after"); after > 0 {
		timer := time.AfterFunc(after, run.Stop)
		defer timer.Stop()
	}

	sum, err := r.follow(run, cmd.Bool("json"))
	if err != nil {
		return err
	}
	return summaryError(sum)
}

// follow prints a run's updates until its channel closes and returns the summary.
func (r *Runner) follow(run *tasks.Run, asJSON bool) (tasks.Summary, error) {
	for update := range run.Updates() {
		if asJSON {
			if err := r.writeJSON(update, false); err != nil {
				return tasks.Summary{}, err
			}
			continue
		}
		r.printProgress(update)
	}
	return run.Wait(), nil
}

func (r *Runner) printProgress(update tasks.Progress) {
	switch update.Stage {
	case tasks.StageStarting:
		r.writePlain("%s\n", r.styles.Title(update.Message))
	case tasks.StageProcessing:
		r.logger.Debug(update.Message)
	case tasks.StageEntryDone:
		r.writePlain("  %s\n", update.Message)
	case tasks.StageEntryFailed:
		r.writePlain("  %s\n", r.styles.Err(update.Message))
	case tasks.StageAuthExpired:
		r.writePlain("%s\n", r.styles.Warn(update.Message))
	case tasks.StageCompleted:
		r.writePlainln("%s", r.styles.OK(update.Message))
	case tasks.StagePartialFailure, tasks.StageStopped:
		r.writePlainln("%s", r.styles.Warn(update.Message))
		r.writePlain("%s\n", r.styles.Help("Inspect with 'ytmirror queue failed', then 'ytmirror queue retry <id>...'."))
	default:
		r.writePlainln("%s", r.styles.Err(update.Message))
	}
}

var errRejectedCredentials = errors.New("remote rejected the configured credentials")

// summaryError turns auth expiry and infrastructure failures into a non-zero exit.
//
// Entry failures are reported in the output and stay in the queue for a manual retry.
func summaryError(sum tasks.Summary) error {
	switch {
	case sum.Err != nil:
		return sum.Err
	case sum.AuthExpired:
		err := &shared.AuthExpiredError{Op: "sync", Err: errRejectedCredentials}
		return fmt.Errorf("playlist %d: %w; refresh the headers file, then retry the failed entries", sum.PlaylistID, err)
	default:
		return nil
	}
}

// SyncPlan queues the removals and additions that make a mirror match its local playlist.
func (r *Runner) SyncPlan(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID("playlist-id", cmd.StringArg("playlist-id"))
	if err != nil {
		return err
	}

	store, done, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer done()

	plan, err := tasks.NewPlanner(store, r.remoteAPI(), r.logger).PlanMirror(ctx, id)
	if errors.Is(err, shared.ErrPendingOperations) {
		r.writePlain("%s\n", r.styles.Help(fmt.Sprintf("Run 'ytmirror sync run %d' first.", id)))
	}
	if err != nil {
		return err
	}

	if plan.Empty() {
		return r.writePlain("%s remote already matches playlist %d\n", r.styles.OK("✓"), id)
	}

	r.writePlainHeader(fmt.Sprintf("Mirror plan for playlist %d", id))
	r.writePlain("To remove: %d\n", len(plan.ToRemove))
	for _, trackID := range plan.ToRemove {
		r.writePlain("  - %s\n", trackID)
	}
	r.writePlain("To add: %d\n", len(plan.ToAdd))
	for _, trackID := range plan.ToAdd {
		r.writePlain("  + %s\n", trackID)
	}
	r.writePlain("Queued entries: %v\n", plan.EntryIDs)

	if !cmd.Bool("run") {
		return r.writePlain("%s\n", r.styles.Help(fmt.Sprintf("Run 'ytmirror sync run %d' to push them.", id)))
	}

	r.writePlain("\n")
	run, err := r.scheduler(store).Drain(ctx, id)
	if err != nil {
		return err
	}
	sum, err := r.follow(run, false)
	if err != nil {
		return err
	}
	return summaryError(sum)
}

// SyncAll drains every playlist with pending entries and waits for them all.
func (r *Runner) SyncAll(ctx context.Context, cmd *cli.Command) error {
	store, done, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer done()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sched := r.scheduler(store)
	if _, err := sched.Recover(ctx); err != nil {
		return err
	}

	runs, err := sched.DrainAll(ctx)
	if err != nil {
		sched.StopAll()
		sched.Wait()
		return err
	}
	if len(runs) == 0 {
		return r.writePlain("%s nothing to sync\n", r.styles.OK("✓"))
	}

	var errs []error
	for _, run := range runs {
		for update := range run.Updates() {
			if update.Stage.Terminal() {
				r.printProgress(update)
			}
		}
		if err := summaryError(run.Wait()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SyncServe runs the daemon until interrupted.
func (r *Runner) SyncServe(ctx context.Context, cmd *cli.Command) error {
	store, done, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer done()

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}
	interval := r.config.Sync.Interval()
	if cmd.IsSet("interval") {
		interval = cmd.Duration("interval")
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	daemon := server.NewDaemon(addr, interval, r.scheduler(store), r.registry, r.logger)
	return daemon.Run(ctx)
}
