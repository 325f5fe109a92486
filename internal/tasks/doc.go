// Package tasks runs the outbox against the remote platform with real-time progress reporting.
//
// # Scheduler
//
// [Scheduler] is an explicit instance owning a worker pool ([semaphore.Weighted], one worker by default),
// a shared call throttle ([rate.Limiter], one call every 300ms by default) and a per-playlist lock table.
//
//  1. [Scheduler.Drain] : claims the playlist's pending entries in (created_at, id) order and applies them
//     - add/remove batches are split into chunks of 20, one throttled call per chunk
//     - transient errors fail the entry; it stays failed until requeued
//     - an expired credential fails the entry and every pending entry of the playlist without further calls
//     - validation errors fail only the offending entry
//
//  2. [Scheduler.TriggerSync] : single-flight wrapper returning [Started] or [AlreadyRunning]
//
//  3. [Scheduler.TriggerAll] : triggers every playlist with pending entries
//
// # Progress Reporting
//
// Each [Run] exposes an ordered [Progress] channel. Intermediate updates are sent without blocking;
// the final update carries a terminal [Stage] and the [Summary], after which the channel is closed.
//
// # Cancellation
//
// [Run.Stop] and context cancellation are checked between entries. A claimed entry always reaches
// completed or failed: its remote calls and store writes run on [context.WithoutCancel].
//
// # Planner
//
// [Planner.PlanMirror] diffs local membership against the remote collection and enqueues the
// removals and additions that make the remote mirror local.
package tasks
