package tasks

import (
	"fmt"

	"github.com/desertthunder/ytmirror/internal/models"
)

// Progress represents a progress event during a drain.
//
// Current and Total count entries claimed so far against entries claimed plus still pending, so
// Total may grow when entries are enqueued mid-drain.
type Progress struct {
	Stage   Stage    `json:"stage"`              // Drain stage
	Current int      `json:"current"`            // Entries claimed so far
	Total   int      `json:"total"`              // Current plus entries still pending
	Message string   `json:"message"`            // Human-readable message for display
	EntryID int64    `json:"entry_id,omitempty"` // Entry the update is about, zero for drain-level updates
	Summary *Summary `json:"summary,omitempty"`  // Set on the terminal update only
}

// Stage enumerates drain stages.
type Stage int

const (
	StageStarting Stage = iota
	StageProcessing
	StageEntryDone
	StageEntryFailed
	StageAuthExpired
	StageCompleted
	StagePartialFailure
	StageStopped
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageStarting:
		return "starting"
	case StageProcessing:
		return "processing"
	case StageEntryDone:
		return "entry_done"
	case StageEntryFailed:
		return "entry_failed"
	case StageAuthExpired:
		return "auth_expired"
	case StageCompleted:
		return "completed"
	case StagePartialFailure:
		return "partial_failure"
	case StageStopped:
		return "stopped"
	case StageFailed:
		return "failed"
	default:
		return ""
	}
}

// Terminal reports whether s ends a drain.
func (s Stage) Terminal() bool {
	return s >= StageCompleted
}

// MarshalText encodes the stage by name.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func startingUpdate(playlistID int64, pending int) Progress {
	return Progress{
		Stage:   StageStarting,
		Total:   pending,
		Message: fmt.Sprintf("Draining playlist %d (%d pending)...", playlistID, pending),
	}
}

func processingUpdate(current, total int, e *models.SyncQueueEntry) Progress {
	return Progress{
		Stage:   StageProcessing,
		Current: current,
		Total:   total,
		EntryID: e.ID,
		Message: fmt.Sprintf("[%d/%d] %s (entry %d)", current, total, e.Operation, e.ID),
	}
}

func entryDoneUpdate(current, total int, e *models.SyncQueueEntry) Progress {
	return Progress{
		Stage:   StageEntryDone,
		Current: current,
		Total:   total,
		EntryID: e.ID,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (entry %d)", current, total, e.Operation, e.ID),
	}
}

func entryFailedUpdate(current, total int, e *models.SyncQueueEntry, err error) Progress {
	return Progress{
		Stage:   StageEntryFailed,
		Current: current,
		Total:   total,
		EntryID: e.ID,
		Message: fmt.Sprintf("[%d/%d] ✗ %s (entry %d): %v", current, total, e.Operation, e.ID, err),
	}
}

func authExpiredUpdate(current, total, skipped int) Progress {
	return Progress{
		Stage:   StageAuthExpired,
		Current: current,
		Total:   total,
		Message: fmt.Sprintf("Authentication expired; failed %d remaining entries without calling the remote", skipped),
	}
}

func terminalUpdate(current, total int, sum Summary) Progress {
	stage := sum.Stage()

	var msg string
	switch stage {
	case StageCompleted:
		msg = fmt.Sprintf("Sync completed: %d succeeded", sum.Succeeded)
	case StagePartialFailure:
		msg = fmt.Sprintf("Sync finished with failures: %d succeeded, %d failed", sum.Succeeded, sum.Failed)
	case StageStopped:
		msg = fmt.Sprintf("Sync stopped: %d succeeded, %d failed", sum.Succeeded, sum.Failed)
	default:
		msg = fmt.Sprintf("Sync aborted: %v", sum.Err)
	}

	return Progress{
		Stage:   stage,
		Current: current,
		Total:   total,
		Message: msg,
		Summary: &sum,
	}
}
