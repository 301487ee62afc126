package tasks

import (
	"fmt"

	"github.com/desertthunder/alx/internal/models"
)

// ProgressUpdate represents a progress event during a migration run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase           // Operation phase
	Step    int             // Current step number within phase
	Total   int             // Total steps in this phase
	Percent float64         // Percent complete of the migrate phase, 0-100
	Message string          // Human-readable message for display
	Outcome *models.Outcome // Set once an entry has been processed
	Data    any             // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Authenticate Phase = iota
	FetchEntries
	FilterEntries
	Migrate
	Complete
)

func (p Phase) String() string {
	switch p {
	case Authenticate:
		return "authenticate"
	case FetchEntries:
		return "fetch_entries"
	case FilterEntries:
		return "filter_entries"
	case Migrate:
		return "migrate"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

func authenticatingUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   Authenticate,
		Step:    1,
		Total:   1,
		Message: "Authenticating with AniList...",
	}
}

func authenticatedUpdate(viewer *models.Viewer) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Authenticate,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Signed in as %s", viewer.Name),
		Data:    viewer,
	}
}

func fetchPageUpdate(page int, mediaType models.MediaType, fetched int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchEntries,
		Step:    page + 1,
		Message: fmt.Sprintf("Fetching %s list page %d (%d entries so far)...", mediaType.Label(), page+1, fetched),
	}
}

func filteredUpdate(fetched, eligible int, mediaType models.MediaType) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FilterEntries,
		Step:    eligible,
		Total:   fetched,
		Message: fmt.Sprintf("%d of %d %s entries are planning", eligible, fetched, mediaType.Label()),
	}
}

func movingUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Migrate,
		Step:    step,
		Total:   total,
		Percent: percent(step, total),
		Message: fmt.Sprintf("[%d/%d] Moving %s", step, total, title),
	}
}

func outcomeUpdate(step, total int, o models.Outcome) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] %s: %s", step, total, o.Kind, o.Title)
	if o.Reason != "" {
		msg += " (" + o.Reason + ")"
	}
	return ProgressUpdate{
		Phase:   Migrate,
		Step:    step,
		Total:   total,
		Percent: percent(step, total),
		Message: msg,
		Outcome: &o,
	}
}

func runLevelUpdate(o models.Outcome, message string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Percent: 100,
		Message: message,
		Outcome: &o,
	}
}

func completedUpdate(counts models.OutcomeCounts) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Percent: 100,
		Message: fmt.Sprintf("Done: %d moved, %d skipped, %d failed", counts.Moved+counts.WouldMove, counts.Skipped(), counts.Failed),
		Data:    counts,
	}
}

// percent is (step/total)*100 for a one-based step.
func percent(step, total int) float64 {
	if total <= 0 {
		return 100
	}
	return float64(step) / float64(total) * 100
}
