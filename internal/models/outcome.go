package models

import "fmt"

// OutcomeKind tags a [Outcome].
type OutcomeKind int

const (
	OutcomeMoved OutcomeKind = iota
	OutcomeSkippedNoTitle
	OutcomeSkippedNoMatch
	OutcomeFailed
	OutcomeNoEligibleEntries
	OutcomeNoEntriesFound
	OutcomeWouldMove // dry runs only
)

var outcomeNames = map[OutcomeKind]string{
	OutcomeMoved:             "moved",
	OutcomeSkippedNoTitle:    "skipped_no_title",
	OutcomeSkippedNoMatch:    "skipped_no_match",
	OutcomeFailed:            "failed",
	OutcomeNoEligibleEntries: "no_eligible_entries",
	OutcomeNoEntriesFound:    "no_entries_found",
	OutcomeWouldMove:         "would_move",
}

func (k OutcomeKind) String() string {
	if s, ok := outcomeNames[k]; ok {
		return s
	}
	return fmt.Sprintf("outcome(%d)", int(k))
}

// ParseOutcomeKind is the inverse of [OutcomeKind.String].
func ParseOutcomeKind(s string) (OutcomeKind, error) {
	for k, name := range outcomeNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown outcome kind %q", s)
}

// IsRunLevel reports whether the kind describes the whole run rather than one entry.
func (k OutcomeKind) IsRunLevel() bool {
	return k == OutcomeNoEligibleEntries || k == OutcomeNoEntriesFound
}

// Outcome is the result of processing one eligible entry, or a single
// run-level marker when there was nothing to process.
type Outcome struct {
	Kind          OutcomeKind `json:"kind"`
	EntryID       int         `json:"entry_id,omitempty"`
	MediaID       int         `json:"media_id,omitempty"`
	Title         string      `json:"title,omitempty"`
	DestinationID int         `json:"destination_id,omitempty"`
	Score         int         `json:"score,omitempty"`
	SourceDeleted bool        `json:"source_deleted"`
	Reason        string      `json:"reason,omitempty"`
}

// Lost reports whether the source entry was removed without a destination entry being created.
func (o Outcome) Lost() bool {
	return o.SourceDeleted && o.Kind != OutcomeMoved
}

// OutcomeCounts tallies outcomes by kind.
type OutcomeCounts struct {
	Moved     int
	WouldMove int
	NoTitle   int
	NoMatch   int
	Failed    int
	Lost      int
}

// Count tallies the given outcomes. Run-level markers are not counted.
func Count(outcomes []Outcome) OutcomeCounts {
	var c OutcomeCounts
	for _, o := range outcomes {
		switch o.Kind {
		case OutcomeMoved:
			c.Moved++
		case OutcomeWouldMove:
			c.WouldMove++
		case OutcomeSkippedNoTitle:
			c.NoTitle++
		case OutcomeSkippedNoMatch:
			c.NoMatch++
		case OutcomeFailed:
			c.Failed++
		}
		if o.Lost() {
			c.Lost++
		}
	}
	return c
}

// Skipped is the number of entries skipped for any reason.
func (c OutcomeCounts) Skipped() int {
	return c.NoTitle + c.NoMatch
}
