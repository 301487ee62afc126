package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/alx/internal/formatter"
	"github.com/desertthunder/alx/internal/models"
)

var _ list.Item = outcomeItem{}

// outcomeItem wraps [models.Outcome] to implement [list.Item].
type outcomeItem struct {
	outcome models.Outcome
}

func (i outcomeItem) FilterValue() string { return i.outcome.Title + " " + i.outcome.Kind.String() }
func (i outcomeItem) Title() string {
	title := i.outcome.Title
	if title == "" {
		title = fmt.Sprintf("entry %d", i.outcome.EntryID)
	}
	return styles.ForOutcome(i.outcome.Kind).Render(i.outcome.Kind.String()) + " " + title
}
func (i outcomeItem) Description() string {
	return formatter.DescribeOutcome(i.outcome)
}

func outcomeItems(outcomes []models.Outcome) []list.Item {
	items := make([]list.Item, len(outcomes))
	for i, o := range outcomes {
		items[i] = outcomeItem{outcome: o}
	}
	return items
}
