package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/alx/internal/models"
	"github.com/desertthunder/alx/internal/shared"
	"github.com/desertthunder/alx/internal/tasks"
)

type scoredJSON struct {
	ID       int              `json:"id"`
	Type     models.MediaType `json:"type"`
	Title    models.Title     `json:"title"`
	Score    int              `json:"score"`
	Accepted bool             `json:"accepted"`
}

// Search ranks destination candidates for a title the same way a migration would.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	title := strings.TrimSpace(cmd.StringArg("title"))
	if title == "" {
		return fmt.Errorf("%w: title", shared.ErrMissingArgument)
	}
	mediaType, err := models.ParseMediaType(cmd.String("type"))
	if err != nil {
		return err
	}

	ranked, err := r.engine(tasks.DeleteAlways, true).Resolver().Rank(ctx, title, mediaType)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		out := make([]scoredJSON, 0, len(ranked))
		for _, s := range ranked {
			out = append(out, scoredJSON{
				ID:       s.Candidate.ID,
				Type:     s.Candidate.Type,
				Title:    s.Candidate.Title,
				Score:    s.Score,
				Accepted: s.Accepted,
			})
		}
		return r.writeJSON(out, true)
	}

	r.writePlainHeader(fmt.Sprintf("%s candidates for %q", mediaType.Label(), title))
	if len(ranked) == 0 {
		r.writePlain("No candidates found.\n")
		return nil
	}

	match := -1
	for i, s := range ranked {
		marker := " "
		if s.Accepted {
			marker = "✓"
			match = i
		}
		native := s.Candidate.Title.NativeValue()
		if native == "" {
			r.writePlain("%s %3s  %-8d %s (no native title)\n", marker, "-", s.Candidate.ID, s.Candidate.Title.Display())
			continue
		}
		r.writePlain("%s %3d  %-8d %s (%s)\n", marker, s.Score, s.Candidate.ID, native, s.Candidate.Title.Display())
	}

	if match < 0 {
		r.writePlainln("No candidate reached the match threshold of %d.", r.cfg().Migration.MatchThreshold)
	} else {
		r.writePlainln("Would match media %d.", ranked[match].Candidate.ID)
	}
	return nil
}
