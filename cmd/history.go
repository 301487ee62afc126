package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/alx/internal/formatter"
	"github.com/desertthunder/alx/internal/models"
	"github.com/desertthunder/alx/internal/repositories"
	"github.com/desertthunder/alx/internal/shared"
)

// HistoryList prints recorded runs, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	runs, err := repositories.NewRunRepository(db).List(map[string]any{
		"status": cmd.String("status"),
		"limit":  int(cmd.Int("limit")),
	})
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		r.writePlain("No runs recorded.\n")
		return nil
	}

	r.writePlain("%-5s %-17s %-15s %-10s %6s %6s %7s %6s %5s\n", "RUN", "STARTED", "DIRECTION", "STATUS", "TOTAL", "MOVED", "SKIPPED", "FAILED", "LOST")
	for _, run := range runs {
		status := run.Status()
		if run.DryRun() {
			status += "*"
		}
		r.writePlain("%-5d %-17s %-15s %-10s %6d %6d %7d %6d %5d\n",
			run.Sequence(),
			run.StartedAt().Local().Format("2006-01-02 15:04"),
			run.Direction(),
			status,
			run.Total(),
			run.Moved(),
			run.Skipped(),
			run.Failed(),
			run.Lost(),
		)
	}
	r.writePlain("\n* dry run\n")
	return nil
}

// HistoryShow prints one run and its outcomes, or writes them as a report with --report.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	run, err := r.findRun(cmd.StringArg("run"))
	if err != nil {
		return err
	}

	outcomes, err := repositories.NewOutcomeRepository(db).ListByRun(run.ID())
	if err != nil {
		return err
	}
	report := runReport(run, outcomes)

	if path := cmd.String("report"); path != "" {
		format, err := formatter.WriteReport(report, path)
		if err != nil {
			return err
		}
		r.writePlain("✓ %s report written to %s\n", format, path)
		return nil
	}

	data, err := formatter.ExportToText(report)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

// HistoryDelete removes a run from history.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	run, err := r.findRun(cmd.StringArg("run"))
	if err != nil {
		return err
	}

	if err := repositories.NewRunRepository(db).Delete(run.ID()); err != nil {
		return err
	}
	r.writePlain("✓ Deleted run #%d\n", run.Sequence())
	return nil
}

// findRun looks a run up by its sequence number, or by ID when ref is not a number.
func (r *Runner) findRun(ref string) (*models.RunRecord, error) {
	ref = strings.TrimPrefix(strings.TrimSpace(ref), "#")
	if ref == "" {
		return nil, fmt.Errorf("%w: run number or ID", shared.ErrMissingArgument)
	}

	db, err := r.database()
	if err != nil {
		return nil, err
	}
	repo := repositories.NewRunRepository(db)

	if seq, err := strconv.Atoi(ref); err == nil {
		return repo.GetBySequence(seq)
	}
	return repo.Get(ref)
}

func runReport(run *models.RunRecord, outcomes []models.Outcome) *formatter.Report {
	report := &formatter.Report{
		RunID:        run.ID(),
		Sequence:     run.Sequence(),
		Direction:    run.Direction(),
		DeletePolicy: run.DeletePolicy(),
		DryRun:       run.DryRun(),
		Status:       run.Status(),
		Error:        run.ErrorMessage(),
		Eligible:     run.Total(),
		Counts:       models.Count(outcomes),
		Outcomes:     outcomes,
		StartedAt:    run.StartedAt(),
	}
	if run.CompletedAt() != nil {
		report.CompletedAt = *run.CompletedAt()
	}
	return report
}
