package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/alx/internal/formatter"
	"github.com/desertthunder/alx/internal/metrics"
	"github.com/desertthunder/alx/internal/models"
	"github.com/desertthunder/alx/internal/repositories"
	"github.com/desertthunder/alx/internal/server"
	"github.com/desertthunder/alx/internal/shared"
	"github.com/desertthunder/alx/internal/tasks"
)

// Migrate runs one migration and prints every outcome as it arrives.
func (r *Runner) Migrate(ctx context.Context, cmd *cli.Command) error {
	dir, err := models.ParseDirection(cmd.String("direction"))
	if err != nil {
		return err
	}
	policy, err := r.deletePolicy(cmd)
	if err != nil {
		return err
	}
	dryRun := cmd.Bool("dry-run")

	token, err := r.cfg().ResolveToken()
	if err != nil {
		return err
	}

	var status *server.StatusHandler
	if cmd.Bool("metrics") {
		status = server.NewStatusHandler(metrics.Handler())
		router := server.NewBasicRouter()
		router.Use(server.Recover(r.logger), server.Logging(r.logger))
		router.Handler(status)

		srv, err := server.Start(r.cfg().Server.Addr(), router, r.logger.WithPrefix("metrics"))
		if err != nil {
			return err
		}
		defer srv.Shutdown()
		r.logger.Info("serving metrics", "addr", srv.Addr(), "routes", router.Patterns())
	}

	header := fmt.Sprintf("Migrating planning entries: %s", dir)
	if dryRun {
		header += " (dry run)"
	}
	r.writePlainHeader(header)

	progress := make(chan tasks.ProgressUpdate, 50)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.printProgress(progress, status)
	}()

	result, runErr := r.engine(policy, dryRun).Begin(ctx, token, dir, progress)
	close(progress)
	wg.Wait()

	report := r.finishRun(cmd, result, runErr)

	if path := cmd.String("report"); path != "" {
		format, err := formatter.WriteReport(report, path)
		if err != nil {
			r.logger.Error("failed to write report", "error", err)
		} else {
			r.writePlain("✓ %s report written to %s\n", format, path)
		}
	}

	if runErr != nil {
		return runErr
	}

	r.writePlainln("%s", formatter.Summary(report.Counts))
	if report.Counts.Lost > 0 {
		r.writePlain("⚠ %d source entries were removed without a replacement; see the outcomes above.\n", report.Counts.Lost)
	}
	return nil
}

// printProgress writes outcome lines and logs status lines until progress is closed.
func (r *Runner) printProgress(progress <-chan tasks.ProgressUpdate, status *server.StatusHandler) {
	for update := range progress {
		if status != nil {
			status.Set(update.Phase.String(), update.Percent, update.Message)
		}

		switch {
		case update.Outcome != nil && update.Outcome.Kind.IsRunLevel():
			r.writePlain("%s\n", formatter.DescribeOutcome(*update.Outcome))
		case update.Outcome != nil:
			r.writePlain("[%d/%d %3.0f%%] %s\n", update.Step, update.Total, update.Percent, formatter.DescribeOutcome(*update.Outcome))
		case update.Phase == tasks.Migrate:
			r.logger.Debug(update.Message)
		default:
			r.logger.Info(update.Message)
		}
	}
}

// finishRun records the run unless --no-history is set and builds its report.
//
// History failures are logged, never returned: the remote changes already happened.
func (r *Runner) finishRun(cmd *cli.Command, result *tasks.RunResult, runErr error) *formatter.Report {
	report := newReport(result, runErr)
	if result == nil || result.Viewer == nil || cmd.Bool("no-history") {
		return report
	}

	logger := shared.WithLogger(r.logger, "viewer", result.Viewer.Name, "direction", result.Direction)
	record, err := r.recordRun(result, runErr)
	if err != nil {
		logger.Warn("failed to record run history", "error", err)
		return report
	}

	report.RunID = record.ID()
	report.Sequence = record.Sequence()
	report.Status = record.Status()
	logger.Info("run recorded", "run", record.Sequence(), "status", record.Status())
	return report
}

// recordRun stores result and its outcomes in the history database.
func (r *Runner) recordRun(result *tasks.RunResult, runErr error) (*models.RunRecord, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}

	record := models.NewRunRecord(0, result.Viewer.ID, result.Direction, string(result.DeletePolicy), result.DryRun)
	record.SetStartedAt(result.StartedAt)
	record.Finish(result.Outcomes, runErr)

	if err := repositories.NewRunRepository(db).Create(record); err != nil {
		return nil, err
	}
	if err := repositories.NewOutcomeRepository(db).CreateAll(record.ID(), result.Outcomes); err != nil {
		return record, err
	}
	return record, nil
}

func (r *Runner) deletePolicy(cmd *cli.Command) (tasks.DeletePolicy, error) {
	value := cmd.String("delete-policy")
	if value == "" {
		value = r.cfg().Migration.DeletePolicy
	}
	return tasks.ParseDeletePolicy(value)
}

func newReport(result *tasks.RunResult, runErr error) *formatter.Report {
	report := &formatter.Report{}
	if runErr != nil {
		report.Status = models.RunStatusAborted
		report.Error = runErr.Error()
	} else {
		report.Status = models.RunStatusCompleted
	}
	if result == nil {
		return report
	}

	if result.Viewer != nil {
		report.Viewer = result.Viewer.Name
	}
	report.Direction = result.Direction.String()
	report.DeletePolicy = string(result.DeletePolicy)
	report.DryRun = result.DryRun
	report.Fetched = result.Fetched
	report.Eligible = result.Eligible
	report.Counts = result.Counts
	report.Outcomes = result.Outcomes
	report.StartedAt = result.StartedAt
	report.CompletedAt = result.CompletedAt
	return report
}
