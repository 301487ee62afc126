package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/alx/internal/models"
	"github.com/desertthunder/alx/internal/shared"
	"github.com/desertthunder/alx/internal/tasks"
	"github.com/desertthunder/alx/internal/ui"
)

// TUI launches the interactive terminal UI for a migration.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	dir, err := models.ParseDirection(cmd.String("direction"))
	if err != nil {
		return err
	}
	policy, err := r.deletePolicy(cmd)
	if err != nil {
		return err
	}
	token, err := r.cfg().ResolveToken()
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/alx-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, ui.Options{
		Token:        token,
		Direction:    dir,
		DeletePolicy: policy,
		DryRun:       cmd.Bool("dry-run"),
		NewEngine: func(dryRun bool) tasks.MigrationEngine {
			return r.engine(policy, dryRun)
		},
		OnFinish: func(_ models.Direction, _ bool, result *tasks.RunResult, err error) {
			if result == nil || result.Viewer == nil {
				return
			}
			record, recErr := r.recordRun(result, err)
			if recErr != nil {
				r.logger.Warn("failed to record run history", "error", recErr)
				return
			}
			r.logger.Info("run recorded", "run", record.Sequence(), "status", record.Status())
		},
	})

	p := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	model.Wait()
	return nil
}
