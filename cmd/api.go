package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/alx/internal/shared"
)

// APIQuery sends a raw GraphQL document to AniList and prints the response.
func (r *Runner) APIQuery(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	var vars map[string]any
	if data := cmd.String("vars"); data != "" {
		if err := json.Unmarshal([]byte(data), &vars); err != nil {
			return fmt.Errorf("%w: vars must be a JSON object: %v", shared.ErrInvalidInput, err)
		}
	}

	r.service()
	if r.anilist == nil {
		return fmt.Errorf("%w: AniList client not initialized", shared.ErrServiceUnavailable)
	}

	if cmd.Bool("auth") {
		token, err := r.cfg().ResolveToken()
		if err != nil {
			return err
		}
		if _, err := r.authenticate(ctx, token); err != nil {
			return err
		}
	}

	if err := r.pace().Wait(ctx); err != nil {
		return err
	}

	r.logger.Debug("sending query", "auth", cmd.Bool("auth"))
	resp, err := r.anilist.Query(ctx, query, vars)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Warn("query returned an error status", "status", resp.StatusCode)
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, cmd.Bool("pretty"))
	}
	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}
