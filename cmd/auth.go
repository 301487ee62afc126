package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/alx/internal/models"
	"github.com/desertthunder/alx/internal/server"
	"github.com/desertthunder/alx/internal/services"
	"github.com/desertthunder/alx/internal/shared"
)

// authTimeout bounds how long login waits for the browser.
const authTimeout = 2 * time.Minute

// AuthLogin obtains an AniList token, validates it against the viewer query and saves it to token_path.
//
// Without --token it opens the implicit grant page and reads the token the user pastes back.
// With --code it runs the authorization code flow through a local callback server.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	creds := r.cfg().Credentials.AniList
	token := strings.TrimSpace(cmd.String("token"))

	var name string
	if token == "" {
		var err error
		if cmd.Bool("code") {
			token, name, err = r.doOAuth(ctx, creds, !cmd.Bool("no-browser"))
		} else {
			token, err = r.promptToken(ctx, creds, !cmd.Bool("no-browser"))
		}
		if err != nil {
			return err
		}
	}

	// The code flow already ran the viewer query from the callback.
	if name == "" {
		viewer, err := r.authenticate(ctx, token)
		if err != nil {
			return err
		}
		name = viewer.Name
	}

	if creds.TokenPath == "" {
		r.writePlain("✓ Signed in as %s (token not saved: credentials.anilist.token_path is empty)\n", name)
		return nil
	}

	if err := shared.SaveToken(creds.TokenPath, token); err != nil {
		return err
	}
	r.logger.Info("token saved", "path", creds.TokenPath)

	r.writePlain("✓ Signed in as %s\n", name)
	r.writePlain("✓ Token saved to %s\n\n", creds.TokenPath)
	r.writePlain("You can now use: alx migrate --dry-run\n")
	return nil
}

// AuthStatus reports the viewer the resolved token belongs to.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	token, err := r.cfg().ResolveToken()
	if err != nil {
		r.writePlain("✗ Not signed in\n")
		return err
	}

	viewer, err := r.authenticate(ctx, token)
	if err != nil {
		r.writePlain("✗ Saved token was rejected\n")
		return err
	}

	r.writePlain("✓ Signed in as %s (id %d)\n", viewer.Name, viewer.ID)
	return nil
}

// AuthLogout removes the saved token file.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	path := r.cfg().Credentials.AniList.TokenPath
	if path == "" {
		return fmt.Errorf("%w: credentials.anilist.token_path is empty", shared.ErrInvalidConfig)
	}
	if err := shared.RemoveToken(path); err != nil {
		return err
	}

	r.writePlain("✓ Removed %s\n", path)
	if r.cfg().Credentials.AniList.Token != "" {
		r.writePlain("⚠ A token is still set in the config file\n")
	}
	return nil
}

// authenticate validates token through the pacer.
func (r *Runner) authenticate(ctx context.Context, token string) (*models.Viewer, error) {
	if err := r.pace().Wait(ctx); err != nil {
		return nil, err
	}
	viewer, err := r.service().Authenticate(ctx, token)
	if err != nil {
		if !errors.Is(err, shared.ErrAuthentication) {
			err = fmt.Errorf("%w: %w", shared.ErrAuthentication, err)
		}
		return nil, err
	}
	return viewer, nil
}

// promptToken opens the implicit grant page and reads the pasted token from input.
func (r *Runner) promptToken(ctx context.Context, creds shared.AniListConfig, browser bool) (string, error) {
	if creds.ClientID == "" {
		return "", fmt.Errorf("%w: credentials.anilist.client_id must be set", shared.ErrInvalidConfig)
	}

	authURL := services.ImplicitGrantURL(creds.ClientID)
	r.openOrPrint(authURL, browser)
	r.writePlain("Paste the token shown by AniList and press enter:\n> ")

	lines := make(chan string, 1)
	go func() {
		scanner := bufio.NewScanner(r.input)
		scanner.Buffer(make([]byte, 0, 4096), 64*1024)
		if scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-lines:
		token := strings.TrimSpace(line)
		if !ok || token == "" {
			return "", fmt.Errorf("%w: no token entered", shared.ErrMissingCredentials)
		}
		return token, nil
	}
}

// doOAuth runs the authorization code flow through a local callback server and
// returns the token together with the viewer name the callback confirmed.
func (r *Runner) doOAuth(ctx context.Context, creds shared.AniListConfig, browser bool) (string, string, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return "", "", fmt.Errorf("%w: client_id and client_secret must be set in config.toml for --code", shared.ErrInvalidArgument)
	}

	state, err := shared.GenerateState()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate state token: %w", err)
	}

	oauthConfig := services.NewOAuthConfig(creds)
	oauthHandler := server.NewOAuthHandler(oauthConfig, state, func(ctx context.Context, tok *oauth2.Token) (string, error) {
		viewer, err := r.authenticate(ctx, tok.AccessToken)
		if err != nil {
			return "", err
		}
		return viewer.Name, nil
	})
	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger), server.Logging(r.logger))
	router.Handler(oauthHandler)

	srv, err := server.Start(r.cfg().Server.Addr(), router, r.logger.WithPrefix("oauth"))
	if err != nil {
		return "", "", err
	}
	defer srv.Shutdown()
	r.logger.Info("started OAuth callback server", "addr", srv.Addr())

	r.openOrPrint(oauthConfig.AuthCodeURL(state), browser)
	r.writePlain("→ Waiting for authorization (%s timeout)...\n", authTimeout)

	timeout := time.NewTimer(authTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-srv.Errors():
		return "", "", fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return "", "", fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, authTimeout)
	case <-ctx.Done():
		return "", "", ctx.Err()
	}

	if err := result.Error(); err != nil {
		if !errors.Is(err, shared.ErrAuthentication) {
			err = fmt.Errorf("%w: %w", shared.ErrAuthentication, err)
		}
		return "", "", err
	}
	return result.Token.AccessToken, result.Viewer, nil
}

func (r *Runner) openOrPrint(url string, browser bool) {
	if browser {
		r.writePlain("→ Opening browser for AniList sign-in...\n")
		err := r.openBrowser(url)
		if err == nil {
			return
		}
		r.logger.Warn("failed to open browser automatically", "error", err)
		r.writePlain("⚠ Could not open browser automatically.\n")
	}
	r.writePlain("Open this URL in your browser:\n%s\n\n", url)
}
