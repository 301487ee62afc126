package services

import (
	"net/url"

	"golang.org/x/oauth2"

	"github.com/desertthunder/alx/internal/shared"
)

const (
	anilistAuthURL  = "https://anilist.co/api/v2/oauth/authorize"
	anilistTokenURL = "https://anilist.co/api/v2/oauth/token"
)

// ImplicitGrantURL returns the authorization URL that shows the user a token to paste back.
func ImplicitGrantURL(clientID string) string {
	q := url.Values{}
	q.Set("client_id", clientID)
	q.Set("response_type", "token")
	return anilistAuthURL + "?" + q.Encode()
}

// NewOAuthConfig builds the authorization code flow config. It needs client_secret.
func NewOAuthConfig(cfg shared.AniListConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   anilistAuthURL,
			TokenURL:  anilistTokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}
