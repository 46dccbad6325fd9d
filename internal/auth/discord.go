package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

const discordUserURL = "https://discord.com/api/users/@me"

// DiscordUser is the subset of the Discord profile we consume.
type DiscordUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Verified bool   `json:"verified"`
	Email    string `json:"email"`
	Bot      bool   `json:"bot"`
}

// Discord runs the OAuth2 authorization-code exchange against Discord.
// The HTTP client is an explicit handle shared across requests.
type Discord struct {
	cfg     *oauth2.Config
	client  *http.Client
	userURL string
}

func NewDiscord(clientID, clientSecret, baseURL string, client *http.Client) *Discord {
	if client == nil {
		client = http.DefaultClient
	}
	return &Discord{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  baseURL + "/auth/callback",
			Scopes:       []string{"identify", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   "https://discord.com/api/oauth2/authorize",
				TokenURL:  "https://discord.com/api/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		client:  client,
		userURL: discordUserURL,
	}
}

// AuthCodeURL returns the Discord consent page URL for the given state.
func (d *Discord) AuthCodeURL(state string) string {
	return d.cfg.AuthCodeURL(state)
}

// Exchange trades the callback code for an access token.
func (d *Discord) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return d.cfg.Exchange(d.withClient(ctx), code)
}

// FetchUser retrieves the profile of the token's owner.
func (d *Discord) FetchUser(ctx context.Context, token *oauth2.Token) (*DiscordUser, error) {
	resp, err := d.cfg.Client(d.withClient(ctx), token).Get(d.userURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discord profile fetch: status %d", resp.StatusCode)
	}
	var u DiscordUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (d *Discord) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, d.client)
}
