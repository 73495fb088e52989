package auth

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/oauth2"
)

// Scopes requested from Discord
var Scopes = []string{"identify", "guilds", "email"}

// Endpoint is Discord's OAuth2 endpoint
var Endpoint = oauth2.Endpoint{
	AuthURL:   "https://discord.com/oauth2/authorize",
	TokenURL:  "https://discord.com/api/oauth2/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// Profile is the part of the Discord account the dashboard keeps
type Profile struct {
	ID       string
	Username string
	Email    string
	Avatar   string
}

// ProfileFetcher loads the account behind an access token
type ProfileFetcher interface {
	Fetch(ctx context.Context, tok *oauth2.Token) (*Profile, error)
}

// DiscordProfiles fetches /users/@me with a bearer session
type DiscordProfiles struct{}

// Fetch implements ProfileFetcher
func (DiscordProfiles) Fetch(ctx context.Context, tok *oauth2.Token) (*Profile, error) {
	s, err := discordgo.New("Bearer " + tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("creating Discord session: %w", err)
	}

	u, err := s.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching Discord profile: %w", err)
	}

	p := &Profile{ID: u.ID, Username: u.Username, Email: u.Email}
	if u.Avatar != "" {
		p.Avatar = u.AvatarURL("128")
	}
	return p, nil
}
