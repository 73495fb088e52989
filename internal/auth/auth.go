// Package auth signs users in with Discord OAuth2 and keeps them signed in
// with a signed session cookie. Admin rights come from the configured
// allow-list on every request.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PancyStudios/PancyDash/internal/session"
	"github.com/PancyStudios/PancyDash/pkg/database"
	"github.com/PancyStudios/PancyDash/pkg/logger"
	"github.com/PancyStudios/PancyDash/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/oauth2"
)

// Cookie names
const (
	SessionCookie = "pancydash_session"
	StateCookie   = "pancydash_oauth_state"
)

const (
	stateTTL      = 10 * time.Minute
	userUpsertTTL = 5 * time.Second
)

// AllowList is the set of admin user IDs
type AllowList map[string]struct{}

// NewAllowList builds an allow-list from IDs
func NewAllowList(ids []string) AllowList {
	out := make(AllowList, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

// IsAdmin reports whether id is on the list
func (a AllowList) IsAdmin(id string) bool {
	_, ok := a[id]
	return ok
}

// Options configure an Authenticator
type Options struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// AfterLogin is where the browser lands after a successful callback
	AfterLogin string
	Secret     string
	TTL        time.Duration
	Admins     []string
	// Secure marks cookies HTTPS-only
	Secure bool
}

// Authenticator owns the OAuth flow and the session cookie
type Authenticator struct {
	oauth      *oauth2.Config
	tokens     *Tokens
	admins     AllowList
	profiles   ProfileFetcher
	users      database.Collection[models.User]
	afterLogin string
	secure     bool
	now        func() time.Time
}

// New creates an Authenticator. profiles may be nil to use Discord.
func New(opts Options, users database.Collection[models.User], profiles ProfileFetcher) *Authenticator {
	if profiles == nil {
		profiles = DiscordProfiles{}
	}
	if opts.Secret == "" {
		logger.Warn("SESSION_SECRET no configurado, las sesiones no sobrevivirán a un reinicio", "Auth")
	}
	afterLogin := opts.AfterLogin
	if afterLogin == "" {
		afterLogin = "/"
	}
	return &Authenticator{
		oauth: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Endpoint:     Endpoint,
			Scopes:       Scopes,
		},
		tokens:     NewTokens(opts.Secret, opts.TTL),
		admins:     NewAllowList(opts.Admins),
		profiles:   profiles,
		users:      users,
		afterLogin: afterLogin,
		secure:     opts.Secure,
		now:        time.Now,
	}
}

// Admins returns the admin allow-list
func (a *Authenticator) Admins() AllowList { return a.admins }

// Middleware attaches the session user when the request carries a valid
// session cookie. It never rejects.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(SessionCookie)
		if err == nil && raw != "" {
			if u, err := a.tokens.Parse(raw); err == nil {
				u.IsAdmin = a.admins.IsAdmin(u.ID)
				session.Set(c, u)
			}
		}
		c.Next()
	}
}

// RequireSession rejects requests without a session user
func RequireSession(c *gin.Context) {
	if _, ok := session.Get(c); !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.Next()
}

// RequireAdmin rejects requests whose user is missing or not an admin
func RequireAdmin(c *gin.Context) {
	u, ok := session.Get(c)
	if !ok || !u.IsAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}
	c.Next()
}

// Login starts the OAuth flow
func (a *Authenticator) Login(c *gin.Context) {
	state := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(StateCookie, state, int(stateTTL.Seconds()), "/", "", a.secure, true)
	c.Redirect(http.StatusFound, a.oauth.AuthCodeURL(state))
}

// Callback completes the OAuth flow and issues the session cookie
func (a *Authenticator) Callback(c *gin.Context) {
	if reason := c.Query("error"); reason != "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication failed", "reason": reason})
		return
	}

	expected, err := c.Cookie(StateCookie)
	if err != nil || expected == "" || expected != c.Query("state") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OAuth state"})
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(StateCookie, "", -1, "/", "", a.secure, true)

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing authorization code"})
		return
	}

	ctx := c.Request.Context()
	tok, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		logger.Warn("Error intercambiando código OAuth: "+err.Error(), "Auth")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication failed"})
		return
	}
	profile, err := a.profiles.Fetch(ctx, tok)
	if err != nil {
		logger.Warn("Error obteniendo perfil de Discord: "+err.Error(), "Auth")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication failed"})
		return
	}

	u := &session.User{ID: profile.ID, Name: profile.Username, Email: profile.Email, Image: profile.Avatar}
	signed, _, err := a.tokens.Issue(u)
	if err != nil {
		logger.Error(err.Error(), "Auth")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	go a.recordLogin(context.WithoutCancel(ctx), profile)

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, signed, int(a.tokens.TTL().Seconds()), "/", "", a.secure, true)
	logger.Info(fmt.Sprintf("Inicio de sesión de %s (%s)", u.DisplayName(), u.ID), "Auth")
	c.Redirect(http.StatusFound, a.afterLogin)
}

// recordLogin upserts the users document. Failures are logged only.
func (a *Authenticator) recordLogin(ctx context.Context, p *Profile) {
	ctx, cancel := context.WithTimeout(ctx, userUpsertTTL)
	defer cancel()

	err := a.users.Set(ctx, p.ID, bson.M{
		"username":  p.Username,
		"avatar":    p.Avatar,
		"email":     p.Email,
		"lastLogin": models.NewTimestamp(a.now()),
	}, true)
	if err != nil {
		logger.Warn(fmt.Sprintf("No se pudo registrar el inicio de sesión de %s: %v", p.ID, err), "Auth")
	}
}

// Session returns the signed-in user
func (a *Authenticator) Session(c *gin.Context) {
	u := session.MustGet(c)
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// Logout clears the session cookie
func (a *Authenticator) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", a.secure, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CookieFor issues a session cookie for u, as the callback would
func (a *Authenticator) CookieFor(u *session.User) (*http.Cookie, error) {
	signed, expires, err := a.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    signed,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}
