package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

var errProviderNotConfigured = errors.New("oauth provider not configured")

// OAuthLogin redirects to the provider's consent page with a single-use state.
func (a *AuthController) OAuthLogin(ctx *gin.Context) {
	cfg, err := oauthConfig(ctx.Param("provider"))
	if err != nil {
		NotFound(ctx)
		return
	}
	state := uuid.NewString()
	utils.SaveToken(utils.TokenOAuthState, state, safeNext(ctx.Query("next")), 10*time.Minute)
	ctx.Redirect(http.StatusFound, cfg.AuthCodeURL(state, oauth2.AccessTypeOnline))
}

// OAuthCallback exchanges the code, links or creates the account and starts a session.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	cfg, err := oauthConfig(provider)
	if err != nil {
		NotFound(ctx)
		return
	}
	code, state := ctx.Query("code"), ctx.Query("state")
	next, ok := utils.ConsumeToken(utils.TokenOAuthState, state)
	if code == "" || state == "" || !ok {
		ctx.Redirect(http.StatusFound, middleware.LoginURL)
		return
	}

	rctx, cancel := context.WithTimeout(ctx.Request.Context(), 15*time.Second)
	defer cancel()
	token, err := cfg.Exchange(rctx, code)
	if err != nil {
		utils.Sugar.Warnw("oauth code exchange failed", "provider", provider, "err", err)
		ctx.Redirect(http.StatusFound, middleware.LoginURL)
		return
	}
	identity, err := fetchOAuthUser(rctx, provider, token)
	if err != nil {
		serverError(ctx, err)
		return
	}
	user, err := a.accounts.UpsertOAuthUser(rctx, provider, identity)
	if err != nil {
		serverError(ctx, err)
		return
	}
	if _, err := middleware.StartSession(ctx, user); err != nil {
		serverError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, safeNext(next))
}

// oauthProviders lists the providers that have credentials configured.
func oauthProviders() []string {
	var out []string
	for _, p := range []string{"github", "google"} {
		if _, err := oauthConfig(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func oauthConfig(provider string) (*oauth2.Config, error) {
	cfg := config.Get()
	base := strings.TrimRight(cfg.OAuthRedirectBase, "/")
	switch strings.ToLower(provider) {
	case "github":
		if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
			return nil, errProviderNotConfigured
		}
		return &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  base + "/auth/oauth/github/callback/",
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}, nil
	case "google":
		if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
			return nil, errProviderNotConfigured
		}
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  base + "/auth/oauth/google/callback/",
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func fetchOAuthUser(ctx context.Context, provider string, token *oauth2.Token) (*services.OAuthIdentity, error) {
	switch provider {
	case "github":
		return fetchGitHubUser(ctx, token)
	case "google":
		return fetchGoogleUser(ctx, token)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func getJSON(ctx context.Context, url string, token *oauth2.Token, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func fetchGitHubUser(ctx context.Context, token *oauth2.Token) (*services.OAuthIdentity, error) {
	var payload struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
	}
	if err := getJSON(ctx, "https://api.github.com/user", token, &payload); err != nil {
		return nil, fmt.Errorf("github user: %w", err)
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	email := ""
	if err := getJSON(ctx, "https://api.github.com/user/emails", token, &emails); err == nil {
		for _, e := range emails {
			if e.Primary && e.Verified {
				email = e.Email
				break
			}
		}
	}

	return &services.OAuthIdentity{
		ID:          fmt.Sprintf("%d", payload.ID),
		Username:    payload.Login,
		DisplayName: fallback(payload.Name, payload.Login),
		Email:       email,
	}, nil
}

func fetchGoogleUser(ctx context.Context, token *oauth2.Token) (*services.OAuthIdentity, error) {
	var payload struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := getJSON(ctx, "https://www.googleapis.com/oauth2/v2/userinfo", token, &payload); err != nil {
		return nil, fmt.Errorf("google user: %w", err)
	}
	username, _, _ := strings.Cut(payload.Email, "@")
	return &services.OAuthIdentity{
		ID:          payload.ID,
		Username:    username,
		DisplayName: payload.Name,
		Email:       payload.Email,
	}, nil
}

func fallback(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
