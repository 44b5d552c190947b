package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

// Provider is a social sign in provider
type Provider uint8

const (
	ProviderGoogle Provider = iota + 1
	ProviderGitHub
)

// Providers lists every supported provider in display order
var Providers = []Provider{ProviderGoogle, ProviderGitHub}

func (p Provider) String() string {
	switch p {
	case ProviderGoogle:
		return "google"
	case ProviderGitHub:
		return "github"
	default:
		return "unknown"
	}
}

func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "google":
		return ProviderGoogle, nil
	case "github":
		return ProviderGitHub, nil
	default:
		return 0, ErrUnknownProvider
	}
}

func (p Provider) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ProviderConfig holds the OAuth client of a provider. Empty URLs fall
// back to the provider's public endpoints.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	Scopes       []string

	AuthURL     string
	TokenURL    string
	UserInfoURL string
	// EmailsURL is only used by GitHub, whose profile may hide the email
	EmailsURL string
}

type profile struct {
	ID            string
	Email         string
	EmailVerified bool
	Name          string
	Image         string
}

type socialProvider struct {
	provider    Provider
	oauth       *oauth2.Config
	userInfoURL string
	emailsURL   string
}

func newSocialProvider(p Provider, cfg ProviderConfig, baseURL string) (*socialProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("client id and client secret are required")
	}

	var (
		endpoint oauth2.Endpoint
		scopes   []string
		sp       = &socialProvider{provider: p}
	)

	switch p {
	case ProviderGoogle:
		endpoint = google.Endpoint
		scopes = []string{"openid", "email", "profile"}
		sp.userInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	case ProviderGitHub:
		endpoint = github.Endpoint
		scopes = []string{"read:user", "user:email"}
		sp.userInfoURL = "https://api.github.com/user"
		sp.emailsURL = "https://api.github.com/user/emails"
	default:
		return nil, ErrUnknownProvider
	}

	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}

	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	if cfg.UserInfoURL != "" {
		sp.userInfoURL = cfg.UserInfoURL
	}

	if cfg.EmailsURL != "" {
		sp.emailsURL = cfg.EmailsURL
	}

	if len(cfg.Scopes) > 0 {
		scopes = cfg.Scopes
	}

	sp.oauth = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       scopes,
		RedirectURL:  strings.TrimRight(baseURL, "/") + "/api/auth/callback/" + p.String(),
	}

	return sp, nil
}

func (sp *socialProvider) fetchProfile(ctx context.Context, tok *oauth2.Token) (*profile, error) {
	client := sp.oauth.Client(ctx, tok)

	switch sp.provider {
	case ProviderGoogle:
		var info struct {
			Sub           string `json:"sub"`
			Email         string `json:"email"`
			EmailVerified bool   `json:"email_verified"`
			Name          string `json:"name"`
			Picture       string `json:"picture"`
		}

		if err := getJSON(ctx, client, sp.userInfoURL, &info); err != nil {
			return nil, err
		}

		return &profile{
			ID:            info.Sub,
			Email:         info.Email,
			EmailVerified: info.EmailVerified,
			Name:          info.Name,
			Image:         info.Picture,
		}, nil
	case ProviderGitHub:
		var info struct {
			ID        int64  `json:"id"`
			Login     string `json:"login"`
			Name      string `json:"name"`
			Email     string `json:"email"`
			AvatarURL string `json:"avatar_url"`
		}

		if err := getJSON(ctx, client, sp.userInfoURL, &info); err != nil {
			return nil, err
		}

		p := &profile{
			ID:    strconv.FormatInt(info.ID, 10),
			Email: info.Email,
			Name:  info.Name,
			Image: info.AvatarURL,
		}

		if p.Name == "" {
			p.Name = info.Login
		}

		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}

		if err := getJSON(ctx, client, sp.emailsURL, &emails); err != nil {
			return nil, err
		}

		for _, e := range emails {
			if e.Primary || strings.EqualFold(e.Email, p.Email) {
				p.Email = e.Email
				p.EmailVerified = e.Verified
				break
			}
		}

		return p, nil
	default:
		return nil, ErrUnknownProvider
	}
}

func getJSON(ctx context.Context, client *http.Client, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("profile request failed with status %d: %s", res.StatusCode, body)
	}

	return json.NewDecoder(res.Body).Decode(dst)
}
