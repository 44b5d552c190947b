package auth

import (
	"bitwise74/meet-api/internal/model"
	"bitwise74/meet-api/pkg/forms"
	"bitwise74/meet-api/pkg/metrics"
	"bitwise74/meet-api/pkg/security"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	stateTTL         = time.Minute * 10
	stateBytes       = 16
	oauthStatePrefix = "oauth-state:"
)

var (
	ErrSocialSignIn = errors.New("Failed to sign in with provider")
	ErrNoEmail      = errors.New("Provider did not share an email address")
)

type pendingState struct {
	Provider    string `json:"provider"`
	CallbackURL string `json:"callbackURL"`
	Verifier    string `json:"verifier"`
}

// EnabledProviders returns the configured providers in display order
func (s *Service) EnabledProviders() []Provider {
	out := make([]Provider, 0, len(s.social))

	for _, p := range Providers {
		if _, ok := s.social[p]; ok {
			out = append(out, p)
		}
	}

	return out
}

// SocialStart returns the URL the user has to visit to authorize with p.
// The state and PKCE verifier are kept until the provider redirects back.
func (s *Service) SocialStart(ctx context.Context, p Provider, callbackURL string) (string, error) {
	sp, ok := s.social[p]
	if !ok {
		return "", ErrProviderDisabled
	}

	state, err := security.NewToken(stateBytes)
	if err != nil {
		return "", err
	}

	verifier := oauth2.GenerateVerifier()

	value, err := json.Marshal(pendingState{
		Provider:    p.String(),
		CallbackURL: forms.SafeCallback(callbackURL),
		Verifier:    verifier,
	})
	if err != nil {
		return "", err
	}

	v := &model.Verification{
		Identifier: oauthStatePrefix + state,
		Value:      string(value),
		ExpiresAt:  s.now().Add(stateTTL),
	}

	if err := s.db.WithContext(ctx).Create(v).Error; err != nil {
		return "", err
	}

	return sp.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)), nil
}

// SocialCallback finishes the authorization started by SocialStart. It
// returns the new session's identity and where the user should land.
func (s *Service) SocialCallback(ctx context.Context, p Provider, code, state string, meta RequestMeta) (id *Identity, callbackURL string, err error) {
	defer func() { metrics.AuthEvent("social_"+p.String(), err) }()

	sp, ok := s.social[p]
	if !ok {
		return nil, "", ErrProviderDisabled
	}

	ps, err := s.consumeState(ctx, p, state)
	if err != nil {
		return nil, "", err
	}

	if code == "" {
		return nil, "", ErrSocialSignIn
	}

	if s.opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.opts.HTTPClient)
	}

	tok, err := sp.oauth.Exchange(ctx, code, oauth2.VerifierOption(ps.Verifier))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrSocialSignIn, err)
	}

	prof, err := sp.fetchProfile(ctx, tok)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrSocialSignIn, err)
	}

	if prof.ID == "" {
		return nil, "", ErrSocialSignIn
	}

	if prof.Email == "" {
		return nil, "", ErrNoEmail
	}

	id, err = s.linkAccount(ctx, sp, prof, tok, meta)
	if err != nil {
		return nil, "", err
	}

	return id, ps.CallbackURL, nil
}

func (s *Service) consumeState(ctx context.Context, p Provider, state string) (*pendingState, error) {
	if state == "" {
		return nil, ErrInvalidState
	}

	var v model.Verification

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("identifier = ?", oauthStatePrefix+state).First(&v).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidState
			}

			return err
		}

		return tx.Delete(&v).Error
	})
	if err != nil {
		return nil, err
	}

	if !v.ExpiresAt.After(s.now()) {
		return nil, ErrInvalidState
	}

	var ps pendingState
	if err := json.Unmarshal([]byte(v.Value), &ps); err != nil {
		return nil, ErrInvalidState
	}

	if ps.Provider != p.String() {
		return nil, ErrInvalidState
	}

	return &ps, nil
}

// linkAccount finds the user owning the provider account, links the
// account to an existing user with the same verified email, or creates a
// new user. A session is created in the same transaction.
func (s *Service) linkAccount(ctx context.Context, sp *socialProvider, prof *profile, tok *oauth2.Token, meta RequestMeta) (*Identity, error) {
	var id Identity

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account model.Account
		err := tx.Where("provider_id = ? AND account_id = ?", sp.provider.String(), prof.ID).First(&account).Error

		switch {
		case err == nil:
			if err := tx.First(&id.User, "id = ?", account.UserID).Error; err != nil {
				return err
			}

			setTokens(&account, sp, tok)
			if err := tx.Omit(clause.Associations).Save(&account).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			email := normalizeEmail(prof.Email)

			err := tx.Where("email = ?", email).First(&id.User).Error
			switch {
			case err == nil:
				if !prof.EmailVerified {
					return ErrAccountNotLinked
				}

				if !id.User.EmailVerified {
					id.User.EmailVerified = true
					if err := tx.Model(&id.User).Update("email_verified", true).Error; err != nil {
						return err
					}
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				id.User = model.User{
					Name:          prof.Name,
					Email:         email,
					EmailVerified: prof.EmailVerified,
				}

				if id.User.Name == "" {
					id.User.Name, _, _ = strings.Cut(email, "@")
				}

				if prof.Image != "" {
					id.User.Image = &prof.Image
				}

				if err := tx.Create(&id.User).Error; err != nil {
					return err
				}
			default:
				return err
			}

			account = model.Account{
				AccountID:  prof.ID,
				ProviderID: sp.provider.String(),
				UserID:     id.User.ID,
			}

			setTokens(&account, sp, tok)
			if err := tx.Create(&account).Error; err != nil {
				return err
			}
		default:
			return err
		}

		sess, err := s.createSession(tx, id.User.ID, meta)
		if err != nil {
			return err
		}

		id.Session = *sess
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &id, nil
}

func setTokens(a *model.Account, sp *socialProvider, tok *oauth2.Token) {
	a.AccessToken = &tok.AccessToken

	if tok.RefreshToken != "" {
		a.RefreshToken = &tok.RefreshToken
	}

	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		a.AccessTokenExpiresAt = &expiry
	}

	if idToken, ok := tok.Extra("id_token").(string); ok && idToken != "" {
		a.IDToken = &idToken
	}

	if len(sp.oauth.Scopes) > 0 {
		scope := strings.Join(sp.oauth.Scopes, ",")
		a.Scope = &scope
	}
}
