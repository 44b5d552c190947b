// Package auth is the session service: it exchanges credentials for
// sessions, validates the session carried by a request and links social
// provider accounts to users.
package auth

import (
	"bitwise74/meet-api/internal/model"
	"bitwise74/meet-api/pkg/security"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gorm.io/gorm"
)

var (
	// Messages of these errors are shown to users as is
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrEmailTaken         = errors.New("User already exists, use another email")
	ErrEmailNotVerified   = errors.New("Email not verified")
	ErrUnknownProvider    = errors.New("Unknown provider")
	ErrProviderDisabled   = errors.New("Provider is not enabled")
	ErrInvalidState       = errors.New("Invalid or expired state")
	ErrInvalidToken       = errors.New("Invalid or expired token")
	ErrAccountNotLinked   = errors.New("Account not linked, sign in with your email first")

	ErrNoSecret = errors.New("no session secret provided")
)

const (
	defaultSessionTTL = time.Hour * 24 * 7
	defaultUpdateAge  = time.Hour * 24
)

// Mailer delivers the email verification link to a user
type Mailer interface {
	SendVerification(ctx context.Context, to, link string) error
}

type Options struct {
	// Secret signs the session cookie
	Secret []byte
	// TTL is how long a session lives without activity
	TTL time.Duration
	// UpdateAge is how old a session has to be before a request extends it
	UpdateAge time.Duration
	// SecureCookie marks the session cookie as HTTPS only
	SecureCookie bool
	// RequireEmailVerification refuses email sign in until the address is verified
	RequireEmailVerification bool
	// BaseURL is the public origin used to build verification and OAuth redirect links
	BaseURL string

	Providers map[Provider]ProviderConfig
	Mailer    Mailer

	// HTTPClient is used for provider token exchange and profile requests
	HTTPClient *http.Client
	Now        func() time.Time
}

// RequestMeta is stored alongside a new session
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Identity is the authenticated user behind a request
type Identity struct {
	User    model.User
	Session model.Session
	// Refreshed is set when the lookup extended the session expiry and the
	// cookie has to be written again
	Refreshed bool
}

type Service struct {
	db     *gorm.DB
	hasher *security.PasswordHasher
	opts   Options
	social map[Provider]*socialProvider
}

func New(db *gorm.DB, hasher *security.PasswordHasher, opts Options) (*Service, error) {
	if len(opts.Secret) == 0 {
		return nil, ErrNoSecret
	}

	if opts.TTL <= 0 {
		opts.TTL = defaultSessionTTL
	}

	if opts.UpdateAge <= 0 || opts.UpdateAge > opts.TTL {
		opts.UpdateAge = defaultUpdateAge
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	if hasher == nil {
		hasher = security.NewPasswordHasher()
	}

	s := &Service{
		db:     db,
		hasher: hasher,
		opts:   opts,
		social: make(map[Provider]*socialProvider),
	}

	for p, cfg := range opts.Providers {
		sp, err := newSocialProvider(p, cfg, opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to configure %s provider, %w", p, err)
		}

		s.social[p] = sp
	}

	return s, nil
}

func (s *Service) now() time.Time {
	return s.opts.Now()
}
