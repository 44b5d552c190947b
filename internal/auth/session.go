package auth

import (
	"bitwise74/meet-api/internal/model"
	"bitwise74/meet-api/pkg/security"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

const (
	CookieName        = "session_token"
	sessionTokenBytes = 32
)

type sessionClaims struct {
	Token string `json:"sid"`
	jwt.RegisteredClaims
}

func (s *Service) createSession(tx *gorm.DB, userID string, meta RequestMeta) (*model.Session, error) {
	token, err := security.NewToken(sessionTokenBytes)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess := &model.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: now.Add(s.opts.TTL),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if meta.IPAddress != "" {
		sess.IPAddress = &meta.IPAddress
	}

	if meta.UserAgent != "" {
		sess.UserAgent = &meta.UserAgent
	}

	if err := tx.Create(sess).Error; err != nil {
		return nil, err
	}

	return sess, nil
}

// Session resolves the session carried by r. A nil identity with a nil
// error means the request is anonymous. Only store failures are returned.
func (s *Service) Session(ctx context.Context, r *http.Request) (*Identity, error) {
	token := s.requestToken(r)
	if token == "" {
		return nil, nil
	}

	return s.Lookup(ctx, token)
}

// Lookup resolves an opaque session token
func (s *Service) Lookup(ctx context.Context, token string) (*Identity, error) {
	db := s.db.WithContext(ctx)

	var sess model.Session
	err := db.Preload("User").Where("token = ?", token).First(&sess).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, err
	}

	now := s.now()

	if sess.Expired(now) {
		if err := db.Delete(&model.Session{}, "id = ?", sess.ID).Error; err != nil {
			return nil, err
		}

		return nil, nil
	}

	if sess.User == nil {
		return nil, nil
	}

	id := &Identity{User: *sess.User, Session: sess}
	id.Session.User = nil

	if sess.ExpiresAt.Sub(now) < s.opts.TTL-s.opts.UpdateAge {
		expiresAt := now.Add(s.opts.TTL)

		err := db.Model(&model.Session{}).
			Where("id = ?", sess.ID).
			Updates(map[string]any{
				"expires_at": expiresAt,
				"updated_at": now,
			}).Error
		if err != nil {
			return nil, err
		}

		id.Session.ExpiresAt = expiresAt
		id.Session.UpdatedAt = now
		id.Refreshed = true
	}

	return id, nil
}

// SignOut deletes the session carried by r, if any
func (s *Service) SignOut(ctx context.Context, r *http.Request) error {
	token := s.requestToken(r)
	if token == "" {
		return nil
	}

	return s.db.WithContext(ctx).Where("token = ?", token).Delete(&model.Session{}).Error
}

// RevokeAll deletes every session of a user
func (s *Service) RevokeAll(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Session{}).Error
}

// SessionToken signs sess into the value carried by the cookie or an
// Authorization bearer header
func (s *Service) SessionToken(sess *model.Session) (string, error) {
	claims := sessionClaims{
		Token: sess.Token,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.UserID,
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.opts.Secret)
}

func (s *Service) WriteCookie(w http.ResponseWriter, sess *model.Session) error {
	value, err := s.SessionToken(sess)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(sess.ExpiresAt.Sub(s.now()).Seconds()),
		Secure:   s.opts.SecureCookie,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

func (s *Service) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   s.opts.SecureCookie,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// requestToken extracts the opaque session token from the cookie or the
// bearer header. Anything that fails to verify counts as no token.
func (s *Service) requestToken(r *http.Request) string {
	var raw string

	if c, err := r.Cookie(CookieName); err == nil {
		raw = c.Value
	} else if h := r.Header.Get("Authorization"); h != "" {
		scheme, value, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			raw = strings.TrimSpace(value)
		}
	}

	if raw == "" {
		return ""
	}

	var claims sessionClaims

	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return s.opts.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return ""
	}

	return claims.Token
}
