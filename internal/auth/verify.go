package auth

import (
	"bitwise74/meet-api/internal/model"
	"bitwise74/meet-api/pkg/security"
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	verificationTTL     = time.Hour
	verifyEmailPrefix   = "verify-email:"
	verificationBytes   = 32
	verifyEmailEndpoint = "/api/auth/verify-email"
)

// SendVerification stores a fresh verification token for email and mails
// the confirmation link. Unknown and already verified addresses are ignored.
func (s *Service) SendVerification(ctx context.Context, email string) error {
	if s.opts.Mailer == nil {
		return nil
	}

	email = normalizeEmail(email)
	db := s.db.WithContext(ctx)

	var user model.User
	err := db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}

		return err
	}

	if user.EmailVerified {
		return nil
	}

	token, err := security.NewToken(verificationBytes)
	if err != nil {
		return err
	}

	v := &model.Verification{
		Identifier: verifyEmailPrefix + email,
		Value:      token,
		ExpiresAt:  s.now().Add(verificationTTL),
	}

	if err := db.Create(v).Error; err != nil {
		return err
	}

	return s.opts.Mailer.SendVerification(ctx, email, s.verificationLink(token))
}

func (s *Service) verificationLink(token string) string {
	q := url.Values{}
	q.Set("token", token)

	return strings.TrimRight(s.opts.BaseURL, "/") + verifyEmailEndpoint + "?" + q.Encode()
}

// VerifyEmail consumes a verification token and marks its user as verified
func (s *Service) VerifyEmail(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	var user model.User

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var v model.Verification
		err := tx.Where("value = ? AND identifier LIKE ?", token, verifyEmailPrefix+"%").First(&v).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidToken
			}

			return err
		}

		if !v.ExpiresAt.After(s.now()) {
			return errExpiredVerification
		}

		if err := tx.Delete(&v).Error; err != nil {
			return err
		}

		email := strings.TrimPrefix(v.Identifier, verifyEmailPrefix)
		if err := tx.Where("email = ?", email).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidToken
			}

			return err
		}

		user.EmailVerified = true
		return tx.Model(&user).Update("email_verified", true).Error
	})
	if err != nil {
		if errors.Is(err, errExpiredVerification) {
			if err := s.db.WithContext(ctx).Where("value = ?", token).Delete(&model.Verification{}).Error; err != nil {
				return nil, err
			}

			return nil, ErrInvalidToken
		}

		return nil, err
	}

	return &user, nil
}

var errExpiredVerification = errors.New("verification expired")
