package auth

import (
	"bitwise74/meet-api/internal/model"
	"bitwise74/meet-api/pkg/forms"
	"bitwise74/meet-api/pkg/metrics"
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUpEmail creates a user with an email/password account. The returned
// session is nil when the address has to be verified before signing in.
func (s *Service) SignUpEmail(ctx context.Context, f forms.SignUpForm, meta RequestMeta) (user *model.User, sess *model.Session, err error) {
	defer func() { metrics.AuthEvent("sign_up", err) }()

	if errs := forms.Validate(&f); errs != nil {
		return nil, nil, errs
	}

	hash, err := s.hasher.Hash(f.Password)
	if err != nil {
		return nil, nil, err
	}

	user = &model.User{
		Name:  strings.TrimSpace(f.Name),
		Email: normalizeEmail(f.Email),
	}

	if f.Image != "" {
		user.Image = &f.Image
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.User{}).Where("email = ?", user.Email).Count(&n).Error; err != nil {
			return err
		}

		if n > 0 {
			return ErrEmailTaken
		}

		if err := tx.Create(user).Error; err != nil {
			return err
		}

		account := &model.Account{
			AccountID:  user.ID,
			ProviderID: model.CredentialProvider,
			UserID:     user.ID,
			Password:   &hash,
		}

		if err := tx.Create(account).Error; err != nil {
			return err
		}

		if s.opts.RequireEmailVerification {
			return nil
		}

		sess, err = s.createSession(tx, user.ID, meta)
		return err
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = ErrEmailTaken
		}

		return nil, nil, err
	}

	if s.opts.Mailer != nil {
		if err := s.SendVerification(ctx, user.Email); err != nil {
			// The account exists at this point, the user can request another mail
			zap.L().Error("Failed to send verification email", zap.String("userID", user.ID), zap.Error(err))
		}
	}

	return user, sess, nil
}

// SignInEmail exchanges an email and password for a new session
func (s *Service) SignInEmail(ctx context.Context, f forms.SignInForm, meta RequestMeta) (id *Identity, err error) {
	defer func() { metrics.AuthEvent("sign_in", err) }()

	if errs := forms.Validate(&f); errs != nil {
		return nil, errs
	}

	db := s.db.WithContext(ctx)

	var user model.User
	err = db.Where("email = ?", normalizeEmail(f.Email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}

		return nil, err
	}

	var account model.Account
	err = db.Where("user_id = ? AND provider_id = ?", user.ID, model.CredentialProvider).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}

		return nil, err
	}

	if account.Password == nil {
		return nil, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(f.Password, *account.Password)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, ErrInvalidCredentials
	}

	if s.opts.RequireEmailVerification && !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	sess, err := s.createSession(db, user.ID, meta)
	if err != nil {
		return nil, err
	}

	return &Identity{User: user, Session: *sess}, nil
}
