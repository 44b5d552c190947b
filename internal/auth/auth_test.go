package auth

import (
	"bitwise74/meet-api/internal/model"
	"bitwise74/meet-api/internal/testutil"
	"bitwise74/meet-api/pkg/forms"
	"bitwise74/meet-api/pkg/security"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeMailer struct {
	mu    sync.Mutex
	to    []string
	links []string
}

func (m *fakeMailer) SendVerification(ctx context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.to = append(m.to, to)
	m.links = append(m.links, link)
	return nil
}

func (m *fakeMailer) lastToken(t *testing.T) string {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()

	require.NotEmpty(t, m.links)
	u, err := url.Parse(m.links[len(m.links)-1])
	require.NoError(t, err)

	return u.Query().Get("token")
}

// Cheap parameters keep the tests fast
func testHasher() *security.PasswordHasher {
	return &security.PasswordHasher{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func newTestService(t *testing.T, opts Options) (*Service, *gorm.DB, *testutil.Clock) {
	t.Helper()

	db := testutil.NewDB(t)
	clock := &testutil.Clock{T: time.Now()}

	if opts.Secret == nil {
		opts.Secret = []byte("test-secret")
	}

	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:8080"
	}

	opts.Now = clock.Now

	s, err := New(db, testHasher(), opts)
	require.NoError(t, err)

	return s, db, clock
}

func signUpForm(email string) forms.SignUpForm {
	return forms.SignUpForm{
		Name:            "Aman",
		Email:           email,
		Password:        "secret1",
		ConfirmPassword: "secret1",
	}
}

func cookieRequest(t *testing.T, s *Service, sess *model.Session) *http.Request {
	t.Helper()

	rec := httptest.NewRecorder()
	require.NoError(t, s.WriteCookie(rec, sess))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}

	return req
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New(testutil.NewDB(t), nil, Options{})
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestSignUpEmail(t *testing.T) {
	s, db, _ := newTestService(t, Options{})
	ctx := context.Background()

	user, sess, err := s.SignUpEmail(ctx, signUpForm("Aman@Gmail.com"), RequestMeta{IPAddress: "127.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	require.NotNil(t, sess)

	assert.Equal(t, "aman@gmail.com", user.Email)
	assert.Equal(t, user.ID, sess.UserID)
	assert.Equal(t, "127.0.0.1", *sess.IPAddress)

	var account model.Account
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&account).Error)
	assert.Equal(t, model.CredentialProvider, account.ProviderID)
	assert.Equal(t, user.ID, account.AccountID)
	require.NotNil(t, account.Password)
	assert.NotEqual(t, "secret1", *account.Password)

	t.Run("duplicate email", func(t *testing.T) {
		_, _, err := s.SignUpEmail(ctx, signUpForm("aman@gmail.com"), RequestMeta{})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("password mismatch", func(t *testing.T) {
		f := signUpForm("other@gmail.com")
		f.ConfirmPassword = "secret2"

		_, _, err := s.SignUpEmail(ctx, f, RequestMeta{})

		var errs forms.Errors
		require.ErrorAs(t, err, &errs)
		assert.Equal(t, forms.Errors{"confirmPassword": "Password is not match"}, errs)

		var n int64
		db.Model(&model.User{}).Where("email = ?", "other@gmail.com").Count(&n)
		assert.Zero(t, n)
	})

	t.Run("blank name", func(t *testing.T) {
		f := signUpForm("blank@gmail.com")
		f.Name = "  \t"

		_, _, err := s.SignUpEmail(ctx, f, RequestMeta{})

		var errs forms.Errors
		require.ErrorAs(t, err, &errs)
		assert.Equal(t, forms.Errors{"name": "Name is required"}, errs)
	})
}

func TestSignInEmail(t *testing.T) {
	s, _, _ := newTestService(t, Options{})
	ctx := context.Background()

	_, _, err := s.SignUpEmail(ctx, signUpForm("a@gmail.com"), RequestMeta{})
	require.NoError(t, err)

	id, err := s.SignInEmail(ctx, forms.SignInForm{Email: "a@gmail.com", Password: "secret1"}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "a@gmail.com", id.User.Email)
	assert.NotEmpty(t, id.Session.Token)

	tests := []struct {
		name string
		form forms.SignInForm
	}{
		{"wrong password", forms.SignInForm{Email: "a@gmail.com", Password: "secret2"}},
		{"unknown email", forms.SignInForm{Email: "b@gmail.com", Password: "secret1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.SignInEmail(ctx, tt.form, RequestMeta{})
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}

	t.Run("malformed email", func(t *testing.T) {
		_, err := s.SignInEmail(ctx, forms.SignInForm{Email: "nope", Password: "x"}, RequestMeta{})

		var errs forms.Errors
		require.ErrorAs(t, err, &errs)
		assert.Equal(t, "Invalid email", errs["email"])
	})
}

func TestSession(t *testing.T) {
	s, db, clock := newTestService(t, Options{TTL: time.Hour * 24 * 7, UpdateAge: time.Hour * 24})
	ctx := context.Background()

	_, sess, err := s.SignUpEmail(ctx, signUpForm("a@gmail.com"), RequestMeta{})
	require.NoError(t, err)

	t.Run("cookie", func(t *testing.T) {
		id, err := s.Session(ctx, cookieRequest(t, s, sess))
		require.NoError(t, err)
		require.NotNil(t, id)
		assert.Equal(t, sess.UserID, id.User.ID)
		assert.False(t, id.Refreshed)
	})

	t.Run("bearer", func(t *testing.T) {
		token, err := s.SessionToken(sess)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		id, err := s.Session(ctx, req)
		require.NoError(t, err)
		require.NotNil(t, id)
	})

	t.Run("absent", func(t *testing.T) {
		id, err := s.Session(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.Nil(t, id)
	})

	t.Run("tampered", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: "not-a-token"})

		id, err := s.Session(ctx, req)
		require.NoError(t, err)
		assert.Nil(t, id)

		other, err := New(db, testHasher(), Options{Secret: []byte("other"), Now: clock.Now})
		require.NoError(t, err)

		id, err = other.Session(ctx, cookieRequest(t, s, sess))
		require.NoError(t, err)
		assert.Nil(t, id)
	})

	t.Run("unknown token", func(t *testing.T) {
		id, err := s.Lookup(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, id)
	})
}

func TestSessionSlidingRefresh(t *testing.T) {
	s, _, clock := newTestService(t, Options{TTL: time.Hour * 24 * 7, UpdateAge: time.Hour * 24})
	ctx := context.Background()

	_, sess, err := s.SignUpEmail(ctx, signUpForm("a@gmail.com"), RequestMeta{})
	require.NoError(t, err)

	clock.Advance(time.Hour * 25)

	id, err := s.Lookup(ctx, sess.Token)
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.True(t, id.Refreshed)
	assert.WithinDuration(t, clock.T.Add(time.Hour*24*7), id.Session.ExpiresAt, time.Second)

	id, err = s.Lookup(ctx, sess.Token)
	require.NoError(t, err)
	assert.False(t, id.Refreshed)
}

func TestSessionExpired(t *testing.T) {
	s, db, clock := newTestService(t, Options{TTL: time.Hour})
	ctx := context.Background()

	_, sess, err := s.SignUpEmail(ctx, signUpForm("a@gmail.com"), RequestMeta{})
	require.NoError(t, err)

	clock.Advance(time.Hour * 2)

	id, err := s.Lookup(ctx, sess.Token)
	require.NoError(t, err)
	assert.Nil(t, id)

	var n int64
	db.Model(&model.Session{}).Where("id = ?", sess.ID).Count(&n)
	assert.Zero(t, n)
}

func TestSessionStoreFailure(t *testing.T) {
	s, db, _ := newTestService(t, Options{})
	ctx := context.Background()

	_, sess, err := s.SignUpEmail(ctx, signUpForm("a@gmail.com"), RequestMeta{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = s.Lookup(ctx, sess.Token)
	assert.Error(t, err)
}

func TestSignOut(t *testing.T) {
	s, _, _ := newTestService(t, Options{})
	ctx := context.Background()

	_, sess, err := s.SignUpEmail(ctx, signUpForm("a@gmail.com"), RequestMeta{})
	require.NoError(t, err)

	req := cookieRequest(t, s, sess)
	require.NoError(t, s.SignOut(ctx, req))

	id, err := s.Session(ctx, req)
	require.NoError(t, err)
	assert.Nil(t, id)

	rec := httptest.NewRecorder()
	s.ClearCookie(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestEmailVerification(t *testing.T) {
	mailer := &fakeMailer{}
	s, _, clock := newTestService(t, Options{RequireEmailVerification: true, Mailer: mailer})
	ctx := context.Background()

	user, sess, err := s.SignUpEmail(ctx, signUpForm("a@gmail.com"), RequestMeta{})
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.False(t, user.EmailVerified)
	assert.Equal(t, []string{"a@gmail.com"}, mailer.to)

	signIn := forms.SignInForm{Email: "a@gmail.com", Password: "secret1"}

	_, err = s.SignInEmail(ctx, signIn, RequestMeta{})
	assert.ErrorIs(t, err, ErrEmailNotVerified)

	verified, err := s.VerifyEmail(ctx, mailer.lastToken(t))
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)

	_, err = s.SignInEmail(ctx, signIn, RequestMeta{})
	require.NoError(t, err)

	t.Run("token is single use", func(t *testing.T) {
		_, err := s.VerifyEmail(ctx, mailer.lastToken(t))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		_, _, err := s.SignUpEmail(ctx, signUpForm("b@gmail.com"), RequestMeta{})
		require.NoError(t, err)

		clock.Advance(verificationTTL + time.Minute)

		_, err = s.VerifyEmail(ctx, mailer.lastToken(t))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestProviderParse(t *testing.T) {
	p, err := ParseProvider("GitHub")
	require.NoError(t, err)
	assert.Equal(t, ProviderGitHub, p)
	assert.Equal(t, "github", p.String())

	p, err = ParseProvider("google")
	require.NoError(t, err)
	assert.Equal(t, ProviderGoogle, p)

	_, err = ParseProvider("twitter")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
