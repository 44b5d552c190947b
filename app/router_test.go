package app

import (
	"bitwise74/meet-api/aws"
	"bitwise74/meet-api/internal"
	"bitwise74/meet-api/internal/auth"
	"bitwise74/meet-api/internal/store"
	"bitwise74/meet-api/internal/testutil"
	"bitwise74/meet-api/pkg/security"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testApp struct {
	t      *testing.T
	router *gin.Engine
	deps   *internal.Deps
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.NewDB(t)

	svc, err := auth.New(db, &security.PasswordHasher{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}, auth.Options{
		Secret:  []byte("test-secret"),
		BaseURL: "http://localhost:8080",
	})
	require.NoError(t, err)

	d := &internal.Deps{
		DB:       db,
		Auth:     svc,
		Agents:   store.NewAgentStore(db),
		Meetings: store.NewMeetingStore(db),
	}

	return &testApp{t: t, router: Routes(d), deps: d}
}

func (a *testApp) do(method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	return rec
}

func (a *testApp) postForm(path string, values url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	return rec
}

// signUp registers a user and returns its session cookie
func (a *testApp) signUp(email string) *http.Cookie {
	a.t.Helper()

	rec := a.do(http.MethodPost, "/api/auth/sign-up/email", gin.H{
		"name":            "Aman",
		"email":           email,
		"password":        "secret1",
		"confirmPassword": "secret1",
	})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())

	return sessionCookie(a.t, rec)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}

	t.Fatalf("no %s cookie in response", auth.CookieName)
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHeartbeat(t *testing.T) {
	a := newTestApp(t)

	assert.Equal(t, http.StatusOK, a.do(http.MethodHead, "/api/heartbeat", nil).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/heartbeat", nil).Code)
}

func TestAuthGatePages(t *testing.T) {
	a := newTestApp(t)

	for _, path := range []string{"/", "/agents", "/agents/x", "/meetings", "/meetings/x"} {
		rec := a.do(http.MethodGet, path, nil)

		assert.Equal(t, http.StatusFound, rec.Code, path)
		assert.Equal(t, "/sign-in", rec.Header().Get("Location"), path)
		assert.NotContains(t, rec.Body.String(), "<main>", path)
	}

	rec := a.do(http.MethodGet, "/sign-in", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome back")

	cookie := a.signUp("a@gmail.com")

	rec = a.do(http.MethodGet, "/", nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hello, Aman")

	for _, path := range []string{"/sign-in", "/sign-up"} {
		rec := a.do(http.MethodGet, path, nil, cookie)

		assert.Equal(t, http.StatusFound, rec.Code, path)
		assert.Equal(t, "/", rec.Header().Get("Location"), path)
	}
}

func TestSignUpAPI(t *testing.T) {
	a := newTestApp(t)

	rec := a.do(http.MethodPost, "/api/auth/sign-up/email", gin.H{
		"name":            "Aman",
		"email":           "a@gmail.com",
		"password":        "secret1",
		"confirmPassword": "secret2",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode[struct {
		Fields map[string]string `json:"fields"`
	}](t, rec)
	assert.Equal(t, map[string]string{"confirmPassword": "Password is not match"}, body.Fields)

	a.signUp("a@gmail.com")

	rec = a.do(http.MethodPost, "/api/auth/sign-up/email", gin.H{
		"name":            "Aman",
		"email":           "a@gmail.com",
		"password":        "secret1",
		"confirmPassword": "secret1",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSignInAPI(t *testing.T) {
	a := newTestApp(t)
	a.signUp("a@gmail.com")

	rec := a.do(http.MethodPost, "/api/auth/sign-in/email", gin.H{"email": "a@gmail.com", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password", decode[map[string]any](t, rec)["error"])

	rec = a.do(http.MethodPost, "/api/auth/sign-in/email", gin.H{"email": "a@gmail.com", "password": "secret1", "callbackURL": "/meetings"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/meetings", decode[map[string]any](t, rec)["callbackURL"])

	cookie := sessionCookie(t, rec)

	rec = a.do(http.MethodGet, "/api/auth/session", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	session := decode[struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
	}](t, rec)
	assert.Equal(t, "a@gmail.com", session.User.Email)

	rec = a.do(http.MethodPost, "/api/auth/sign-out", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodGet, "/api/auth/session", nil, cookie)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/agents", nil, cookie).Code)
}

func TestSignInPage(t *testing.T) {
	a := newTestApp(t)
	a.signUp("a@gmail.com")

	rec := a.postForm("/sign-in", url.Values{"email": {"a@gmail.com"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid email or password")
	assert.Contains(t, rec.Body.String(), `value="a@gmail.com"`)

	rec = a.postForm("/sign-in", url.Values{"email": {"nope"}, "password": {""}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid email")
	assert.Contains(t, rec.Body.String(), "Password is required")

	rec = a.postForm("/sign-in", url.Values{"email": {"a@gmail.com"}, "password": {"secret1"}, "callbackURL": {"//evil.com"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	sessionCookie(t, rec)
}

func TestSignUpPage(t *testing.T) {
	a := newTestApp(t)

	rec := a.postForm("/sign-up", url.Values{
		"name":            {"Aman"},
		"email":           {"a@gmail.com"},
		"password":        {"secret1"},
		"confirmPassword": {"secret2"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Password is not match")

	rec = a.postForm("/sign-up", url.Values{
		"name":            {"Aman"},
		"email":           {"a@gmail.com"},
		"password":        {"secret1"},
		"confirmPassword": {"secret1"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	cookie := sessionCookie(t, rec)

	rec = a.postForm("/sign-out", nil, cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/sign-in", rec.Header().Get("Location"))
}

func TestProviders(t *testing.T) {
	a := newTestApp(t)

	rec := a.do(http.MethodGet, "/api/auth/providers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"providers":[]}`, rec.Body.String())

	rec = a.do(http.MethodPost, "/api/auth/sign-in/social", gin.H{"provider": "twitter"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/api/auth/sign-in/social", gin.H{"provider": "google"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Provider is not enabled", decode[map[string]any](t, rec)["error"])

	rec = a.do(http.MethodGet, "/api/auth/callback/google?code=x&state=y", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/sign-in?error="))
}

func TestAgentAndMeetingAPI(t *testing.T) {
	a := newTestApp(t)
	owner := a.signUp("a@gmail.com")
	intruder := a.signUp("b@gmail.com")

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/agents", nil).Code)

	rec := a.do(http.MethodPost, "/api/agents", gin.H{"name": "", "instructions": ""}, owner)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/api/agents", gin.H{"name": "Tutor", "instructions": "Teach maths"}, owner)
	require.Equal(t, http.StatusCreated, rec.Code)
	agentID := decode[map[string]any](t, rec)["id"].(string)

	rec = a.do(http.MethodPost, "/api/meetings", gin.H{"name": "Lesson", "agentId": agentID}, owner)
	require.Equal(t, http.StatusCreated, rec.Code)
	meeting := decode[map[string]any](t, rec)
	meetingID := meeting["id"].(string)
	assert.Equal(t, "upcoming", meeting["status"])

	rec = a.do(http.MethodGet, "/api/agents", nil, owner)
	require.Equal(t, http.StatusOK, rec.Code)

	page := decode[struct {
		Items []struct {
			ID           string `json:"id"`
			MeetingCount int64  `json:"meetingCount"`
		} `json:"items"`
		Total int64 `json:"total"`
	}](t, rec)
	require.Len(t, page.Items, 1)
	assert.EqualValues(t, 1, page.Items[0].MeetingCount)

	rec = a.do(http.MethodGet, "/api/agents", nil, intruder)
	assert.Contains(t, rec.Body.String(), `"total":0`)

	t.Run("cross user access is rejected", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/agents/"+agentID, nil, intruder).Code)
		assert.Equal(t, http.StatusNotFound, a.do(http.MethodPatch, "/api/agents/"+agentID, gin.H{"name": "Stolen"}, intruder).Code)
		assert.Equal(t, http.StatusNotFound, a.do(http.MethodDelete, "/api/agents/"+agentID, nil, intruder).Code)
		assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/meetings/"+meetingID, nil, intruder).Code)
		assert.Equal(t, http.StatusNotFound, a.do(http.MethodPost, "/api/meetings", gin.H{"name": "m", "agentId": agentID}, intruder).Code)

		rec := a.do(http.MethodGet, "/agents/"+agentID, nil, intruder)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.NotContains(t, rec.Body.String(), "Teach maths")
	})

	rec = a.do(http.MethodPatch, "/api/meetings/"+meetingID, gin.H{"status": "archived"}, owner)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPatch, "/api/meetings/"+meetingID, gin.H{"status": "active"}, owner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "active", decode[map[string]any](t, rec)["status"])

	rec = a.do(http.MethodPatch, "/api/agents/"+agentID, gin.H{}, owner)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodGet, "/meetings/"+meetingID, nil, owner)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Lesson")

	rec = a.do(http.MethodDelete, "/api/agents/"+agentID, nil, owner)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/meetings/"+meetingID, nil, owner).Code)
}

func TestCallbackURLStaysOnSite(t *testing.T) {
	a := newTestApp(t)
	a.signUp("a@gmail.com")

	rec := a.do(http.MethodGet, "/sign-in?callbackURL=/%09/evil.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="callbackURL" value="/"`)
	assert.NotContains(t, rec.Body.String(), "evil.com")

	for _, callback := range []string{"/\t/evil.com", "/\r\n/evil.com", "/\\evil.com"} {
		rec := a.postForm("/sign-in", url.Values{
			"email":       {"a@gmail.com"},
			"password":    {"secret1"},
			"callbackURL": {callback},
		})

		assert.Equal(t, http.StatusSeeOther, rec.Code, "%q", callback)
		assert.Equal(t, "/", rec.Header().Get("Location"), "%q", callback)
	}

	rec = a.do(http.MethodPost, "/api/auth/sign-in/email", gin.H{"email": "a@gmail.com", "password": "secret1", "callbackURL": "/\n/evil.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/", decode[map[string]any](t, rec)["callbackURL"])
}

func TestBadQueryIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	defer zap.ReplaceGlobals(zap.New(core))()

	a := newTestApp(t)
	cookie := a.signUp("a@gmail.com")

	rec := a.do(http.MethodGet, "/agents?page=abc", nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)

	entries := logs.FilterMessage("Can't bind request").All()
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ContextMap()["requestID"])
}

func TestMeetingURLsArePresigned(t *testing.T) {
	a := newTestApp(t)
	a.deps.S3 = aws.NewWithClient(s3.New(s3.Options{
		Region:       "us-east-1",
		Credentials:  credentials.NewStaticCredentialsProvider("AKID", "SECRET", ""),
		BaseEndpoint: awssdk.String("http://localhost:9000"),
		UsePathStyle: true,
	}), "recordings", 5*time.Minute)

	cookie := a.signUp("a@gmail.com")

	rec := a.do(http.MethodPost, "/api/agents", gin.H{"name": "Tutor", "instructions": "Teach maths"}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code)
	agentID := decode[map[string]any](t, rec)["id"].(string)

	rec = a.do(http.MethodPost, "/api/meetings", gin.H{"name": "Lesson", "agentId": agentID}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code)
	meetingID := decode[map[string]any](t, rec)["id"].(string)

	rec = a.do(http.MethodPatch, "/api/meetings/"+meetingID, gin.H{
		"recordingUrl":  "s3://recordings/meetings/abc.mp4",
		"transcriptUrl": "https://cdn.example.com/abc.txt",
	}, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	type links struct {
		RecordingURL  string `json:"recordingUrl"`
		TranscriptURL string `json:"transcriptUrl"`
	}

	rec = a.do(http.MethodGet, "/api/meetings", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	list := decode[struct {
		Items []links `json:"items"`
	}](t, rec)
	require.Len(t, list.Items, 1)
	assert.Contains(t, list.Items[0].RecordingURL, "http://localhost:9000/recordings/meetings/abc.mp4")
	assert.Contains(t, list.Items[0].RecordingURL, "X-Amz-Signature=")
	assert.Equal(t, "https://cdn.example.com/abc.txt", list.Items[0].TranscriptURL)

	rec = a.do(http.MethodGet, "/api/meetings/"+meetingID, nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode[links](t, rec).RecordingURL, "X-Amz-Signature=")
}
