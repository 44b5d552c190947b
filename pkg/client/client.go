// Package client talks to the meet API the way the sign in and sign up
// pages do: forms are checked locally before anything is sent and the
// session lives in a cookie jar.
package client

import (
	"bitwise74/meet-api/internal/model"
	"bitwise74/meet-api/pkg/forms"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
)

var ErrPending = errors.New("a submission is already in progress")

// APIError is a non 2xx answer from the server
type APIError struct {
	Status    int          `json:"-"`
	Message   string       `json:"error"`
	Fields    forms.Errors `json:"fields,omitempty"`
	RequestID string       `json:"requestID,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%d: %s", e.Status, e.Fields.Error())
	}

	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
	pending atomic.Bool
}

// New returns a client for the server at baseURL. A nil httpClient gets a
// default one, and a client without a jar gets a fresh cookie jar.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url, %w", err)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}

		c := *httpClient
		c.Jar = jar
		httpClient = &c
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}, nil
}

// Pending reports whether a form submission is in flight
func (c *Client) Pending() bool {
	return c.pending.Load()
}

// submit runs fn while holding the pending flag. The flag is released no
// matter how fn ends.
func (c *Client) submit(fn func() error) error {
	if !c.pending.CompareAndSwap(false, true) {
		return ErrPending
	}
	defer c.pending.Store(false)

	return fn()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}

		body = bytes.NewReader(b)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}

		return apiErr
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// AuthResult is what a successful email sign in or sign up returns
type AuthResult struct {
	User                 model.User `json:"user"`
	Token                string     `json:"token,omitempty"`
	CallbackURL          string     `json:"callbackURL,omitempty"`
	VerificationRequired bool       `json:"verificationRequired,omitempty"`
}

// SignIn validates f and exchanges it for a session cookie
func (c *Client) SignIn(ctx context.Context, f forms.SignInForm) (*AuthResult, error) {
	if errs := forms.Validate(&f); errs != nil {
		return nil, errs
	}

	var out AuthResult
	err := c.submit(func() error {
		return c.do(ctx, http.MethodPost, "/api/auth/sign-in/email", nil, f, &out)
	})
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// SignUp validates f and registers a new user. Unless the server requires
// email verification the client is signed in afterwards.
func (c *Client) SignUp(ctx context.Context, f forms.SignUpForm) (*AuthResult, error) {
	if errs := forms.Validate(&f); errs != nil {
		return nil, errs
	}

	var out AuthResult
	err := c.submit(func() error {
		return c.do(ctx, http.MethodPost, "/api/auth/sign-up/email", nil, f, &out)
	})
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// SignInSocial returns the provider URL a browser has to open
func (c *Client) SignInSocial(ctx context.Context, f forms.SocialForm) (string, error) {
	if errs := forms.Validate(&f); errs != nil {
		return "", errs
	}

	var out struct {
		URL string `json:"url"`
	}

	err := c.submit(func() error {
		return c.do(ctx, http.MethodPost, "/api/auth/sign-in/social", nil, f, &out)
	})
	if err != nil {
		return "", err
	}

	return out.URL, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/sign-out", nil, nil, nil)
}

type Session struct {
	User    model.User    `json:"user"`
	Session model.Session `json:"session"`
}

// Session returns the current session, or nil when signed out
func (c *Client) Session(ctx context.Context) (*Session, error) {
	var out *Session
	if err := c.do(ctx, http.MethodGet, "/api/auth/session", nil, nil, &out); err != nil {
		return nil, err
	}

	return out, nil
}

func pageQuery(search string, page, pageSize int) url.Values {
	q := url.Values{}

	if search != "" {
		q.Set("search", search)
	}

	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}

	if pageSize > 0 {
		q.Set("pageSize", fmt.Sprint(pageSize))
	}

	return q
}
