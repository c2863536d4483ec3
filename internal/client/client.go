// Package client is a Go client for the life-tracker API, plus Store, a
// caller-side cache that re-fetches the full snapshot after every write.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sakif/life-tracker/internal/apperror"
	"github.com/sakif/life-tracker/internal/model"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx response. It unwraps to the apperror sentinel for
// its status, so errors.Is(err, apperror.ErrConflict) works on the client
// side too.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
	Code    string `json:"code"`
	Field   string `json:"field"`
	Detail  string `json:"detail"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return apperror.ErrValidation
	case http.StatusUnauthorized:
		return apperror.ErrUnauthorized
	case http.StatusForbidden:
		return apperror.ErrForbidden
	case http.StatusNotFound:
		return apperror.ErrNotFound
	case http.StatusConflict:
		return apperror.ErrConflict
	}
	return nil
}

type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the API rooted at baseURL, e.g.
// "http://localhost:8080/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Logout forgets the token. Tokens are stateless, so nothing is sent.
func (c *Client) Logout() {
	c.SetToken("")
}

// Authenticated reports whether a token is held.
func (c *Client) Authenticated() bool {
	return c.Token() != ""
}

type AuthResponse struct {
	User  model.User `json:"user"`
	Token string     `json:"token"`
}

type RegisterRequest struct {
	Username         string `json:"username"`
	Email            string `json:"email,omitempty"`
	Password         string `json:"password"`
	Name             string `json:"name,omitempty"`
	SecurityQuestion string `json:"securityQuestion,omitempty"`
	SecretKeyAnswer  string `json:"secretKeyAnswer"`
}

// Register creates an account and keeps the returned token.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// Login signs in with a username or an email and keeps the token.
func (c *Client) Login(ctx context.Context, login, password string) (*AuthResponse, error) {
	body := map[string]string{"login": login, "password": password}
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var out model.User
	if err := c.do(ctx, http.MethodGet, "/user/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProfileUpdate mirrors PUT /user/me: nil fields are left unchanged.
type ProfileUpdate struct {
	Name             *string `json:"name,omitempty"`
	Email            *string `json:"email,omitempty"`
	Avatar           *string `json:"avatar,omitempty"`
	Bio              *string `json:"bio,omitempty"`
	DOB              *string `json:"dob,omitempty"`
	Gender           *string `json:"gender,omitempty"`
	Theme            *string `json:"theme,omitempty"`
	SecurityQuestion *string `json:"securityQuestion,omitempty"`
	SecretKeyAnswer  *string `json:"secretKeyAnswer,omitempty"`
}

func (c *Client) UpdateProfile(ctx context.Context, in ProfileUpdate) (*model.User, error) {
	var out model.User
	if err := c.do(ctx, http.MethodPut, "/user/me", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Snapshot(ctx context.Context) (model.Snapshot, error) {
	snap := model.NewSnapshot()
	if err := c.do(ctx, http.MethodGet, "/data", nil, &snap); err != nil {
		return model.Snapshot{}, err
	}
	return snap, nil
}

func (c *Client) Analytics(ctx context.Context, days int) (*model.Analytics, error) {
	path := "/analytics"
	if days > 0 {
		path += fmt.Sprintf("?days=%d", days)
	}
	var out model.Analytics
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create posts rec to collection and decodes the stored record into rec.
// A non-empty idempotencyKey makes the call safe to retry.
func (c *Client) Create(ctx context.Context, collection string, rec any, idempotencyKey string) error {
	var header http.Header
	if idempotencyKey != "" {
		header = http.Header{"Idempotency-Key": {idempotencyKey}}
	}
	return c.doWithHeader(ctx, http.MethodPost, "/"+url.PathEscape(collection), header, rec, rec)
}

// Replace overwrites the record at id and decodes the result into rec.
func (c *Client) Replace(ctx context.Context, collection, id string, rec any) error {
	return c.do(ctx, http.MethodPut, "/"+url.PathEscape(collection)+"/"+url.PathEscape(id), rec, rec)
}

func (c *Client) Delete(ctx context.Context, collection, id string) error {
	return c.do(ctx, http.MethodDelete, "/"+url.PathEscape(collection)+"/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ResetData(ctx context.Context, secretKeyAnswer string) error {
	body := map[string]string{"secretKeyAnswer": secretKeyAnswer}
	return c.do(ctx, http.MethodPost, "/reset-data", body, nil)
}

// Download fetches an export ("/export", "/export/expenses.csv", ...) as
// raw bytes.
func (c *Client) Download(ctx context.Context, path string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	return c.doWithHeader(ctx, method, path, nil, in, out)
}

func (c *Client) doWithHeader(ctx context.Context, method, path string, header http.Header, in, out any) error {
	req, err := c.newRequest(ctx, method, path, header, in)
	if err != nil {
		return err
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decoding %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, header http.Header, in any) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("client: encoding request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("client: building request: %w", err)
	}
	for k, vs := range header {
		req.Header[k] = vs
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// send performs req and turns non-2xx responses into *APIError. A 401
// drops the token: it is expired or was never valid.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: %s %s: %w", req.Method, req.URL.Path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	if resp.StatusCode == http.StatusUnauthorized {
		c.Logout()
	}
	return nil, apiErr
}

// IsUnauthorized reports whether err means the caller must sign in again.
func IsUnauthorized(err error) bool {
	return errors.Is(err, apperror.ErrUnauthorized)
}
