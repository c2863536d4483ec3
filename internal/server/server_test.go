package server_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/life-tracker/internal/config"
	"github.com/sakif/life-tracker/internal/model"
	"github.com/sakif/life-tracker/internal/server"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Address:        ":0",
			APIPrefix:      "/api",
			RequestTimeout: 10 * time.Second,
			MaxBodyBytes:   64 << 10,
			ExposeErrors:   true,
			CORSOrigins:    []string{"*"},
		},
		Database:    config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"},
		Auth:        config.AuthConfig{JWTSecret: "server-test-secret-0123456789", Issuer: "life-tracker", TokenTTL: time.Hour, BcryptCost: 4},
		GitHub:      config.GitHubConfig{RedirectURL: "http://localhost:5173/"},
		Points:      config.PointsConfig{PerCompletion: 10},
		Idempotency: config.IdempotencyConfig{TTL: time.Hour},
	}
}

type api struct {
	t *testing.T
	h http.Handler
}

func newAPI(t *testing.T) *api {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	srv, err := server.New(testConfig(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return &api{t: t, h: srv.Handler()}
}

func (a *api) call(method, path, token, body string, headers ...string) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	a.h.ServeHTTP(rr, req)
	return rr
}

// register signs up username with password "Passw0rd!" and secret "blue".
func (a *api) register(username string) string {
	a.t.Helper()
	rr := a.call(http.MethodPost, "/api/auth/register", "", `{
		"username": "`+username+`",
		"email": "`+username+`@example.com",
		"password": "Passw0rd!",
		"securityQuestion": "What was the name of your first pet?",
		"secretKeyAnswer": "blue"
	}`)
	require.Equal(a.t, http.StatusCreated, rr.Code, rr.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out.Token
}

func (a *api) snapshot(token string) model.Snapshot {
	a.t.Helper()
	rr := a.call(http.MethodGet, "/api/data", token, "")
	require.Equal(a.t, http.StatusOK, rr.Code, rr.Body.String())
	var snap model.Snapshot
	require.NoError(a.t, json.Unmarshal(rr.Body.Bytes(), &snap))
	return snap
}

func decodeInto[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestScenario_TaskAndLogAppearInSnapshot(t *testing.T) {
	a := newAPI(t)
	a.register("alice")

	rr := a.call(http.MethodPost, "/api/auth/login", "", `{"username":"alice","password":"Passw0rd!"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	login := decodeInto[struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}](t, rr)

	rr = a.call(http.MethodPost, "/api/tasks", login.Token,
		`{"name":"Meditate","type":"HEALTH","category":"habit","startDate":"2026-03-01"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	task := decodeInto[model.Task](t, rr)

	rr = a.call(http.MethodPost, "/api/logs", login.Token,
		`{"taskId":"`+task.ID+`","date":"2026-03-14","completed":true,"remark":"10 minutes"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	snap := a.snapshot(login.Token)
	require.Len(t, snap.Tasks, 1)
	require.Len(t, snap.Logs, 1)
	assert.Equal(t, snap.Tasks[0].ID, snap.Logs[0].TaskID)
	assert.True(t, snap.Logs[0].Completed)
	assert.Equal(t, login.User.ID, snap.Logs[0].UserID)

	me := decodeInto[model.User](t, a.call(http.MethodGet, "/api/user/me", login.Token, ""))
	assert.Equal(t, int64(10), me.Points)
}

func TestScenario_ExpenseReplace(t *testing.T) {
	a := newAPI(t)
	token := a.register("alice")

	rr := a.call(http.MethodPost, "/api/expenses", token,
		`{"amount":12.5,"category":"Food","description":"Lunch","date":"2026-03-10"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	expense := decodeInto[model.Expense](t, rr)

	rr = a.call(http.MethodPut, "/api/expenses/"+expense.ID, token,
		`{"amount":15,"category":"Food","description":"Lunch + coffee","date":"2026-03-10"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	snap := a.snapshot(token)
	require.Len(t, snap.Expenses, 1)
	assert.Equal(t, expense.ID, snap.Expenses[0].ID)
	assert.Equal(t, 15.0, snap.Expenses[0].Amount)
	assert.Equal(t, "Lunch + coffee", snap.Expenses[0].Description)
}

func TestScenario_WrongSecretLeavesDataAlone(t *testing.T) {
	a := newAPI(t)
	token := a.register("alice")

	require.Equal(t, http.StatusCreated,
		a.call(http.MethodPost, "/api/todos", token, `{"text":"Call mom"}`).Code)
	require.Equal(t, http.StatusCreated,
		a.call(http.MethodPost, "/api/journal", token, `{"content":"Good day","mood":"😊","images":["a","b"]}`).Code)
	before := a.snapshot(token)

	rr := a.call(http.MethodPost, "/api/reset-data", token, `{"secretKeyAnswer":"green"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, before, a.snapshot(token))

	rr = a.call(http.MethodPost, "/api/reset-data", token, `{"secretKeyAnswer":"Blue"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Zero(t, a.snapshot(token).Len())
}

func TestIsolationBetweenUsers(t *testing.T) {
	a := newAPI(t)
	alice := a.register("alice")
	bob := a.register("bob")

	rr := a.call(http.MethodPost, "/api/todos", alice, `{"id":"shared-id","text":"alice's"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = a.call(http.MethodPost, "/api/todos", bob, `{"id":"shared-id","text":"bob's"}`)
	require.Equal(t, http.StatusCreated, rr.Code, "ids are scoped per owner")

	assert.Equal(t, http.StatusOK, a.call(http.MethodDelete, "/api/todos/shared-id", bob, "").Code)

	snap := a.snapshot(alice)
	require.Len(t, snap.Todos, 1)
	assert.Equal(t, "alice's", snap.Todos[0].Text)
	assert.Zero(t, a.snapshot(bob).Len())
}

func TestDeletingTaskRemovesItsLogs(t *testing.T) {
	a := newAPI(t)
	token := a.register("alice")

	require.Equal(t, http.StatusCreated,
		a.call(http.MethodPost, "/api/tasks", token, `{"id":"t1","name":"Run","category":"goal"}`).Code)
	require.Equal(t, http.StatusCreated,
		a.call(http.MethodPost, "/api/logs", token, `{"taskId":"t1","date":"2026-03-01"}`).Code)

	require.Equal(t, http.StatusOK, a.call(http.MethodDelete, "/api/tasks/t1", token, "").Code)

	snap := a.snapshot(token)
	assert.Empty(t, snap.Tasks)
	assert.Empty(t, snap.Logs)
}

func TestAuthGating(t *testing.T) {
	a := newAPI(t)
	token := a.register("alice")

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/data"},
		{http.MethodGet, "/api/user/me"},
		{http.MethodPost, "/api/todos"},
		{http.MethodDelete, "/api/todos/x"},
		{http.MethodPost, "/api/reset-data"},
		{http.MethodGet, "/api/no/such/route"},
		{http.MethodGet, "/api/auth/github/login"}, // not configured
	} {
		rr := a.call(tc.method, tc.path, "", `{}`)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, tc.path)
		assert.Contains(t, rr.Body.String(), `"error"`, tc.path)
	}

	rr := a.call(http.MethodGet, "/api/data", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// A valid body without a token must not be stored anywhere.
	rr = a.call(http.MethodPost, "/api/todos", "", `{"text":"sneaky"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Zero(t, a.snapshot(token).Len())
}

func TestImagesAreKeptAsSent(t *testing.T) {
	a := newAPI(t)
	token := a.register("alice")

	rr := a.call(http.MethodPost, "/api/journal", token,
		`{"content":"Beach","mood":"😊","images":["data:a"," data:b "]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	snap := a.snapshot(token)
	require.Len(t, snap.Journal, 1)
	assert.Equal(t, []string{"data:a", " data:b "}, snap.Journal[0].Images)

	rr = a.call(http.MethodPost, "/api/journal", token,
		`{"content":"Beach","mood":"😊","images":["data:a",""]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), `"field":"images"`)
}

func TestUnknownRoutesAreJSON404(t *testing.T) {
	a := newAPI(t)
	token := a.register("alice")

	for _, path := range []string{"/api/no/such/route", "/api/quotes", "/elsewhere"} {
		rr := a.call(http.MethodGet, path, token, "")
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"), path)
	}
}

func TestPublicRoutes(t *testing.T) {
	a := newAPI(t)

	rr := a.call(http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = a.call(http.MethodOptions, "/api/data", "", "",
		"Origin", "http://localhost:5173",
		"Access-Control-Request-Method", "GET")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestTrailingSlashAndQueryToken(t *testing.T) {
	a := newAPI(t)
	token := a.register("alice")

	assert.Equal(t, http.StatusOK, a.call(http.MethodGet, "/api/data/", token, "").Code)

	rr := a.call(http.MethodGet, "/api/export/expenses.csv?token="+token, "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Date,Category")
}

func TestIdempotentCreate(t *testing.T) {
	a := newAPI(t)
	token := a.register("alice")
	body := `{"text":"only once"}`

	first := a.call(http.MethodPost, "/api/todos", token, body, "Idempotency-Key", "k-1")
	second := a.call(http.MethodPost, "/api/todos", token, body, "Idempotency-Key", "k-1")

	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Len(t, a.snapshot(token).Todos, 1)

	rr := a.call(http.MethodPost, "/api/todos", token, `{"text":"other"}`, "Idempotency-Key", "k-1")
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestBodyLimit(t *testing.T) {
	a := newAPI(t)
	token := a.register("alice")

	big := `{"text":"` + strings.Repeat("x", 65<<10) + `"}`
	rr := a.call(http.MethodPost, "/api/todos", token, big)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Zero(t, a.snapshot(token).Len())
}
