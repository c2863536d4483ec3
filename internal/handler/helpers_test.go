package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/life-tracker/internal/auth"
	"github.com/sakif/life-tracker/internal/handler"
	"github.com/sakif/life-tracker/internal/model"
	"github.com/sakif/life-tracker/internal/repository/sqlstore"
	"github.com/sakif/life-tracker/internal/service"
)

// testEnv wires real services over an in-memory SQLite store.
type testEnv struct {
	db        *sqlstore.DB
	logger    *slog.Logger
	resp      *handler.Responder
	tokens    *auth.TokenService
	authSvc   *service.AuthService
	users     *service.UserService
	records   *service.RecordService
	sync      *service.SyncService
	analytics *service.AnalyticsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlstore.New(sqlstore.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", "", time.Hour)
	require.NoError(t, err)
	passwords := auth.NewPasswordServiceForTest(4)

	users := service.NewUserService(db.Users(), db.Records(), passwords, logger)
	sync := service.NewSyncService(db.Records(), logger)
	return &testEnv{
		db:        db,
		logger:    logger,
		resp:      handler.NewResponder(logger, true),
		tokens:    tokens,
		authSvc:   service.NewAuthService(db.Users(), tokens, passwords, logger),
		users:     users,
		records:   service.NewRecordService(db.Records(), 10, logger),
		sync:      sync,
		analytics: service.NewAnalyticsService(sync, users),
	}
}

// register creates a user whose recovery answer is "blue".
func (e *testEnv) register(t *testing.T, username string) *model.User {
	t.Helper()
	result, err := e.authSvc.Register(context.Background(), service.RegisterInput{
		Username:         username,
		Email:            username + "@example.com",
		Password:         "Passw0rd!",
		SecurityQuestion: model.SecurityQuestions[0],
		SecretKeyAnswer:  "blue",
	})
	require.NoError(t, err)
	return result.User
}

// asUser stands in for auth.RequireAuth.
func asUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	}
}

func newRouter(userID string, routes func(r chi.Router)) http.Handler {
	r := chi.NewRouter()
	if userID != "" {
		r.Use(asUser(userID))
	}
	routes(r)
	return r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body: %s", rr.Body.String())
	return v
}
