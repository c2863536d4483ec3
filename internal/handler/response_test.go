package handler_test

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/life-tracker/internal/apperror"
	"github.com/sakif/life-tracker/internal/handler"
)

func TestResponder_ErrorMapping(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

	tests := []struct {
		name       string
		err        error
		expose     bool
		wantStatus int
		want       handler.ErrorResponse
	}{
		{
			name:       "validation keeps field",
			err:        fmt.Errorf("creating task: %w", apperror.ValidationFailed("name", "name is required")),
			wantStatus: http.StatusBadRequest,
			want:       handler.ErrorResponse{Error: "name is required", Code: "validation_error", Field: "name"},
		},
		{
			name:       "unauthorized",
			err:        apperror.Unauthorized("invalid username or password"),
			wantStatus: http.StatusUnauthorized,
			want:       handler.ErrorResponse{Error: "invalid username or password", Code: "unauthorized"},
		},
		{
			name:       "forbidden",
			err:        apperror.Forbidden("secret key answer is incorrect"),
			wantStatus: http.StatusForbidden,
			want:       handler.ErrorResponse{Error: "secret key answer is incorrect", Code: "forbidden"},
		},
		{
			name:       "not found",
			err:        apperror.NotFound("todo", "d1"),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "already exists",
			err:        apperror.AlreadyExists("username", "username is already taken"),
			wantStatus: http.StatusConflict,
			want:       handler.ErrorResponse{Error: "username is already taken", Code: "conflict", Field: "username"},
		},
		{
			name:       "internal with detail",
			err:        errors.New("disk on fire"),
			expose:     true,
			wantStatus: http.StatusInternalServerError,
			want:       handler.ErrorResponse{Error: "internal server error", Code: "internal_error", Detail: "disk on fire"},
		},
		{
			name:       "internal without detail",
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			want:       handler.ErrorResponse{Error: "internal server error", Code: "internal_error"},
		},
		{
			name:       "body too large",
			err:        &http.MaxBytesError{Limit: 10},
			wantStatus: http.StatusRequestEntityTooLarge,
			want:       handler.ErrorResponse{Error: "request body is too large", Code: "too_large"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := handler.NewResponder(logger, tt.expose)
			rr := httptest.NewRecorder()

			rs.Error(rr, httptest.NewRequest(http.MethodGet, "/x", nil), tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			got := decode[handler.ErrorResponse](t, rr)
			assert.NotEmpty(t, got.Error)
			if tt.want.Error != "" {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestResponder_NotFoundIsJSON(t *testing.T) {
	rs := handler.NewResponder(slog.New(slog.NewTextHandler(io.Discard, nil)), false)
	rr := httptest.NewRecorder()

	rs.NotFound(rr, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	got := decode[handler.ErrorResponse](t, rr)
	assert.Equal(t, "not_found", got.Code)
	assert.Contains(t, got.Error, "/api/nope")
}
