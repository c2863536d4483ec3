// Package idempotency makes record creation safe to retry.
//
// A client that sends "Idempotency-Key: <k>" with a POST gets the same
// response for every retry of that request: the first response is stored
// per (user, key) together with a hash of the request, and replayed while
// it is fresh. Reusing a key for a different request is a conflict.
package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/life-tracker/internal/apperror"
	"github.com/sakif/life-tracker/internal/auth"
	"github.com/sakif/life-tracker/internal/repository"
)

const (
	HeaderKey      = "Idempotency-Key"
	HeaderReplayed = "Idempotent-Replayed"
	MaxKeyLength   = 255
	DefaultTTL     = 24 * time.Hour
)

type Service struct {
	repo   repository.IdempotencyRepository
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func New(repo repository.IdempotencyRepository, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{repo: repo, ttl: ttl, logger: logger, now: time.Now}
}

// RequestHash identifies a request by method, path and body.
func RequestHash(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Middleware applies to POST requests that carry an Idempotency-Key and
// run behind auth.RequireAuth. Everything else passes straight through.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(HeaderKey)
		owner, ok := auth.UserIDFromContext(r.Context())
		if r.Method != http.MethodPost || key == "" || !ok {
			next.ServeHTTP(w, r)
			return
		}
		if len(key) > MaxKeyLength {
			writeError(w, http.StatusBadRequest, "validation_error", "Idempotency-Key is too long")
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "too_large", "request body is too large")
				return
			}
			writeError(w, http.StatusBadRequest, "validation_error", "could not read request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		hash := RequestHash(r.Method, r.URL.Path, body)
		ctx := r.Context()
		log := s.logger.With(slog.String("userID", owner), slog.String("idempotencyKey", key))

		existing, err := s.repo.Get(ctx, owner, key)
		switch {
		case err == nil && s.now().After(existing.ExpiresAt):
			if err := s.repo.Release(ctx, owner, key); err != nil {
				log.Error("releasing expired idempotency key", slog.String("error", err.Error()))
				writeError(w, http.StatusInternalServerError, "internal_error", "idempotency store unavailable")
				return
			}
		case err == nil:
			s.replay(w, existing, hash)
			return
		case !errors.Is(err, apperror.ErrNotFound):
			log.Error("reading idempotency key", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal_error", "idempotency store unavailable")
			return
		}

		now := s.now()
		err = s.repo.Reserve(ctx, &repository.IdempotencyRecord{
			OwnerID:     owner,
			Key:         key,
			RequestHash: hash,
			Status:      repository.IdempotencyPending,
			CreatedAt:   now,
			ExpiresAt:   now.Add(s.ttl),
		})
		if err != nil {
			if errors.Is(err, apperror.ErrConflict) {
				// Lost the race to a concurrent request with the same key.
				writeError(w, http.StatusConflict, "conflict", "a request with this Idempotency-Key is in progress")
				return
			}
			log.Error("reserving idempotency key", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal_error", "idempotency store unavailable")
			return
		}

		rec := &recorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		// Server failures are not remembered so the client can retry them.
		if rec.status >= http.StatusInternalServerError {
			if err := s.repo.Release(ctx, owner, key); err != nil {
				log.Error("releasing idempotency key", slog.String("error", err.Error()))
			}
			return
		}
		if err := s.repo.Complete(ctx, owner, key, rec.status, rec.body.Bytes()); err != nil {
			log.Error("storing idempotent response", slog.String("error", err.Error()))
		}
	})
}

// Sweep deletes every expired key.
func (s *Service) Sweep(ctx context.Context) error {
	n, err := s.repo.Purge(ctx, s.now())
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("purged expired idempotency keys", slog.Int64("count", n))
	}
	return nil
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("purging idempotency keys", slog.String("error", err.Error()))
			}
		}
	}
}

func (s *Service) replay(w http.ResponseWriter, existing *repository.IdempotencyRecord, hash string) {
	if existing.RequestHash != hash {
		writeError(w, http.StatusConflict, "conflict", "Idempotency-Key was already used for a different request")
		return
	}
	if existing.Status != repository.IdempotencyCompleted {
		writeError(w, http.StatusConflict, "conflict", "a request with this Idempotency-Key is in progress")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(HeaderReplayed, "true")
	w.WriteHeader(existing.StatusCode)
	_, _ = w.Write(existing.Response)
}

// recorder tees the response so it can be stored after the handler ran.
type recorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": code})
}
