package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/life-tracker/internal/apperror"
	"github.com/sakif/life-tracker/internal/auth"
	"github.com/sakif/life-tracker/internal/model"
	"github.com/sakif/life-tracker/internal/repository"
)

const (
	MaxBioLength    = 500
	MaxAvatarLength = 2 << 20 // data URIs are allowed
)

// UserService owns the caller's profile and the secret-guarded data reset.
type UserService struct {
	users     repository.UserRepository
	records   repository.RecordRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	records repository.RecordRepository,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		records:   records,
		passwords: passwords,
		logger:    logger,
	}
}

func (s *UserService) Me(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("no user in request")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/user: fetching user %s: %w", userID, err)
	}
	return user, nil
}

// ProfileUpdate is the body of PUT /user/me. A nil field is left unchanged.
// Points, username and credentials are not updatable here; unknown JSON
// fields such as "points" are simply ignored by the decoder.
type ProfileUpdate struct {
	Name             *string `json:"name"`
	Email            *string `json:"email"`
	Avatar           *string `json:"avatar"`
	Bio              *string `json:"bio"`
	DOB              *string `json:"dob"`
	Gender           *string `json:"gender"`
	Theme            *string `json:"theme"`
	SecurityQuestion *string `json:"securityQuestion"`
	SecretKeyAnswer  *string `json:"secretKeyAnswer"`
}

// UpdateProfile applies a partial update and returns the stored profile.
//
// The recovery secret can only be set while none exists. Accounts created
// through GitHub start without one; once set, it is what guards reset.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*model.User, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" || len(name) > MaxNameLength {
			return nil, apperror.ValidationFailed("name", "name must be 1-100 characters")
		}
		user.Name = name
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email != "" {
			addr, err := mail.ParseAddress(email)
			if err != nil || addr.Address != email {
				return nil, apperror.ValidationFailed("email", "email is not a valid address")
			}
			taken, err := s.users.EmailTaken(ctx, email, user.ID)
			if err != nil {
				return nil, fmt.Errorf("service/user: checking email: %w", err)
			}
			if taken {
				return nil, apperror.AlreadyExists("email", "email is already registered")
			}
		}
		user.Email = email
	}
	if in.Avatar != nil {
		if len(*in.Avatar) > MaxAvatarLength {
			return nil, apperror.ValidationFailed("avatar", "avatar is too large")
		}
		user.Avatar = strings.TrimSpace(*in.Avatar)
	}
	if in.Bio != nil {
		if len(*in.Bio) > MaxBioLength {
			return nil, apperror.ValidationFailed("bio", "bio is too long")
		}
		user.Bio = strings.TrimSpace(*in.Bio)
	}
	if in.DOB != nil {
		dob := strings.TrimSpace(*in.DOB)
		if dob != "" && !model.IsDate(dob) {
			return nil, apperror.ValidationFailed("dob", "dob must be a YYYY-MM-DD date")
		}
		user.DOB = dob
	}
	if in.Gender != nil {
		user.Gender = strings.TrimSpace(*in.Gender)
	}
	if in.Theme != nil {
		theme := strings.ToLower(strings.TrimSpace(*in.Theme))
		if theme != model.ThemeLight && theme != model.ThemeDark {
			return nil, apperror.ValidationFailed("theme", "theme must be light or dark")
		}
		user.Theme = theme
	}
	if in.SecretKeyAnswer != nil {
		if user.HasRecoverySecret() {
			return nil, apperror.Forbidden("the recovery secret is already set")
		}
		hash, err := s.passwords.HashSecret(*in.SecretKeyAnswer)
		if err != nil {
			return nil, apperror.ValidationFailed("secretKeyAnswer", "secret answer must not be empty")
		}
		user.SecretHash = hash
		if in.SecurityQuestion != nil {
			user.SecurityQuestion = strings.TrimSpace(*in.SecurityQuestion)
		}
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: updating user %s: %w", user.ID, err)
	}

	s.logger.Info("profile updated", slog.String("userID", user.ID))
	return user, nil
}

// ResetData wipes every record the caller owns and zeroes their points,
// provided the recovery answer matches. A wrong answer changes nothing.
func (s *UserService) ResetData(ctx context.Context, userID, secretAnswer string) error {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasRecoverySecret() {
		return apperror.Forbidden("no recovery secret is set for this account")
	}
	if err := s.passwords.VerifySecret(user.SecretHash, secretAnswer); err != nil {
		s.logger.Warn("data reset refused: wrong secret answer", slog.String("userID", user.ID))
		return apperror.Forbidden("incorrect secret answer")
	}

	if err := s.records.Reset(ctx, user.ID); err != nil {
		s.logger.Error("data reset failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("service/user: resetting data for %s: %w", user.ID, err)
	}

	s.logger.Info("data reset", slog.String("userID", user.ID))
	return nil
}
