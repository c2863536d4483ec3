package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"unicode"

	"github.com/sakif/life-tracker/internal/apperror"
	"github.com/sakif/life-tracker/internal/auth"
	"github.com/sakif/life-tracker/internal/model"
	"github.com/sakif/life-tracker/internal/repository"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt limit
	MaxNameLength     = 100
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// errInvalidCredentials is deliberately vague: it must not reveal whether
// the username exists.
var errInvalidCredentials = apperror.Unauthorized("invalid username or password")

// AuthService sits between the HTTP handlers and the repository/auth
// utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// Two ways in: username/email + password, and GitHub OAuth. Both end with
// the same local access token.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user record and the issued token so the handler
// can respond in one step.
type AuthResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// RegisterInput is the body of POST /auth/register.
type RegisterInput struct {
	Username         string `json:"username"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	Name             string `json:"name"`
	SecurityQuestion string `json:"securityQuestion"`
	SecretKeyAnswer  string `json:"secretKeyAnswer"`
}

// Register creates a password account and signs it in.
//
// Validation runs before any storage access. Uniqueness is checked up front
// for a friendly error naming the field, and again by the UNIQUE indexes
// for the race between two concurrent registrations.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.SecurityQuestion = strings.TrimSpace(in.SecurityQuestion)

	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	taken, err := s.users.UsernameTaken(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("service/auth: checking username: %w", err)
	}
	if taken {
		return nil, apperror.AlreadyExists("username", "username is already taken")
	}
	if in.Email != "" {
		taken, err := s.users.EmailTaken(ctx, in.Email, "")
		if err != nil {
			return nil, fmt.Errorf("service/auth: checking email: %w", err)
		}
		if taken {
			return nil, apperror.AlreadyExists("email", "email is already registered")
		}
	}

	passwordHash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}
	secretHash, err := s.passwords.HashSecret(in.SecretKeyAnswer)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	name := in.Name
	if name == "" {
		name = in.Username
	}
	user := &model.User{
		Username:         in.Username,
		Email:            in.Email,
		PasswordHash:     passwordHash,
		Name:             name,
		SecurityQuestion: in.SecurityQuestion,
		SecretHash:       secretHash,
		Theme:            model.ThemeDark,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user %s: %w", in.Username, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.issue(user)
}

// Login accepts a username or an email, case-insensitively.
func (s *AuthService) Login(ctx context.Context, login, password string) (*AuthResult, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, apperror.ValidationFailed("username", "username and password are required")
	}

	user, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("service/auth: looking up %s: %w", login, err)
	}
	// GitHub-only accounts have no password and cannot log in this way.
	if user.PasswordHash == "" {
		return nil, errInvalidCredentials
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		s.logger.Debug("password mismatch", slog.String("userID", user.ID))
		return nil, errInvalidCredentials
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return s.issue(user)
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback.
//
// The account is keyed by GitHub's numeric id. First login creates a user
// with a username derived from the GitHub login and no password or
// recovery secret; the user can set the secret later from their profile.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil || ghUser.ID == 0 {
		return nil, fmt.Errorf("service/auth: GitHub user must not be empty")
	}

	user, err := s.users.GetByGitHubID(ctx, ghUser.ID)
	switch {
	case err == nil:
		if user.Avatar == "" && ghUser.AvatarURL != "" {
			user.Avatar = ghUser.AvatarURL
			if err := s.users.Update(ctx, user); err != nil {
				return nil, fmt.Errorf("service/auth: refreshing avatar for %s: %w", user.ID, err)
			}
		}
	case errors.Is(err, apperror.ErrNotFound):
		user, err = s.createGitHubUser(ctx, ghUser)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("service/auth: looking up GitHub user %d: %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", ghUser.Login),
	)

	return s.issue(user)
}

func (s *AuthService) createGitHubUser(ctx context.Context, ghUser *auth.GitHubUser) (*model.User, error) {
	username, err := s.freeUsername(ctx, ghUser.Login)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(ghUser.Email)
	if email != "" {
		taken, err := s.users.EmailTaken(ctx, email, "")
		if err != nil {
			return nil, fmt.Errorf("service/auth: checking email: %w", err)
		}
		if taken {
			// Never attach a GitHub identity to an existing password account
			// by email alone.
			email = ""
		}
	}

	name := strings.TrimSpace(ghUser.Name)
	if name == "" {
		name = ghUser.Login
	}
	githubID := ghUser.ID
	user := &model.User{
		Username: username,
		Email:    email,
		Name:     name,
		Avatar:   ghUser.AvatarURL,
		Bio:      ghUser.Bio,
		Theme:    model.ThemeDark,
		GitHubID: &githubID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating GitHub user %d: %w", ghUser.ID, err)
	}
	return user, nil
}

// freeUsername turns a GitHub login into a valid, unused username.
func (s *AuthService) freeUsername(ctx context.Context, login string) (string, error) {
	base := strings.Map(func(r rune) rune {
		if r == '_' || (r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))) {
			return r
		}
		if r == '-' || r == '.' {
			return '_'
		}
		return -1
	}, login)
	if len(base) > 16 {
		base = base[:16]
	}
	for len(base) < 3 {
		base += "_"
	}

	candidate := base
	for i := 2; i < 1000; i++ {
		taken, err := s.users.UsernameTaken(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("service/auth: checking username: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
	return "", apperror.AlreadyExists("username", "could not find a free username for "+login)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func validateRegistration(in RegisterInput) error {
	if !usernamePattern.MatchString(in.Username) {
		return apperror.ValidationFailed("username",
			"username must be 3-20 characters of letters, digits or underscore")
	}
	if in.Email != "" {
		addr, err := mail.ParseAddress(in.Email)
		if err != nil || addr.Address != in.Email {
			return apperror.ValidationFailed("email", "email is not a valid address")
		}
	}
	if err := validatePassword(in.Password); err != nil {
		return err
	}
	if len(in.Name) > MaxNameLength {
		return apperror.ValidationFailed("name", "name is too long")
	}
	if auth.NormalizeSecret(in.SecretKeyAnswer) == "" {
		return apperror.ValidationFailed("secretKeyAnswer", "secret answer is required for data recovery")
	}
	return nil
}

func validatePassword(pw string) error {
	if len(pw) < MinPasswordLength || len(pw) > MaxPasswordLength {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d-%d bytes", MinPasswordLength, MaxPasswordLength))
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return apperror.ValidationFailed("password",
			"password needs an uppercase letter, a lowercase letter and a digit")
	}
	return nil
}
