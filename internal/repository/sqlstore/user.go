package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/life-tracker/internal/apperror"
	"github.com/sakif/life-tracker/internal/model"
	"github.com/sakif/life-tracker/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

const userColumns = `id, username, email, password_hash, name, avatar, bio, dob, gender,
	security_question, secret_hash, theme, points, github_id, created_at, updated_at`

type UserDB struct {
	db *DB
}

// Create inserts a new user, assigning the id and timestamps. Points always
// start at zero regardless of what the caller set.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	now := time.Now()
	if user.ID == "" {
		user.ID = xid.New().String()
	}
	if user.Theme == "" {
		user.Theme = model.ThemeLight
	}
	user.Points = 0
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := u.db.conn.ExecContext(ctx, u.db.conn.Rebind(
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		user.ID, user.Username, user.Email, user.PasswordHash, user.Name, user.Avatar,
		user.Bio, user.DOB, user.Gender, user.SecurityQuestion, user.SecretHash,
		user.Theme, user.Points, user.GitHubID, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.AlreadyExists("username", "username or email is already registered")
		}
		return fmt.Errorf("sqlstore: inserting user %s: %w", user.Username, err)
	}
	return nil
}

func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return u.getOne(ctx, "user", id, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (u *UserDB) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	return u.getOne(ctx, "user", login,
		`SELECT `+userColumns+` FROM users WHERE lower(username) = lower(?) OR (email <> '' AND lower(email) = lower(?))`,
		login, login)
}

func (u *UserDB) GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	return u.getOne(ctx, "user", fmt.Sprintf("github:%d", githubID),
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, githubID)
}

func (u *UserDB) getOne(ctx context.Context, resource, key, query string, args ...any) (*model.User, error) {
	var user model.User
	if err := u.db.conn.GetContext(ctx, &user, u.db.conn.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound(resource, key)
		}
		return nil, fmt.Errorf("sqlstore: getting user %s: %w", key, err)
	}
	return &user, nil
}

func (u *UserDB) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var n int
	err := u.db.conn.GetContext(ctx, &n, u.db.conn.Rebind(
		`SELECT COUNT(*) FROM users WHERE lower(username) = lower(?)`), username)
	if err != nil {
		return false, fmt.Errorf("sqlstore: checking username: %w", err)
	}
	return n > 0, nil
}

// EmailTaken reports whether another account (not exceptID) uses email.
func (u *UserDB) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	var n int
	err := u.db.conn.GetContext(ctx, &n, u.db.conn.Rebind(
		`SELECT COUNT(*) FROM users WHERE email <> '' AND lower(email) = lower(?) AND id <> ?`),
		email, exceptID)
	if err != nil {
		return false, fmt.Errorf("sqlstore: checking email: %w", err)
	}
	return n > 0, nil
}

// Update writes the mutable profile columns. Points and credentials other
// than the recovery secret are not touched here.
func (u *UserDB) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()

	result, err := u.db.conn.ExecContext(ctx, u.db.conn.Rebind(
		`UPDATE users SET email = ?, name = ?, avatar = ?, bio = ?, dob = ?, gender = ?,
		        security_question = ?, secret_hash = ?, theme = ?, github_id = ?, updated_at = ?
		 WHERE id = ?`),
		user.Email, user.Name, user.Avatar, user.Bio, user.DOB, user.Gender,
		user.SecurityQuestion, user.SecretHash, user.Theme, user.GitHubID, user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.AlreadyExists("email", "email is already registered")
		}
		return fmt.Errorf("sqlstore: updating user %s: %w", user.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}
