// Package model defines the data structures used throughout the application.
package model

import "time"

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// SecurityQuestions are the prompts offered for the recovery secret.
// The server stores whatever question text the user picked.
var SecurityQuestions = []string{
	"What was the name of your first pet?",
	"In what city were you born?",
	"What is your mother's maiden name?",
	"What was the model of your first car?",
	"What is the name of your favorite teacher?",
	"What is your favorite book?",
}

// User is a registered account. Credential material (password hash and
// recovery-secret hash) never leaves the server.
//
// GitHubID is set only for accounts that signed in through GitHub; it is
// nullable so password accounts do not collide on the UNIQUE column.
type User struct {
	ID               string    `json:"id"               db:"id"`
	Username         string    `json:"username"         db:"username"`
	Email            string    `json:"email"            db:"email"`
	PasswordHash     string    `json:"-"                db:"password_hash"`
	Name             string    `json:"name"             db:"name"`
	Avatar           string    `json:"avatar"           db:"avatar"`
	Bio              string    `json:"bio"              db:"bio"`
	DOB              string    `json:"dob"              db:"dob"`
	Gender           string    `json:"gender"           db:"gender"`
	SecurityQuestion string    `json:"securityQuestion" db:"security_question"`
	SecretHash       string    `json:"-"                db:"secret_hash"`
	Theme            string    `json:"theme"            db:"theme"`
	Points           int64     `json:"points"           db:"points"`
	GitHubID         *int64    `json:"githubId,omitempty" db:"github_id"`
	CreatedAt        time.Time `json:"createdAt"        db:"created_at"`
	UpdatedAt        time.Time `json:"updatedAt"        db:"updated_at"`
}

// HasRecoverySecret reports whether a reset can ever be authorised for
// this account.
func (u *User) HasRecoverySecret() bool {
	return u.SecretHash != ""
}
