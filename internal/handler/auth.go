package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/life-tracker/internal/auth"
	"github.com/sakif/life-tracker/internal/service"
)

const oauthStateCookie = "oauth_state"

// OAuthProvider is the part of auth.GitHubProvider the handler needs.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler serves registration, password login and the GitHub OAuth flow.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister       → create a password account, respond {user, token}
//   - HandleLogin          → verify username/email + password, respond {user, token}
//   - HandleGitHubLogin    → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback → exchange the code, sign the user in, redirect to the app
//
// The GitHub routes are only mounted when a provider is configured.
type AuthHandler struct {
	auth        *service.AuthService
	github      OAuthProvider
	redirectURL string
	resp        *Responder
	logger      *slog.Logger
}

// NewAuthHandler creates an AuthHandler. github may be nil when OAuth is
// not configured; redirectURL is where the browser lands after GitHub.
func NewAuthHandler(
	authService *service.AuthService,
	github OAuthProvider,
	redirectURL string,
	resp *Responder,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:        authService,
		github:      github,
		redirectURL: redirectURL,
		resp:        resp,
		logger:      logger,
	}
}

// HandleRegister creates an account and signs it in.
//
// HTTP: POST /auth/register
// Body: {"username", "email", "password", "name", "securityQuestion", "secretKeyAnswer"}
// Response: 201 {"user": {...}, "token": "..."}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		h.resp.Error(w, r, err)
		return
	}

	result, err := h.auth.Register(r.Context(), in)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusCreated, result)
}

// loginRequest accepts the identifier under any of the names clients use.
type loginRequest struct {
	Login    string `json:"login"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req loginRequest) identifier() string {
	for _, v := range []string{req.Login, req.Username, req.Email} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// HandleLogin verifies credentials.
//
// HTTP: POST /auth/login
// Body: {"username" | "email" | "login", "password"}
// Response: 200 {"user": {...}, "token": "..."}, or 401 for bad credentials.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req.identifier(), req.Password)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, result)
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state value goes into a short-lived HttpOnly cookie and into the
// authorization URL. The callback only proceeds when both match.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub user profile
//  3. Find or create the local account
//  4. Redirect to the app with the token in the URL fragment
//
// The fragment is never sent to a server, so the token does not end up in
// access logs on the way back to the app.
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || q.Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: invalid state")
		h.redirect(w, r, url.Values{"error": {"invalid_state"}})
		return
	}

	// Single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   oauthStateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		h.redirect(w, r, url.Values{"error": {"denied"}})
		return
	}

	code := q.Get("code")
	if code == "" {
		h.redirect(w, r, url.Values{"error": {"missing_code"}})
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		h.redirect(w, r, url.Values{"error": {"exchange_failed"}})
		return
	}

	result, err := h.auth.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: sign-in failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		h.redirect(w, r, url.Values{"error": {"signin_failed"}})
		return
	}

	h.redirect(w, r, url.Values{"token": {result.Token}})
}

func (h *AuthHandler) redirect(w http.ResponseWriter, r *http.Request, fragment url.Values) {
	target := h.redirectURL
	if i := strings.IndexByte(target, '#'); i >= 0 {
		target = target[:i]
	}
	http.Redirect(w, r, target+"#"+fragment.Encode(), http.StatusSeeOther)
}
