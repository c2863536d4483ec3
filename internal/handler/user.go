package handler

import (
	"net/http"

	"github.com/sakif/life-tracker/internal/auth"
	"github.com/sakif/life-tracker/internal/service"
)

// UserHandler serves the caller's own profile and the data reset.
type UserHandler struct {
	users *service.UserService
	resp  *Responder
}

func NewUserHandler(users *service.UserService, resp *Responder) *UserHandler {
	return &UserHandler{users: users, resp: resp}
}

// HandleGetMe returns the signed-in user's profile.
//
// HTTP: GET /user/me
func (h *UserHandler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.users.Me(r.Context(), userID)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, user)
}

// HandleUpdateMe applies a partial profile update.
//
// HTTP: PUT /user/me
// Body: any subset of name, email, avatar, bio, dob, gender, theme,
// securityQuestion, secretKeyAnswer.
func (h *UserHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var in service.ProfileUpdate
	if err := decodeJSON(r, &in); err != nil {
		h.resp.Error(w, r, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), userID, in)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, user)
}

type resetRequest struct {
	SecretKeyAnswer string `json:"secretKeyAnswer"`
}

// HandleResetData wipes every record the caller owns once the recovery
// secret checks out.
//
// HTTP: POST /reset-data
// Body: {"secretKeyAnswer": "..."}
// Response: 200 {"success": true}, or 403 when the answer is wrong.
func (h *UserHandler) HandleResetData(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req resetRequest
	if err := decodeJSON(r, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}

	if err := h.users.ResetData(r.Context(), userID, req.SecretKeyAnswer); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, SuccessResponse{Success: true})
}
