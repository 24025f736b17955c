package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/quill/internal/auth/domain"
	"github.com/aussiebroadwan/quill/internal/auth/service"
	"github.com/aussiebroadwan/quill/pkg/authsdk"
	"github.com/aussiebroadwan/quill/pkg/httpx"
)

const mfaRequiredMessage = "MFA token required for admin login"

// AuthHandler serves login, refresh and the signed-in checks.
type AuthHandler struct {
	AuthService     *service.AuthService
	IdentityService *service.IdentityService
}

// HandleLogin handles POST /auth/login
//
//	@Summary		Log in with username and password
//	@Description	Returns a token pair. Admins with MFA enabled first receive {"requireMfa": true} and must resubmit with mfaToken.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.LoginResponse	"Tokens, or an MFA challenge"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Malformed request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid credentials or MFA code"
//	@Failure		500		{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		badRequest(w, "username and password are required")
		return
	}

	res, err := h.AuthService.Login(r.Context(), domain.Credentials{
		Username: req.Username,
		Password: req.Password,
		MFACode:  strings.TrimSpace(req.MFAToken),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if res.MFARequired {
		httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
			RequireMFA: true,
			Message:    mfaRequiredMessage,
		})
		return
	}

	user := toUser(res.User)
	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		User:         &user,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		ExpiresIn:    int(res.Tokens.ExpiresIn.Seconds()),
	})
}

// HandleRefresh handles POST /auth/refresh
//
//	@Summary		Exchange a refresh token
//	@Description	Returns a new token pair carrying the user's current roles. The presented refresh token is not revoked.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest		true	"Refresh token"
//	@Success		200		{object}	authsdk.TokenPairResponse	"New token pair"
//	@Failure		400		{object}	authsdk.ErrorResponse		"Malformed request"
//	@Failure		401		{object}	authsdk.ErrorResponse		"Invalid refresh token"
//	@Failure		500		{object}	authsdk.ErrorResponse		"Internal server error"
//	@Router			/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.RefreshToken == "" {
		badRequest(w, "refreshToken is required")
		return
	}

	pair, err := h.AuthService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
	})
}

// HandleProfile handles GET /auth/profile
//
//	@Summary		Current user
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.User			"The signed-in user"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		404	{object}	authsdk.ErrorResponse	"User no longer exists"
//	@Router			/auth/profile [get].
func (h *AuthHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	view, err := h.IdentityService.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUser(view))
}

// HandleAdmin handles GET /auth/admin
//
//	@Summary		Admin check
//	@Description	Succeeds only for access tokens carrying the admin role.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.MessageResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		403	{object}	authsdk.ErrorResponse	"Not an admin"
//	@Router			/auth/admin [get].
func (h *AuthHandler) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "This is protected admin data"})
}

func toUser(v domain.IdentityView) authsdk.User {
	return authsdk.User{
		ID:              v.ID,
		Username:        v.Username,
		Email:           v.Email,
		IsEmailVerified: v.EmailVerified,
		Roles:           domain.RoleStrings(v.Roles),
		Profile: authsdk.UserProfile{
			FirstName: v.Profile.FirstName,
			LastName:  v.Profile.LastName,
			Bio:       v.Profile.Bio,
			AvatarURL: v.Profile.AvatarURL,
		},
		MFAEnabled: v.MFAEnabled,
	}
}
