package http

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/aussiebroadwan/quill/internal/auth/domain"
	"github.com/aussiebroadwan/quill/internal/auth/service"
	"github.com/aussiebroadwan/quill/pkg/authsdk"
	"github.com/aussiebroadwan/quill/pkg/httpx"
	"github.com/aussiebroadwan/quill/pkg/idx"
	"github.com/aussiebroadwan/quill/pkg/slogx"
)

// UsersHandler serves registration and user administration.
type UsersHandler struct {
	IdentityService *service.IdentityService

	// Check evaluates an operation's policy against the request, writing
	// the denial itself.
	Check func(w http.ResponseWriter, r *http.Request, op Operation) (context.Context, bool)
}

// HandleCreate handles POST /users
//
//	@Summary		Register a user
//	@Description	Open registration. Requesting any role other than "user" requires an admin access token.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.CreateUserRequest	true	"New account"
//	@Success		201		{object}	authsdk.User				"Created user"
//	@Failure		400		{object}	authsdk.ErrorResponse		"Malformed request"
//	@Failure		401		{object}	authsdk.ErrorResponse		"Roles requested without a valid access token"
//	@Failure		403		{object}	authsdk.ErrorResponse		"Roles require an admin"
//	@Failure		409		{object}	authsdk.ErrorResponse		"Username or email already exists"
//	@Failure		429		{object}	authsdk.ErrorResponse		"Rate limit exceeded"
//	@Failure		500		{object}	authsdk.ErrorResponse		"Internal server error"
//	@Router			/users [post].
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CreateUserRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	roles, err := domain.ParseRoles(req.Roles)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	if elevated(roles) {
		if _, ok := h.Check(w, r, OpAssignRoles); !ok {
			slogx.FromContext(r.Context()).Warn("registration with elevated roles denied",
				slog.Any("roles", req.Roles),
			)
			return
		}
	}

	rr := service.RegisterRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Roles:    roles,
	}
	if req.Profile != nil {
		rr.Profile = toProfile(*req.Profile)
	}

	view, err := h.IdentityService.Register(r.Context(), rr)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toUser(view))
}

// HandleList handles GET /users
//
//	@Summary		List users
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		authsdk.User
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		403	{object}	authsdk.ErrorResponse	"Not an admin"
//	@Router			/users [get].
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	views, err := h.IdentityService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]authsdk.User, len(views))
	for i, v := range views {
		out[i] = toUser(v)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /users/{id}
//
//	@Summary		Get a user
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"User ID"
//	@Success		200	{object}	authsdk.User
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		403	{object}	authsdk.ErrorResponse	"Not an admin or editor"
//	@Failure		404	{object}	authsdk.ErrorResponse	"User not found"
//	@Router			/users/{id} [get].
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !idx.Valid(id) {
		authsdk.ErrNotFound.WriteError(w)
		return
	}

	view, err := h.IdentityService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUser(view))
}

// HandleUpdate handles PUT /users/{id}
//
//	@Summary		Update a user
//	@Description	Absent fields are left unchanged. A present password is rehashed. A present profile replaces the stored one. Changing the email clears isEmailVerified unless the request sets it.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"User ID"
//	@Param			request	body		authsdk.UpdateUserRequest	true	"Fields to change"
//	@Success		200		{object}	authsdk.User
//	@Failure		400		{object}	authsdk.ErrorResponse	"Malformed request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		403		{object}	authsdk.ErrorResponse	"Not an admin"
//	@Failure		404		{object}	authsdk.ErrorResponse	"User not found"
//	@Failure		409		{object}	authsdk.ErrorResponse	"Email already in use"
//	@Router			/users/{id} [put].
func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !idx.Valid(id) {
		authsdk.ErrNotFound.WriteError(w)
		return
	}

	var req authsdk.UpdateUserRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	upd := domain.IdentityUpdate{Email: req.Email, EmailVerified: req.IsEmailVerified}
	if req.Profile != nil {
		p := toProfile(*req.Profile)
		upd.Profile = &p
	}
	if req.Roles != nil {
		roles, err := domain.ParseRoles(req.Roles)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		upd.Roles = roles
	}
	if req.Password != nil {
		upd.Password = *req.Password
		upd.PasswordChanged = true
	}

	view, err := h.IdentityService.Update(r.Context(), id, upd)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUser(view))
}

// HandleDelete handles DELETE /users/{id}
//
//	@Summary		Delete a user
//	@Tags			Users
//	@Security		BearerAuth
//	@Param			id	path	string	true	"User ID"
//	@Success		204
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		403	{object}	authsdk.ErrorResponse	"Not an admin"
//	@Failure		404	{object}	authsdk.ErrorResponse	"User not found"
//	@Router			/users/{id} [delete].
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !idx.Valid(id) {
		authsdk.ErrNotFound.WriteError(w)
		return
	}

	if err := h.IdentityService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// elevated reports whether roles asks for more than the default role.
func elevated(roles []domain.Role) bool {
	return slices.ContainsFunc(roles, func(r domain.Role) bool {
		return !slices.Contains(domain.DefaultRoles, r)
	})
}

func toProfile(p authsdk.UserProfile) domain.Profile {
	return domain.Profile{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Bio:       p.Bio,
		AvatarURL: p.AvatarURL,
	}
}
