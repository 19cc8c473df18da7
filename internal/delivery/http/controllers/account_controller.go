package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"eventsignup/internal/delivery/http/helpers"
	"eventsignup/internal/delivery/http/middleware"
	"eventsignup/internal/domain"
)

const birthDateLayout = "2006-01-02"

// SignUpRequest is the request body for POST /auth/signup.
// identity_key is only read when the identity gateway header is absent and body identities are allowed.
type SignUpRequest struct {
	IdentityKey string  `json:"identity_key"`
	DisplayName string  `json:"display_name" validate:"required"`
	Phone       string  `json:"phone" validate:"required"`
	BirthDate   string  `json:"birth_date" validate:"required,datetime=2006-01-02"`
	Gender      string  `json:"gender" validate:"required"`
	AvatarURL   *string `json:"avatar_url"`
}

// IdentityRequest is the request body for POST /auth/identity.
type IdentityRequest struct {
	IdentityKey string `json:"identity_key"`
}

// TokenResponse is the response body for POST /auth/identity.
type TokenResponse struct {
	Token     string          `json:"token"`
	TokenType string          `json:"token_type"`
	Account   *domain.Account `json:"account"`
}

// UpdateProfileRequest is the request body for PATCH /me. All fields are optional.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	Phone       *string `json:"phone"`
	BirthDate   *string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Gender      *string `json:"gender"`
	AvatarURL   *string `json:"avatar_url"`
}

// AccountSuccessResponse is the success response envelope for a single account.
type AccountSuccessResponse struct {
	Data  *domain.Account   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// TokenSuccessResponse is the success response envelope for POST /auth/identity (200).
type TokenSuccessResponse struct {
	Data  TokenResponse     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// AccountController handles sign up, identity exchange and profile endpoints.
type AccountController struct {
	Logger  *slog.Logger
	Service domain.AccountService
	// TrustIdentityHeader reads the identity key from middleware.IdentityHeader.
	TrustIdentityHeader bool
	// AllowBodyIdentity accepts identity_key from the request body. Development only.
	AllowBodyIdentity bool
}

// NewAccountController creates an AccountController with the given logger and service.
func NewAccountController(logger *slog.Logger, svc domain.AccountService, trustIdentityHeader, allowBodyIdentity bool) *AccountController {
	return &AccountController{
		Logger:              logger,
		Service:             svc,
		TrustIdentityHeader: trustIdentityHeader,
		AllowBodyIdentity:   allowBodyIdentity,
	}
}

func (c *AccountController) identityKey(r *http.Request, fromBody string) (string, bool) {
	if c.TrustIdentityHeader {
		if key := strings.TrimSpace(r.Header.Get(middleware.IdentityHeader)); key != "" {
			return key, true
		}
	}
	if c.AllowBodyIdentity {
		if key := strings.TrimSpace(fromBody); key != "" {
			return key, true
		}
	}
	return "", false
}

// SignUp godoc
// @Summary Sign up an identity
// @Description Creates the account bound to the verified identity. Identity keys listed in ADMIN_IDENTITY_KEYS become administrators.
// @Tags auth
// @Accept json
// @Produce json
// @Param X-Line-User-Id header string false "Verified identity key set by the gateway"
// @Param body body controllers.SignUpRequest true "Profile"
// @Success 201 {object} controllers.AccountSuccessResponse "data contains the created account"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/signup [post]
func (c *AccountController) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	key, ok := c.identityKey(r, req.IdentityKey)
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "missing identity")
		return
	}
	birth, _ := time.Parse(birthDateLayout, req.BirthDate)
	account, err := c.Service.SignUp(r.Context(), domain.SignUpInput{
		IdentityKey: key,
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
		BirthDate:   birth,
		Gender:      domain.Gender(strings.ToUpper(strings.TrimSpace(req.Gender))),
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, account)
}

// ExchangeIdentity godoc
// @Summary Exchange a verified identity for a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param X-Line-User-Id header string false "Verified identity key set by the gateway"
// @Param body body controllers.IdentityRequest false "Identity (development only)"
// @Success 200 {object} controllers.TokenSuccessResponse "data contains token, token_type and account"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (sign up first)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/identity [post]
func (c *AccountController) ExchangeIdentity(w http.ResponseWriter, r *http.Request) {
	var req IdentityRequest
	if r.ContentLength != 0 && !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	key, ok := c.identityKey(r, req.IdentityKey)
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "missing identity")
		return
	}
	token, account, err := c.Service.ExchangeIdentity(r.Context(), key)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, TokenResponse{Token: token, TokenType: "Bearer", Account: account})
}

// GetMe godoc
// @Summary Get the current account
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.AccountSuccessResponse "data contains the account"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /me [get]
func (c *AccountController) GetMe(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	account, err := c.Service.GetByID(r.Context(), accountID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, account)
}

// UpdateMe godoc
// @Summary Update the current account profile
// @Description Phone numbers are unique across accounts.
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body controllers.UpdateProfileRequest true "Fields to update"
// @Success 200 {object} controllers.AccountSuccessResponse "data contains the updated account"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /me [patch]
func (c *AccountController) UpdateMe(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	upd := domain.AccountProfileUpdate{
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
		AvatarURL:   req.AvatarURL,
	}
	if req.BirthDate != nil {
		birth, _ := time.Parse(birthDateLayout, *req.BirthDate)
		upd.BirthDate = &birth
	}
	if req.Gender != nil {
		g := domain.Gender(strings.ToUpper(strings.TrimSpace(*req.Gender)))
		upd.Gender = &g
	}
	account, err := c.Service.UpdateProfile(r.Context(), accountID, upd)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, account)
}

// ListAccounts godoc
// @Summary List accounts
// @Description Administrators only.
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 10, max 100)"
// @Success 200 {object} helpers.APIResponse "data contains a page of accounts"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /accounts [get]
func (c *AccountController) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	page, err := c.Service.List(r.Context(), accountID, helpers.ParsePagination(r))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, page)
}

// DeleteAccount godoc
// @Summary Delete an account
// @Description Administrators only. Removes the account with its events and registrations.
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains id and deleted=true"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /accounts/{id} [delete]
func (c *AccountController) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	if err := c.Service.Delete(r.Context(), accountID, id); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}
