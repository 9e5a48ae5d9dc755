package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/recruitment-portal/internal/middleware"
	"github.com/stemsi/recruitment-portal/internal/model"
	"github.com/stemsi/recruitment-portal/internal/response"
	"github.com/stemsi/recruitment-portal/internal/service"
	"github.com/stemsi/recruitment-portal/internal/validator"
)

// AuthHandler handles the identity gate endpoints.
type AuthHandler struct {
	identity *service.IdentityService
	log      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(identity *service.IdentityService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		identity: identity,
		log:      log.With().Str("component", "auth_handler").Logger(),
	}
}

// Signup godoc
// POST /api/v1/auth/signup
// Registers a candidate and returns a session token.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req model.SignupRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.identity.Signup(c.Request.Context(), req)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// Login godoc
// POST /api/v1/auth/login
// Validates email + password. A newer login replaces any previous session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.identity.Login(c.Request.Context(), req)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Logout godoc
// POST /api/v1/auth/logout
// Ends the session. Succeeds for missing or already invalid tokens.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.identity.Logout(c.Request.Context(), middleware.BearerToken(c)); err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Message(c, http.StatusOK, "Logged out")
}

// Me godoc
// GET /api/v1/auth/me
// Returns the current user, or null data when not signed in.
func (h *AuthHandler) Me(c *gin.Context) {
	result, err := h.identity.CurrentUser(c.Request.Context(), middleware.BearerToken(c))
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	if result == nil {
		response.Success(c, http.StatusOK, nil)
		return
	}
	response.Success(c, http.StatusOK, result)
}
