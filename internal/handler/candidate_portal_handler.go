package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/recruitment-portal/internal/middleware"
	"github.com/stemsi/recruitment-portal/internal/model"
	"github.com/stemsi/recruitment-portal/internal/response"
	"github.com/stemsi/recruitment-portal/internal/service"
)

// CandidatePortalHandler handles candidate-facing test endpoints.
type CandidatePortalHandler struct {
	identity *service.IdentityService
	tests    *service.TestSessionService
	log      zerolog.Logger
}

// NewCandidatePortalHandler creates a new CandidatePortalHandler.
func NewCandidatePortalHandler(
	identity *service.IdentityService,
	tests *service.TestSessionService,
	log zerolog.Logger,
) *CandidatePortalHandler {
	return &CandidatePortalHandler{
		identity: identity,
		tests:    tests,
		log:      log.With().Str("component", "candidate_portal_handler").Logger(),
	}
}

// Profile godoc
// GET /api/v1/candidate/profile
func (h *CandidatePortalHandler) Profile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	profile, err := h.identity.Profile(c.Request.Context(), claims.UserID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, profile)
}

// Questions godoc
// GET /api/v1/candidate/questions
// Returns the question bank without correct answers.
func (h *CandidatePortalHandler) Questions(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"questions": h.tests.Bank().ForCandidate()})
}

// Session godoc
// GET /api/v1/candidate/session
// Returns the current phase and countdown. Covers page reloads.
func (h *CandidatePortalHandler) Session(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	view, err := h.tests.Status(c.Request.Context(), claims.UserID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// Start godoc
// POST /api/v1/candidate/session/start
func (h *CandidatePortalHandler) Start(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	view, err := h.tests.Start(c.Request.Context(), claims.UserID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// Hidden godoc
// POST /api/v1/candidate/session/hidden
// Reports that the test page lost visibility.
func (h *CandidatePortalHandler) Hidden(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	outcome, err := h.tests.RecordHidden(c.Request.Context(), claims.UserID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, outcome)
}

// Suspend godoc
// POST /api/v1/candidate/session/suspend
// Asks whether leaving the page needs a confirmation prompt.
func (h *CandidatePortalHandler) Suspend(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	confirm, err := h.tests.SuspendAttempt(c.Request.Context(), claims.UserID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	data := gin.H{"confirm": confirm}
	if confirm {
		data["message"] = service.LeaveMessage
	}
	response.Success(c, http.StatusOK, data)
}

// Submit godoc
// POST /api/v1/candidate/session/submit
// Scores the submitted answers and stores the result.
func (h *CandidatePortalHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	outcome, err := h.tests.Submit(c.Request.Context(), claims.UserID, req.Answers, false)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	status := http.StatusOK
	if outcome.InProgress {
		status = http.StatusAccepted
	}
	response.Success(c, status, outcome)
}
