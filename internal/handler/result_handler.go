package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/recruitment-portal/internal/middleware"
	"github.com/stemsi/recruitment-portal/internal/model"
	"github.com/stemsi/recruitment-portal/internal/response"
	"github.com/stemsi/recruitment-portal/internal/service"
)

// ResultHandler serves test results to candidates and administrators.
type ResultHandler struct {
	results *service.ResultService
	log     zerolog.Logger
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(results *service.ResultService, log zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		results: results,
		log:     log.With().Str("component", "result_handler").Logger(),
	}
}

// Current godoc
// GET /api/v1/candidate/result?detailed=true
// Returns the candidate's result with grade and optional per-question breakdown.
func (h *ResultHandler) Current(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	detailed, _ := strconv.ParseBool(c.DefaultQuery("detailed", "false"))
	view, err := h.results.Current(c.Request.Context(), claims.UserID, detailed)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// History godoc
// GET /api/v1/candidate/results
func (h *ResultHandler) History(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	views, err := h.results.History(c.Request.Context(), claims.UserID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	if views == nil {
		views = []model.ResultView{}
	}
	response.Success(c, http.StatusOK, gin.H{"results": views})
}

// All godoc
// GET /api/v1/admin/results
// Lists every stored result, newest first.
func (h *ResultHandler) All(c *gin.Context) {
	views, err := h.results.All(c.Request.Context())
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	if views == nil {
		views = []model.ResultView{}
	}
	response.Success(c, http.StatusOK, gin.H{"results": views})
}
