package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/recruitment-portal/internal/response"
	"github.com/stemsi/recruitment-portal/internal/service"
	"github.com/stemsi/recruitment-portal/internal/session"
)

type errorMapping struct {
	target   error
	status   int
	code     response.ErrCode
	verbatim bool // send the error text instead of the code's default message
}

var errorMappings = []errorMapping{
	{service.ErrAccountExists, http.StatusConflict, response.ErrAccountExists, false},
	{service.ErrWeakCredential, http.StatusBadRequest, response.ErrWeakCredential, false},
	{service.ErrInvalidEmail, http.StatusBadRequest, response.ErrInvalidEmail, false},
	{service.ErrInvalidCredential, http.StatusUnauthorized, response.ErrInvalidCredentials, false},
	{service.ErrRateLimited, http.StatusTooManyRequests, response.ErrTooManyAttempts, false},
	{service.ErrProfileNotFound, http.StatusNotFound, response.ErrProfileNotFound, false},
	{service.ErrNoResult, http.StatusNotFound, response.ErrNoResult, false},
	{service.ErrInvalidAnswer, http.StatusBadRequest, response.ErrInvalidAnswer, false},
	{session.ErrNotYetAvailable, http.StatusConflict, response.ErrNotYetAvailable, true},
	{session.ErrWindowClosed, http.StatusConflict, response.ErrWindowClosed, true},
	{session.ErrAlreadySubmitted, http.StatusConflict, response.ErrAlreadySubmitted, true},
	{session.ErrTestCancelled, http.StatusForbidden, response.ErrTestCancelled, true},
	{session.ErrNotInProgress, http.StatusConflict, response.ErrNotInProgress, true},
}

// failWith writes the error envelope for a service error.
func failWith(c *gin.Context, log zerolog.Logger, err error) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, ve.Fields)
		return
	}

	var dup *service.DuplicateIdentifierError
	if errors.As(err, &dup) {
		response.FailWithFields(c, http.StatusConflict, response.ErrDuplicateIdentifier,
			map[string]string{dup.Field: capitalize(dup.Error())})
		return
	}

	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		if m.verbatim {
			response.FailWithMessage(c, m.status, m.code, capitalize(m.target.Error())+".")
		} else {
			response.Fail(c, m.status, m.code)
		}
		return
	}

	var pe *service.PersistenceError
	if errors.As(err, &pe) {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Store operation failed")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrPersistence)
		return
	}

	log.Error().Err(err).Str("path", c.FullPath()).Msg("Unhandled error")
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
