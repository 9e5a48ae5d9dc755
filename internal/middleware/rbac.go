package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/recruitment-portal/internal/response"
	"github.com/stemsi/recruitment-portal/internal/service"
)

// RequireTokenType checks that the JWT was issued for one of the given roles.
func RequireTokenType(types ...service.TokenType) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		for _, t := range types {
			if claims.TokenType == t {
				c.Next()
				return
			}
		}

		if claims.TokenType == service.TokenTypeAdmin {
			response.AbortFail(c, http.StatusForbidden, response.ErrCandidateAccessOnly)
			return
		}
		response.AbortFail(c, http.StatusForbidden, response.ErrAdminAccessOnly)
	}
}
