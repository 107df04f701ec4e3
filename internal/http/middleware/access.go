// README: Carrier access-code middleware for price request routes.
package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lanepricing/internal/modules/pricerequest"
	"lanepricing/internal/types"
)

const AccessCodeHeader = "X-Access-Code"

type AccessChecker interface {
	CheckAccess(ctx context.Context, id types.ID, code string) error
}

// AccessCode admits a request when the code in the header, or the "code"
// query parameter, matches the carrier of the :id price request.
func AccessCode(checker AccessChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.GetHeader(AccessCodeHeader)
		if code == "" {
			code = c.Query("code")
		}
		if code == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing access code"})
			return
		}
		err := checker.CheckAccess(c.Request.Context(), types.ID(c.Param("id")), code)
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, pricerequest.ErrNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, pricerequest.ErrAccessDenied):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		default:
			c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
	}
}
