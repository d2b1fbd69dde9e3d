package middlewares

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// RequireSelf lets a caller touch only the user resource named by their own token.
// Must run after RequireAuth.
func (m *AuthMiddleware) RequireSelf(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		callerID, ok := UserIDFromContext(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "Missing identity context")
			return
		}

		target, err := strconv.ParseInt(c.Param(param), 10, 64)
		if err != nil || target <= 0 {
			abortWithError(c, http.StatusBadRequest, "invalid_id", "User id must be a positive integer")
			return
		}

		if target != callerID {
			abortWithError(c, http.StatusForbidden, "forbidden", "You can only access your own profile")
			return
		}
		c.Next()
	}
}
