package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// browsers may reuse a preflight answer for this long
const corsPreflightMaxAge = 10 * time.Minute

// CORSMiddleware lets the dashboard frontend call the API with its bearer token.
// Only listed origins are echoed back; "*" in the list allows any origin.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}
	_, wildcard := allowed["*"]

	return func(ctx *gin.Context) {
		h := ctx.Writer.Header()
		h.Add("Vary", "Origin")

		origin := ctx.GetHeader("Origin")
		_, listed := allowed[origin]

		if origin != "" && (listed || wildcard) {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Expose-Headers", "X-Request-Id,ETag")

			if ctx.Request.Method == http.MethodOptions {
				h.Set("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Authorization,Content-Type,X-Request-Id,If-None-Match")
				h.Set("Access-Control-Max-Age", strconv.Itoa(int(corsPreflightMaxAge.Seconds())))
			}
		}

		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}

		ctx.Next()
	}
}
