package middlewares

import "github.com/gin-gonic/gin"

func SecureHeaders(ctx *gin.Context) {
	h := ctx.Writer.Header()
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	ctx.Next()
}
