package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/library-catalog/internal/app/requestscope"
)

// RequestScope opens a requestscope.Scope for the request, so a library
// named twice in one request is loaded from the store once.
func RequestScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := requestscope.WithScope(c.Request.Context(), requestscope.New())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
