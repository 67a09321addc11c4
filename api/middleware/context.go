package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/customeros/mailbridge/internal/utils"
)

const RequestIdHeader = "X-Request-Id"

// CustomContextMiddleware adds the app source and a request id to all requests.
// A caller supplied X-Request-Id is kept, otherwise one is generated.
func CustomContextMiddleware(appSource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestId := c.GetHeader(RequestIdHeader)
		if requestId == "" {
			requestId = utils.GenerateID("req")
		}
		c.Set("RequestId", requestId)
		c.Header(RequestIdHeader, requestId)

		ctx := utils.WithCustomContextFromGinRequest(c, appSource)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
