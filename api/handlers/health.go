package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/customeros/mailbridge/interfaces"
)

// HealthCheck is a simple health check endpoint
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Status returns the state of every polled mailbox and the latest produced block.
func Status(imapService interfaces.IMAPService, viewer interfaces.LedgerViewer) gin.HandlerFunc {
	return func(c *gin.Context) {
		block, err := viewer.LatestBlock(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"mailboxes":   imapService.Status(),
			"latestBlock": block,
		})
	}
}
