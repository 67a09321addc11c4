package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailbridge/dto"
	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/models"
	"github.com/customeros/mailbridge/internal/tracing"
)

// ListMailboxes returns the poll status of every registered mailbox
func ListMailboxes(imapService interfaces.IMAPService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, imapService.Status())
	}
}

// AddMailbox persists a mailbox and starts polling it
func AddMailbox(imapService interfaces.IMAPService, mailboxRepository interfaces.MailboxRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "Handlers.AddMailbox")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var request dto.MailboxRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		mailbox := &models.Mailbox{
			ImapServer:   request.ImapServer,
			ImapPort:     request.ImapPort,
			ImapUsername: request.ImapUsername,
			ImapPassword: request.ImapPassword,
			ImapTLS:      request.ImapTLS == nil || *request.ImapTLS,
			Folders:      request.Folders,
			EmailAddress: request.EmailAddress,
			Enabled:      true,
		}
		if len(mailbox.Folders) == 0 {
			mailbox.Folders = []string{"INBOX"}
		}

		if err := mailboxRepository.SaveMailbox(ctx, mailbox); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		tracing.TagMailbox(span, mailbox.ID)

		if err := imapService.AddMailbox(ctx, mailbox); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"status": "mailbox added", "id": mailbox.ID})
	}
}
