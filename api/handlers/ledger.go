package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailbridge/dto"
	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/keyring"
	"github.com/customeros/mailbridge/internal/ledger"
	"github.com/customeros/mailbridge/internal/tracing"
)

func GetAccount(viewer interfaces.LedgerViewer) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "Handlers.GetAccount")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		accountID, err := ledger.ParseAccountID(c.Param("id"))
		if err != nil {
			respondError(c, span, err)
			return
		}
		tracing.TagAccount(span, accountID.String())

		account, err := viewer.ViewAccount(ctx, accountID)
		if err != nil {
			respondError(c, span, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

// GetOutcomes returns every outcome of a transaction hash in block order, or the single
// outcome of a receipt id.
func GetOutcomes(viewer interfaces.LedgerViewer) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "Handlers.GetOutcomes")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		hash := c.Param("hash")
		tracing.TagTxHash(span, hash)

		outcomes, err := viewer.OutcomesByTx(ctx, hash)
		if err != nil {
			respondError(c, span, err)
			return
		}
		if len(outcomes) > 0 {
			c.JSON(http.StatusOK, gin.H{"outcomes": outcomes})
			return
		}

		outcome, err := viewer.Outcome(ctx, hash)
		if err != nil {
			respondError(c, span, err)
			return
		}
		if outcome == nil {
			// pending transactions have no outcome until the next block
			c.JSON(http.StatusNotFound, gin.H{"error": "outcome not found", "errorKind": "NotFound"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"outcomes": []interface{}{outcome}})
	}
}

// ListKeyring exposes the curated DKIM key-ring for auditing. Key records are omitted.
func ListKeyring(ring *keyring.Keyring) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries := ring.Entries()
		response := make([]dto.KeyringEntry, 0, len(entries))
		for _, e := range entries {
			response = append(response, dto.KeyringEntry{Selector: e.Selector, Domain: e.Domain})
		}
		c.JSON(http.StatusOK, response)
	}
}
