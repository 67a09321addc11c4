package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/mailbridge/dto"
	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/enum"
	mailbridge_errors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/ledger"
	"github.com/customeros/mailbridge/internal/tracing"
)

const maxEmailSize = 10 << 20

// SubmitEmail relays a raw RFC 5322 message to the bridge contract.
func SubmitEmail(submitter interfaces.Submitter) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "Handlers.SubmitEmail")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		raw, err := readEmail(c)
		if err != nil {
			respondError(c, span, err)
			return
		}

		response, err := submitter.SubmitEmail(ctx, &dto.EmailReceived{
			Source: enum.EmailImportAPI,
			Raw:    raw,
		})
		if err != nil {
			respondError(c, span, err)
			return
		}

		tracing.TagTxHash(span, response.TxHash)
		c.JSON(http.StatusAccepted, response)
	}
}

// VerifyEmail runs authentication, identity mapping and command parsing without
// submitting anything.
func VerifyEmail(verifier interfaces.EmailVerifier, bridgeAccount ledger.AccountID) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "Handlers.VerifyEmail")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		raw, err := readEmail(c)
		if err != nil {
			respondError(c, span, err)
			return
		}

		c.JSON(http.StatusOK, verifier.Verify(raw, bridgeAccount))
	}
}

func readEmail(c *gin.Context) ([]byte, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxEmailSize))
	if err != nil {
		return nil, errors.Wrap(mailbridge_errors.ErrMalformedEmail, err.Error())
	}
	if len(raw) == 0 {
		return nil, errors.Wrap(mailbridge_errors.ErrMalformedEmail, "empty body")
	}
	return raw, nil
}
