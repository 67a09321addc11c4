package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	mailbridge_errors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/tracing"
)

var statusByKind = map[string]int{
	"MalformedEmail":              http.StatusBadRequest,
	"MultipleSenders":             http.StatusBadRequest,
	"UnrecognizedCommand":         http.StatusBadRequest,
	"InvalidKeyFormat":            http.StatusBadRequest,
	"InvalidTransferAmount":       http.StatusBadRequest,
	"InvalidAccountID":            http.StatusBadRequest,
	"UnsupportedCharacter":        http.StatusBadRequest,
	"InvalidArguments":            http.StatusBadRequest,
	"SignatureVerificationFailed": http.StatusUnauthorized,
	"InvalidSignature":            http.StatusUnauthorized,
	"UnauthorizedCaller":          http.StatusUnauthorized,
	"ActorNoPermission":           http.StatusUnauthorized,
	"AccountNotFound":             http.StatusNotFound,
	"KeyNotFound":                 http.StatusNotFound,
	"MethodNotFound":              http.StatusNotFound,
	"ContractNotDeployed":         http.StatusNotFound,
	"AccountExists":               http.StatusConflict,
	"KeyExists":                   http.StatusConflict,
	"AlreadyInitialized":          http.StatusConflict,
	"InvalidNonce":                http.StatusConflict,
	"Unimplemented":               http.StatusNotImplemented,
}

// HTTPStatus maps an error to the status code of its taxonomy kind.
func HTTPStatus(err error) int {
	if status, ok := statusByKind[mailbridge_errors.Kind(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, span opentracing.Span, err error) {
	tracing.TraceErr(span, err)
	c.JSON(HTTPStatus(err), gin.H{
		"error":     err.Error(),
		"errorKind": mailbridge_errors.Kind(err),
	})
}
