package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"studyarchive/internal/apperr"
	"studyarchive/internal/logging"
)

type ErrorBody struct {
	Code    apperr.Kind `json:"code"`
	Message string      `json:"message"`
}

// Envelope is the shape of every API response.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// OK writes a success envelope.
func OK(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// Fail aborts the request with an error envelope. Errors without a kind are internal.
func Fail(c *gin.Context, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		ae = apperr.Wrap(apperr.Internal, "internal error", err)
	}
	if ae.Kind == apperr.StoreUnavailable || ae.Kind == apperr.Internal {
		logging.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.AbortWithStatusJSON(ae.Kind.HTTPStatus(), Envelope{
		Success: false,
		Error:   &ErrorBody{Code: ae.Kind, Message: ae.PublicMessage()},
	})
}
