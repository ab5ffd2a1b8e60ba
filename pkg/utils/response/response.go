// Package response provides the unified API response envelope.
package response

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/pawcare/pkg/errors"
	"github.com/kart-io/pawcare/pkg/infra/middleware/requestid"
)

// Response is the unified API response structure.
type Response struct {
	// Code is the business error code (0 = success)
	Code int `json:"code"`

	// Message is a human-readable message
	Message string `json:"message"`

	// Data contains the response payload
	Data interface{} `json:"data,omitempty"`

	// RequestID is the unique request identifier for tracing
	RequestID string `json:"request_id,omitempty"`
}

// Success creates a successful response with data.
func Success(data interface{}) *Response {
	return &Response{Code: 0, Message: "success", Data: data}
}

// Err creates an error response from an Errno.
func Err(e *errors.Errno, lang string) *Response {
	return &Response{Code: e.Code, Message: e.Message(lang)}
}

// OK writes a 200 response carrying data.
func OK(c *gin.Context, data interface{}) {
	resp := Success(data)
	resp.RequestID = requestid.Get(c.Request.Context())
	c.JSON(http.StatusOK, resp)
}

// Fail writes the error as an envelope, using the Errno HTTP status.
// Errors that are not Errno are reported as internal errors.
func Fail(c *gin.Context, err error) {
	FailWithData(c, err, nil)
}

// FailWithData is Fail with an additional payload, such as validation details.
func FailWithData(c *gin.Context, err error, data interface{}) {
	e := errors.FromError(err)
	resp := Err(e, Lang(c))
	resp.Data = data
	resp.RequestID = requestid.Get(c.Request.Context())
	c.AbortWithStatusJSON(e.HTTPStatus(), resp)
}

// Lang picks the message language from Accept-Language.
func Lang(c *gin.Context) string {
	if strings.HasPrefix(strings.ToLower(c.GetHeader("Accept-Language")), "zh") {
		return "zh"
	}
	return "en"
}
