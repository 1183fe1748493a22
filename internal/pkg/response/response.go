// Package response renders the API envelope every agroadvisor endpoint
// returns: {"code": 0, "message": "ok", "data": ...} on success and a
// non-zero service code with a short message on failure. HTTP status is
// always 200; clients switch on the envelope code.
package response

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"
)

type codeErr struct {
	code uint32
	msg  string
}

func (e codeErr) Error() string {
	return e.msg
}

func (e codeErr) Code() uint32 {
	return e.code
}

// AsCodeErr pairs an errcode value with a user-facing message so proxyutil
// can flatten it into the envelope.
func AsCodeErr(code uint32, msg string) error {
	return codeErr{code: code, msg: msg}
}

// Success writes data under the zero code.
func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

// Error writes the failure envelope for an errcode value.
func Error(c *gin.Context, code int, message string) {
	proxyutil.FailJson(c, 200, AsCodeErr(uint32(code), message))
}
