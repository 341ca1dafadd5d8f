package response

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"

	"github.com/worldsun-app/coopeartion-project/internal/pkg/errcode"
	appErr "github.com/worldsun-app/coopeartion-project/internal/pkg/errors"
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

func AsCodeErr(code uint32, msg string) error {
	return codeErr{code: code, msg: msg}
}

var sentinelCodes = []struct {
	err  error
	code int
	msg  string
}{
	{appErr.ErrNotFound, errcode.ErrNotFound, "not found"},
	{appErr.ErrInvalid, errcode.ErrInvalid, "invalid request"},
	{appErr.ErrConflict, errcode.ErrConflict, "conflict"},
	{appErr.ErrAmbiguous, errcode.ErrAmbiguous, "ambiguous"},
	{appErr.ErrTooMany, errcode.ErrTooMany, "too many requests"},
	{appErr.ErrUnavailable, errcode.ErrAIUnavailable, "backend unavailable"},
}

// CodeOf maps an error wrapping one of the pkg/errors sentinels to its
// client facing code and message.
func CodeOf(err error) (int, string) {
	for _, s := range sentinelCodes {
		if errors.Is(err, s.err) {
			return s.code, s.msg
		}
	}
	return errcode.ErrInternal, "internal error"
}

func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

func Error(c *gin.Context, code int, message string) {
	proxyutil.FailJson(c, 200, AsCodeErr(uint32(code), message))
}

func Fail(c *gin.Context, err error) {
	code, msg := CodeOf(err)
	Error(c, code, msg)
}
