// Package response 统一的 HTTP JSON 错误响应
package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/marketledger/pkg/logger"
	"github.com/wyfcoding/marketledger/pkg/utils"
)

// ErrorBody 错误响应体
type ErrorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Status    int    `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Abort 以指定状态码和消息终止请求
func Abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{
		Error:     http.StatusText(status),
		Message:   message,
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Error 按错误码映射状态码。内部错误只记录日志，不向调用方暴露细节
func Error(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)
	message := err.Error()
	if ew, ok := utils.AsErrorWrapper(err); ok {
		message = ew.Message
	}
	switch {
	case status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable:
		logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		message = "an unexpected error occurred"
	case status == http.StatusServiceUnavailable:
		logger.Warn(c.Request.Context(), "upstream unavailable", "path", c.FullPath(), "error", err)
	}
	Abort(c, status, message)
}
