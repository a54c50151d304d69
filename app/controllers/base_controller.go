package controllers

import (
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/echolist/backend-go/internal/errors"
	"github.com/echolist/backend-go/internal/logger"
	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"
)

// BaseController provides helpers for consistent JSON responses.
type BaseController struct {
	web.Controller
}

// JSON writes a JSON response with the supplied HTTP status code.
func (c *BaseController) JSON(status int, payload interface{}) {
	c.Ctx.Output.SetStatus(status)
	c.Data["json"] = payload
	c.ServeJSON()
}

// JSONSuccess writes a standard success envelope.
func (c *BaseController) JSONSuccess(data interface{}) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// JSONCreated writes a success envelope with 201.
func (c *BaseController) JSONCreated(data interface{}) {
	c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// JSONError writes an error envelope with message.
func (c *BaseController) JSONError(status int, message string) {
	c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// HandleError 将业务错误映射为HTTP响应
func (c *BaseController) HandleError(err error) {
	appErr := apperrors.Translate(err)
	if appErr.HTTPCode >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.Ctx.Request.RequestURI),
			zap.String("method", c.Ctx.Request.Method),
			zap.Error(err))
	}
	c.JSON(appErr.HTTPCode, map[string]interface{}{
		"success": false,
		"code":    string(appErr.Code),
		"error":   appErr.Message,
	})
}

// currentUserID 读取认证中间件写入的用户ID
func (c *BaseController) currentUserID() (uint, bool) {
	raw := c.Ctx.Input.GetData("user_id")
	if raw == nil {
		c.JSONError(http.StatusUnauthorized, "authentication required")
		return 0, false
	}
	userID, ok := raw.(uint)
	if !ok || userID == 0 {
		c.JSONError(http.StatusUnauthorized, "authentication required")
		return 0, false
	}
	return userID, true
}

// mustParseUintParam 解析路径参数为uint
func (c *BaseController) mustParseUintParam(name string) (uint, bool) {
	raw := strings.TrimSpace(c.Ctx.Input.Param(name))
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSONError(http.StatusBadRequest, "invalid id parameter")
		return 0, false
	}
	return uint(id), true
}
