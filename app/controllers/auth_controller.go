package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/echolist/backend-go/internal/services"
)

// AuthController 注册登录接口
type AuthController struct {
	BaseController
	authService *services.AuthService
}

func (c *AuthController) Prepare() {
	c.authService = deps.auth
}

// Register 注册
func (c *AuthController) Register() {
	var req services.RegisterRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := c.authService.Register(c.Ctx.Request.Context(), req)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONCreated(resp)
}

// Login 登录
func (c *AuthController) Login() {
	var req services.LoginRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := c.authService.Login(c.Ctx.Request.Context(), req)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(resp)
}

// Me 当前用户
func (c *AuthController) Me() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	user, err := c.authService.GetCurrentUser(c.Ctx.Request.Context(), userID)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(user)
}
