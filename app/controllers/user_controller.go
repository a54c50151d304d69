package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/echolist/backend-go/internal/services"
)

// UserController 用户资料接口
type UserController struct {
	BaseController
	userService *services.UserService
}

func (c *UserController) Prepare() {
	c.userService = deps.users
}

// GetProfile 查看资料
func (c *UserController) GetProfile() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	user, err := c.userService.GetProfile(c.Ctx.Request.Context(), userID)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(user)
}

// UpdateProfile 更新资料
func (c *UserController) UpdateProfile() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	var req services.UpdateProfileRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := c.userService.UpdateProfile(c.Ctx.Request.Context(), userID, req)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(user)
}
