package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/echolist/backend-go/internal/services"
)

// AIController 内容向量化接口
type AIController struct {
	BaseController
	aiService *services.AIService
}

func (c *AIController) Prepare() {
	c.aiService = deps.ai
}

// Vectorize 将任意文本去重、分块、向量化入库，可选分类
func (c *AIController) Vectorize() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	var req services.VectorizeRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := c.aiService.Vectorize(c.Ctx.Request.Context(), userID, req)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(result)
}
