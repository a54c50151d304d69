package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/echolist/backend-go/internal/services"
)

// SearchController 检索接口
type SearchController struct {
	BaseController
	searchService *services.SearchService
}

func (c *SearchController) Prepare() {
	c.searchService = deps.search
}

// SearchItems 条目级语义检索
func (c *SearchController) SearchItems() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	var req services.SearchRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := c.searchService.SearchItems(c.Ctx.Request.Context(), userID, req)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(resp)
}

// SearchChunks 文本块级向量检索
func (c *SearchController) SearchChunks() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	var req services.SearchRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := c.searchService.SearchChunks(c.Ctx.Request.Context(), userID, req)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(resp)
}

// SearchKeyword 关键词检索
func (c *SearchController) SearchKeyword() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	var req services.SearchRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	matches, err := c.searchService.SearchKeyword(c.Ctx.Request.Context(), userID, req)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{
		"matches": matches,
		"total":   len(matches),
	})
}
