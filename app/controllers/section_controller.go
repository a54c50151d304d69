package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/echolist/backend-go/internal/services"
)

// SectionController 内容分区接口
type SectionController struct {
	BaseController
	sectionService *services.SectionService
	itemService    *services.ItemService
}

func (c *SectionController) Prepare() {
	c.sectionService = deps.sections
	c.itemService = deps.items
}

// Create 创建分区
func (c *SectionController) Create() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	var req services.CreateSectionRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	section, err := c.sectionService.Create(c.Ctx.Request.Context(), userID, req)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONCreated(section)
}

// List 自有分区列表
func (c *SectionController) List() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	sections, err := c.sectionService.ListOwn(c.Ctx.Request.Context(), userID)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{
		"sections": sections,
		"total":    len(sections),
	})
}

// ListAccessible 全部可见分区（自有 + 共享）
func (c *SectionController) ListAccessible() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	sections, err := c.sectionService.ListAccessible(c.Ctx.Request.Context(), userID)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{
		"sections": sections,
		"total":    len(sections),
	})
}

// Get 查看分区
func (c *SectionController) Get() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}
	sectionID, ok := c.mustParseUintParam(":id")
	if !ok {
		return
	}

	section, err := c.sectionService.Get(c.Ctx.Request.Context(), userID, sectionID)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(section)
}

// Update 更新分区
func (c *SectionController) Update() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}
	sectionID, ok := c.mustParseUintParam(":id")
	if !ok {
		return
	}

	var req services.UpdateSectionRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	section, err := c.sectionService.Update(c.Ctx.Request.Context(), userID, sectionID, req)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(section)
}

// Delete 删除分区
func (c *SectionController) Delete() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}
	sectionID, ok := c.mustParseUintParam(":id")
	if !ok {
		return
	}

	if err := c.sectionService.Delete(c.Ctx.Request.Context(), userID, sectionID); err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{"deleted": true})
}

// SetAccessRule 设置访问规则（同组合覆盖）
func (c *SectionController) SetAccessRule() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}
	sectionID, ok := c.mustParseUintParam(":id")
	if !ok {
		return
	}

	var req services.AccessRuleRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	rule, err := c.sectionService.SetAccessRule(c.Ctx.Request.Context(), userID, sectionID, req)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(rule)
}

// ListAccessRules 查看访问规则
func (c *SectionController) ListAccessRules() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}
	sectionID, ok := c.mustParseUintParam(":id")
	if !ok {
		return
	}

	rules, err := c.sectionService.ListAccessRules(c.Ctx.Request.Context(), userID, sectionID)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{
		"rules": rules,
		"total": len(rules),
	})
}

// ListItems 分区内条目
func (c *SectionController) ListItems() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}
	sectionID, ok := c.mustParseUintParam(":id")
	if !ok {
		return
	}

	items, err := c.itemService.ListBySection(c.Ctx.Request.Context(), userID, sectionID)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{
		"items": items,
		"total": len(items),
	})
}
