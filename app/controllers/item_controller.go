package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/echolist/backend-go/internal/services"
)

// 语音上传大小上限 15MB
const maxVoiceUploadBytes = 15 << 20

// ItemController 条目接口
type ItemController struct {
	BaseController
	itemService *services.ItemService
}

func (c *ItemController) Prepare() {
	c.itemService = deps.items
}

// Create 创建条目
func (c *ItemController) Create() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	var req services.CreateItemRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := c.itemService.Create(c.Ctx.Request.Context(), userID, req)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONCreated(item)
}

// Get 查看条目
func (c *ItemController) Get() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}
	itemID, ok := c.mustParseUintParam(":id")
	if !ok {
		return
	}

	item, err := c.itemService.Get(c.Ctx.Request.Context(), userID, itemID)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(item)
}

// Update 更新条目
func (c *ItemController) Update() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}
	itemID, ok := c.mustParseUintParam(":id")
	if !ok {
		return
	}

	var req services.UpdateItemRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := c.itemService.Update(c.Ctx.Request.Context(), userID, itemID, req)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(item)
}

// Complete 标记任务完成
func (c *ItemController) Complete() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}
	itemID, ok := c.mustParseUintParam(":id")
	if !ok {
		return
	}

	done := true
	item, err := c.itemService.Update(c.Ctx.Request.Context(), userID, itemID, services.UpdateItemRequest{
		IsCompleted: &done,
	})
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(item)
}

// Delete 删除条目
func (c *ItemController) Delete() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}
	itemID, ok := c.mustParseUintParam(":id")
	if !ok {
		return
	}

	if err := c.itemService.Delete(c.Ctx.Request.Context(), userID, itemID); err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{"deleted": true})
}

// CreateVoice 语音创建条目，multipart 字段：audio + fallback_section_id
func (c *ItemController) CreateVoice() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	file, header, err := c.GetFile("audio")
	if err != nil {
		c.JSONError(http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	if header.Size > maxVoiceUploadBytes {
		c.JSONError(http.StatusRequestEntityTooLarge, "audio file too large")
		return
	}

	audio, err := io.ReadAll(io.LimitReader(file, maxVoiceUploadBytes))
	if err != nil {
		c.JSONError(http.StatusBadRequest, "failed to read audio file")
		return
	}

	fallbackID, err := strconv.ParseUint(c.GetString("fallback_section_id"), 10, 32)
	if err != nil || fallbackID == 0 {
		c.JSONError(http.StatusBadRequest, "fallback_section_id is required")
		return
	}

	resp, err := c.itemService.CreateVoice(c.Ctx.Request.Context(), userID, services.VoiceItemRequest{
		Audio:             audio,
		Filename:          header.Filename,
		ContentType:       header.Header.Get("Content-Type"),
		FallbackSectionID: uint(fallbackID),
	})
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONCreated(resp)
}
