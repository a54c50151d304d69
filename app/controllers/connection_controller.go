package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/echolist/backend-go/internal/models"
	"github.com/echolist/backend-go/internal/services"
)

// ConnectionController 用户关系接口
type ConnectionController struct {
	BaseController
	connectionService *services.ConnectionService
}

func (c *ConnectionController) Prepare() {
	c.connectionService = deps.connections
}

// Create 发起关系
func (c *ConnectionController) Create() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	var req services.CreateConnectionRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	conn, err := c.connectionService.Create(c.Ctx.Request.Context(), userID, req)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONCreated(conn)
}

// List 列出关系，支持 type/status 查询参数
func (c *ConnectionController) List() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	var connType *models.ConnectionType
	if raw := c.GetString("type"); raw != "" {
		t := models.ConnectionType(raw)
		connType = &t
	}
	var status *models.ConnectionStatus
	if raw := c.GetString("status"); raw != "" {
		s := models.ConnectionStatus(raw)
		status = &s
	}

	connections, err := c.connectionService.List(c.Ctx.Request.Context(), userID, connType, status)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{
		"connections": connections,
		"total":       len(connections),
	})
}

// Get 查看单条关系
func (c *ConnectionController) Get() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}
	connectionID, ok := c.mustParseUintParam(":id")
	if !ok {
		return
	}

	conn, err := c.connectionService.Get(c.Ctx.Request.Context(), userID, connectionID)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(conn)
}

// UpdateType 修改关系类型
func (c *ConnectionController) UpdateType() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}
	connectionID, ok := c.mustParseUintParam(":id")
	if !ok {
		return
	}

	var req struct {
		ConnectionType models.ConnectionType `json:"connection_type"`
	}
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	conn, err := c.connectionService.UpdateType(c.Ctx.Request.Context(), userID, connectionID, req.ConnectionType)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(conn)
}

// Accept 接受关系
func (c *ConnectionController) Accept() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}
	connectionID, ok := c.mustParseUintParam(":id")
	if !ok {
		return
	}

	conn, err := c.connectionService.Accept(c.Ctx.Request.Context(), userID, connectionID)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(conn)
}

// Delete 删除关系
func (c *ConnectionController) Delete() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}
	connectionID, ok := c.mustParseUintParam(":id")
	if !ok {
		return
	}

	if err := c.connectionService.Delete(c.Ctx.Request.Context(), userID, connectionID); err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{"deleted": true})
}
