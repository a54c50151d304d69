package controllers

import (
	"github.com/echolist/backend-go/internal/services"
)

// HomeController 首页聚合接口
type HomeController struct {
	BaseController
	homeService *services.HomeService
}

func (c *HomeController) Prepare() {
	c.homeService = deps.home
}

// Feed 首页三桶聚合
func (c *HomeController) Feed() {
	userID, ok := c.currentUserID()
	if !ok {
		return
	}

	feed, err := c.homeService.Feed(c.Ctx.Request.Context(), userID)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(feed)
}
