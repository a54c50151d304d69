package controllers

import (
	"net/http"
	"time"

	"github.com/echolist/backend-go/internal/database"
	"github.com/beego/beego/v2/server/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthController 健康检查与指标接口
type HealthController struct {
	web.Controller
}

// Health 健康检查，数据库不可达时返回503
func (c *HealthController) Health() {
	status := "ok"
	httpStatus := http.StatusOK

	if database.DB != nil {
		sqlDB, err := database.DB.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}
	}

	c.Ctx.Output.SetStatus(httpStatus)
	c.Data["json"] = map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Unix(),
	}
	c.ServeJSON()
}

// Metrics Prometheus 指标
func (c *HealthController) Metrics() {
	promhttp.Handler().ServeHTTP(c.Ctx.ResponseWriter, c.Ctx.Request)
}
