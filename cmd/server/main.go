package main

import (
	"log"
	"strconv"

	"github.com/echolist/backend-go/app/bootstrap"
	"github.com/echolist/backend-go/app/router"
	"github.com/echolist/backend-go/internal/auth"
	"github.com/echolist/backend-go/internal/config"
	"github.com/echolist/backend-go/internal/di"
	"github.com/echolist/backend-go/internal/logger"
	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"
)

func main() {
	app, err := bootstrap.Init()
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer app.Shutdown()

	var jwtService *auth.JWTService
	if err := di.Invoke(func(jwt *auth.JWTService) {
		jwtService = jwt
	}); err != nil {
		log.Fatalf("failed to resolve jwt service: %v", err)
	}

	router.Init(jwtService)

	web.BConfig.AppName = "EchoList"
	web.BConfig.CopyRequestBody = true
	if port, err := strconv.Atoi(config.AppConfig.Server.Port); err == nil {
		web.BConfig.Listen.HTTPPort = port
	}

	logger.Info("starting EchoList server", zap.Int("port", web.BConfig.Listen.HTTPPort))
	web.Run()
}
