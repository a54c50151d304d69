package bootstrap

import (
	"log"

	"github.com/echolist/backend-go/app/controllers"
	"github.com/echolist/backend-go/internal/config"
	"github.com/echolist/backend-go/internal/database"
	"github.com/echolist/backend-go/internal/di"
	"github.com/echolist/backend-go/internal/events"
	"github.com/echolist/backend-go/internal/logger"
	"github.com/echolist/backend-go/internal/registry"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// App 持有需要在停机时清理的资源
type App struct {
	registry     registry.Registry
	cleanupTasks []func() error
}

// Init 装配配置、日志、数据库、DI容器和可选的外部组件
func Init() (*App, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	if err := logger.InitLogger(); err != nil {
		return nil, err
	}

	if err := config.LoadConfig(); err != nil {
		return nil, err
	}

	app := &App{}

	container := di.InitContainer()
	if err := di.RegisterProviders(container); err != nil {
		return nil, err
	}
	if err := controllers.InitDependencies(container); err != nil {
		return nil, err
	}
	app.cleanupTasks = append(app.cleanupTasks, func() error {
		if database.DB == nil {
			return nil
		}
		sqlDB, err := database.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	app.cleanupTasks = append(app.cleanupTasks, database.CloseRedis)

	// 条目事件流可选，失败降级
	cfg := config.AppConfig
	if cfg.Kafka.Enabled {
		if err := events.InitProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic); err != nil {
			logger.Warn("failed to initialize event producer, item events disabled", zap.Error(err))
		} else {
			app.cleanupTasks = append(app.cleanupTasks, func() error {
				return events.GetProducer().Close()
			})
		}
	}

	// 服务注册可选
	reg, err := registry.New(cfg)
	if err != nil {
		logger.Warn("failed to build service registry", zap.Error(err))
	} else if reg != nil {
		if err := reg.Register(); err != nil {
			logger.Warn("service registration failed", zap.Error(err))
		} else {
			app.registry = reg
		}
	}

	logger.Info("application bootstrapped", zap.String("env", cfg.Server.Env))
	return app, nil
}

// Shutdown 逆序执行清理任务
func (a *App) Shutdown() {
	if a.registry != nil {
		if err := a.registry.Deregister(); err != nil {
			logger.Warn("service deregistration failed", zap.Error(err))
		}
	}
	for i := len(a.cleanupTasks) - 1; i >= 0; i-- {
		if err := a.cleanupTasks[i](); err != nil {
			logger.Warn("cleanup task failed", zap.Error(err))
		}
	}
	logger.Sync()
}
