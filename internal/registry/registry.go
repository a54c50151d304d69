package registry

import (
	"fmt"
	"os"
	"strings"

	"github.com/echolist/backend-go/internal/config"
	"github.com/echolist/backend-go/internal/logger"
	"go.uber.org/zap"
)

// Registry 服务注册抽象，provider 由配置选择
type Registry interface {
	Register() error
	Deregister() error
}

// noopRegistry 未启用注册时的空实现
type noopRegistry struct{}

func (noopRegistry) Register() error   { return nil }
func (noopRegistry) Deregister() error { return nil }

// New 按配置创建服务注册器
func New(cfg *config.Config) (Registry, error) {
	switch strings.ToLower(cfg.Registry.Provider) {
	case "consul":
		return newConsulRegistry(cfg)
	case "etcd":
		return newEtcdRegistry(cfg)
	case "", "none":
		logger.Info("service registry disabled")
		return noopRegistry{}, nil
	default:
		return nil, fmt.Errorf("unknown registry provider: %s", cfg.Registry.Provider)
	}
}

// serviceEndpoint 注册用的地址和端口
func serviceEndpoint(cfg *config.Config) (string, int) {
	hostname := os.Getenv("SERVICE_HOST")
	if hostname == "" {
		hostname = "localhost"
	}

	port := 8000
	if cfg.Server.Port != "" {
		if p, err := parseInt(cfg.Server.Port); err == nil {
			port = p
		}
	}
	return hostname, port
}

func parseInt(s string) (int, error) {
	var result int
	_, err := fmt.Sscanf(s, "%d", &result)
	return result, err
}

func logRegistered(provider, serviceID, serviceName, address string, port int) {
	logger.Info("service registered",
		zap.String("provider", provider),
		zap.String("service_id", serviceID),
		zap.String("service_name", serviceName),
		zap.String("address", address),
		zap.Int("port", port))
}
