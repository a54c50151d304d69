package registry

import (
	"fmt"

	"github.com/echolist/backend-go/internal/config"
	"github.com/hashicorp/consul/api"
)

// consulRegistry 基于Consul的服务注册
type consulRegistry struct {
	client *api.Client
	cfg    *config.Config
}

func newConsulRegistry(cfg *config.Config) (Registry, error) {
	apiConfig := api.DefaultConfig()
	if cfg.Consul.Address != "" {
		apiConfig.Address = cfg.Consul.Address
	}

	client, err := api.NewClient(apiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	return &consulRegistry{client: client, cfg: cfg}, nil
}

func (r *consulRegistry) Register() error {
	hostname, port := serviceEndpoint(r.cfg)
	healthCheckURL := fmt.Sprintf("http://%s:%d/health", hostname, port)

	registration := &api.AgentServiceRegistration{
		ID:      r.cfg.Consul.ServiceID,
		Name:    r.cfg.Consul.ServiceName,
		Tags:    []string{"api", "go", "beego", r.cfg.Server.Env},
		Address: hostname,
		Port:    port,
		Check: &api.AgentServiceCheck{
			HTTP:                           healthCheckURL,
			Interval:                       "10s",
			Timeout:                        "3s",
			DeregisterCriticalServiceAfter: "30s",
		},
		Meta: map[string]string{
			"env": r.cfg.Server.Env,
		},
	}

	if err := r.client.Agent().ServiceRegister(registration); err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	logRegistered("consul", r.cfg.Consul.ServiceID, r.cfg.Consul.ServiceName, hostname, port)
	return nil
}

func (r *consulRegistry) Deregister() error {
	return r.client.Agent().ServiceDeregister(r.cfg.Consul.ServiceID)
}
