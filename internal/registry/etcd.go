package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/echolist/backend-go/internal/config"
	"github.com/echolist/backend-go/internal/logger"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

const etcdLeaseTTL = 30 // 秒

// etcdServiceInfo 注册到etcd的服务描述
type etcdServiceInfo struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Address     string            `json:"address"`
	Port        int               `json:"port"`
	HealthCheck string            `json:"health_check"`
	Tags        []string          `json:"tags"`
	Meta        map[string]string `json:"meta"`
}

// etcdRegistry 基于etcd租约的服务注册
type etcdRegistry struct {
	client     *clientv3.Client
	cfg        *config.Config
	serviceKey string
	leaseID    clientv3.LeaseID
}

func newEtcdRegistry(cfg *config.Config) (Registry, error) {
	endpoints := cfg.Etcd.Endpoints
	if len(endpoints) == 0 {
		endpoints = []string{"http://localhost:2379"}
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	serviceKey := fmt.Sprintf("/services/%s/instances/%s", cfg.Etcd.ServiceName, cfg.Etcd.ServiceID)
	return &etcdRegistry{
		client:     client,
		cfg:        cfg,
		serviceKey: serviceKey,
	}, nil
}

func (r *etcdRegistry) Register() error {
	hostname, port := serviceEndpoint(r.cfg)

	info := etcdServiceInfo{
		ID:          r.cfg.Etcd.ServiceID,
		Name:        r.cfg.Etcd.ServiceName,
		Address:     hostname,
		Port:        port,
		HealthCheck: fmt.Sprintf("http://%s:%d/health", hostname, port),
		Tags:        []string{"api", "go", "beego", r.cfg.Server.Env},
		Meta: map[string]string{
			"env": r.cfg.Server.Env,
		},
	}

	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal service info: %w", err)
	}

	ctx := context.Background()
	lease, err := r.client.Grant(ctx, etcdLeaseTTL)
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}
	r.leaseID = lease.ID

	if _, err := r.client.Put(ctx, r.serviceKey, string(data), clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	keepAlive, err := r.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return fmt.Errorf("failed to keep lease alive: %w", err)
	}

	go func() {
		for ka := range keepAlive {
			if ka != nil {
				logger.Debug("service lease kept alive",
					zap.String("service_id", r.cfg.Etcd.ServiceID),
					zap.Int64("lease_id", int64(ka.ID)))
			}
		}
		logger.Warn("etcd keep-alive channel closed",
			zap.String("service_id", r.cfg.Etcd.ServiceID))
	}()

	logRegistered("etcd", r.cfg.Etcd.ServiceID, r.cfg.Etcd.ServiceName, hostname, port)
	return nil
}

func (r *etcdRegistry) Deregister() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if r.leaseID != 0 {
		if _, err := r.client.Revoke(ctx, r.leaseID); err != nil {
			logger.Warn("failed to revoke etcd lease", zap.Error(err))
		}
	}
	if _, err := r.client.Delete(ctx, r.serviceKey); err != nil {
		return fmt.Errorf("failed to deregister service: %w", err)
	}
	return r.client.Close()
}
