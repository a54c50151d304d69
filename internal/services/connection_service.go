package services

import (
	"context"
	"fmt"

	"github.com/echolist/backend-go/internal/authz"
	apperrors "github.com/echolist/backend-go/internal/errors"
	"github.com/echolist/backend-go/internal/logger"
	"github.com/echolist/backend-go/internal/models"
	"github.com/echolist/backend-go/internal/repository"
	"go.uber.org/zap"
)

// ConnectionService 用户关系服务
// 变更守卫：改类型只许发起方，接受只许接收方，删除任一端都可以。
type ConnectionService struct {
	connections repository.ConnectionRepository
	users       repository.UserRepository
	resolver    *authz.Resolver
}

// CreateConnectionRequest 创建关系请求
type CreateConnectionRequest struct {
	TargetUserID   uint                  `json:"target_user_id" validate:"required"`
	ConnectionType models.ConnectionType `json:"connection_type" validate:"required"`
}

// NewConnectionService 创建关系服务
func NewConnectionService(connections repository.ConnectionRepository, users repository.UserRepository, resolver *authz.Resolver) *ConnectionService {
	return &ConnectionService{connections: connections, users: users, resolver: resolver}
}

// Create 发起关系，初始状态 Pending
// 自连接与重复连接（任一方向）都以冲突拒绝，重复时报告已有状态。
func (s *ConnectionService) Create(ctx context.Context, initiatorID uint, req CreateConnectionRequest) (*models.Connection, error) {
	if !models.ValidConnectionType(req.ConnectionType) {
		return nil, apperrors.NewInvalidInputError("connection_type", "must be Family, Friend or Colleague")
	}
	if req.TargetUserID == initiatorID {
		return nil, apperrors.NewConflictError("cannot create a connection with yourself")
	}

	target, err := s.users.GetByID(ctx, req.TargetUserID)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to look up target user").WithCause(err)
	}
	if target == nil {
		return nil, apperrors.NewNotFoundError("user")
	}

	existing, err := s.connections.GetBetween(ctx, initiatorID, req.TargetUserID)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to check existing connection").WithCause(err)
	}
	if existing != nil {
		// 冲突信息带上已有状态，调用方可据此决定后续动作
		return nil, apperrors.NewConflictError(
			fmt.Sprintf("connection already exists with status %s", existing.Status))
	}

	conn := &models.Connection{
		UserAID:        initiatorID,
		UserBID:        req.TargetUserID,
		ConnectionType: req.ConnectionType,
		Status:         models.ConnectionPending,
	}
	if err := s.connections.Create(ctx, conn); err != nil {
		// 并发创建竞态由唯一约束兜底
		return nil, apperrors.Translate(err)
	}

	s.resolver.InvalidateActor(ctx, initiatorID, req.TargetUserID)
	logger.Info("connection created",
		zap.Uint("connection_id", conn.ConnectionID),
		zap.Uint("initiator", initiatorID),
		zap.Uint("target", req.TargetUserID),
		zap.String("type", string(req.ConnectionType)))
	return conn, nil
}

// Get 获取关系，仅限关系双方
// 存在性先于权限检查。
func (s *ConnectionService) Get(ctx context.Context, actorID, connectionID uint) (*models.Connection, error) {
	conn, err := s.getExisting(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if !conn.Involves(actorID) {
		return nil, apperrors.NewAccessDeniedError("not a participant of this connection")
	}
	return conn, nil
}

// List 列出 actor 参与的关系，可按类型/状态过滤
func (s *ConnectionService) List(ctx context.Context, actorID uint, connType *models.ConnectionType, status *models.ConnectionStatus) ([]models.Connection, error) {
	if connType != nil && !models.ValidConnectionType(*connType) {
		return nil, apperrors.NewInvalidInputError("connection_type", "must be Family, Friend or Colleague")
	}
	connections, err := s.connections.ListForUser(ctx, actorID, connType, status)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to list connections").WithCause(err)
	}
	return connections, nil
}

// UpdateType 修改关系类型，仅限发起方（user_a）
func (s *ConnectionService) UpdateType(ctx context.Context, actorID, connectionID uint, newType models.ConnectionType) (*models.Connection, error) {
	if !models.ValidConnectionType(newType) {
		return nil, apperrors.NewInvalidInputError("connection_type", "must be Family, Friend or Colleague")
	}

	conn, err := s.getExisting(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if conn.UserAID != actorID {
		return nil, apperrors.NewAccessDeniedError("only the initiating side may change the connection type")
	}

	if err := s.connections.Update(ctx, connectionID, map[string]interface{}{"connection_type": newType}); err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to update connection").WithCause(err)
	}
	conn.ConnectionType = newType

	s.resolver.InvalidateActor(ctx, conn.UserAID, conn.UserBID)
	return conn, nil
}

// Accept 接受关系（Pending → Accepted），仅限接收方（user_b）
func (s *ConnectionService) Accept(ctx context.Context, actorID, connectionID uint) (*models.Connection, error) {
	conn, err := s.getExisting(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if conn.UserBID != actorID {
		return nil, apperrors.NewAccessDeniedError("only the receiving side may accept the connection")
	}
	if conn.Status == models.ConnectionAccepted {
		return conn, nil
	}

	if err := s.connections.Update(ctx, connectionID, map[string]interface{}{"status": models.ConnectionAccepted}); err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to update connection").WithCause(err)
	}
	conn.Status = models.ConnectionAccepted

	s.resolver.InvalidateActor(ctx, conn.UserAID, conn.UserBID)
	logger.Info("connection accepted",
		zap.Uint("connection_id", connectionID),
		zap.Uint("actor", actorID))
	return conn, nil
}

// Delete 删除关系，任一端都可以
func (s *ConnectionService) Delete(ctx context.Context, actorID, connectionID uint) error {
	conn, err := s.getExisting(ctx, connectionID)
	if err != nil {
		return err
	}
	if !conn.Involves(actorID) {
		return apperrors.NewAccessDeniedError("not a participant of this connection")
	}

	if err := s.connections.Delete(ctx, connectionID); err != nil {
		return apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to delete connection").WithCause(err)
	}

	s.resolver.InvalidateActor(ctx, conn.UserAID, conn.UserBID)
	return nil
}

func (s *ConnectionService) getExisting(ctx context.Context, connectionID uint) (*models.Connection, error) {
	conn, err := s.connections.GetByID(ctx, connectionID)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to look up connection").WithCause(err)
	}
	if conn == nil {
		return nil, apperrors.NewNotFoundError("connection")
	}
	return conn, nil
}
