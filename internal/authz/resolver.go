package authz

import (
	"context"

	"github.com/echolist/backend-go/internal/logger"
	"github.com/echolist/backend-go/internal/metrics"
	"github.com/echolist/backend-go/internal/models"
	"go.uber.org/zap"
)

// Capability 请求的能力
type Capability string

const (
	CapabilityView Capability = "view"
	CapabilityEdit Capability = "edit"
)

// ConnectionStore 解析器需要的关系查询能力
type ConnectionStore interface {
	GetBetween(ctx context.Context, userX, userY uint) (*models.Connection, error)
	ListForUser(ctx context.Context, userID uint, connType *models.ConnectionType, status *models.ConnectionStatus) ([]models.Connection, error)
}

// SectionStore 解析器需要的分区/规则查询能力
type SectionStore interface {
	GetByID(ctx context.Context, sectionID uint) (*models.Section, error)
	ListByOwner(ctx context.Context, ownerUserID uint) ([]models.Section, error)
	GetAccessRule(ctx context.Context, sectionID uint, connType models.ConnectionType) (*models.SectionAccess, error)
}

// Resolver 关系范围授权解析器
//
// 判定规则：
//  1. actor == owner 时无条件放行；
//  2. 否则查找双方之间的关系（两个存储方向都查）；无关系则拒绝；
//  3. 按 (section, connection_type) 查访问规则；无规则则拒绝；
//  4. 按请求能力读取 can_view / can_edit。
//
// 关系的 status 不参与判定：Pending 关系只要命中规则即放行。
// 这是既有行为，由测试固定，修正属于行为变更。
type Resolver struct {
	connections ConnectionStore
	sections    SectionStore
	cache       *SectionCache
	log         *zap.Logger
}

// NewResolver 创建授权解析器，cache 可为 nil（不缓存）
func NewResolver(connections ConnectionStore, sections SectionStore, cache *SectionCache) *Resolver {
	return &Resolver{
		connections: connections,
		sections:    sections,
		cache:       cache,
		log:         logger.GetLogger(),
	}
}

// Resolve 判定 actor 是否对 owner 名下的 section 拥有指定能力
func (r *Resolver) Resolve(ctx context.Context, actorID, ownerID, sectionID uint, capability Capability) (bool, error) {
	if actorID == ownerID {
		metrics.AuthzDecisions.WithLabelValues(string(capability), "allow", "owner").Inc()
		return true, nil
	}

	conn, err := r.connections.GetBetween(ctx, actorID, ownerID)
	if err != nil {
		return false, err
	}
	if conn == nil {
		metrics.AuthzDecisions.WithLabelValues(string(capability), "deny", "no_connection").Inc()
		return false, nil
	}

	rule, err := r.sections.GetAccessRule(ctx, sectionID, conn.ConnectionType)
	if err != nil {
		return false, err
	}
	if rule == nil {
		metrics.AuthzDecisions.WithLabelValues(string(capability), "deny", "no_rule").Inc()
		return false, nil
	}

	allowed := r.flagFor(rule, capability)
	if allowed {
		metrics.AuthzDecisions.WithLabelValues(string(capability), "allow", "rule").Inc()
	} else {
		metrics.AuthzDecisions.WithLabelValues(string(capability), "deny", "flag_false").Inc()
	}
	return allowed, nil
}

// ResolveSection Resolve 的便捷形式，分区实体已在手
func (r *Resolver) ResolveSection(ctx context.Context, actorID uint, section *models.Section, capability Capability) (bool, error) {
	return r.Resolve(ctx, actorID, section.OwnerUserID, section.SectionID, capability)
}

func (r *Resolver) flagFor(rule *models.SectionAccess, capability Capability) bool {
	switch capability {
	case CapabilityEdit:
		return rule.CanEdit
	default:
		return rule.CanView
	}
}

// AccessibleSectionIDs 计算 actor 可见的全部分区ID：
// 自有分区，加上每个关系对端名下命中 can_view 规则的分区。
// 结果短 TTL 缓存，规则/关系写入时由服务层失效。
func (r *Resolver) AccessibleSectionIDs(ctx context.Context, actorID uint) ([]uint, error) {
	if r.cache != nil {
		if ids, ok := r.cache.Get(ctx, actorID); ok {
			return ids, nil
		}
	}

	ids, err := r.computeAccessibleSectionIDs(ctx, actorID)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		r.cache.Set(ctx, actorID, ids)
	}
	return ids, nil
}

func (r *Resolver) computeAccessibleSectionIDs(ctx context.Context, actorID uint) ([]uint, error) {
	own, err := r.sections.ListByOwner(ctx, actorID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(own))
	seen := make(map[uint]bool, len(own))
	for _, s := range own {
		ids = append(ids, s.SectionID)
		seen[s.SectionID] = true
	}

	// 与 Resolve 一致，这里同样不过滤关系状态
	connections, err := r.connections.ListForUser(ctx, actorID, nil, nil)
	if err != nil {
		return nil, err
	}

	for _, conn := range connections {
		otherID := conn.OtherSide(actorID)
		shared, err := r.sections.ListByOwner(ctx, otherID)
		if err != nil {
			return nil, err
		}
		for _, s := range shared {
			if seen[s.SectionID] {
				continue
			}
			rule, err := r.sections.GetAccessRule(ctx, s.SectionID, conn.ConnectionType)
			if err != nil {
				return nil, err
			}
			if rule != nil && rule.CanView {
				ids = append(ids, s.SectionID)
				seen[s.SectionID] = true
			}
		}
	}

	r.log.Debug("computed accessible sections",
		zap.Uint("actor_id", actorID),
		zap.Int("count", len(ids)))
	return ids, nil
}

// InvalidateActor 清除 actor 的可访问分区缓存
func (r *Resolver) InvalidateActor(ctx context.Context, actorIDs ...uint) {
	if r.cache == nil {
		return
	}
	r.cache.Invalidate(ctx, actorIDs...)
}
