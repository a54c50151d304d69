package services

import (
	"context"

	"github.com/echolist/backend-go/internal/authz"
	apperrors "github.com/echolist/backend-go/internal/errors"
	"github.com/echolist/backend-go/internal/logger"
	"github.com/echolist/backend-go/internal/models"
	"github.com/echolist/backend-go/internal/repository"
	"go.uber.org/zap"
)

// SectionService 分区服务
// 访问规则的创建与查看只属于分区所有者，关系不授予元权限。
type SectionService struct {
	sections    repository.SectionRepository
	connections repository.ConnectionRepository
	resolver    *authz.Resolver
}

// CreateSectionRequest 创建分区请求
type CreateSectionRequest struct {
	SectionName         string `json:"section_name" validate:"required,max=200"`
	DisplayColor        string `json:"display_color"`
	IsTemplate          bool   `json:"is_template"`
	TemplateDescription string `json:"template_description" validate:"max=1000"`
}

// UpdateSectionRequest 更新分区请求
type UpdateSectionRequest struct {
	SectionName         *string `json:"section_name,omitempty"`
	DisplayColor        *string `json:"display_color,omitempty"`
	IsTemplate          *bool   `json:"is_template,omitempty"`
	TemplateDescription *string `json:"template_description,omitempty"`
}

// AccessRuleRequest 访问规则请求，(section, connection_type) 组合唯一，后写覆盖
type AccessRuleRequest struct {
	AllowedConnectionType models.ConnectionType `json:"allowed_connection_type" validate:"required"`
	CanView               bool                  `json:"can_view"`
	CanEdit               bool                  `json:"can_edit"`
}

// NewSectionService 创建分区服务
func NewSectionService(sections repository.SectionRepository, connections repository.ConnectionRepository, resolver *authz.Resolver) *SectionService {
	return &SectionService{sections: sections, connections: connections, resolver: resolver}
}

// Create 创建分区
func (s *SectionService) Create(ctx context.Context, ownerID uint, req CreateSectionRequest) (*models.Section, error) {
	section := &models.Section{
		OwnerUserID:         ownerID,
		SectionName:         req.SectionName,
		IsTemplate:          req.IsTemplate,
		TemplateDescription: req.TemplateDescription,
	}
	if req.DisplayColor != "" {
		section.DisplayColor = req.DisplayColor
	}

	if err := s.sections.Create(ctx, section); err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to create section").WithCause(err)
	}

	s.resolver.InvalidateActor(ctx, ownerID)
	logger.Info("section created",
		zap.Uint("section_id", section.SectionID),
		zap.Uint("owner", ownerID))
	return section, nil
}

// Get 获取分区，需要 view 能力
func (s *SectionService) Get(ctx context.Context, actorID, sectionID uint) (*models.Section, error) {
	section, err := s.getExisting(ctx, sectionID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.resolver.ResolveSection(ctx, actorID, section, authz.CapabilityView)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to resolve access").WithCause(err)
	}
	if !allowed {
		return nil, apperrors.NewAccessDeniedError("no view access to this section")
	}
	return section, nil
}

// ListOwn 列出 actor 拥有的分区
func (s *SectionService) ListOwn(ctx context.Context, actorID uint) ([]models.Section, error) {
	sections, err := s.sections.ListByOwner(ctx, actorID)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to list sections").WithCause(err)
	}
	return sections, nil
}

// ListAccessible 列出 actor 可见的全部分区（自有加共享）
func (s *SectionService) ListAccessible(ctx context.Context, actorID uint) ([]models.Section, error) {
	ids, err := s.resolver.AccessibleSectionIDs(ctx, actorID)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to compute accessible sections").WithCause(err)
	}

	sections := make([]models.Section, 0, len(ids))
	for _, id := range ids {
		section, err := s.sections.GetByID(ctx, id)
		if err != nil {
			return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to load section").WithCause(err)
		}
		if section != nil {
			sections = append(sections, *section)
		}
	}
	return sections, nil
}

// Update 更新分区，仅限所有者
func (s *SectionService) Update(ctx context.Context, actorID, sectionID uint, req UpdateSectionRequest) (*models.Section, error) {
	section, err := s.getExisting(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	if section.OwnerUserID != actorID {
		return nil, apperrors.NewAccessDeniedError("only the section owner may update it")
	}

	updates := map[string]interface{}{}
	if req.SectionName != nil {
		updates["section_name"] = *req.SectionName
		section.SectionName = *req.SectionName
	}
	if req.DisplayColor != nil {
		updates["display_color"] = *req.DisplayColor
		section.DisplayColor = *req.DisplayColor
	}
	if req.IsTemplate != nil {
		updates["is_template"] = *req.IsTemplate
		section.IsTemplate = *req.IsTemplate
	}
	if req.TemplateDescription != nil {
		updates["template_description"] = *req.TemplateDescription
		section.TemplateDescription = *req.TemplateDescription
	}
	if len(updates) == 0 {
		return section, nil
	}

	if err := s.sections.Update(ctx, sectionID, updates); err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to update section").WithCause(err)
	}
	return section, nil
}

// Delete 删除分区，仅限所有者，级联删除条目与规则
func (s *SectionService) Delete(ctx context.Context, actorID, sectionID uint) error {
	section, err := s.getExisting(ctx, sectionID)
	if err != nil {
		return err
	}
	if section.OwnerUserID != actorID {
		return apperrors.NewAccessDeniedError("only the section owner may delete it")
	}

	if err := s.sections.Delete(ctx, sectionID); err != nil {
		return apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to delete section").WithCause(err)
	}

	s.invalidateSharedWith(ctx, section.OwnerUserID)
	return nil
}

// SetAccessRule 创建或覆盖访问规则，仅限所有者
func (s *SectionService) SetAccessRule(ctx context.Context, actorID, sectionID uint, req AccessRuleRequest) (*models.SectionAccess, error) {
	if !models.ValidConnectionType(req.AllowedConnectionType) {
		return nil, apperrors.NewInvalidInputError("allowed_connection_type", "must be Family, Friend or Colleague")
	}

	section, err := s.getExisting(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	if section.OwnerUserID != actorID {
		return nil, apperrors.NewAccessDeniedError("only the section owner may manage access rules")
	}

	existing, err := s.sections.GetAccessRule(ctx, sectionID, req.AllowedConnectionType)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to look up access rule").WithCause(err)
	}

	if existing != nil {
		// 组合已有规则，后写覆盖
		updates := map[string]interface{}{
			"can_view": req.CanView,
			"can_edit": req.CanEdit,
		}
		if err := s.sections.UpdateAccessRule(ctx, existing.SectionAccessID, updates); err != nil {
			return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to update access rule").WithCause(err)
		}
		existing.CanView = req.CanView
		existing.CanEdit = req.CanEdit
		s.invalidateSharedWith(ctx, section.OwnerUserID)
		return existing, nil
	}

	rule := &models.SectionAccess{
		SectionID:             sectionID,
		AllowedConnectionType: req.AllowedConnectionType,
		CanView:               req.CanView,
		CanEdit:               req.CanEdit,
	}
	if err := s.sections.CreateAccessRule(ctx, rule); err != nil {
		// 并发写入竞态由唯一约束兜底
		return nil, apperrors.Translate(err)
	}

	s.invalidateSharedWith(ctx, section.OwnerUserID)
	logger.Info("access rule set",
		zap.Uint("section_id", sectionID),
		zap.String("connection_type", string(req.AllowedConnectionType)),
		zap.Bool("can_view", req.CanView),
		zap.Bool("can_edit", req.CanEdit))
	return rule, nil
}

// ListAccessRules 查看分区的全部规则，仅限所有者
func (s *SectionService) ListAccessRules(ctx context.Context, actorID, sectionID uint) ([]models.SectionAccess, error) {
	section, err := s.getExisting(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	if section.OwnerUserID != actorID {
		return nil, apperrors.NewAccessDeniedError("only the section owner may view access rules")
	}

	rules, err := s.sections.ListAccessRules(ctx, sectionID)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to list access rules").WithCause(err)
	}
	return rules, nil
}

// Catalog 构建 actor 自有分区的分类候选目录
func (s *SectionService) Catalog(ctx context.Context, ownerID uint) ([]models.Section, error) {
	return s.ListOwn(ctx, ownerID)
}

func (s *SectionService) getExisting(ctx context.Context, sectionID uint) (*models.Section, error) {
	section, err := s.sections.GetByID(ctx, sectionID)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to look up section").WithCause(err)
	}
	if section == nil {
		return nil, apperrors.NewNotFoundError("section")
	}
	return section, nil
}

// invalidateSharedWith 规则或分区变化后，所有者及其关系对端的可见集合都会变化
func (s *SectionService) invalidateSharedWith(ctx context.Context, ownerID uint) {
	s.resolver.InvalidateActor(ctx, ownerID)
	connections, err := s.connections.ListForUser(ctx, ownerID, nil, nil)
	if err != nil {
		logger.Warn("failed to list connections for cache invalidation", zap.Error(err))
		return
	}
	for _, conn := range connections {
		s.resolver.InvalidateActor(ctx, conn.OtherSide(ownerID))
	}
}
