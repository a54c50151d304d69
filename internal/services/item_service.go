package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/echolist/backend-go/internal/authz"
	apperrors "github.com/echolist/backend-go/internal/errors"
	"github.com/echolist/backend-go/internal/events"
	"github.com/echolist/backend-go/internal/logger"
	"github.com/echolist/backend-go/internal/models"
	"github.com/echolist/backend-go/internal/pipeline"
	"github.com/echolist/backend-go/internal/repository"
	"github.com/echolist/backend-go/internal/speech"
	"github.com/echolist/backend-go/internal/storage"
	"go.uber.org/zap"
)

// ItemService 条目服务
// 非所有者经由关系规则获得 edit 能力后可以在共享分区创建/修改条目。
type ItemService struct {
	items      repository.ItemRepository
	sections   repository.SectionRepository
	resolver   *authz.Resolver
	embedder   pipeline.Embedder
	vectorizer *pipeline.Vectorizer
	transcribe speech.Transcriber
	audio      *storage.AudioStore
	keyword    *pipeline.KeywordIndex
}

// CreateItemRequest 创建条目请求
type CreateItemRequest struct {
	SectionID   uint            `json:"section_id" validate:"required"`
	ContentText string          `json:"content_text" validate:"required"`
	IsTask      bool            `json:"is_task"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	Priority    models.Priority `json:"priority"`
}

// UpdateItemRequest 更新条目请求
type UpdateItemRequest struct {
	ContentText *string          `json:"content_text,omitempty"`
	IsTask      *bool            `json:"is_task,omitempty"`
	DueDate     *time.Time       `json:"due_date,omitempty"`
	IsCompleted *bool            `json:"is_completed,omitempty"`
	Priority    *models.Priority `json:"priority,omitempty"`
}

// VoiceItemRequest 语音条目请求
// FallbackSectionID 在分类未命中或结果不可信时使用。
type VoiceItemRequest struct {
	Audio             []byte `json:"-"`
	Filename          string `json:"filename"`
	ContentType       string `json:"content_type"`
	FallbackSectionID uint   `json:"fallback_section_id" validate:"required"`
}

// VoiceItemResponse 语音条目响应
type VoiceItemResponse struct {
	Item           *models.Item             `json:"item"`
	Transcript     string                   `json:"transcript"`
	Classification *pipeline.Classification `json:"classification,omitempty"`
}

// NewItemService 创建条目服务
func NewItemService(
	items repository.ItemRepository,
	sections repository.SectionRepository,
	resolver *authz.Resolver,
	embedder pipeline.Embedder,
	vectorizer *pipeline.Vectorizer,
	transcriber speech.Transcriber,
	audio *storage.AudioStore,
	keyword *pipeline.KeywordIndex,
) *ItemService {
	return &ItemService{
		items:      items,
		sections:   sections,
		resolver:   resolver,
		embedder:   embedder,
		vectorizer: vectorizer,
		transcribe: transcriber,
		audio:      audio,
		keyword:    keyword,
	}
}

// Create 在分区内创建条目，需要 edit 能力
func (s *ItemService) Create(ctx context.Context, actorID uint, req CreateItemRequest) (*models.Item, error) {
	section, err := s.getSection(ctx, req.SectionID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.resolver.ResolveSection(ctx, actorID, section, authz.CapabilityEdit)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to resolve access").WithCause(err)
	}
	if !allowed {
		return nil, apperrors.NewAccessDeniedError("no edit access to this section")
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	item := &models.Item{
		SectionID:       req.SectionID,
		CreatorUserID:   actorID,
		ContentText:     req.ContentText,
		IsTask:          req.IsTask,
		DueDate:         req.DueDate,
		Priority:        priority,
		VectorEmbedding: s.embedContent(ctx, req.ContentText),
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to create item").WithCause(err)
	}

	if err := events.PublishItemEvent(events.ItemCreated, item.ItemID, item.SectionID, actorID, item.IsTask); err != nil {
		logger.Warn("failed to publish item event", zap.Error(err))
	}
	s.indexKeyword(ctx, item)
	return item, nil
}

// Get 获取条目，需要所在分区的 view 能力
func (s *ItemService) Get(ctx context.Context, actorID, itemID uint) (*models.Item, error) {
	item, section, err := s.getItemWithSection(ctx, itemID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.resolver.ResolveSection(ctx, actorID, section, authz.CapabilityView)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to resolve access").WithCause(err)
	}
	if !allowed {
		return nil, apperrors.NewAccessDeniedError("no view access to this item")
	}
	return item, nil
}

// ListBySection 列出分区条目，需要 view 能力
func (s *ItemService) ListBySection(ctx context.Context, actorID, sectionID uint) ([]models.Item, error) {
	section, err := s.getSection(ctx, sectionID)
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

	items, err := s.items.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to list items").WithCause(err)
	}
	return items, nil
}

// Update 更新条目，需要所在分区的 edit 能力
// 内容变化时刷新嵌入并记录最后修改人。
func (s *ItemService) Update(ctx context.Context, actorID, itemID uint, req UpdateItemRequest) (*models.Item, error) {
	item, section, err := s.getItemWithSection(ctx, itemID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.resolver.ResolveSection(ctx, actorID, section, authz.CapabilityEdit)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to resolve access").WithCause(err)
	}
	if !allowed {
		return nil, apperrors.NewAccessDeniedError("no edit access to this item")
	}

	now := time.Now()
	updates := map[string]interface{}{
		"last_modified_by_user_id": actorID,
		"last_modified_at":         now,
	}
	completed := false

	if req.ContentText != nil && *req.ContentText != item.ContentText {
		updates["content_text"] = *req.ContentText
		item.ContentText = *req.ContentText
		embedding := s.embedContent(ctx, *req.ContentText)
		updates["vector_embedding"] = embedding
		item.VectorEmbedding = embedding
	}
	if req.IsTask != nil {
		updates["is_task"] = *req.IsTask
		item.IsTask = *req.IsTask
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
		item.DueDate = req.DueDate
	}
	if req.IsCompleted != nil {
		updates["is_completed"] = *req.IsCompleted
		completed = *req.IsCompleted && !item.IsCompleted
		item.IsCompleted = *req.IsCompleted
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
		item.Priority = *req.Priority
	}

	if err := s.items.Update(ctx, itemID, updates); err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to update item").WithCause(err)
	}
	item.LastModifiedByID = &actorID
	item.LastModifiedAt = &now

	if completed {
		if err := events.PublishItemEvent(events.ItemCompleted, item.ItemID, item.SectionID, actorID, item.IsTask); err != nil {
			logger.Warn("failed to publish item event", zap.Error(err))
		}
	}
	if _, touched := updates["content_text"]; touched {
		s.indexKeyword(ctx, item)
	}
	return item, nil
}

// Delete 删除条目，分区所有者或条目创建者
func (s *ItemService) Delete(ctx context.Context, actorID, itemID uint) error {
	item, section, err := s.getItemWithSection(ctx, itemID)
	if err != nil {
		return err
	}
	if section.OwnerUserID != actorID && item.CreatorUserID != actorID {
		return apperrors.NewAccessDeniedError("only the section owner or item creator may delete it")
	}

	if err := s.items.Delete(ctx, itemID); err != nil {
		return apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to delete item").WithCause(err)
	}

	if err := events.PublishItemEvent(events.ItemDeleted, itemID, item.SectionID, actorID, item.IsTask); err != nil {
		logger.Warn("failed to publish item event", zap.Error(err))
	}
	if s.keyword.Ready() {
		if err := s.keyword.DeleteItem(ctx, itemID); err != nil {
			logger.Warn("failed to remove item from keyword index", zap.Error(err))
		}
	}
	return nil
}

// CreateVoice 语音创建条目：转写、向量化、分类后落入目标分区
// 分类ID属于不可信输入，必须对照 actor 自有分区目录校验后才可使用。
func (s *ItemService) CreateVoice(ctx context.Context, actorID uint, req VoiceItemRequest) (*VoiceItemResponse, error) {
	if s.transcribe == nil || !s.transcribe.Ready() {
		return nil, apperrors.NewValidationError("speech-to-text provider not configured")
	}

	transcript, err := s.transcribe.Transcribe(ctx, req.Audio, req.Filename)
	if err != nil {
		return nil, err
	}

	// 音频归档失败不阻塞条目创建
	var audioURL string
	if s.audio != nil && s.audio.Ready() {
		objectName, err := s.audio.Upload(ctx, actorID, req.Audio, req.ContentType)
		if err != nil {
			logger.Warn("audio upload failed, continuing without archive", zap.Error(err))
		} else {
			audioURL = objectName
		}
	}

	ownSections, err := s.sections.ListByOwner(ctx, actorID)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to list sections").WithCause(err)
	}
	catalog := sectionCatalog(ownSections)

	var classification *pipeline.Classification
	if s.vectorizer != nil {
		result, err := s.vectorizer.VectorizeAndStore(ctx, transcript, actorID, catalog)
		if err != nil {
			logger.Warn("transcript vectorization failed", zap.Error(err))
		} else {
			classification = result.Classification
		}
	}

	sectionID := req.FallbackSectionID
	if classification != nil && classification.SectionID != nil {
		if catalogContains(catalog, *classification.SectionID) {
			sectionID = *classification.SectionID
		} else {
			logger.Warn("classifier returned section outside caller catalog, ignoring",
				zap.Uint("section_id", *classification.SectionID))
			// 幻觉ID不能回显给调用方，整个分类按未命中处理
			classification.SectionID = nil
			classification.ConfidenceScore = 0.0
		}
	}

	item, err := s.Create(ctx, actorID, CreateItemRequest{
		SectionID:   sectionID,
		ContentText: transcript,
	})
	if err != nil {
		return nil, err
	}

	if audioURL != "" {
		if err := s.items.Update(ctx, item.ItemID, map[string]interface{}{"original_audio_url": audioURL}); err != nil {
			logger.Warn("failed to attach audio url", zap.Error(err))
		} else {
			item.OriginalAudioURL = audioURL
		}
	}

	return &VoiceItemResponse{
		Item:           item,
		Transcript:     transcript,
		Classification: classification,
	}, nil
}

// indexKeyword 全文索引写入是尽力而为的
func (s *ItemService) indexKeyword(ctx context.Context, item *models.Item) {
	if !s.keyword.Ready() {
		return
	}
	doc := pipeline.KeywordDoc{
		ItemID:    item.ItemID,
		SectionID: item.SectionID,
		Content:   item.ContentText,
		IsTask:    item.IsTask,
	}
	if err := s.keyword.IndexItem(ctx, doc); err != nil {
		logger.Warn("failed to index item for keyword search", zap.Error(err))
	}
}

// embedContent 条目级嵌入是尽力而为的，失败只损失搜索召回
func (s *ItemService) embedContent(ctx context.Context, text string) []byte {
	if s.embedder == nil || !s.embedder.Ready() {
		return nil
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		logger.Warn("item embedding failed", zap.Error(err))
		return nil
	}
	data, err := json.Marshal(vec)
	if err != nil {
		return nil
	}
	return data
}

func (s *ItemService) getSection(ctx context.Context, sectionID uint) (*models.Section, error) {
	section, err := s.sections.GetByID(ctx, sectionID)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to look up section").WithCause(err)
	}
	if section == nil {
		return nil, apperrors.NewNotFoundError("section")
	}
	return section, nil
}

func (s *ItemService) getItemWithSection(ctx context.Context, itemID uint) (*models.Item, *models.Section, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to look up item").WithCause(err)
	}
	if item == nil {
		return nil, nil, apperrors.NewNotFoundError("item")
	}

	section, err := s.getSection(ctx, item.SectionID)
	if err != nil {
		return nil, nil, err
	}
	return item, section, nil
}

func catalogContains(catalog []pipeline.SectionCatalogEntry, sectionID uint) bool {
	for _, entry := range catalog {
		if entry.SectionID == sectionID {
			return true
		}
	}
	return false
}
