package services

import (
	"context"
	"strings"

	apperrors "github.com/echolist/backend-go/internal/errors"
	"github.com/echolist/backend-go/internal/models"
	"github.com/echolist/backend-go/internal/pipeline"
	"github.com/echolist/backend-go/internal/repository"
)

// AIService 原始文本的向量化入口
// 语音条目之外，调用方也可以直接提交任意文本入库。
type AIService struct {
	sections   repository.SectionRepository
	vectorizer *pipeline.Vectorizer
}

// NewAIService 创建AI服务
func NewAIService(sections repository.SectionRepository, vectorizer *pipeline.Vectorizer) *AIService {
	return &AIService{
		sections:   sections,
		vectorizer: vectorizer,
	}
}

// VectorizeRequest 向量化请求
// Classify 为真时用 actor 自有分区构建候选目录做分类。
type VectorizeRequest struct {
	Text     string `json:"text" validate:"required"`
	Classify bool   `json:"classify"`
}

// Vectorize 去重、分块、向量化入库，可选地对原文做分区分类
// 重复提交返回既有 hash_id 且 chunks_count 为 0。
func (s *AIService) Vectorize(ctx context.Context, actorID uint, req VectorizeRequest) (*pipeline.VectorizeResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, apperrors.NewValidationError("text must not be empty")
	}
	if s.vectorizer == nil {
		return nil, apperrors.NewValidationError("content pipeline not configured")
	}

	var catalog []pipeline.SectionCatalogEntry
	if req.Classify {
		ownSections, err := s.sections.ListByOwner(ctx, actorID)
		if err != nil {
			return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to list sections").WithCause(err)
		}
		catalog = sectionCatalog(ownSections)
	}

	return s.vectorizer.VectorizeAndStore(ctx, text, actorID, catalog)
}

// sectionCatalog 将 actor 自有分区转成分类候选目录
func sectionCatalog(sections []models.Section) []pipeline.SectionCatalogEntry {
	catalog := make([]pipeline.SectionCatalogEntry, 0, len(sections))
	for _, sec := range sections {
		catalog = append(catalog, pipeline.SectionCatalogEntry{
			SectionID:   sec.SectionID,
			Name:        sec.SectionName,
			Description: sec.TemplateDescription,
		})
	}
	return catalog
}
