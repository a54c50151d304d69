package services

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/echolist/backend-go/internal/authz"
	"github.com/echolist/backend-go/internal/config"
	apperrors "github.com/echolist/backend-go/internal/errors"
	"github.com/echolist/backend-go/internal/logger"
	"github.com/echolist/backend-go/internal/metrics"
	"github.com/echolist/backend-go/internal/models"
	"github.com/echolist/backend-go/internal/pipeline"
	"github.com/echolist/backend-go/internal/repository"
	"go.uber.org/zap"
)

const (
	// 相似度低于该值的条目视为无关
	searchScoreThreshold = 0.5
	searchDefaultLimit   = 10
)

// SearchService 自然语言检索服务
// 检索范围严格限定在 actor 可见的分区集合内，
// 权限以分区为粒度，而不是条目粒度。
type SearchService struct {
	items      repository.ItemRepository
	resolver   *authz.Resolver
	embedder   pipeline.Embedder
	store      pipeline.VectorStore
	summarizer pipeline.Summarizer
	keyword    *pipeline.KeywordIndex
	threshold  float64
	pageSize   int
}

// SearchRequest 检索请求
type SearchRequest struct {
	Query     string `json:"query" validate:"required"`
	Limit     int    `json:"limit"`
	Summarize bool   `json:"summarize"`
}

// ItemMatch 条目级检索命中
type ItemMatch struct {
	Item  *models.Item `json:"item"`
	Score float64      `json:"score"`
}

// SearchResponse 检索响应
type SearchResponse struct {
	Matches []ItemMatch `json:"matches"`
	Summary string      `json:"summary,omitempty"`
}

// ChunkSearchResponse 文本块级检索响应
type ChunkSearchResponse struct {
	Matches []pipeline.SearchMatch `json:"matches"`
	Summary string                 `json:"summary,omitempty"`
}

// NewSearchService 创建检索服务
func NewSearchService(
	items repository.ItemRepository,
	resolver *authz.Resolver,
	embedder pipeline.Embedder,
	store pipeline.VectorStore,
	summarizer pipeline.Summarizer,
	keyword *pipeline.KeywordIndex,
	searchCfg config.SearchConfig,
) *SearchService {
	threshold := searchCfg.SimilarityThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = searchScoreThreshold
	}
	pageSize := searchCfg.PageSize
	if pageSize <= 0 {
		pageSize = searchDefaultLimit
	}
	return &SearchService{
		items:      items,
		resolver:   resolver,
		embedder:   embedder,
		store:      store,
		summarizer: summarizer,
		keyword:    keyword,
		threshold:  threshold,
		pageSize:   pageSize,
	}
}

// SearchItems 在可见分区内做条目级相似检索
// 候选集合先按可见分区过滤，再按相似度排序截断，
// 顺序不可颠倒，否则会泄露不可见条目的存在。
func (s *SearchService) SearchItems(ctx context.Context, actorID uint, req SearchRequest) (*SearchResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		metrics.SearchQueries.WithLabelValues("true", "invalid").Inc()
		return nil, apperrors.NewValidationError("query must not be empty")
	}
	limit := s.clampLimit(req.Limit)

	if s.embedder == nil || !s.embedder.Ready() {
		metrics.SearchQueries.WithLabelValues("true", "unavailable").Inc()
		return nil, apperrors.NewValidationError("embedding provider not configured")
	}

	sectionIDs, err := s.resolver.AccessibleSectionIDs(ctx, actorID)
	if err != nil {
		metrics.SearchQueries.WithLabelValues("true", "error").Inc()
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to resolve accessible sections").WithCause(err)
	}
	if len(sectionIDs) == 0 {
		metrics.SearchQueries.WithLabelValues("true", "success").Inc()
		return &SearchResponse{Matches: []ItemMatch{}}, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		metrics.SearchQueries.WithLabelValues("true", "error").Inc()
		return nil, err
	}
	queryNorm := pipeline.VectorNorm(queryVec)

	candidates, err := s.items.ListBySections(ctx, sectionIDs)
	if err != nil {
		metrics.SearchQueries.WithLabelValues("true", "error").Inc()
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to load candidate items").WithCause(err)
	}

	matches := make([]ItemMatch, 0)
	for i := range candidates {
		item := &candidates[i]
		if len(item.VectorEmbedding) == 0 {
			continue
		}
		var embedding []float32
		if err := json.Unmarshal(item.VectorEmbedding, &embedding); err != nil {
			logger.Warn("skipping item with corrupt embedding",
				zap.Uint("item_id", item.ItemID), zap.Error(err))
			continue
		}
		score := pipeline.CosineSimilarity(queryVec, embedding, queryNorm)
		if score < s.threshold {
			continue
		}
		matches = append(matches, ItemMatch{Item: item, Score: score})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Item.ItemID < matches[j].Item.ItemID
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	resp := &SearchResponse{Matches: matches}
	if req.Summarize {
		resp.Summary = s.summarize(ctx, itemTexts(matches))
	}
	metrics.SearchQueries.WithLabelValues("true", "success").Inc()
	return resp, nil
}

// SearchChunks 在向量库中做文本块级检索，范围限定为 actor 自己的语料
func (s *SearchService) SearchChunks(ctx context.Context, actorID uint, req SearchRequest) (*ChunkSearchResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		metrics.SearchQueries.WithLabelValues("true", "invalid").Inc()
		return nil, apperrors.NewValidationError("query must not be empty")
	}
	limit := s.clampLimit(req.Limit)

	if s.embedder == nil || !s.embedder.Ready() || s.store == nil || !s.store.Ready() {
		metrics.SearchQueries.WithLabelValues("true", "unavailable").Inc()
		return nil, apperrors.NewValidationError("vector search not configured")
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		metrics.SearchQueries.WithLabelValues("true", "error").Inc()
		return nil, err
	}

	results, err := s.store.Search(ctx, pipeline.VectorSearchRequest{
		UserID:         actorID,
		QueryEmbedding: queryVec,
		Limit:          limit,
		Threshold:      s.threshold,
	})
	if err != nil {
		metrics.SearchQueries.WithLabelValues("true", "error").Inc()
		return nil, err
	}

	resp := &ChunkSearchResponse{Matches: results}
	if req.Summarize {
		texts := make([]string, 0, len(results))
		for _, m := range results {
			texts = append(texts, m.Content)
		}
		resp.Summary = s.summarize(ctx, texts)
	}
	metrics.SearchQueries.WithLabelValues("true", "success").Inc()
	return resp, nil
}

// SearchKeyword 在可见分区内做全文关键词检索
func (s *SearchService) SearchKeyword(ctx context.Context, actorID uint, req SearchRequest) ([]pipeline.KeywordMatch, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		metrics.SearchQueries.WithLabelValues("true", "invalid").Inc()
		return nil, apperrors.NewValidationError("query must not be empty")
	}
	if !s.keyword.Ready() {
		metrics.SearchQueries.WithLabelValues("true", "unavailable").Inc()
		return nil, apperrors.NewValidationError("keyword search not configured")
	}

	sectionIDs, err := s.resolver.AccessibleSectionIDs(ctx, actorID)
	if err != nil {
		metrics.SearchQueries.WithLabelValues("true", "error").Inc()
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to resolve accessible sections").WithCause(err)
	}

	matches, err := s.keyword.Search(ctx, query, sectionIDs, s.clampLimit(req.Limit))
	if err != nil {
		metrics.SearchQueries.WithLabelValues("true", "error").Inc()
		return nil, apperrors.NewExternalServiceError("elasticsearch", err)
	}
	metrics.SearchQueries.WithLabelValues("true", "success").Inc()
	return matches, nil
}

// summarize 摘要失败不影响检索结果
func (s *SearchService) summarize(ctx context.Context, texts []string) string {
	if s.summarizer == nil || !s.summarizer.Ready() || len(texts) == 0 {
		return ""
	}
	summary, err := s.summarizer.Summarize(ctx, texts)
	if err != nil {
		logger.Warn("search summarization failed", zap.Error(err))
		return ""
	}
	return summary
}

func itemTexts(matches []ItemMatch) []string {
	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		texts = append(texts, m.Item.ContentText)
	}
	return texts
}

// clampLimit 请求的条数永远不超过配置的页大小
func (s *SearchService) clampLimit(limit int) int {
	if limit <= 0 || limit > s.pageSize {
		return s.pageSize
	}
	return limit
}
