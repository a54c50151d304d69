package pipeline

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"hash/fnv"

	apperrors "github.com/echolist/backend-go/internal/errors"
	"github.com/echolist/backend-go/internal/logger"
	"github.com/echolist/backend-go/internal/metrics"
	"go.uber.org/zap"
)

// VectorizeResult 向量化入库结果
// 重复提交时 ChunksCount 为 0，HashID 不变。
type VectorizeResult struct {
	ChunksCount    int             `json:"chunks_count"`
	HashID         string          `json:"hash_id"`
	Classification *Classification `json:"classification,omitempty"`
}

// Vectorizer 去重、分块、向量化并入库
type Vectorizer struct {
	chunker    *Chunker
	embedder   Embedder
	store      VectorStore
	classifier Classifier
	log        *zap.Logger
}

// NewVectorizer 创建向量化器，classifier 可为 nil（不做分类）
func NewVectorizer(chunker *Chunker, embedder Embedder, store VectorStore, classifier Classifier) *Vectorizer {
	return &Vectorizer{
		chunker:    chunker,
		embedder:   embedder,
		store:      store,
		classifier: classifier,
		log:        logger.GetLogger(),
	}
}

// ContentHash 整段原文的MD5指纹，作为去重键
func ContentHash(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// VectorizeAndStore 将文本切块向量化入库
// 去重键是整段原文的哈希；已存在时跳过全部写入并报告零个新块。
// 分类只在提供候选目录时执行，失败不影响入库结果。
func (v *Vectorizer) VectorizeAndStore(ctx context.Context, text string, userID uint, catalog []SectionCatalogEntry) (*VectorizeResult, error) {
	if text == "" {
		return nil, apperrors.NewValidationError("text is empty")
	}
	if v.embedder == nil || !v.embedder.Ready() {
		return nil, apperrors.NewValidationError("embedding provider not configured")
	}

	hashID := ContentHash(text)

	exists, err := v.store.HasHash(ctx, userID, hashID)
	if err != nil {
		metrics.PipelineIngests.WithLabelValues("error").Inc()
		return nil, err
	}
	if exists {
		metrics.PipelineIngests.WithLabelValues("duplicate").Inc()
		v.log.Debug("duplicate content, skipping ingestion",
			zap.Uint("user_id", userID),
			zap.String("hash_id", hashID))
		return &VectorizeResult{ChunksCount: 0, HashID: hashID}, nil
	}

	chunks := v.chunker.Split(text)
	if len(chunks) == 0 {
		return nil, apperrors.NewValidationError("text contains no content after normalization")
	}

	for _, chunk := range chunks {
		meta := ChunkMetadata{
			UserID:         userID,
			ChunkIndex:     chunk.Index,
			OriginalHashID: hashID,
		}
		if err := meta.Validate(); err != nil {
			metrics.PipelineIngests.WithLabelValues("error").Inc()
			return nil, apperrors.NewValidationError("invalid chunk metadata").WithCause(err)
		}

		embedding, err := v.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			metrics.PipelineIngests.WithLabelValues("error").Inc()
			return nil, apperrors.NewExternalServiceError("embedding", err)
		}

		_, err = v.store.UpsertChunk(ctx, VectorChunk{
			ChunkID:   chunkPointID(hashID, chunk.Index),
			Text:      chunk.Text,
			Embedding: embedding,
			Metadata:  meta,
		})
		if err != nil {
			metrics.PipelineIngests.WithLabelValues("error").Inc()
			return nil, apperrors.NewExternalServiceError("vector store", err)
		}
	}

	metrics.PipelineIngests.WithLabelValues("stored").Inc()
	metrics.PipelineChunks.Observe(float64(len(chunks)))

	result := &VectorizeResult{
		ChunksCount: len(chunks),
		HashID:      hashID,
	}

	// 分类针对未切分的原文，失败降级为缺失字段
	if len(catalog) > 0 && v.classifier != nil && v.classifier.Ready() {
		classification, err := v.classifier.Classify(ctx, text, catalog)
		if err != nil {
			v.log.Warn("classification failed, continuing without it",
				zap.Uint("user_id", userID),
				zap.Error(err))
		} else {
			result.Classification = classification
		}
	}

	return result, nil
}

// chunkPointID 为外部向量库生成确定性的点ID
func chunkPointID(hashID string, index int) uint {
	h := fnv.New32a()
	h.Write([]byte(hashID))
	h.Write([]byte{byte(index), byte(index >> 8), byte(index >> 16), byte(index >> 24)})
	return uint(h.Sum32())
}
