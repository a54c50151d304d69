package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/echolist/backend-go/internal/models"
	"gorm.io/gorm"
)

// DatabaseVectorStore 基于PostgreSQL的退化向量存储
// 块与嵌入以JSON文本存进 text_chunks，检索时在进程内算余弦相似度。
type DatabaseVectorStore struct {
	db *gorm.DB
}

func NewDatabaseVectorStore(db *gorm.DB) VectorStore {
	return &DatabaseVectorStore{db: db}
}

func (s *DatabaseVectorStore) UpsertChunk(ctx context.Context, chunk VectorChunk) (string, error) {
	if len(chunk.Embedding) == 0 {
		return "", fmt.Errorf("embedding is empty")
	}

	embeddingJSON, err := json.Marshal(chunk.Embedding)
	if err != nil {
		return "", err
	}
	metadataJSON, err := json.Marshal(chunk.Metadata)
	if err != nil {
		return "", err
	}

	record := models.TextChunk{
		UserID:         chunk.Metadata.UserID,
		OriginalHashID: chunk.Metadata.OriginalHashID,
		ChunkIndex:     chunk.Metadata.ChunkIndex,
		Content:        chunk.Text,
		Embedding:      string(embeddingJSON),
		Metadata:       string(metadataJSON),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", err
	}

	vectorID := fmt.Sprintf("db_%d", record.ChunkID)
	err = s.db.WithContext(ctx).Model(&models.TextChunk{}).
		Where("chunk_id = ?", record.ChunkID).
		Update("vector_id", vectorID).Error
	if err != nil {
		return "", err
	}
	return vectorID, nil
}

func (s *DatabaseVectorStore) HasHash(ctx context.Context, userID uint, hashID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.TextChunk{}).
		Where("user_id = ? AND original_hash_id = ?", userID, hashID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *DatabaseVectorStore) DeleteByHash(ctx context.Context, userID uint, hashID string) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND original_hash_id = ?", userID, hashID).
		Delete(&models.TextChunk{}).Error
}

func (s *DatabaseVectorStore) Search(ctx context.Context, req VectorSearchRequest) ([]SearchMatch, error) {
	if len(req.QueryEmbedding) == 0 {
		return nil, nil
	}
	if req.Limit == 0 {
		req.Limit = 10
	}
	if req.CandidateLimit == 0 {
		req.CandidateLimit = req.Limit * 20
	}

	var rows []chunkEmbeddingRecord
	err := s.db.WithContext(ctx).
		Model(&models.TextChunk{}).
		Select("chunk_id, content, embedding, metadata").
		Where("user_id = ?", req.UserID).
		Where("embedding IS NOT NULL AND embedding <> ''").
		Limit(req.CandidateLimit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	queryNorm := VectorNorm(req.QueryEmbedding)
	if queryNorm == 0 {
		return nil, fmt.Errorf("query embedding norm is zero")
	}

	results := make([]SearchMatch, 0, req.Limit)
	for _, row := range rows {
		var embedding []float32
		if err := json.Unmarshal([]byte(row.EmbeddingJSON), &embedding); err != nil {
			continue
		}
		var metadata map[string]interface{}
		if row.MetadataJSON != "" {
			_ = json.Unmarshal([]byte(row.MetadataJSON), &metadata)
		}
		score := CosineSimilarity(req.QueryEmbedding, embedding, queryNorm)
		if score < req.Threshold {
			continue
		}
		results = append(results, SearchMatch{
			ChunkID:  row.ChunkID,
			Content:  row.Content,
			Score:    score,
			Metadata: metadata,
		})
	}

	sortMatchesByScore(results)
	if len(results) > req.Limit {
		results = results[:req.Limit]
	}
	return results, nil
}

func (s *DatabaseVectorStore) Ready() bool {
	return s.db != nil
}

type chunkEmbeddingRecord struct {
	ChunkID       uint
	Content       string
	EmbeddingJSON string `gorm:"column:embedding"`
	MetadataJSON  string `gorm:"column:metadata"`
}

// VectorNorm 计算向量的 L2 范数
func VectorNorm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v * v)
	}
	return math.Sqrt(sum)
}

// CosineSimilarity 计算余弦相似度，normA 为预先算好的查询向量范数。
// 维度不一致时按较短向量对齐并重算 normA，容忍嵌入模型切换留下的旧数据。
func CosineSimilarity(a, b []float32, normA float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) != len(b) {
		minLen := len(a)
		if len(b) < minLen {
			minLen = len(b)
		}
		a = a[:minLen]
		b = b[:minLen]
		// 截断后预计算的范数不再适用，必须按截断后的向量重算
		normA = VectorNorm(a)
	}

	var dot float64
	var normB float64
	for i := range a {
		dot += float64(a[i] * b[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (normA * math.Sqrt(normB))
}
