package pipeline

import (
	"context"
	"sort"
)

// VectorChunk 存储向量信息
type VectorChunk struct {
	ChunkID   uint
	Text      string
	Embedding []float32
	Metadata  ChunkMetadata
}

// VectorSearchRequest 向量检索请求
type VectorSearchRequest struct {
	UserID         uint
	QueryEmbedding []float32
	Limit          int
	CandidateLimit int
	Threshold      float64 // 相似度阈值，仅返回 >= Threshold 的结果
}

// SearchMatch 单条检索结果
type SearchMatch struct {
	ChunkID  uint
	Content  string
	Score    float64
	Metadata map[string]interface{}
}

// VectorStore 向量存储抽象
// HasHash 是去重查询：任一已存块携带相同 original_hash_id 即视为重复。
type VectorStore interface {
	UpsertChunk(ctx context.Context, chunk VectorChunk) (string, error)
	HasHash(ctx context.Context, userID uint, hashID string) (bool, error)
	DeleteByHash(ctx context.Context, userID uint, hashID string) error
	Search(ctx context.Context, req VectorSearchRequest) ([]SearchMatch, error)
	Ready() bool
}

func sortMatchesByScore(matches []SearchMatch) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ChunkID < matches[j].ChunkID
		}
		return matches[i].Score > matches[j].Score
	})
}
