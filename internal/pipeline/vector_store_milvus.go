package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// MilvusOptions Milvus客户端配置
type MilvusOptions struct {
	Address          string
	Username         string
	Password         string
	CollectionPrefix string
	VectorSize       int
	Distance         string
	Database         string
	UseTLS           bool
	Timeout          time.Duration
}

type milvusVectorStore struct {
	milvusClient     client.Client
	collectionPrefix string
	vectorSize       int
	distance         string
	database         string
}

// NewMilvusVectorStore 创建Milvus向量存储，每个用户一个集合
func NewMilvusVectorStore(opts MilvusOptions) (VectorStore, error) {
	if opts.Address == "" {
		opts.Address = "localhost:19530"
	}
	if opts.CollectionPrefix == "" {
		opts.CollectionPrefix = "user_chunks"
	}
	if opts.VectorSize == 0 {
		opts.VectorSize = 1536
	}
	if opts.Distance == "" {
		opts.Distance = "COSINE"
	}
	if opts.Database == "" {
		opts.Database = "default"
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	host := opts.Address
	port := "19530"
	if strings.Contains(opts.Address, ":") {
		parts := strings.Split(opts.Address, ":")
		host = parts[0]
		port = parts[1]
	}

	milvusClient, err := client.NewClient(
		context.Background(),
		client.Config{
			Address:       fmt.Sprintf("%s:%s", host, port),
			DBName:        opts.Database,
			Username:      opts.Username,
			Password:      opts.Password,
			EnableTLSAuth: opts.UseTLS,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	return &milvusVectorStore{
		milvusClient:     milvusClient,
		collectionPrefix: opts.CollectionPrefix,
		vectorSize:       opts.VectorSize,
		distance:         formatMilvusDistance(opts.Distance),
		database:         opts.Database,
	}, nil
}

func formatMilvusDistance(value string) string {
	switch strings.ToUpper(value) {
	case "DOT", "IP", "INNER_PRODUCT":
		return "IP"
	case "L2", "EUCLIDEAN":
		return "L2"
	default:
		return "COSINE"
	}
}

func (s *milvusVectorStore) collectionName(userID uint) string {
	return fmt.Sprintf("%s_%d", s.collectionPrefix, userID)
}

func (s *milvusVectorStore) ensureCollection(ctx context.Context, userID uint) error {
	name := s.collectionName(userID)

	hasCollection, err := s.milvusClient.HasCollection(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if hasCollection {
		return nil
	}

	schema := &entity.Schema{
		CollectionName: name,
		Description:    fmt.Sprintf("User %d content chunks", userID),
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeInt64,
				PrimaryKey: true,
				AutoID:     false,
			},
			{
				Name:     "chunk_index",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "user_id",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "original_hash_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "content",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", s.vectorSize),
				},
			},
		},
	}

	if err := s.milvusClient.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	var index entity.Index
	var indexErr error
	switch s.distance {
	case "COSINE":
		index, indexErr = entity.NewIndexHNSW(entity.COSINE, 8, 64)
	case "IP":
		index, indexErr = entity.NewIndexHNSW(entity.IP, 8, 64)
	default:
		index, indexErr = entity.NewIndexHNSW(entity.L2, 8, 64)
	}
	if indexErr != nil {
		switch s.distance {
		case "COSINE":
			index, indexErr = entity.NewIndexIvfFlat(entity.COSINE, 128)
		case "IP":
			index, indexErr = entity.NewIndexIvfFlat(entity.IP, 128)
		default:
			index, indexErr = entity.NewIndexIvfFlat(entity.L2, 128)
		}
		if indexErr != nil {
			return fmt.Errorf("failed to create index: %w", indexErr)
		}
	}

	if err := s.milvusClient.CreateIndex(ctx, name, "vector", index, false); err != nil {
		// 索引创建失败不影响使用
		fmt.Printf("warning: failed to create index for collection %s: %v\n", name, err)
	}

	return nil
}

func (s *milvusVectorStore) UpsertChunk(ctx context.Context, chunk VectorChunk) (string, error) {
	if len(chunk.Embedding) == 0 {
		return "", fmt.Errorf("embedding is empty")
	}
	if len(chunk.Embedding) != s.vectorSize {
		embedding := make([]float32, s.vectorSize)
		copy(embedding, chunk.Embedding)
		chunk.Embedding = embedding
	}

	userID := chunk.Metadata.UserID
	if err := s.ensureCollection(ctx, userID); err != nil {
		return "", err
	}

	collectionName := s.collectionName(userID)

	idColumn := entity.NewColumnInt64("id", []int64{int64(chunk.ChunkID)})
	chunkIndexColumn := entity.NewColumnInt64("chunk_index", []int64{int64(chunk.Metadata.ChunkIndex)})
	userIDColumn := entity.NewColumnInt64("user_id", []int64{int64(userID)})
	hashColumn := entity.NewColumnVarChar("original_hash_id", []string{chunk.Metadata.OriginalHashID})
	contentColumn := entity.NewColumnVarChar("content", []string{chunk.Text})
	vectorColumn := entity.NewColumnFloatVector("vector", s.vectorSize, [][]float32{chunk.Embedding})

	_, err := s.milvusClient.Insert(ctx, collectionName, "", idColumn, chunkIndexColumn, userIDColumn, hashColumn, contentColumn, vectorColumn)
	if err != nil {
		return "", fmt.Errorf("milvus insert failed: %w", err)
	}

	if err := s.milvusClient.Flush(ctx, collectionName, false); err != nil {
		fmt.Printf("warning: failed to flush collection %s: %v\n", collectionName, err)
	}

	return fmt.Sprintf("milvus_%d", chunk.ChunkID), nil
}

func (s *milvusVectorStore) HasHash(ctx context.Context, userID uint, hashID string) (bool, error) {
	hasCollection, err := s.milvusClient.HasCollection(ctx, s.collectionName(userID))
	if err != nil {
		return false, fmt.Errorf("failed to check collection: %w", err)
	}
	if !hasCollection {
		return false, nil
	}

	expr := fmt.Sprintf("original_hash_id == %q", hashID)
	results, err := s.milvusClient.Query(ctx, s.collectionName(userID), nil, expr, []string{"id"})
	if err != nil {
		return false, fmt.Errorf("milvus query failed: %w", err)
	}
	for _, col := range results {
		if col.Len() > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (s *milvusVectorStore) DeleteByHash(ctx context.Context, userID uint, hashID string) error {
	if err := s.ensureCollection(ctx, userID); err != nil {
		return err
	}

	collectionName := s.collectionName(userID)
	expr := fmt.Sprintf("original_hash_id == %q", hashID)

	if err := s.milvusClient.Delete(ctx, collectionName, "", expr); err != nil {
		return fmt.Errorf("milvus delete failed: %w", err)
	}

	if err := s.milvusClient.Flush(ctx, collectionName, false); err != nil {
		fmt.Printf("warning: failed to flush after delete: %v\n", err)
	}

	return nil
}

func (s *milvusVectorStore) Search(ctx context.Context, req VectorSearchRequest) ([]SearchMatch, error) {
	if len(req.QueryEmbedding) == 0 {
		return nil, nil
	}
	if err := s.ensureCollection(ctx, req.UserID); err != nil {
		return nil, err
	}
	if req.Limit == 0 {
		req.Limit = 10
	}

	collectionName := s.collectionName(req.UserID)

	sp, _ := entity.NewIndexHNSWSearchParam(64)
	queryVector := entity.FloatVector(req.QueryEmbedding)
	searchResults, err := s.milvusClient.Search(
		ctx,
		collectionName,
		[]string{},
		"",
		[]string{"chunk_index", "original_hash_id", "content"},
		[]entity.Vector{queryVector},
		"vector",
		entity.MetricType(s.distance),
		req.Limit,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("milvus search failed: %w", err)
	}

	if len(searchResults) == 0 || searchResults[0].Err != nil {
		if len(searchResults) > 0 && searchResults[0].Err != nil {
			return nil, fmt.Errorf("milvus search error: %w", searchResults[0].Err)
		}
		return []SearchMatch{}, nil
	}

	result := searchResults[0]
	if result.ResultCount == 0 {
		return []SearchMatch{}, nil
	}

	var ids []int64
	if result.IDs != nil {
		if idCol, ok := result.IDs.(*entity.ColumnInt64); ok {
			ids = idCol.Data()
		}
	}

	var chunkIndexes []int64
	var hashes []string
	var contents []string
	if result.Fields != nil {
		for _, field := range result.Fields {
			switch field.Name() {
			case "chunk_index":
				if val, ok := field.(*entity.ColumnInt64); ok {
					chunkIndexes = val.Data()
				}
			case "original_hash_id":
				if val, ok := field.(*entity.ColumnVarChar); ok {
					hashes = val.Data()
				}
			case "content":
				if val, ok := field.(*entity.ColumnVarChar); ok {
					contents = val.Data()
				}
			}
		}
	}

	results := make([]SearchMatch, 0, result.ResultCount)
	for i := 0; i < result.ResultCount; i++ {
		chunkID := uint(0)
		if i < len(ids) {
			chunkID = uint(ids[i])
		}
		content := ""
		if i < len(contents) {
			content = contents[i]
		}

		score := float64(0)
		if i < len(result.Scores) {
			score = float64(result.Scores[i])
		}
		if score < req.Threshold {
			continue
		}

		metadata := map[string]interface{}{
			"user_id": req.UserID,
		}
		if i < len(chunkIndexes) {
			metadata["chunk_index"] = chunkIndexes[i]
		}
		if i < len(hashes) {
			metadata["original_hash_id"] = hashes[i]
		}

		results = append(results, SearchMatch{
			ChunkID:  chunkID,
			Content:  content,
			Score:    score,
			Metadata: metadata,
		})
	}

	return results, nil
}

func (s *milvusVectorStore) Ready() bool {
	if s.milvusClient == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := s.milvusClient.ListCollections(ctx)
	return err == nil
}
