package pipeline

import (
	"fmt"
	"strings"

	"github.com/echolist/backend-go/internal/config"
	"github.com/echolist/backend-go/internal/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewVectorStore 按配置选择向量存储后端
func NewVectorStore(cfg config.VectorConfig, db *gorm.DB) (VectorStore, error) {
	switch strings.ToLower(cfg.Provider) {
	case "milvus":
		store, err := NewMilvusVectorStore(MilvusOptions{
			Address:          cfg.Milvus.Address,
			Username:         cfg.Milvus.Username,
			Password:         cfg.Milvus.Password,
			CollectionPrefix: cfg.Milvus.Collection,
			VectorSize:       cfg.Milvus.VectorSize,
			Distance:         cfg.Milvus.Distance,
			Database:         cfg.Milvus.Database,
			UseTLS:           cfg.Milvus.TLS,
		})
		if err != nil {
			return nil, fmt.Errorf("milvus vector store: %w", err)
		}
		logger.Info("vector store initialized", zap.String("provider", "milvus"))
		return store, nil
	case "qdrant":
		store, err := NewQdrantVectorStore(QdrantOptions{
			Endpoint:         cfg.Qdrant.Endpoint,
			APIKey:           cfg.Qdrant.APIKey,
			CollectionPrefix: cfg.Qdrant.Collection,
			VectorSize:       cfg.Qdrant.VectorSize,
			Distance:         cfg.Qdrant.Distance,
			UseTLS:           cfg.Qdrant.TLS,
		})
		if err != nil {
			return nil, fmt.Errorf("qdrant vector store: %w", err)
		}
		logger.Info("vector store initialized", zap.String("provider", "qdrant"))
		return store, nil
	case "", "database":
		logger.Info("vector store initialized", zap.String("provider", "database"))
		return NewDatabaseVectorStore(db), nil
	default:
		return nil, fmt.Errorf("unknown vector store provider: %s", cfg.Provider)
	}
}
