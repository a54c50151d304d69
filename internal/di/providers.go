package di

import (
	"fmt"
	"time"

	"github.com/echolist/backend-go/internal/auth"
	"github.com/echolist/backend-go/internal/authz"
	"github.com/echolist/backend-go/internal/config"
	"github.com/echolist/backend-go/internal/database"
	"github.com/echolist/backend-go/internal/pipeline"
	"github.com/echolist/backend-go/internal/repository"
	"github.com/echolist/backend-go/internal/services"
	"github.com/echolist/backend-go/internal/speech"
	"github.com/echolist/backend-go/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	"gorm.io/gorm"
)

// RegisterProviders 注册所有依赖提供者
func RegisterProviders(container *dig.Container) error {
	providers := []interface{}{
		// 基础设施
		func() (*config.Config, error) {
			if config.AppConfig == nil {
				return nil, fmt.Errorf("config not loaded")
			}
			return config.AppConfig, nil
		},
		func(cfg *config.Config) (*gorm.DB, error) {
			return database.InitDB()
		},
		func(cfg *config.Config) *redis.Client {
			if !cfg.Redis.Enabled {
				return nil
			}
			client, err := database.InitRedis()
			if err != nil {
				// 缓存不可用只降级，不阻塞启动
				return nil
			}
			return client
		},

		// 仓库
		repository.NewUserRepository,
		repository.NewConnectionRepository,
		repository.NewSectionRepository,
		repository.NewItemRepository,

		// 授权
		func(cfg *config.Config, client *redis.Client) *authz.SectionCache {
			if client == nil {
				return nil
			}
			ttl := time.Duration(cfg.Redis.TTL) * time.Second
			return authz.NewSectionCache(client, ttl)
		},
		func(conns repository.ConnectionRepository, sections repository.SectionRepository, cache *authz.SectionCache) *authz.Resolver {
			return authz.NewResolver(conns, sections, cache)
		},

		// 内容管线
		func(cfg *config.Config) *pipeline.Chunker {
			return pipeline.NewChunker(cfg.Vector.ChunkSize, cfg.Vector.ChunkOverlap)
		},
		func(cfg *config.Config) pipeline.Embedder {
			return pipeline.NewOpenAIEmbedder(cfg.AI.OpenAIAPIKey, cfg.AI.EmbeddingModel, aiCallTimeout(cfg))
		},
		func(cfg *config.Config, db *gorm.DB) (pipeline.VectorStore, error) {
			return pipeline.NewVectorStore(cfg.Vector, db)
		},
		func(cfg *config.Config) pipeline.Classifier {
			return pipeline.NewOpenAIClassifier(cfg.AI.OpenAIAPIKey, cfg.AI.ChatModel, aiCallTimeout(cfg))
		},
		func(cfg *config.Config) pipeline.Summarizer {
			return pipeline.NewOpenAISummarizer(cfg.AI.OpenAIAPIKey, cfg.AI.ChatModel, aiCallTimeout(cfg))
		},
		pipeline.NewVectorizer,
		func(cfg *config.Config) (*pipeline.KeywordIndex, error) {
			return pipeline.NewKeywordIndex(cfg.Search.Keyword)
		},
		func(cfg *config.Config) config.SearchConfig {
			return cfg.Search
		},

		// 外部能力
		func(cfg *config.Config) speech.Transcriber {
			return speech.NewWhisperTranscriber(cfg.AI.OpenAIAPIKey, cfg.AI.WhisperModel, aiCallTimeout(cfg))
		},
		func(cfg *config.Config) (*storage.AudioStore, error) {
			return storage.NewAudioStore(cfg.Audio)
		},
		func(cfg *config.Config) *auth.JWTService {
			return auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpiresIn)*time.Hour)
		},

		// 业务服务
		services.NewAuthService,
		services.NewUserService,
		services.NewConnectionService,
		services.NewSectionService,
		services.NewItemService,
		services.NewSearchService,
		services.NewHomeService,
		services.NewAIService,
	}

	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return err
		}
	}
	return nil
}

// aiCallTimeout 所有AI外部调用共用的超时上限
func aiCallTimeout(cfg *config.Config) time.Duration {
	return time.Duration(cfg.AI.TimeoutSeconds) * time.Second
}
