package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/echolist/backend-go/internal/config"
	"github.com/echolist/backend-go/internal/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// AudioStore 语音条目的音频对象存储
type AudioStore struct {
	client *minio.Client
	bucket string
}

// NewAudioStore 创建MinIO音频存储，provider 非 minio 时返回 nil
func NewAudioStore(cfg config.AudioConfig) (*AudioStore, error) {
	if cfg.Provider != "minio" {
		return nil, nil
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint not configured")
	}

	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "audio"
	}

	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	store := &AudioStore{client: client, bucket: bucket}
	if err := store.ensureBucket(); err != nil {
		return nil, err
	}

	logger.Info("MinIO音频存储初始化成功",
		zap.String("endpoint", endpoint),
		zap.String("bucket", bucket))
	return store, nil
}

func (s *AudioStore) ensureBucket() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "BucketAlreadyExists") ||
			strings.Contains(errStr, "BucketAlreadyOwnedByYou") {
			return nil
		}
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Upload 上传音频字节，返回对象名
func (s *AudioStore) Upload(ctx context.Context, userID uint, audio []byte, contentType string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("audio is empty")
	}
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	objectName := fmt.Sprintf("voice/%d/%d", userID, time.Now().UnixNano())
	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(audio), int64(len(audio)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("minio upload failed: %w", err)
	}
	return objectName, nil
}

// PresignedURL 生成限时下载链接
func (s *AudioStore) PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = time.Hour
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("minio presign failed: %w", err)
	}
	return u.String(), nil
}

// Ready 检查客户端是否可用
func (s *AudioStore) Ready() bool {
	return s != nil && s.client != nil
}
