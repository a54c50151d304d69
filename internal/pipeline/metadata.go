package pipeline

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

// ChunkMetadata 每个向量条目携带的元数据
// original_hash_id 为整段原文的MD5，同一段文本的所有块共享同一个值。
type ChunkMetadata struct {
	UserID         uint   `json:"user_id" validate:"required"`
	ChunkIndex     int    `json:"chunk_index" validate:"gte=0"`
	OriginalHashID string `json:"original_hash_id" validate:"required,len=32,hexadecimal"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func metadataValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Validate 在入库边界校验元数据
func (m ChunkMetadata) Validate() error {
	return metadataValidator().Struct(m)
}
