package pipeline

import (
	"crypto/md5"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkMetadataValidate(t *testing.T) {
	sum := md5.Sum([]byte("买牛奶"))
	hash := hex.EncodeToString(sum[:])

	valid := ChunkMetadata{UserID: 1, ChunkIndex: 0, OriginalHashID: hash}
	assert.NoError(t, valid.Validate())

	missingUser := ChunkMetadata{ChunkIndex: 0, OriginalHashID: hash}
	assert.Error(t, missingUser.Validate())

	negativeIndex := ChunkMetadata{UserID: 1, ChunkIndex: -1, OriginalHashID: hash}
	assert.Error(t, negativeIndex.Validate())

	shortHash := ChunkMetadata{UserID: 1, ChunkIndex: 0, OriginalHashID: "abc123"}
	assert.Error(t, shortHash.Validate())

	nonHex := ChunkMetadata{UserID: 1, ChunkIndex: 0, OriginalHashID: "zz" + hash[2:]}
	assert.Error(t, nonHex.Validate())
}
