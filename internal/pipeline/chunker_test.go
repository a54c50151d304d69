package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkerSplitShortText(t *testing.T) {
	chunker := NewChunker(500, 100)

	chunks := chunker.Split("买牛奶和鸡蛋")
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "买牛奶和鸡蛋", chunks[0].Text)
}

func TestChunkerSplitEmpty(t *testing.T) {
	chunker := NewChunker(500, 100)

	assert.Nil(t, chunker.Split(""))
	assert.Nil(t, chunker.Split("   \n\t  "))
}

func TestChunkerSplitOverlap(t *testing.T) {
	chunker := NewChunker(10, 4)

	text := strings.Repeat("abcdef", 5) // 30 runes
	chunks := chunker.Split(text)
	require.True(t, len(chunks) > 1)

	// 步长 = size - overlap，相邻块共享重叠前缀
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.LessOrEqual(t, len([]rune(chunk.Text)), 10)
	}
	first := []rune(chunks[0].Text)
	second := []rune(chunks[1].Text)
	assert.Equal(t, string(first[6:]), string(second[:4]))
}

func TestChunkerSplitMultibyte(t *testing.T) {
	chunker := NewChunker(5, 2)

	chunks := chunker.Split("一二三四五六七八九十")
	require.Len(t, chunks, 3)
	assert.Equal(t, "一二三四五", chunks[0].Text)
	assert.Equal(t, "四五六七八", chunks[1].Text)
	assert.Equal(t, "七八九十", chunks[2].Text)
}

func TestChunkerNormalizesWhitespace(t *testing.T) {
	chunker := NewChunker(500, 100)

	chunks := chunker.Split("  hello \n\n world\t again ")
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world again", chunks[0].Text)
}

func TestNewChunkerDefaults(t *testing.T) {
	chunker := NewChunker(0, -1)
	assert.Equal(t, 500, chunker.chunkSize)
	assert.Equal(t, 0, chunker.chunkOverlap)

	// overlap 不得吞掉整个步长
	chunker = NewChunker(100, 100)
	assert.Equal(t, 25, chunker.chunkOverlap)
}
