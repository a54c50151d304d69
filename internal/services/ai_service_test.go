package services

import (
	"context"
	"testing"

	apperrors "github.com/echolist/backend-go/internal/errors"
	"github.com/echolist/backend-go/internal/models"
	"github.com/echolist/backend-go/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeClassifier struct {
	result     *pipeline.Classification
	err        error
	gotCatalog []pipeline.SectionCatalogEntry
}

func (f *fakeClassifier) Classify(ctx context.Context, text string, catalog []pipeline.SectionCatalogEntry) (*pipeline.Classification, error) {
	f.gotCatalog = catalog
	return f.result, f.err
}

func (f *fakeClassifier) Ready() bool { return true }

func newTestVectorizer(store *fakeChunkStore, classifier pipeline.Classifier) *pipeline.Vectorizer {
	chunker := pipeline.NewChunker(500, 100)
	embedder := &fakeQueryEmbedder{vector: []float32{1, 0}}
	return pipeline.NewVectorizer(chunker, embedder, store, classifier)
}

func TestVectorizeStoresChunks(t *testing.T) {
	sections := new(MockSectionRepo)
	store := &fakeChunkStore{}
	svc := NewAIService(sections, newTestVectorizer(store, nil))

	result, err := svc.Vectorize(context.Background(), 1, VectorizeRequest{Text: "buy milk tomorrow"})

	require.NoError(t, err)
	assert.Equal(t, 1, result.ChunksCount)
	assert.Equal(t, pipeline.ContentHash("buy milk tomorrow"), result.HashID)
	assert.Equal(t, 1, store.upserts)
	sections.AssertNotCalled(t, "ListByOwner", mock.Anything, mock.Anything)
}

func TestVectorizeDuplicateSkipsWrite(t *testing.T) {
	store := &fakeChunkStore{hasHash: true}
	svc := NewAIService(new(MockSectionRepo), newTestVectorizer(store, nil))

	result, err := svc.Vectorize(context.Background(), 1, VectorizeRequest{Text: "buy milk tomorrow"})

	require.NoError(t, err)
	assert.Equal(t, 0, result.ChunksCount)
	assert.Equal(t, pipeline.ContentHash("buy milk tomorrow"), result.HashID)
	assert.Equal(t, 0, store.upserts)
}

func TestVectorizeEmptyTextRejected(t *testing.T) {
	svc := NewAIService(new(MockSectionRepo), newTestVectorizer(&fakeChunkStore{}, nil))

	_, err := svc.Vectorize(context.Background(), 1, VectorizeRequest{Text: "   "})

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidationFailed))
}

// 分类候选目录必须来自 actor 自有分区，不接受调用方自报的目录
func TestVectorizeClassifyUsesOwnCatalog(t *testing.T) {
	sections := new(MockSectionRepo)
	sections.On("ListByOwner", mock.Anything, uint(1)).Return([]models.Section{
		{SectionID: 5, OwnerUserID: 1, SectionName: "Groceries"},
	}, nil)

	predicted := uint(5)
	classifier := &fakeClassifier{result: &pipeline.Classification{
		PredictedSectionName: "Groceries",
		SectionID:            &predicted,
		ConfidenceScore:      1.0,
	}}
	svc := NewAIService(sections, newTestVectorizer(&fakeChunkStore{}, classifier))

	result, err := svc.Vectorize(context.Background(), 1, VectorizeRequest{Text: "eggs and milk", Classify: true})

	require.NoError(t, err)
	require.NotNil(t, result.Classification)
	assert.Equal(t, "Groceries", result.Classification.PredictedSectionName)
	require.Len(t, classifier.gotCatalog, 1)
	assert.Equal(t, uint(5), classifier.gotCatalog[0].SectionID)
}
