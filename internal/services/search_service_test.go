package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/echolist/backend-go/internal/authz"
	"github.com/echolist/backend-go/internal/config"
	apperrors "github.com/echolist/backend-go/internal/errors"
	"github.com/echolist/backend-go/internal/models"
	"github.com/echolist/backend-go/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeQueryEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeQueryEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vector, f.err
}

func (f *fakeQueryEmbedder) Dimensions() int { return len(f.vector) }
func (f *fakeQueryEmbedder) Ready() bool     { return true }

type fakeChunkStore struct {
	matches []pipeline.SearchMatch
	lastReq pipeline.VectorSearchRequest
	hasHash bool
	upserts int
}

func (f *fakeChunkStore) UpsertChunk(ctx context.Context, chunk pipeline.VectorChunk) (string, error) {
	f.upserts++
	return "", nil
}

func (f *fakeChunkStore) HasHash(ctx context.Context, userID uint, hashID string) (bool, error) {
	return f.hasHash, nil
}

func (f *fakeChunkStore) DeleteByHash(ctx context.Context, userID uint, hashID string) error {
	return nil
}

func (f *fakeChunkStore) Search(ctx context.Context, req pipeline.VectorSearchRequest) ([]pipeline.SearchMatch, error) {
	f.lastReq = req
	return f.matches, nil
}

func (f *fakeChunkStore) Ready() bool { return true }

func mustEmbedding(t *testing.T, vec []float32) []byte {
	t.Helper()
	data, err := json.Marshal(vec)
	require.NoError(t, err)
	return data
}

// 检索范围场景：actor 2 自有分区 20，经 Family 规则可见分区 10。
// 三条候选里一条相似度过低被过滤，剩下两条按相似度降序返回。
func TestSearchItemsScopedAndOrdered(t *testing.T) {
	items := new(MockItemRepo)
	sections := new(MockSectionRepo)
	conns := new(MockConnectionRepo)
	resolver := authz.NewResolver(conns, sections, nil)

	sections.On("ListByOwner", mock.Anything, uint(2)).Return([]models.Section{
		{SectionID: 20, OwnerUserID: 2},
	}, nil)
	conns.On("ListForUser", mock.Anything, uint(2), nilConnType, nilStatus).Return([]models.Connection{
		{UserAID: 1, UserBID: 2, ConnectionType: models.ConnectionFamily, Status: models.ConnectionAccepted},
	}, nil)
	sections.On("ListByOwner", mock.Anything, uint(1)).Return([]models.Section{
		{SectionID: 10, OwnerUserID: 1},
	}, nil)
	sections.On("GetAccessRule", mock.Anything, uint(10), models.ConnectionFamily).
		Return(&models.SectionAccess{SectionID: 10, CanView: true}, nil)

	items.On("ListBySections", mock.Anything, mock.MatchedBy(func(ids []uint) bool {
		return len(ids) == 2
	})).Return([]models.Item{
		{ItemID: 1, SectionID: 20, ContentText: "exact match", VectorEmbedding: mustEmbedding(t, []float32{1, 0})},
		{ItemID: 2, SectionID: 10, ContentText: "close match", VectorEmbedding: mustEmbedding(t, []float32{0.8, 0.6})},
		{ItemID: 3, SectionID: 20, ContentText: "unrelated", VectorEmbedding: mustEmbedding(t, []float32{0, 1})},
	}, nil)

	svc := NewSearchService(items, resolver, &fakeQueryEmbedder{vector: []float32{1, 0}}, nil, nil, nil, config.SearchConfig{})

	resp, err := svc.SearchItems(context.Background(), 2, SearchRequest{Query: "milk"})

	require.NoError(t, err)
	require.Len(t, resp.Matches, 2)
	assert.Equal(t, uint(1), resp.Matches[0].Item.ItemID)
	assert.Equal(t, uint(2), resp.Matches[1].Item.ItemID)
	assert.Greater(t, resp.Matches[0].Score, resp.Matches[1].Score)
}

func TestSearchItemsLimitTruncates(t *testing.T) {
	items := new(MockItemRepo)
	sections := new(MockSectionRepo)
	conns := new(MockConnectionRepo)
	resolver := authz.NewResolver(conns, sections, nil)

	sections.On("ListByOwner", mock.Anything, uint(2)).Return([]models.Section{
		{SectionID: 20, OwnerUserID: 2},
	}, nil)
	conns.On("ListForUser", mock.Anything, uint(2), nilConnType, nilStatus).
		Return([]models.Connection{}, nil)
	items.On("ListBySections", mock.Anything, []uint{20}).Return([]models.Item{
		{ItemID: 1, SectionID: 20, VectorEmbedding: mustEmbedding(t, []float32{1, 0})},
		{ItemID: 2, SectionID: 20, VectorEmbedding: mustEmbedding(t, []float32{0.9, 0.1})},
	}, nil)

	svc := NewSearchService(items, resolver, &fakeQueryEmbedder{vector: []float32{1, 0}}, nil, nil, nil, config.SearchConfig{})

	resp, err := svc.SearchItems(context.Background(), 2, SearchRequest{Query: "milk", Limit: 1})

	require.NoError(t, err)
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, uint(1), resp.Matches[0].Item.ItemID)
}

func TestSearchItemsEmptyQueryRejected(t *testing.T) {
	resolver := authz.NewResolver(new(MockConnectionRepo), new(MockSectionRepo), nil)
	svc := NewSearchService(new(MockItemRepo), resolver, &fakeQueryEmbedder{vector: []float32{1}}, nil, nil, nil, config.SearchConfig{})

	_, err := svc.SearchItems(context.Background(), 2, SearchRequest{Query: "   "})

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidationFailed))
}

func TestSearchItemsNoAccessibleSections(t *testing.T) {
	items := new(MockItemRepo)
	sections := new(MockSectionRepo)
	conns := new(MockConnectionRepo)
	resolver := authz.NewResolver(conns, sections, nil)

	sections.On("ListByOwner", mock.Anything, uint(2)).Return([]models.Section{}, nil)
	conns.On("ListForUser", mock.Anything, uint(2), nilConnType, nilStatus).
		Return([]models.Connection{}, nil)

	svc := NewSearchService(items, resolver, &fakeQueryEmbedder{vector: []float32{1}}, nil, nil, nil, config.SearchConfig{})

	resp, err := svc.SearchItems(context.Background(), 2, SearchRequest{Query: "milk"})

	require.NoError(t, err)
	assert.Empty(t, resp.Matches)
	items.AssertNotCalled(t, "ListBySections", mock.Anything, mock.Anything)
}

func TestSearchItemsSkipsCorruptEmbedding(t *testing.T) {
	items := new(MockItemRepo)
	sections := new(MockSectionRepo)
	conns := new(MockConnectionRepo)
	resolver := authz.NewResolver(conns, sections, nil)

	sections.On("ListByOwner", mock.Anything, uint(2)).Return([]models.Section{
		{SectionID: 20, OwnerUserID: 2},
	}, nil)
	conns.On("ListForUser", mock.Anything, uint(2), nilConnType, nilStatus).
		Return([]models.Connection{}, nil)
	items.On("ListBySections", mock.Anything, []uint{20}).Return([]models.Item{
		{ItemID: 1, SectionID: 20, VectorEmbedding: []byte("not json")},
		{ItemID: 2, SectionID: 20, VectorEmbedding: mustEmbedding(t, []float32{1, 0})},
		{ItemID: 3, SectionID: 20}, // 无嵌入
	}, nil)

	svc := NewSearchService(items, resolver, &fakeQueryEmbedder{vector: []float32{1, 0}}, nil, nil, nil, config.SearchConfig{})

	resp, err := svc.SearchItems(context.Background(), 2, SearchRequest{Query: "milk"})

	require.NoError(t, err)
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, uint(2), resp.Matches[0].Item.ItemID)
}

func TestSearchChunksScopedToActor(t *testing.T) {
	resolver := authz.NewResolver(new(MockConnectionRepo), new(MockSectionRepo), nil)
	store := &fakeChunkStore{matches: []pipeline.SearchMatch{
		{ChunkID: 1, Content: "hello", Score: 0.9},
	}}
	svc := NewSearchService(new(MockItemRepo), resolver, &fakeQueryEmbedder{vector: []float32{1, 0}}, store, nil, nil, config.SearchConfig{})

	resp, err := svc.SearchChunks(context.Background(), 7, SearchRequest{Query: "hello", Limit: 5})

	require.NoError(t, err)
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, uint(7), store.lastReq.UserID)
	assert.Equal(t, 5, store.lastReq.Limit)
	assert.InDelta(t, 0.5, store.lastReq.Threshold, 1e-9)
}

func TestClampLimitDefaults(t *testing.T) {
	svc := NewSearchService(nil, nil, nil, nil, nil, nil, config.SearchConfig{})

	assert.Equal(t, 10, svc.clampLimit(0))
	assert.Equal(t, 10, svc.clampLimit(-3))
	assert.Equal(t, 10, svc.clampLimit(50))
	assert.Equal(t, 3, svc.clampLimit(3))
}

// 配置里的阈值和页大小要真正生效，而不是写死的常量
func TestSearchConfigKnobsApplied(t *testing.T) {
	store := &fakeChunkStore{}
	svc := NewSearchService(nil, nil, &fakeQueryEmbedder{vector: []float32{1, 0}}, store, nil, nil,
		config.SearchConfig{SimilarityThreshold: 0.7, PageSize: 5})

	assert.Equal(t, 5, svc.clampLimit(0))
	assert.Equal(t, 5, svc.clampLimit(9))

	_, err := svc.SearchChunks(context.Background(), 7, SearchRequest{Query: "hello"})
	require.NoError(t, err)
	assert.InDelta(t, 0.7, store.lastReq.Threshold, 1e-9)
	assert.Equal(t, 5, store.lastReq.Limit)
}
