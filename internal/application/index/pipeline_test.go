package index

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"menu-search-api/internal/domain/catalog"
	apperrors "menu-search-api/pkg/errors"
)

const testDim = 4

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (f *fakeEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.fail {
		return nil, errors.New("embedder down")
	}

	vectors := make([][]float64, 0, len(texts))
	for range texts {
		vectors = append(vectors, make([]float64, testDim))
	}
	return vectors, nil
}

type fakeStore struct {
	mu          sync.Mutex
	collections map[string]int
	points      map[string]map[string]Point
	failUpsert  func(collection string, points []Point) bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		collections: make(map[string]int),
		points:      make(map[string]map[string]Point),
	}
}

func (f *fakeStore) EnsureCollection(_ context.Context, name string, dim int, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collections[name] = dim
	if f.points[name] == nil {
		f.points[name] = make(map[string]Point)
	}
	return nil
}

func (f *fakeStore) Upsert(_ context.Context, collection string, points []Point) error {
	if f.failUpsert != nil && f.failUpsert(collection, points) {
		return errors.New("upsert failed")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, point := range points {
		f.points[collection][point.ID] = point
	}
	return nil
}

func (f *fakeStore) Search(context.Context, string, []float32, int, string) ([]SearchResult, error) {
	return nil, nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) count(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.points[collection])
}

func testTree() *catalog.Tree {
	return &catalog.Tree{
		SnapshotID: "snap-1",
		Categories: []catalog.Node{
			{
				ItemPathKey: "1",
				Children: []catalog.Node{
					{Title: "Burger", ItemPathKey: "1-10"},
					{Title: "Fries", ItemPathKey: "1-11"},
				},
			},
			{
				ItemPathKey: "2",
				Children: []catalog.Node{
					{Title: "Cola", ItemPathKey: "2-20"},
				},
			},
		},
	}
}

func testModifiers() catalog.ModifierSet {
	return catalog.ModifierSet{
		"1-10": {Value: []catalog.Node{
			{
				Title:       "Toppings",
				ItemPathKey: "1-10-100",
				Children: []catalog.Node{
					{Title: "Cheese", ItemPathKey: "1-10-100-1000"},
				},
			},
		}},
	}
}

func TestPipelineRun(t *testing.T) {
	store := newFakeStore()
	pipeline := NewPipeline(&fakeEmbedder{}, store, testDim, 2, 2)

	report, err := pipeline.Run(context.Background(), testTree(), testModifiers())
	require.NoError(t, err)

	assert.Equal(t, 3, report.ItemPoints)
	assert.Equal(t, 2, report.ModifierPoints)
	assert.Equal(t, 0, report.Skipped)

	assert.Equal(t, testDim, store.collections[CollectionItems])
	assert.Equal(t, testDim, store.collections[CollectionModifiers])
	assert.Equal(t, 3, store.count(CollectionItems))
	assert.Equal(t, 2, store.count(CollectionModifiers))
}

func TestPipelineRunIdempotent(t *testing.T) {
	store := newFakeStore()
	pipeline := NewPipeline(&fakeEmbedder{}, store, testDim, 2, 2)

	_, err := pipeline.Run(context.Background(), testTree(), testModifiers())
	require.NoError(t, err)
	_, err = pipeline.Run(context.Background(), testTree(), testModifiers())
	require.NoError(t, err)

	// 点 ID 由 itemPathKey 派生，重跑只是覆盖
	assert.Equal(t, 3, store.count(CollectionItems))
	assert.Equal(t, 2, store.count(CollectionModifiers))
}

func TestPipelineSkipsFailedBatch(t *testing.T) {
	store := newFakeStore()
	store.failUpsert = func(collection string, points []Point) bool {
		return collection == CollectionItems && points[0].Payload.ItemPathKey == "1-10"
	}

	pipeline := NewPipeline(&fakeEmbedder{}, store, testDim, 1, 1)

	report, err := pipeline.Run(context.Background(), testTree(), testModifiers())
	require.NoError(t, err)

	assert.Equal(t, 2, report.ItemPoints)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 2, store.count(CollectionItems))
}

func TestPipelineAbortsWhenAllBatchesFail(t *testing.T) {
	store := newFakeStore()
	pipeline := NewPipeline(&fakeEmbedder{fail: true}, store, testDim, 2, 2)

	_, err := pipeline.Run(context.Background(), testTree(), testModifiers())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeIndexingFailed, apperrors.AsAppError(err).Code)
}

func TestPipelineRejectsWrongEmbeddingWidth(t *testing.T) {
	store := newFakeStore()
	// dim 与 fakeEmbedder 产出的宽度不一致
	pipeline := NewPipeline(&fakeEmbedder{}, store, testDim+1, 2, 2)

	_, err := pipeline.Run(context.Background(), testTree(), testModifiers())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeIndexingFailed, apperrors.AsAppError(err).Code)
	assert.Equal(t, 0, store.count(CollectionItems))
}
