package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"menu-search-api/internal/application/index"
	"menu-search-api/internal/application/search"
	"menu-search-api/internal/domain/catalog"
)

type stubEmbedder struct{}

func (stubEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	vectors := make([][]float64, 0, len(texts))
	for range texts {
		vectors = append(vectors, []float64{0.5, 0.5})
	}
	return vectors, nil
}

type stubStore struct {
	hits []index.SearchResult
}

func (s *stubStore) EnsureCollection(context.Context, string, int, string) error { return nil }
func (s *stubStore) Upsert(context.Context, string, []index.Point) error         { return nil }
func (s *stubStore) Close() error                                                { return nil }

func (s *stubStore) Search(context.Context, string, []float32, int, string) ([]index.SearchResult, error) {
	return s.hits, nil
}

func newTestRouter(hits []index.SearchResult) *gin.Engine {
	gin.SetMode(gin.TestMode)

	svc := search.NewService(stubEmbedder{}, &stubStore{hits: hits},
		&catalog.Tree{SnapshotID: "snap-1"}, catalog.ModifierSet{})

	searchHandler := NewSearchHandler(svc)
	menuHandler := NewMenuHandler(svc)

	engine := gin.New()
	engine.POST("/query/items", searchHandler.QueryItems)
	engine.POST("/query/modifiers", searchHandler.QueryModifiers)
	engine.GET("/menu", menuHandler.Menu)
	return engine
}

func doRequest(t *testing.T, engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestQueryItemsHandler(t *testing.T) {
	hits := []index.SearchResult{
		{
			ID:    "p1",
			Score: 0.88,
			Payload: index.Payload{
				ItemPathKey: "1-10",
				Title:       "Burger",
				Description: "Beef patty",
			},
		},
	}
	engine := newTestRouter(hits)

	rec := doRequest(t, engine, http.MethodPost, "/query/items", `{"query": "burger"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Code int `json:"code"`
		Data struct {
			Results []search.Result `json:"results"`
			Count   int             `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, 200, resp.Code)
	assert.Equal(t, 1, resp.Data.Count)
	require.Len(t, resp.Data.Results, 1)
	assert.Equal(t, "1-10", resp.Data.Results[0].ItemPathKey)
}

func TestQueryItemsHandlerValidation(t *testing.T) {
	engine := newTestRouter(nil)

	tests := []struct {
		name string
		body string
	}{
		{name: "missing query", body: `{}`},
		{name: "limit above cap", body: `{"query": "burger", "limit": 100}`},
		{name: "negative limit", body: `{"query": "burger", "limit": -1}`},
		{name: "malformed json", body: `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, engine, http.MethodPost, "/query/items", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestQueryItemsHandlerBlankQuery(t *testing.T) {
	engine := newTestRouter(nil)

	// 绑定通过但业务校验拒绝
	rec := doRequest(t, engine, http.MethodPost, "/query/items", `{"query": "   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error struct {
			ErrorCode string `json:"error_code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "1001", resp.Error.ErrorCode)
}

func TestQueryModifiersHandler(t *testing.T) {
	engine := newTestRouter(nil)

	rec := doRequest(t, engine, http.MethodPost, "/query/modifiers", `{"query": "cheese", "parent": "1-10"}`)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestQueryModifiersHandlerRequiresParent(t *testing.T) {
	engine := newTestRouter(nil)

	rec := doRequest(t, engine, http.MethodPost, "/query/modifiers", `{"query": "cheese"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMenuHandler(t *testing.T) {
	engine := newTestRouter(nil)

	rec := doRequest(t, engine, http.MethodGet, "/menu", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data catalog.Tree `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "snap-1", resp.Data.SnapshotID)
}
