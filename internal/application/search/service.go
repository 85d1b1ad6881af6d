// Package search 提供就绪快照之上的只读语义检索
package search

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"

	"menu-search-api/internal/application/index"
	"menu-search-api/internal/domain/catalog"
	apperrors "menu-search-api/pkg/errors"
	"menu-search-api/pkg/logger"
	"menu-search-api/pkg/metrics"
)

const (
	defaultLimit = 5
	maxLimit     = 50
)

// Result 一条检索命中及其目录载荷
type Result struct {
	ItemPathKey string  `json:"item_path_key"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Score       float32 `json:"score"`
}

// Service 查询服务，持有启动阶段装配好的快照
// 查询路径只访问向量库，不再碰上游目录
type Service struct {
	embedder  embedding.Embedder
	store     index.VectorStore
	tree      *catalog.Tree
	modifiers catalog.ModifierSet
}

// NewService 创建查询服务
func NewService(embedder embedding.Embedder, store index.VectorStore, tree *catalog.Tree, modifiers catalog.ModifierSet) *Service {
	return &Service{
		embedder:  embedder,
		store:     store,
		tree:      tree,
		modifiers: modifiers,
	}
}

// Menu 返回启动时装配的菜单快照
func (s *Service) Menu() *catalog.Tree {
	return s.tree
}

// QueryItems 在菜单项集合中做语义检索
func (s *Service) QueryItems(ctx context.Context, query string, limit int) ([]Result, error) {
	return s.query(ctx, index.CollectionItems, query, limit, "")
}

// QueryModifiers 在修饰项集合中做语义检索，parentKey 必填
func (s *Service) QueryModifiers(ctx context.Context, query, parentKey string, limit int) ([]Result, error) {
	parentKey = strings.TrimSpace(parentKey)
	if parentKey == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "parent is required")
	}
	return s.query(ctx, index.CollectionModifiers, query, limit, parentKey)
}

func (s *Service) query(ctx context.Context, collection, query string, limit int, parentKey string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "query is required")
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	logger.Info(ctx, "performing query", "collection", collection, "query", query, "limit", limit)

	vector, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	hits, err := s.store.Search(ctx, collection, vector, limit, parentKey)
	metrics.VectorSearchDuration.WithLabelValues(collection).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.VectorSearchTotal.WithLabelValues(collection, "error").Inc()
		return nil, apperrors.Wrap(err, apperrors.CodeSearchFailed, "vector search failed")
	}
	metrics.VectorSearchTotal.WithLabelValues(collection, "ok").Inc()

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, Result{
			ItemPathKey: hit.Payload.ItemPathKey,
			Title:       hit.Payload.Title,
			Description: hit.Payload.Description,
			Score:       hit.Score,
		})
	}
	return results, nil
}

func (s *Service) embedQuery(ctx context.Context, query string) ([]float32, error) {
	v64, err := s.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeEmbeddingFailed, "failed to embed query")
	}
	if len(v64) == 0 {
		return nil, apperrors.New(apperrors.CodeEmbeddingFailed, "empty embedding result")
	}

	vec := v64[0]
	out := make([]float32, 0, len(vec))
	for _, x := range vec {
		out = append(out, float32(x))
	}
	return out, nil
}
