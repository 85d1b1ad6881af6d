// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"menu-search-api/internal/application/index"
	apperrors "menu-search-api/pkg/errors"
)

// Store index.VectorStore 的 Milvus 实现
type Store struct {
	client *Client
}

var _ index.VectorStore = (*Store)(nil)

// NewStore 创建 Milvus 向量存储
func NewStore(client *Client) *Store {
	return &Store{client: client}
}

// EnsureCollection 幂等创建集合
// 集合已存在时校验向量维度与索引度量，不符则报 SchemaMismatch
func (s *Store) EnsureCollection(ctx context.Context, name string, dim int, metric string) error {
	if s == nil || s.client == nil || s.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.EnsureCollection",
		trace.WithAttributes(attribute.String("collection", name), attribute.Int("dim", dim)))
	defer span.End()

	exists, err := s.client.HasCollection(ctx, name)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if !exists {
		if err := s.createCollection(ctx, name, dim); err != nil {
			span.RecordError(err)
			return err
		}
	} else if err := s.validateCollection(ctx, name, dim, metric); err != nil {
		span.RecordError(err)
		return err
	}

	return s.client.LoadCollection(ctx, name)
}

func (s *Store) createCollection(ctx context.Context, name string, dim int) error {
	collName := s.client.CollectionName(name)
	schema := CatalogSchema(collName, dim)

	if err := s.client.milvus.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexHNSW(
		entity.COSINE,
		s.client.config.HNSWM,
		s.client.config.HNSWEfConstruction,
	)
	if err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}
	if err := s.client.milvus.CreateIndex(ctx, collName, "vector", idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// validateCollection 对比已有集合的向量维度与索引度量
func (s *Store) validateCollection(ctx context.Context, name string, dim int, metric string) error {
	collName := s.client.CollectionName(name)

	coll, err := s.client.milvus.DescribeCollection(ctx, collName)
	if err != nil {
		return fmt.Errorf("failed to describe collection: %w", err)
	}

	for _, field := range coll.Schema.Fields {
		if field.Name != "vector" {
			continue
		}
		existing, err := strconv.Atoi(field.TypeParams["dim"])
		if err != nil {
			return fmt.Errorf("failed to parse collection dim: %w", err)
		}
		if existing != dim {
			return apperrors.New(apperrors.CodeSchemaMismatch, "collection dimension mismatch").
				WithDetail(fmt.Sprintf("collection=%s want=%d got=%d", collName, dim, existing))
		}
	}

	indexes, err := s.client.milvus.DescribeIndex(ctx, collName, "vector")
	if err != nil {
		// 没有索引信息时不强校验度量，由创建流程负责
		return nil
	}
	for _, idx := range indexes {
		got := idx.Params()["metric_type"]
		if got != "" && !strings.EqualFold(got, metric) {
			return apperrors.New(apperrors.CodeSchemaMismatch, "collection metric mismatch").
				WithDetail(fmt.Sprintf("collection=%s want=%s got=%s", collName, metric, got))
		}
	}
	return nil
}

// Upsert 按主键插入或覆盖
func (s *Store) Upsert(ctx context.Context, collection string, points []index.Point) error {
	if s == nil || s.client == nil || s.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	if len(points) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "milvus.Upsert",
		trace.WithAttributes(
			attribute.String("collection", collection),
			attribute.Int("count", len(points)),
		))
	defer span.End()

	collName := s.client.CollectionName(collection)
	dim := 0
	if len(points[0].Vector) > 0 {
		dim = len(points[0].Vector)
	}

	ids := make([]string, len(points))
	vectors := make([][]float32, len(points))
	itemPathKeys := make([]string, len(points))
	parentPathKeys := make([][][]byte, len(points))
	titles := make([]string, len(points))
	descriptions := make([]string, len(points))

	for i, point := range points {
		ids[i] = point.ID
		vectors[i] = point.Vector
		itemPathKeys[i] = point.Payload.ItemPathKey
		keys := make([][]byte, len(point.Payload.ParentPathKeys))
		for j, key := range point.Payload.ParentPathKeys {
			keys[j] = []byte(key)
		}
		parentPathKeys[i] = keys
		titles[i] = point.Payload.Title
		descriptions[i] = point.Payload.Description
	}

	_, err := s.client.milvus.Upsert(ctx, collName, "",
		entity.NewColumnVarChar("id", ids),
		entity.NewColumnFloatVector("vector", dim, vectors),
		entity.NewColumnVarChar("item_path_key", itemPathKeys),
		entity.NewColumnVarCharArray("parent_path_keys", parentPathKeys),
		entity.NewColumnVarChar("title", titles),
		entity.NewColumnVarChar("description", descriptions),
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// Search 向量检索，parentKey 非空时按祖先键过滤
func (s *Store) Search(ctx context.Context, collection string, vector []float32, limit int, parentKey string) ([]index.SearchResult, error) {
	if s == nil || s.client == nil || s.client.milvus == nil {
		return nil, fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.Search",
		trace.WithAttributes(
			attribute.String("collection", collection),
			attribute.Int("limit", limit),
		))
	defer span.End()

	collName := s.client.CollectionName(collection)

	expr := ""
	if parentKey != "" {
		escaped := strings.ReplaceAll(parentKey, `"`, `\"`)
		expr = fmt.Sprintf(`array_contains(parent_path_keys, "%s")`, escaped)
	}

	sp, err := entity.NewIndexHNSWSearchParam(128)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	results, err := s.client.milvus.Search(ctx,
		collName,
		nil,
		expr,
		[]string{"id", "item_path_key", "title", "description"},
		[]entity.Vector{entity.FloatVector(vector)},
		"vector",
		entity.COSINE,
		limit,
		sp,
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var hits []index.SearchResult
	for _, result := range results {
		for i := 0; i < result.ResultCount; i++ {
			hit := index.SearchResult{
				Score: result.Scores[i],
			}

			if idCol, ok := result.Fields.GetColumn("id").(*entity.ColumnVarChar); ok {
				hit.ID = idCol.Data()[i]
			}
			if keyCol, ok := result.Fields.GetColumn("item_path_key").(*entity.ColumnVarChar); ok {
				hit.Payload.ItemPathKey = keyCol.Data()[i]
			}
			if titleCol, ok := result.Fields.GetColumn("title").(*entity.ColumnVarChar); ok {
				hit.Payload.Title = titleCol.Data()[i]
			}
			if descCol, ok := result.Fields.GetColumn("description").(*entity.ColumnVarChar); ok {
				hit.Payload.Description = descCol.Data()[i]
			}

			hits = append(hits, hit)
		}
	}

	span.SetAttributes(attribute.Int("result_count", len(hits)))
	return hits, nil
}

// Close 关闭底层连接
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
