// Package sqvect 提供嵌入式 SQLite 向量存储实现
// 面向离线/开发环境，与 Milvus 实现共用同一个 port
package sqvect

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	sqvectdb "github.com/liliang-cn/sqvect/v2/pkg/core"

	"menu-search-api/internal/application/index"
	apperrors "menu-search-api/pkg/errors"
)

// parentKeyPrefix 祖先键在 metadata 里的展开前缀
// sqvect 的过滤只支持精确匹配，逐键展开后才能按任意祖先过滤
const parentKeyPrefix = "parent:"

// collectionMeta 落盘的集合元信息，EnsureCollection 靠它检测模式漂移
type collectionMeta struct {
	Dim    int    `json:"dim"`
	Metric string `json:"metric"`
}

// Store index.VectorStore 的 sqvect 实现，每个集合一个库文件
type Store struct {
	dir string

	mu     sync.Mutex
	stores map[string]*sqvectdb.SQLiteStore
}

var _ index.VectorStore = (*Store)(nil)

// NewStore 创建存储，dir 为库文件目录
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sqvect dir: %w", err)
	}
	return &Store{
		dir:    dir,
		stores: make(map[string]*sqvectdb.SQLiteStore),
	}, nil
}

// EnsureCollection 幂等打开集合，元信息不符时报 SchemaMismatch
func (s *Store) EnsureCollection(ctx context.Context, name string, dim int, metric string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stores[name]; ok {
		return nil
	}

	metaPath := s.metaPath(name)
	raw, err := os.ReadFile(metaPath)
	switch {
	case err == nil:
		var meta collectionMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return apperrors.Wrap(err, apperrors.CodeParseFailed, "failed to parse collection meta").
				WithDetail(metaPath)
		}
		if meta.Dim != dim || meta.Metric != metric {
			return apperrors.New(apperrors.CodeSchemaMismatch, "collection schema mismatch").
				WithDetail(fmt.Sprintf("collection=%s want dim=%d metric=%s, got dim=%d metric=%s",
					name, dim, metric, meta.Dim, meta.Metric))
		}
	case os.IsNotExist(err):
		meta, err := json.Marshal(collectionMeta{Dim: dim, Metric: metric})
		if err != nil {
			return fmt.Errorf("failed to encode collection meta: %w", err)
		}
		if err := os.WriteFile(metaPath, meta, 0o644); err != nil {
			return fmt.Errorf("failed to write collection meta: %w", err)
		}
	default:
		return fmt.Errorf("failed to read collection meta: %w", err)
	}

	store, err := sqvectdb.New(s.dbPath(name), dim)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeVectorDBError, "failed to open sqvect store")
	}
	if err := store.Init(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.CodeVectorDBError, "failed to init sqvect store")
	}

	s.stores[name] = store
	return nil
}

// Upsert 按 ID 插入或覆盖
func (s *Store) Upsert(ctx context.Context, collection string, points []index.Point) error {
	store, err := s.collection(collection)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}

	embeddings := make([]*sqvectdb.Embedding, 0, len(points))
	for _, point := range points {
		metadata := map[string]string{
			"item_path_key": point.Payload.ItemPathKey,
			"title":         point.Payload.Title,
			"description":   point.Payload.Description,
		}
		for _, key := range point.Payload.ParentPathKeys {
			metadata[parentKeyPrefix+key] = "1"
		}

		// DocID 在 sqvect v2 里是指向 documents 表的外键，不能放自由标签；
		// item_path_key 已在 metadata 中，Search 也只从 metadata 读取
		embeddings = append(embeddings, &sqvectdb.Embedding{
			ID:       point.ID,
			Vector:   point.Vector,
			Content:  point.Payload.Title,
			Metadata: metadata,
		})
	}

	if err := store.UpsertBatch(ctx, embeddings); err != nil {
		return apperrors.Wrap(err, apperrors.CodeVectorDBError, "failed to upsert embeddings")
	}
	return nil
}

// Search 向量检索，parentKey 非空时按祖先键过滤
func (s *Store) Search(ctx context.Context, collection string, vector []float32, limit int, parentKey string) ([]index.SearchResult, error) {
	store, err := s.collection(collection)
	if err != nil {
		return nil, err
	}

	opts := sqvectdb.SearchOptions{TopK: limit}
	if parentKey != "" {
		opts.Filter = map[string]string{parentKeyPrefix + parentKey: "1"}
	}

	scored, err := store.Search(ctx, vector, opts)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeVectorDBError, "failed to search embeddings")
	}

	hits := make([]index.SearchResult, 0, len(scored))
	for _, emb := range scored {
		hit := index.SearchResult{
			ID:    emb.ID,
			Score: float32(emb.Score),
			Payload: index.Payload{
				ItemPathKey: emb.Metadata["item_path_key"],
				Title:       emb.Metadata["title"],
				Description: emb.Metadata["description"],
			},
		}
		for key := range emb.Metadata {
			if len(key) > len(parentKeyPrefix) && key[:len(parentKeyPrefix)] == parentKeyPrefix {
				hit.Payload.ParentPathKeys = append(hit.Payload.ParentPathKeys, key[len(parentKeyPrefix):])
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Close 关闭全部集合
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for name, store := range s.stores {
		if err := store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.stores, name)
	}
	return firstErr
}

func (s *Store) collection(name string) (*sqvectdb.SQLiteStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	store, ok := s.stores[name]
	if !ok {
		return nil, apperrors.New(apperrors.CodeVectorDBError, "collection not initialized").
			WithDetail(name)
	}
	return store, nil
}

func (s *Store) dbPath(name string) string {
	return filepath.Join(s.dir, name+".db")
}

func (s *Store) metaPath(name string) string {
	return filepath.Join(s.dir, name+".meta.json")
}
