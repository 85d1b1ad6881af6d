// Package index 构建并维护菜单向量索引
package index

import "context"

// 两个集合：菜单项与修饰项
const (
	CollectionItems     = "menu_items"
	CollectionModifiers = "menu_modifiers"
)

// MetricCosine 余弦距离，与 all-MiniLM 类模型匹配
const MetricCosine = "COSINE"

// Payload 向量点携带的目录载荷
type Payload struct {
	ItemPathKey    string
	ParentPathKeys []string
	Title          string
	Description    string
}

// Point 一条可检索的向量点
type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// SearchResult 检索命中
type SearchResult struct {
	ID      string
	Score   float32
	Payload Payload
}

// VectorStore 定义应用层对向量存储的最小依赖（port）
// 由基础设施层提供具体实现（Milvus 或 sqvect）
type VectorStore interface {
	// EnsureCollection 幂等创建集合；集合已存在但维度/度量不符时报 SchemaMismatch
	EnsureCollection(ctx context.Context, name string, dim int, metric string) error
	// Upsert 按 ID 插入或覆盖
	Upsert(ctx context.Context, collection string, points []Point) error
	// Search 返回至多 limit 条命中，按相似度非增排序
	// parentKey 非空时只返回 parent_path_keys 包含该键的点
	Search(ctx context.Context, collection string, vector []float32, limit int, parentKey string) ([]SearchResult, error)
	// Close 释放底层连接
	Close() error
}
