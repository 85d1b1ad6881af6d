package index

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/cloudwego/eino/components/embedding"
	"golang.org/x/sync/errgroup"

	"menu-search-api/internal/domain/catalog"
	apperrors "menu-search-api/pkg/errors"
	"menu-search-api/pkg/logger"
	"menu-search-api/pkg/metrics"
)

const (
	defaultBatchSize   = 64
	defaultConcurrency = 4

	// progressInterval 每写入这么多点打一条进度日志
	progressInterval = 500
)

// Pipeline 启动期索引构建流水线
type Pipeline struct {
	embedder    embedding.Embedder
	store       VectorStore
	dim         int
	metric      string
	batchSize   int
	concurrency int
}

// Report 一次索引构建的汇总
type Report struct {
	ItemPoints     int
	ModifierPoints int
	Skipped        int
}

// NewPipeline 创建索引流水线
func NewPipeline(embedder embedding.Embedder, store VectorStore, dim, batchSize, concurrency int) *Pipeline {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Pipeline{
		embedder:    embedder,
		store:       store,
		dim:         dim,
		metric:      MetricCosine,
		batchSize:   batchSize,
		concurrency: concurrency,
	}
}

// job 待嵌入的单个节点，ownerKey 标记修饰项所属的菜单项
type job struct {
	node     catalog.Node
	ownerKey string
}

// Run 构建两个集合的全部向量点
// 单批失败只告警并计数，不中断整体构建
func (p *Pipeline) Run(ctx context.Context, tree *catalog.Tree, modifiers catalog.ModifierSet) (*Report, error) {
	if err := p.store.EnsureCollection(ctx, CollectionItems, p.dim, p.metric); err != nil {
		return nil, err
	}
	if err := p.store.EnsureCollection(ctx, CollectionModifiers, p.dim, p.metric); err != nil {
		return nil, err
	}

	report := &Report{}

	itemJobs := itemJobs(tree)
	indexed, skipped, err := p.indexJobs(ctx, CollectionItems, itemJobs)
	if err != nil {
		return nil, err
	}
	report.ItemPoints = indexed
	report.Skipped += skipped
	logger.Info(ctx, "indexed menu items", "collection", CollectionItems, "points", indexed, "skipped", skipped)

	modifierJobs := modifierJobs(modifiers)
	indexed, skipped, err = p.indexJobs(ctx, CollectionModifiers, modifierJobs)
	if err != nil {
		return nil, err
	}
	report.ModifierPoints = indexed
	report.Skipped += skipped
	logger.Info(ctx, "indexed modifiers", "collection", CollectionModifiers, "points", indexed, "skipped", skipped)

	return report, nil
}

// itemJobs 每个顶层菜单项一个点
func itemJobs(tree *catalog.Tree) []job {
	items := tree.TopLevelItems()
	jobs := make([]job, 0, len(items))
	for _, item := range items {
		jobs = append(jobs, job{node: item})
	}
	return jobs
}

// modifierJobs 展开每棵修饰项子树，节点都归属其菜单项
func modifierJobs(modifiers catalog.ModifierSet) []job {
	var jobs []job
	for ownerKey, descendants := range modifiers {
		for _, root := range descendants.Value {
			for _, node := range catalog.Flatten(root) {
				jobs = append(jobs, job{node: node, ownerKey: ownerKey})
			}
		}
	}
	return jobs
}

// indexJobs 分批嵌入并写入，受并发上限约束
func (p *Pipeline) indexJobs(ctx context.Context, collection string, jobs []job) (int, int, error) {
	if len(jobs) == 0 {
		return 0, 0, nil
	}

	total := len(jobs)
	var indexed, skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for start := 0; start < total; start += p.batchSize {
		end := start + p.batchSize
		if end > total {
			end = total
		}
		batch := jobs[start:end]

		g.Go(func() error {
			if err := p.indexBatch(gctx, collection, batch); err != nil {
				logger.Warn(gctx, "skipping batch after indexing failure",
					"collection", collection, "batch_size", len(batch), "error", err.Error())
				skipped.Add(int64(len(batch)))
				metrics.PointsSkippedTotal.WithLabelValues(collection).Add(float64(len(batch)))
				return nil
			}

			done := indexed.Add(int64(len(batch)))
			metrics.PointsIndexedTotal.WithLabelValues(collection).Add(float64(len(batch)))
			if done/progressInterval != (done-int64(len(batch)))/progressInterval || int(done+skipped.Load()) == total {
				logger.Info(gctx, "indexing progress",
					"collection", collection, "indexed", done, "total", total)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, 0, err
	}

	if indexed.Load() == 0 && total > 0 {
		return 0, int(skipped.Load()), apperrors.New(apperrors.CodeIndexingFailed, "all batches failed").
			WithDetail(fmt.Sprintf("collection=%s total=%d", collection, total))
	}
	return int(indexed.Load()), int(skipped.Load()), nil
}

// indexBatch 嵌入一批节点并 upsert
func (p *Pipeline) indexBatch(ctx context.Context, collection string, batch []job) error {
	texts := make([]string, 0, len(batch))
	points := make([]Point, 0, len(batch))
	for i := range batch {
		texts = append(texts, EmbedText(&batch[i].node))
		points = append(points, BuildPoint(&batch[i].node, batch[i].ownerKey))
	}

	vectors, err := p.embedBatch(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(points) {
		return apperrors.New(apperrors.CodeEmbeddingFailed, "embedding count mismatch").
			WithDetail(fmt.Sprintf("want=%d got=%d", len(points), len(vectors)))
	}
	for i := range points {
		points[i].Vector = vectors[i]
	}

	if err := p.store.Upsert(ctx, collection, points); err != nil {
		return err
	}
	return nil
}

// embedBatch 调用 Embedder 并转成 float32，同时校验向量宽度
func (p *Pipeline) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	v64, err := p.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeEmbeddingFailed, "embedding call failed")
	}

	out := make([][]float32, 0, len(v64))
	for _, vec := range v64 {
		if p.dim > 0 && len(vec) != p.dim {
			return nil, apperrors.New(apperrors.CodeEmbeddingFailed, "unexpected embedding width").
				WithDetail(fmt.Sprintf("want=%d got=%d", p.dim, len(vec)))
		}
		f32 := make([]float32, 0, len(vec))
		for _, x := range vec {
			f32 = append(f32, float32(x))
		}
		out = append(out, f32)
	}
	return out, nil
}
