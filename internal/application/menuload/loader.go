// Package menuload 负责启动阶段的目录装载：磁盘缓存优先，上游兜底
package menuload

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"menu-search-api/internal/domain/catalog"
	apperrors "menu-search-api/pkg/errors"
	"menu-search-api/pkg/logger"
	"menu-search-api/pkg/metrics"
)

const (
	menuCacheFile     = "menu.json"
	modifierCacheFile = "modifiers.json"

	defaultFetchConcurrency = 8

	// progressInterval 修饰项抓取进度日志间隔
	progressInterval = 10
)

// MenuFetcher 上游菜单抓取
type MenuFetcher interface {
	Menus(ctx context.Context) (*catalog.Tree, error)
}

// DescendantFetcher 上游修饰项抓取
type DescendantFetcher interface {
	Descendants(ctx context.Context, snapshotID, itemPathKey string) (*catalog.Descendants, error)
}

// Stats 修饰项装载统计
type Stats struct {
	FromCache   bool
	Fetched     int
	Skipped     int
	SkippedKeys []string
}

// Loader 目录装载器
type Loader struct {
	dir         string
	menus       MenuFetcher
	descendants DescendantFetcher
	concurrency int
}

// NewLoader 创建装载器，dir 为缓存目录
func NewLoader(dir string, menus MenuFetcher, descendants DescendantFetcher, concurrency int) *Loader {
	if concurrency <= 0 {
		concurrency = defaultFetchConcurrency
	}
	return &Loader{
		dir:         dir,
		menus:       menus,
		descendants: descendants,
		concurrency: concurrency,
	}
}

// LoadMenu 装载菜单快照：缓存命中直接用，否则抓取并落盘
func (l *Loader) LoadMenu(ctx context.Context) (*catalog.Tree, error) {
	path := filepath.Join(l.dir, menuCacheFile)

	var cached catalog.Tree
	if ok, err := l.readCache(ctx, path, &cached); err != nil {
		return nil, err
	} else if ok {
		logger.Info(ctx, "loaded menu from cache", "path", path, "snapshot_id", cached.SnapshotID)
		return &cached, nil
	}

	tree, err := l.menus.Menus(ctx)
	if err != nil {
		return nil, err
	}

	if err := l.writeCache(ctx, path, tree); err != nil {
		return nil, err
	}
	logger.Info(ctx, "fetched menu from upstream", "snapshot_id", tree.SnapshotID,
		"categories", len(tree.Categories))
	return tree, nil
}

// LoadModifiers 装载修饰项：缓存命中直接用，否则逐项抓取 descendants
// 单项失败跳过并计数；全部失败则中止
func (l *Loader) LoadModifiers(ctx context.Context, tree *catalog.Tree) (catalog.ModifierSet, *Stats, error) {
	path := filepath.Join(l.dir, modifierCacheFile)

	var cached catalog.ModifierSet
	if ok, err := l.readCache(ctx, path, &cached); err != nil {
		return nil, nil, err
	} else if ok {
		logger.Info(ctx, "loaded modifiers from cache", "path", path, "items", len(cached))
		return cached, &Stats{FromCache: true, Fetched: len(cached)}, nil
	}

	items := tree.TopLevelItems()
	modifiers := make(catalog.ModifierSet, len(items))
	stats := &Stats{}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for _, item := range items {
		g.Go(func() error {
			descendants, err := l.descendants.Descendants(gctx, tree.SnapshotID, item.ItemPathKey)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn(gctx, "skipping item after descendants fetch failure",
					"item_path_key", item.ItemPathKey, "title", item.Title, "error", err.Error())
				metrics.ModifierFetchTotal.WithLabelValues("skipped").Inc()
				stats.Skipped++
				stats.SkippedKeys = append(stats.SkippedKeys, item.ItemPathKey)
				return nil
			}

			metrics.ModifierFetchTotal.WithLabelValues("ok").Inc()
			modifiers[item.ItemPathKey] = *descendants
			stats.Fetched++
			if stats.Fetched%progressInterval == 0 || stats.Fetched+stats.Skipped == len(items) {
				logger.Info(gctx, "modifier fetch progress",
					"fetched", stats.Fetched, "skipped", stats.Skipped, "total", len(items))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if stats.Fetched == 0 && len(items) > 0 {
		return nil, nil, apperrors.New(apperrors.CodeUpstreamError, "all descendants fetches failed").
			WithDetail(fmt.Sprintf("attempted=%d", len(items)))
	}

	if err := l.writeCache(ctx, path, modifiers); err != nil {
		return nil, nil, err
	}
	return modifiers, stats, nil
}

// readCache 读缓存文件；不存在返回 false，损坏报 ParseFailed
func (l *Loader) readCache(ctx context.Context, path string, out any) (bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, apperrors.Wrap(err, apperrors.CodeCacheReadError, "failed to read cache file").
			WithDetail(path)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return false, apperrors.Wrap(err, apperrors.CodeParseFailed, "failed to parse cache file").
			WithDetail(path)
	}
	logger.Debug(ctx, "cache hit", "path", path)
	return true, nil
}

// writeCache 持久化缓存文件
func (l *Loader) writeCache(ctx context.Context, path string, in any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to create cache dir")
	}

	raw, err := json.Marshal(in)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to encode cache payload")
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to write cache file").
			WithDetail(path)
	}
	logger.Debug(ctx, "cache written", "path", path, "bytes", len(raw))
	return nil
}
