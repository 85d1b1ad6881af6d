package embedding

import (
	"context"
	"fmt"
	"time"

	"menu-search-api/internal/config"
	"menu-search-api/pkg/metrics"

	"github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"
)

// NewEinoEmbedder 创建基于 Eino OpenAI 适配器的 Embedder
func NewEinoEmbedder(ctx context.Context, cfg *config.EmbeddingConfig) (embedding.Embedder, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("embedding endpoint is required")
	}

	embedder, err := openai.NewEmbedder(ctx, &openai.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.Endpoint,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino embedder: %w", err)
	}

	return embedder, nil
}

// New 按配置的 provider 创建 Embedder，统一包上指标采集
func New(ctx context.Context, cfg *config.EmbeddingConfig) (embedding.Embedder, error) {
	var (
		embedder embedding.Embedder
		err      error
		provider = cfg.Provider
	)

	switch provider {
	case "openai":
		embedder, err = NewEinoEmbedder(ctx, cfg)
	case "http", "":
		provider = "http"
		embedder = NewClient(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return &measuredEmbedder{inner: embedder, provider: provider}, nil
}

// measuredEmbedder 给任意 Embedder 实现加上耗时与调用量指标
type measuredEmbedder struct {
	inner    embedding.Embedder
	provider string
}

func (m *measuredEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	start := time.Now()
	vectors, err := m.inner.EmbedStrings(ctx, texts, opts...)
	metrics.EmbeddingDuration.WithLabelValues(m.provider).Observe(time.Since(start).Seconds())
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.EmbeddingTotal.WithLabelValues(m.provider, status).Inc()
	return vectors, err
}
