package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("TEST_QU_BASE_URL", "https://qu.example.com")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "set variable wins over default",
			input: "base_url: ${TEST_QU_BASE_URL:http://localhost}",
			want:  "base_url: https://qu.example.com",
		},
		{
			name:  "unset variable falls back to default",
			input: "host: ${TEST_UNSET_HOST:localhost}",
			want:  "host: localhost",
		},
		{
			name:  "empty default",
			input: "password: ${TEST_UNSET_PASSWORD:}",
			want:  "password: ",
		},
		{
			name:  "unset without default stays verbatim",
			input: "key: ${TEST_UNSET_NO_DEFAULT}",
			want:  "key: ${TEST_UNSET_NO_DEFAULT}",
		},
		{
			name:  "plain text untouched",
			input: "scope: menu:*",
			want:  "scope: menu:*",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandEnv(tt.input))
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	// 无配置文件时走默认值
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "menu-search-api", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.HTTP.Port)
	assert.Equal(t, "menu:*", cfg.Qu.Scope)
	assert.Equal(t, "1", cfg.Qu.FulfillmentMethod)
	assert.Equal(t, "data", cfg.Cache.Dir)
	assert.Equal(t, "milvus", cfg.Vector.Backend)
	assert.Equal(t, "menu_search", cfg.Vector.Milvus.CollectionPrefix)
	assert.Equal(t, 384, cfg.Embedding.Dimension)
	assert.Equal(t, 64, cfg.Index.BatchSize)
	assert.False(t, cfg.Security.RateLimit.Enabled)
	assert.Equal(t, 300, cfg.Security.RateLimit.RequestsPerMinute)
}
