package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParentPathKeys(t *testing.T) {
	tests := []struct {
		name        string
		itemPathKey string
		want        []string
	}{
		{
			name:        "top level key has no ancestors",
			itemPathKey: "47587",
			want:        nil,
		},
		{
			name:        "two segments",
			itemPathKey: "47587-56634",
			want:        []string{"47587"},
		},
		{
			name:        "three segments",
			itemPathKey: "47587-56634-105606",
			want:        []string{"47587", "47587-56634"},
		},
		{
			name:        "five segments",
			itemPathKey: "1-2-3-4-5",
			want:        []string{"1", "1-2", "1-2-3", "1-2-3-4"},
		},
		{
			name:        "empty key",
			itemPathKey: "",
			want:        nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParentPathKeys(tt.itemPathKey))
		})
	}
}

func TestParentPathKeysExcludesSelf(t *testing.T) {
	keys := ParentPathKeys("a-b-c")
	assert.NotContains(t, keys, "a-b-c")
}
