// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// maxParentKeys 单个节点的祖先链上限
	maxParentKeys = 64
)

// CatalogSchema 目录集合 Schema，菜单项与修饰项集合共用
// parent_path_keys 冗余存放全部祖先键，检索时用 array_contains 过滤
func CatalogSchema(name string, dim int) *entity.Schema {
	return &entity.Schema{
		CollectionName: name,
		Description:    "Catalog nodes for semantic menu search",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", dim),
				},
			},
			{
				Name:     "item_path_key",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "256",
				},
			},
			{
				Name:        "parent_path_keys",
				DataType:    entity.FieldTypeArray,
				ElementType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_capacity": fmt.Sprintf("%d", maxParentKeys),
					"max_length":   "256",
				},
			},
			{
				Name:     "title",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
			{
				Name:     "description",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "4096",
				},
			},
		},
	}
}
