package index

import (
	"github.com/google/uuid"

	"menu-search-api/internal/domain/catalog"
)

// pointNamespace 用于从 itemPathKey 派生稳定点 ID
// 固定命名空间保证同一节点在重复启动时得到同一 ID，upsert 因此幂等
var pointNamespace = uuid.MustParse("8c2d9f30-6a1e-45c7-9b3a-2f4e8d175c09")

// PointID 返回 itemPathKey 对应的确定性 UUID
func PointID(itemPathKey string) string {
	return uuid.NewSHA1(pointNamespace, []byte(itemPathKey)).String()
}

// EmbedText 拼接节点的嵌入文本：标题，有描述时追加 " - 描述"
func EmbedText(node *catalog.Node) string {
	text := node.Title
	if desc := node.Description(); desc != "" {
		text = text + " - " + desc
	}
	return text
}

// BuildPoint 把目录节点变成未带向量的点
// ownerKey 非空时追加进 parent_path_keys，修饰项借此按所属菜单项过滤
func BuildPoint(node *catalog.Node, ownerKey string) Point {
	parentKeys := catalog.ParentPathKeys(node.ItemPathKey)
	if ownerKey != "" && !containsKey(parentKeys, ownerKey) {
		parentKeys = append(parentKeys, ownerKey)
	}

	return Point{
		ID: PointID(node.ItemPathKey),
		Payload: Payload{
			ItemPathKey:    node.ItemPathKey,
			ParentPathKeys: parentKeys,
			Title:          node.Title,
			Description:    node.Description(),
		},
	}
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
