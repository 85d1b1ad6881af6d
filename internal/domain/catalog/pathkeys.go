package catalog

import "strings"

// ParentPathKeys 把 itemPathKey 展开为所有严格前缀
// 例如 "47587-56635-122228" 得到 ["47587", "47587-56635"]
// 冗余存储这些前缀是为了让向量库可以按任意层级的祖先过滤
func ParentPathKeys(itemPathKey string) []string {
	parts := strings.Split(itemPathKey, "-")
	if len(parts) <= 1 {
		return nil
	}

	keys := make([]string, 0, len(parts)-1)
	accumulated := parts[0]
	keys = append(keys, accumulated)
	for _, part := range parts[1 : len(parts)-1] {
		accumulated = accumulated + "-" + part
		keys = append(keys, accumulated)
	}
	return keys
}
