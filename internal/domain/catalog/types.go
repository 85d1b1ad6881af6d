// Package catalog 定义上游 POS 目录的领域模型
package catalog

// DisplayAttribute 展示属性，上游可能返回 null 描述
type DisplayAttribute struct {
	Description string `json:"description"`
}

// Node 目录树节点，分类/商品/修饰项共用同一结构
type Node struct {
	Title            string           `json:"title"`
	ItemPathKey      string           `json:"itemPathKey"`
	ParentPathKey    string           `json:"parentPathKey"`
	DisplayAttribute DisplayAttribute `json:"displayAttribute"`
	Children         []Node           `json:"children"`
}

// Description 返回节点描述，缺失时为空串
func (n *Node) Description() string {
	return n.DisplayAttribute.Description
}

// Tree 一次菜单快照：snapshotId + 顶层分类
type Tree struct {
	SnapshotID string `json:"snapshotId"`
	Categories []Node `json:"categories"`
}

// TopLevelItems 返回所有分类的直接子节点，即可点的菜单项
func (t *Tree) TopLevelItems() []Node {
	var items []Node
	for _, category := range t.Categories {
		items = append(items, category.Children...)
	}
	return items
}

// Descendants 单个菜单项的修饰项子树集合
type Descendants struct {
	Value []Node `json:"value"`
}

// ModifierSet 按菜单项 itemPathKey 聚合的修饰项子树
type ModifierSet map[string]Descendants
