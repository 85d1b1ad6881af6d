package catalog

// Flatten 用显式队列展开子树，返回含根节点在内的全部节点
// 目录树可能非常深，刻意不用递归
func Flatten(root Node) []Node {
	queue := []Node{root}

	var nodes []Node
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		queue = append(queue, node.Children...)

		node.Children = nil
		nodes = append(nodes, node)
	}
	return nodes
}

// CountDescendants 返回子树中除根节点外的节点数
func CountDescendants(root Node) int {
	queue := []Node{root}

	count := 0
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		count++

		queue = append(queue, node.Children...)
	}
	return count - 1
}
