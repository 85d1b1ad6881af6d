package catalog

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten(t *testing.T) {
	root := Node{
		Title:       "Toppings",
		ItemPathKey: "1-10",
		Children: []Node{
			{
				Title:       "Cheese",
				ItemPathKey: "1-10-100",
				Children: []Node{
					{Title: "Extra Cheese", ItemPathKey: "1-10-100-1000"},
				},
			},
			{Title: "Bacon", ItemPathKey: "1-10-101"},
		},
	}

	nodes := Flatten(root)
	require.Len(t, nodes, 4)

	keys := make([]string, 0, len(nodes))
	for _, node := range nodes {
		keys = append(keys, node.ItemPathKey)
		assert.Nil(t, node.Children, "flattened nodes must not carry children")
	}
	assert.ElementsMatch(t, []string{"1-10", "1-10-100", "1-10-100-1000", "1-10-101"}, keys)
}

func TestFlattenLeaf(t *testing.T) {
	nodes := Flatten(Node{Title: "Plain", ItemPathKey: "9"})
	require.Len(t, nodes, 1)
	assert.Equal(t, "9", nodes[0].ItemPathKey)
}

// 深链路必须逐层展开且每个节点只出现一次
func TestFlattenDeepChain(t *testing.T) {
	const depth = 50

	leaf := Node{Title: "leaf", ItemPathKey: key(depth)}
	root := leaf
	for i := depth - 1; i >= 1; i-- {
		root = Node{
			Title:       fmt.Sprintf("level-%d", i),
			ItemPathKey: key(i),
			Children:    []Node{root},
		}
	}

	nodes := Flatten(root)
	require.Len(t, nodes, depth)

	seen := make(map[string]int, depth)
	for _, node := range nodes {
		seen[node.ItemPathKey]++
	}
	for i := 1; i <= depth; i++ {
		assert.Equal(t, 1, seen[key(i)])
	}
}

func TestCountDescendants(t *testing.T) {
	root := Node{
		ItemPathKey: "1",
		Children: []Node{
			{ItemPathKey: "1-2", Children: []Node{{ItemPathKey: "1-2-3"}}},
			{ItemPathKey: "1-4"},
		},
	}

	assert.Equal(t, 3, CountDescendants(root))
	assert.Equal(t, 0, CountDescendants(Node{ItemPathKey: "solo"}))
}

func key(depth int) string {
	k := "1"
	for i := 2; i <= depth; i++ {
		k += fmt.Sprintf("-%d", i)
	}
	return k
}
