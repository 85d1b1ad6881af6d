package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeDecode(t *testing.T) {
	raw := `{
		"snapshotId": "snap-42",
		"categories": [
			{
				"title": "Burgers",
				"itemPathKey": "100",
				"children": [
					{
						"title": "Classic Burger",
						"itemPathKey": "100-200",
						"parentPathKey": "100",
						"displayAttribute": {"description": "Beef patty with lettuce"}
					}
				]
			}
		]
	}`

	var tree Tree
	require.NoError(t, json.Unmarshal([]byte(raw), &tree))

	assert.Equal(t, "snap-42", tree.SnapshotID)
	require.Len(t, tree.Categories, 1)
	require.Len(t, tree.Categories[0].Children, 1)

	item := tree.Categories[0].Children[0]
	assert.Equal(t, "Classic Burger", item.Title)
	assert.Equal(t, "100-200", item.ItemPathKey)
	assert.Equal(t, "Beef patty with lettuce", item.Description())
}

func TestNodeDescriptionMissing(t *testing.T) {
	var node Node
	require.NoError(t, json.Unmarshal([]byte(`{"title":"Fries","itemPathKey":"3"}`), &node))
	assert.Empty(t, node.Description())
}

func TestTopLevelItems(t *testing.T) {
	tree := Tree{
		Categories: []Node{
			{ItemPathKey: "1", Children: []Node{{ItemPathKey: "1-1"}, {ItemPathKey: "1-2"}}},
			{ItemPathKey: "2", Children: []Node{{ItemPathKey: "2-1"}}},
			{ItemPathKey: "3"},
		},
	}

	items := tree.TopLevelItems()
	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.ItemPathKey)
	}
	assert.Equal(t, []string{"1-1", "1-2", "2-1"}, keys)
}
