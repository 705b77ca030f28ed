package sls

import (
	"strings"

	"github.com/dhamidi/salt-lsp/sls/parser"
)

// ConstructPathToPosition returns the chain of nodes leading from the tree
// root to the deepest node containing pos. An empty slice means no node
// contains the position.
func ConstructPathToPosition(tree *parser.Tree, pos parser.Position) []parser.Node {
	var found parser.Node
	tree.Visit(func(node parser.Node) bool {
		if node.Start() != nil && node.Start().AtOrBefore(pos) &&
			(node.End() == nil || pos.AtOrBefore(*node.End())) {
			found = node
		}
		return true
	})
	if found == nil {
		return nil
	}

	var path []parser.Node
	for node := found; node != nil; node = node.Parent() {
		path = append(path, node)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// PositionToIndex converts a line and column to a byte offset into text.
func PositionToIndex(text string, line, column int) int {
	index := 0
	for i := 0; i < line; i++ {
		next := strings.IndexByte(text[index:], '\n')
		if next < 0 {
			break
		}
		index += next + 1
	}
	return index + column
}
