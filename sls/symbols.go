package sls

import (
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/dhamidi/salt-lsp/sls/parser"
)

const extendDetail = `Extension of external SLS data.
See: https://docs.saltproject.io/en/latest/ref/states/extend.html
`

const includesDetail = `A list of included SLS files.
See also https://docs.saltproject.io/en/latest/ref/states/include.html
`

const requisitesDetail = `List of requisites.
See also: https://docs.saltproject.io/en/latest/ref/states/requisites.html
`

// DocumentSymbols converts the tree into the document symbol outline of the
// file. The completions dictionary supplies the documentation shown as detail
// of state calls and requisites.
func DocumentSymbols(tree *parser.Tree, completions CompletionsDict) []protocol.DocumentSymbol {
	var symbols []protocol.DocumentSymbol
	for _, child := range tree.Children() {
		if symbol := nodeSymbol(child, completions); symbol != nil {
			symbols = append(symbols, *symbol)
		}
	}
	return symbols
}

// NodeToRange converts a node's span to an LSP range, or nil when the node
// has no start or end yet.
func NodeToRange(node parser.Node) *protocol.Range {
	if node.Start() == nil || node.End() == nil {
		return nil
	}
	return &protocol.Range{
		Start: positionToLsp(*node.Start()),
		End:   positionToLsp(*node.End()),
	}
}

func positionToLsp(pos parser.Position) protocol.Position {
	return protocol.Position{
		Line:      protocol.UInteger(pos.Line),
		Character: protocol.UInteger(pos.Col),
	}
}

// symbolName returns the string identifying a node in the outline, or ""
// for nodes that have no own entry.
func symbolName(node parser.Node) string {
	switch n := node.(type) {
	case *parser.IncludeNode:
		return n.Value
	case *parser.IncludesNode:
		return "includes"
	case *parser.StateParameterNode:
		return n.Name
	case *parser.StateCallNode:
		return n.Name
	case *parser.StateNode:
		return n.Identifier
	case *parser.RequisiteNode:
		return n.Module
	case *parser.RequisitesNode:
		return n.Kind
	case *parser.ExtendNode:
		return "extend"
	}
	return ""
}

// moduleDoc looks up the documentation of a state call or requisite module
// name, e.g. "file.managed" or plain "file".
func moduleDoc(name string, completions CompletionsDict) string {
	if name == "" {
		return ""
	}
	if base, submod, found := strings.Cut(name, "."); found {
		completer := completions[base]
		if completer == nil {
			return ""
		}
		return completer.StateParams[submod].Documentation
	}
	completer := completions[name]
	if completer == nil {
		return ""
	}
	return completer.StateDocs
}

func symbolDetail(node parser.Node, completions CompletionsDict) string {
	switch node.(type) {
	case *parser.StateCallNode, *parser.RequisiteNode:
		return moduleDoc(symbolName(node), completions)
	case *parser.ExtendNode:
		return extendDetail
	case *parser.IncludesNode:
		return includesDetail
	case *parser.RequisitesNode:
		return requisitesDetail
	}
	return ""
}

func symbolChildren(node parser.Node, completions CompletionsDict) []protocol.DocumentSymbol {
	var childNodes []parser.Node
	switch n := node.(type) {
	case *parser.IncludesNode:
		for _, include := range n.Includes {
			childNodes = append(childNodes, include)
		}
	case *parser.ExtendNode:
		childNodes = n.Children()
	case *parser.RequisitesNode:
		childNodes = n.Children()
	case *parser.StateCallNode:
		childNodes = n.Children()
	case *parser.StateNode:
		childNodes = n.Children()
	}

	symbols := []protocol.DocumentSymbol{}
	for _, child := range childNodes {
		if symbol := nodeSymbol(child, completions); symbol != nil {
			symbols = append(symbols, *symbol)
		}
	}
	return symbols
}

func nodeSymbol(node parser.Node, completions CompletionsDict) *protocol.DocumentSymbol {
	name := symbolName(node)
	lspRange := NodeToRange(node)
	if name == "" || lspRange == nil {
		return nil
	}

	kind := protocol.SymbolKindObject
	if _, ok := node.(*parser.IncludeNode); ok {
		kind = protocol.SymbolKindString
	}

	detail := symbolDetail(node, completions)
	return &protocol.DocumentSymbol{
		Name: name,
		Kind: kind,
		Range: *lspRange,
		SelectionRange: protocol.Range{
			Start: positionToLsp(*node.Start()),
			End: protocol.Position{
				Line:      protocol.UInteger(node.Start().Line),
				Character: protocol.UInteger(node.Start().Col + len([]rune(name))),
			},
		},
		Detail:   &detail,
		Children: symbolChildren(node, completions),
	}
}
