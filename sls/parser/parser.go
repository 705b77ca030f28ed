package parser

import (
	"strings"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("salt-lsp.parser")

// blockStart pairs a collection start token with the node that was on top of
// the breadcrumb stack when the collection opened, so that the matching end
// token knows how far to unwind.
type blockStart struct {
	token Token
	node  Node
}

// Parser builds the SLS tree from the raw token stream. It never fails:
// whatever the scanner reports is folded back into the tree so that an
// incomplete document still yields positions for everything typed so far.
type Parser struct {
	document []rune
	tree     *Tree

	breadcrumbs []Node
	blockStarts []blockStart

	nextScalarAsKey  bool
	nextTokenIsValue bool

	// captured holds the raw tokens of a complex parameter value until the
	// parameter's block closes. A nil slice means no capture is active.
	capturing bool
	captured  []*TokenNode
}

// NewParser creates a parser for the content of an SLS file.
func NewParser(document string) *Parser {
	tree := &Tree{}
	return &Parser{
		document:    []rune(document),
		tree:        tree,
		breadcrumbs: []Node{tree},
	}
}

// Parse builds the tree for an SLS document.
func Parse(document string) *Tree {
	return NewParser(document).Parse()
}

// Parse consumes the whole token stream and returns the tree. A scanner
// error ends parsing early; the open nodes are then sealed at the error
// position so their spans stay usable.
func (p *Parser) Parse() *Tree {
	scanner := NewScanner(string(p.document))
	for {
		token, err := scanner.Next()
		if err != nil {
			log.Debugf("scanning failed: %s", err.Error())
			p.recover(err)
			return p.tree
		}
		p.processToken(*token)
		if token.Kind == TokenStreamEnd {
			return p.tree
		}
	}
}

func (p *Parser) top() Node {
	if len(p.breadcrumbs) == 0 {
		return nil
	}
	return p.breadcrumbs[len(p.breadcrumbs)-1]
}

func (p *Parser) pop() Node {
	node := p.top()
	if node != nil {
		p.breadcrumbs = p.breadcrumbs[:len(p.breadcrumbs)-1]
	}
	return node
}

func (p *Parser) push(node Node) {
	p.breadcrumbs = append(p.breadcrumbs, node)
}

func isCollectionStart(kind TokenKind) bool {
	switch kind {
	case TokenBlockMappingStart, TokenBlockSequenceStart,
		TokenFlowSequenceStart, TokenFlowMappingStart:
		return true
	}
	return false
}

func isCollectionEnd(kind TokenKind) bool {
	switch kind {
	case TokenBlockEnd, TokenFlowSequenceEnd, TokenFlowMappingEnd:
		return true
	}
	return false
}

func (p *Parser) processToken(token Token) {
	tokenStart := &Position{Line: token.Start.Line, Col: token.Start.Column}
	tokenEnd := &Position{Line: token.End.Line, Col: token.End.Column}

	switch token.Kind {
	case TokenStreamStart:
		p.tree.SetStart(tokenStart)
	case TokenStreamEnd:
		p.tree.SetEnd(tokenEnd)
	}

	if isCollectionStart(token.Kind) && !p.capturing {
		// Remember which node a start belongs to so the matching end
		// token knows how far to unwind. While capturing, the pair is
		// recorded against the wrapped token below instead, keeping the
		// close handler away from nodes inside the captured value.
		p.blockStarts = append(p.blockStarts, blockStart{token: token, node: p.top()})
		p.nextTokenIsValue = false
	}

	if token.Kind == TokenValue {
		p.nextTokenIsValue = true
		if _, ok := p.top().(*StateParameterNode); ok {
			if !p.capturing || len(p.captured) == 0 {
				p.capturing = true
				p.captured = nil
				return
			}
		}
	}

	if p.capturing {
		_, topIsParameter := p.top().(*StateParameterNode)
		if !topIsParameter || token.Kind != TokenBlockEnd {
			p.captured = append(p.captured, newTokenNode(token))
		}
		if isCollectionStart(token.Kind) {
			wrapped := p.captured[len(p.captured)-1]
			p.push(wrapped)
			p.blockStarts = append(p.blockStarts, blockStart{token: token, node: wrapped})
			p.nextTokenIsValue = false
		}
	}

	if isCollectionEnd(token.Kind) {
		if len(p.blockStarts) == 0 || len(p.breadcrumbs) == 0 {
			log.Errorf("reached a %s but block starts (%d) or breadcrumbs (%d) are empty",
				token.Kind, len(p.blockStarts), len(p.breadcrumbs))
			return
		}
		opened := p.blockStarts[len(p.blockStarts)-1]
		p.blockStarts = p.blockStarts[:len(p.blockStarts)-1]
		last := p.pop()
		closed := last
		for len(p.breadcrumbs) > 0 && closed != opened.node {
			closed = p.pop()
			closed.SetEnd(tokenEnd)
		}
		if _, ok := last.(*TokenNode); !ok {
			last.SetEnd(tokenEnd)
		}
		if parameter, ok := last.(*StateParameterNode); ok && p.capturing {
			if len(p.captured) == 1 && p.captured[0].Token.Kind == TokenScalar {
				parameter.Value = p.captured[0].Token.Value
			} else {
				for _, wrapped := range p.captured {
					wrapped.setParent(parameter)
				}
				parameter.Value = p.captured
			}
			p.capturing = false
			p.captured = nil
		}
	}

	if p.capturing {
		// The token went into the captured value, so it is not a value
		// for any node either.
		p.nextTokenIsValue = false
		return
	}

	if token.Kind == TokenKey {
		p.nextScalarAsKey = true
		var added Node
		switch top := p.top().(type) {
		case *Tree:
			added = top.Add()
		case *StateNode:
			added = top.Add()
		case *StateCallNode:
			added = top.Add()
		case *RequisitesNode:
			added = top.Add()
		case *ExtendNode:
			added = top.Add()
		}
		if added != nil {
			added.SetStart(tokenStart)
			p.push(added)
		}
	}

	if token.Kind == TokenBlockEntry {
		// The parameter, include or requisite starts at the dash, before
		// the mapping inside the list entry does.
		if top := p.top(); top != nil && top.Start() != nil && top.Start().Col == token.Start.Column {
			p.pop().SetEnd(tokenStart)
		}
		var added Node
		switch top := p.top().(type) {
		case *StateCallNode:
			added = top.Add()
		case *IncludesNode:
			added = top.Add()
		case *RequisitesNode:
			added = top.Add()
		}
		if added != nil {
			added.SetStart(tokenStart)
			p.push(added)
		}
	}

	if token.Kind == TokenScalar {
		keyed, topIsKeyed := p.top().(keyedNode)
		if p.nextScalarAsKey && topIsKeyed {
			changed := keyed.SetKey(token.Value)
			// A conversion replaced the node, so the breadcrumbs and
			// the recorded block starts have to follow.
			if changed != p.top() {
				old := p.pop()
				p.push(changed)
				for i, block := range p.blockStarts {
					if block.node == old {
						p.blockStarts[i].node = changed
					}
				}
			}
			p.nextScalarAsKey = false
		} else {
			p.nextScalarAsKey = false
			if include, ok := p.top().(*IncludeNode); ok {
				include.Value = token.Value
				include.SetEnd(tokenEnd)
				p.pop()
			}
			if requisite, ok := p.top().(*RequisiteNode); ok {
				requisite.Reference = token.Value
			}
			// Before the user types the ':' the parameter name arrives
			// as a plain scalar value.
			if parameter, ok := p.top().(*StateParameterNode); ok && parameter.Name == "" {
				parameter.Name = token.Value
			}
			var added Node
			switch top := p.top().(type) {
			case *StateNode:
				added = top.Add()
			case *Tree:
				added = top.Add()
			}
			if added != nil {
				added.SetStart(tokenStart)
				added.SetEnd(tokenEnd)
				if keyed, ok := added.(keyedNode); ok {
					keyed.SetKey(token.Value)
				}
				// The scalar was the plain value of the previous key,
				// so that node is complete now.
				if p.nextTokenIsValue {
					if last := p.pop(); last != nil && last.End() == nil {
						last.SetEnd(tokenEnd)
					}
				}
			}
		}
		p.nextTokenIsValue = false
	}
}

// recover seals the nodes that are still open when scanning fails. Nodes
// that started right of the error context are closed with a synthesized
// block end; the one sharing its column additionally swallows the text
// between the context and the problem as a plain scalar.
func (p *Parser) recover(err *ScanError) {
	idx := len(p.breadcrumbs) - 1
	for idx >= 0 {
		if idx >= len(p.breadcrumbs) {
			break
		}
		node := p.breadcrumbs[idx]
		switch {
		case node.Start() != nil && err.ContextMark != nil &&
			err.ContextMark.Column < node.Start().Col:
			p.processToken(Token{
				Kind:  TokenBlockEnd,
				Start: *err.ContextMark,
				End:   *err.ContextMark,
			})
		case node.Start() != nil && err.ContextMark != nil &&
			err.ContextMark.Column == node.Start().Col:
			p.processToken(Token{
				Kind:  TokenBlockEnd,
				Start: *err.ContextMark,
				End:   *err.ContextMark,
			})
			if err.ProblemMark != nil {
				p.processToken(Token{
					Kind:  TokenScalar,
					Start: *err.ContextMark,
					End:   *err.ProblemMark,
					Value: p.sliceDocument(err.ContextMark.Index, err.ProblemMark.Index),
					Plain: true,
				})
			}
		case err.ProblemMark != nil:
			node.SetEnd(&Position{
				Line: err.ProblemMark.Line,
				Col:  err.ProblemMark.Column,
			})
		}
		idx--
	}
}

func (p *Parser) sliceDocument(from, to int) string {
	if from < 0 {
		from = 0
	}
	if to > len(p.document) {
		to = len(p.document)
	}
	if from >= to {
		return ""
	}
	return strings.Trim(string(p.document[from:to]), "\r\n")
}
