package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Position is a location in an SLS document, zero-based.
type Position struct {
	Line int
	Col  int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Before reports whether p comes strictly before other.
func (p Position) Before(other Position) bool {
	return p.Line < other.Line || (p.Line == other.Line && p.Col < other.Col)
}

// AtOrBefore reports whether p comes before other or is equal to it.
func (p Position) AtOrBefore(other Position) bool {
	return p == other || p.Before(other)
}

// Node is implemented by every element of the tree. Start and End return nil
// while the element is still open, for example when the document is cut off
// mid-state.
type Node interface {
	Start() *Position
	End() *Position
	SetStart(*Position)
	SetEnd(*Position)
	Parent() Node

	// Visit calls visitor on the node and, if it returns true, on the
	// node's children.
	Visit(visitor func(Node) bool)

	dump(sb *strings.Builder, depth int, withPositions bool)
}

// keyedNode is implemented by nodes whose first scalar after a key token
// names them. SetKey returns the node that finally received the key, which
// differs from the receiver when the key forced a conversion.
type keyedNode interface {
	Node
	SetKey(key string) Node
}

type baseNode struct {
	start  *Position
	end    *Position
	parent Node
}

func (b *baseNode) Start() *Position      { return b.start }
func (b *baseNode) End() *Position        { return b.end }
func (b *baseNode) SetStart(p *Position)  { b.start = p }
func (b *baseNode) SetEnd(p *Position)    { b.end = p }
func (b *baseNode) Parent() Node          { return b.parent }
func (b *baseNode) setParent(parent Node) { b.parent = parent }

// Tree is the root node representing a whole SLS file.
type Tree struct {
	baseNode
	Includes *IncludesNode
	Extend   *ExtendNode
	States   []*StateNode
}

func (t *Tree) Add() Node {
	state := &StateNode{}
	state.setParent(t)
	t.States = append(t.States, state)
	return state
}

// convert turns a freshly added state node into the includes or extend node
// when its key says so.
func (t *Tree) convert(state *StateNode, name string) Node {
	t.removeState(state)
	switch name {
	case "include":
		t.Includes = &IncludesNode{}
		t.Includes.setParent(t)
		t.Includes.start = state.start
		return t.Includes
	case "extend":
		t.Extend = &ExtendNode{}
		t.Extend.setParent(t)
		t.Extend.start = state.start
		return t.Extend
	}
	return t
}

func (t *Tree) removeState(state *StateNode) {
	for i, s := range t.States {
		if s == state {
			t.States = append(t.States[:i], t.States[i+1:]...)
			return
		}
	}
}

func (t *Tree) Children() []Node {
	var children []Node
	if t.Includes != nil {
		children = append(children, t.Includes)
	}
	if t.Extend != nil {
		children = append(children, t.Extend)
	}
	for _, s := range t.States {
		children = append(children, s)
	}
	return children
}

func (t *Tree) Visit(visitor func(Node) bool) {
	if visitor(t) {
		for _, child := range t.Children() {
			child.Visit(visitor)
		}
	}
}

func (t *Tree) String() string {
	var sb strings.Builder
	t.dump(&sb, 0, false)
	return sb.String()
}

func (t *Tree) StringWithPositions() string {
	var sb strings.Builder
	t.dump(&sb, 0, true)
	return sb.String()
}

// IncludesNode is the list of includes of an SLS file. Visit deliberately
// does not descend into the individual includes.
type IncludesNode struct {
	baseNode
	Includes []*IncludeNode
}

func (n *IncludesNode) Add() Node {
	include := &IncludeNode{}
	include.setParent(n)
	n.Includes = append(n.Includes, include)
	return include
}

func (n *IncludesNode) Visit(visitor func(Node) bool) {
	visitor(n)
}

// IncludeNode is a single entry of the includes list. Value is the dotted
// name of the included SLS file, or empty while the user is still typing it.
type IncludeNode struct {
	baseNode
	Value string
}

func (n *IncludeNode) Visit(visitor func(Node) bool) {
	visitor(n)
}

// GetFile resolves the dotted include value against the top states folder,
// preferring <dest>/init.sls over <dest>.sls. It returns the empty string
// when neither file exists.
func (n *IncludeNode) GetFile(topPath string) string {
	if n.Value == "" {
		return ""
	}
	abs, err := filepath.Abs(topPath)
	if err != nil {
		return ""
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		abs = filepath.Dir(abs)
	}
	dest := filepath.Join(strings.Split(n.Value, ".")...)
	initPath := filepath.Join(abs, dest, "init.sls")
	entryPath := filepath.Join(abs, dest+".sls")
	if _, err := os.Stat(initPath); err == nil {
		return initPath
	}
	if _, err := os.Stat(entryPath); err == nil {
		return entryPath
	}
	return ""
}

// ExtendNode represents an "extend" declaration.
type ExtendNode struct {
	baseNode
	States []*StateNode
}

func (n *ExtendNode) Add() Node {
	state := &StateNode{}
	state.setParent(n)
	n.States = append(n.States, state)
	return state
}

func (n *ExtendNode) Children() []Node {
	children := make([]Node, len(n.States))
	for i, s := range n.States {
		children[i] = s
	}
	return children
}

func (n *ExtendNode) Visit(visitor func(Node) bool) {
	if visitor(n) {
		for _, child := range n.Children() {
			child.Visit(visitor)
		}
	}
}

// StateNode is one state definition, identified by its state id.
type StateNode struct {
	baseNode
	Identifier string
	Calls      []*StateCallNode
}

func (n *StateNode) Add() Node {
	call := &StateCallNode{}
	call.setParent(n)
	n.Calls = append(n.Calls, call)
	return call
}

// SetKey sets the identifier. The keys "include" and "extend" instead tell
// the tree to replace this node with the matching special node.
func (n *StateNode) SetKey(key string) Node {
	if key == "include" || key == "extend" {
		if tree, ok := n.parent.(*Tree); ok {
			return tree.convert(n, key)
		}
	}
	n.Identifier = key
	return n
}

func (n *StateNode) Children() []Node {
	children := make([]Node, len(n.Calls))
	for i, c := range n.Calls {
		children[i] = c
	}
	return children
}

func (n *StateNode) Visit(visitor func(Node) bool) {
	if visitor(n) {
		for _, child := range n.Children() {
			child.Visit(visitor)
		}
	}
}

// StateCallNode is the state function applied to a state id, e.g. the
// file.managed part together with its parameters and requisites.
type StateCallNode struct {
	baseNode
	Name       string
	Parameters []*StateParameterNode
	Requisites []*RequisitesNode
}

func (n *StateCallNode) Add() Node {
	param := &StateParameterNode{}
	param.setParent(n)
	n.Parameters = append(n.Parameters, param)
	return param
}

func (n *StateCallNode) SetKey(key string) Node {
	n.Name = key
	return n
}

// convert reclassifies a parameter as a requisites list once its key turns
// out to be a requisite keyword.
func (n *StateCallNode) convert(param *StateParameterNode, name string) Node {
	for i, p := range n.Parameters {
		if p == param {
			n.Parameters = append(n.Parameters[:i], n.Parameters[i+1:]...)
			break
		}
	}
	requisites := &RequisitesNode{Kind: name}
	requisites.setParent(n)
	requisites.start = param.start
	n.Requisites = append(n.Requisites, requisites)
	return requisites
}

func (n *StateCallNode) Children() []Node {
	var children []Node
	for _, p := range n.Parameters {
		children = append(children, p)
	}
	for _, r := range n.Requisites {
		children = append(children, r)
	}
	return children
}

func (n *StateCallNode) Visit(visitor func(Node) bool) {
	if visitor(n) {
		for _, child := range n.Children() {
			child.Visit(visitor)
		}
	}
}

// StateParameterNode is one parameter of a state call. Value is either nil,
// the scalar value as a string, or a []*TokenNode slice holding the raw
// tokens of a complex value.
type StateParameterNode struct {
	baseNode
	Name  string
	Value any
}

var requisiteKeywords = buildRequisiteKeywords()

func buildRequisiteKeywords() map[string]bool {
	base := []string{"require", "onchanges", "watch", "listen", "prereq", "onfail", "use"}
	keywords := make(map[string]bool, 3*len(base))
	for _, k := range base {
		keywords[k] = true
		keywords[k+"_any"] = true
		keywords[k+"_in"] = true
	}
	return keywords
}

// SetKey sets the name of the parameter. A requisite keyword instead tells
// the parent call to reclassify the parameter and returns the new node.
func (n *StateParameterNode) SetKey(key string) Node {
	if requisiteKeywords[key] {
		if call, ok := n.parent.(*StateCallNode); ok {
			return call.convert(n, key)
		}
	}
	n.Name = key
	return n
}

func (n *StateParameterNode) Visit(visitor func(Node) bool) {
	visitor(n)
}

// RequisitesNode is the list of requisites of one kind, e.g. require.
type RequisitesNode struct {
	baseNode
	Kind       string
	Requisites []*RequisiteNode
}

func (n *RequisitesNode) SetKey(key string) Node {
	n.Kind = key
	return n
}

func (n *RequisitesNode) Add() Node {
	requisite := &RequisiteNode{}
	requisite.setParent(n)
	n.Requisites = append(n.Requisites, requisite)
	return requisite
}

func (n *RequisitesNode) Children() []Node {
	children := make([]Node, len(n.Requisites))
	for i, r := range n.Requisites {
		children[i] = r
	}
	return children
}

func (n *RequisitesNode) Visit(visitor func(Node) bool) {
	if visitor(n) {
		for _, child := range n.Children() {
			child.Visit(visitor)
		}
	}
}

// RequisiteNode is a single requisite, e.g. "- service: libvirtd".
type RequisiteNode struct {
	baseNode
	Module    string
	Reference string
}

func (n *RequisiteNode) SetKey(key string) Node {
	n.Module = key
	return n
}

func (n *RequisiteNode) Visit(visitor func(Node) bool) {
	visitor(n)
}

// TokenNode wraps a raw token that did not map to any SLS construct.
type TokenNode struct {
	baseNode
	Token Token
}

func newTokenNode(token Token) *TokenNode {
	node := &TokenNode{Token: token}
	node.start = &Position{Line: token.Start.Line, Col: token.Start.Column}
	node.end = &Position{Line: token.End.Line, Col: token.End.Column}
	return node
}

func (n *TokenNode) Visit(visitor func(Node) bool) {
	visitor(n)
}

func writeDumpLine(sb *strings.Builder, depth int, kind, label string, start, end *Position, withPositions bool) {
	for i := 0; i < depth; i++ {
		sb.WriteString("  ")
	}
	sb.WriteString(kind)
	if withPositions {
		sb.WriteString(" [" + posString(start) + "-" + posString(end) + "]")
	}
	if label != "" {
		sb.WriteString(" " + label)
	}
	sb.WriteString("\n")
}

func posString(p *Position) string {
	if p == nil {
		return "?"
	}
	return p.String()
}

func (t *Tree) dump(sb *strings.Builder, depth int, withPositions bool) {
	writeDumpLine(sb, depth, "Tree", "", t.start, t.end, withPositions)
	for _, child := range t.Children() {
		child.dump(sb, depth+1, withPositions)
	}
}

func (n *IncludesNode) dump(sb *strings.Builder, depth int, withPositions bool) {
	writeDumpLine(sb, depth, "Includes", "", n.start, n.end, withPositions)
	for _, include := range n.Includes {
		include.dump(sb, depth+1, withPositions)
	}
}

func (n *IncludeNode) dump(sb *strings.Builder, depth int, withPositions bool) {
	writeDumpLine(sb, depth, "Include", n.Value, n.start, n.end, withPositions)
}

func (n *ExtendNode) dump(sb *strings.Builder, depth int, withPositions bool) {
	writeDumpLine(sb, depth, "Extend", "", n.start, n.end, withPositions)
	for _, state := range n.States {
		state.dump(sb, depth+1, withPositions)
	}
}

func (n *StateNode) dump(sb *strings.Builder, depth int, withPositions bool) {
	writeDumpLine(sb, depth, "State", n.Identifier, n.start, n.end, withPositions)
	for _, call := range n.Calls {
		call.dump(sb, depth+1, withPositions)
	}
}

func (n *StateCallNode) dump(sb *strings.Builder, depth int, withPositions bool) {
	writeDumpLine(sb, depth, "StateCall", n.Name, n.start, n.end, withPositions)
	for _, child := range n.Children() {
		child.dump(sb, depth+1, withPositions)
	}
}

func (n *StateParameterNode) dump(sb *strings.Builder, depth int, withPositions bool) {
	label := n.Name
	if value, ok := n.Value.(string); ok {
		label += " = " + strconv.Quote(value)
	}
	writeDumpLine(sb, depth, "StateParameter", label, n.start, n.end, withPositions)
	if tokens, ok := n.Value.([]*TokenNode); ok {
		for _, token := range tokens {
			token.dump(sb, depth+1, withPositions)
		}
	}
}

func (n *RequisitesNode) dump(sb *strings.Builder, depth int, withPositions bool) {
	writeDumpLine(sb, depth, "Requisites", n.Kind, n.start, n.end, withPositions)
	for _, requisite := range n.Requisites {
		requisite.dump(sb, depth+1, withPositions)
	}
}

func (n *RequisiteNode) dump(sb *strings.Builder, depth int, withPositions bool) {
	label := n.Module
	if n.Reference != "" {
		label += " -> " + n.Reference
	}
	writeDumpLine(sb, depth, "Requisite", label, n.start, n.end, withPositions)
}

func (n *TokenNode) dump(sb *strings.Builder, depth int, withPositions bool) {
	label := n.Token.Kind.String()
	if n.Token.Kind == TokenScalar {
		label += " " + strconv.Quote(n.Token.Value)
	}
	writeDumpLine(sb, depth, "Token", label, n.start, n.end, withPositions)
}
