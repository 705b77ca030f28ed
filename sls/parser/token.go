package parser

import (
	"fmt"
	"strings"
)

type TokenKind int

const (
	TokenStreamStart TokenKind = iota
	TokenStreamEnd
	TokenDirective
	TokenDocumentStart
	TokenDocumentEnd
	TokenBlockMappingStart
	TokenBlockSequenceStart
	TokenBlockEnd
	TokenFlowSequenceStart
	TokenFlowSequenceEnd
	TokenFlowMappingStart
	TokenFlowMappingEnd
	TokenKey
	TokenValue
	TokenBlockEntry
	TokenFlowEntry
	TokenAlias
	TokenAnchor
	TokenTag
	TokenScalar
)

var tokenKindNames = map[TokenKind]string{
	TokenStreamStart:        "StreamStart",
	TokenStreamEnd:          "StreamEnd",
	TokenDirective:          "Directive",
	TokenDocumentStart:      "DocumentStart",
	TokenDocumentEnd:        "DocumentEnd",
	TokenBlockMappingStart:  "BlockMappingStart",
	TokenBlockSequenceStart: "BlockSequenceStart",
	TokenBlockEnd:           "BlockEnd",
	TokenFlowSequenceStart:  "FlowSequenceStart",
	TokenFlowSequenceEnd:    "FlowSequenceEnd",
	TokenFlowMappingStart:   "FlowMappingStart",
	TokenFlowMappingEnd:     "FlowMappingEnd",
	TokenKey:                "Key",
	TokenValue:              "Value",
	TokenBlockEntry:         "BlockEntry",
	TokenFlowEntry:          "FlowEntry",
	TokenAlias:              "Alias",
	TokenAnchor:             "Anchor",
	TokenTag:                "Tag",
	TokenScalar:             "Scalar",
}

func (k TokenKind) String() string {
	if name, ok := tokenKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Mark is a location in the scanned document. All fields are zero-based and
// Index counts runes, not bytes.
type Mark struct {
	Index  int
	Line   int
	Column int
}

func (m Mark) String() string {
	return fmt.Sprintf("line %d, column %d", m.Line+1, m.Column+1)
}

// Token is a single event of the YAML token stream. Value is only set for
// scalars, aliases, anchors, tags and directives. Style is 0 for plain
// scalars, otherwise one of '\'', '"', '|' or '>'.
type Token struct {
	Kind  TokenKind
	Start Mark
	End   Mark
	Value string
	Style byte
	Plain bool
}

// ScanError describes where scanning failed. ContextMark points at the
// construct being scanned when the problem was found and may be nil.
type ScanError struct {
	Context     string
	ContextMark *Mark
	Problem     string
	ProblemMark *Mark
}

func (e *ScanError) Error() string {
	var parts []string
	if e.Context != "" {
		parts = append(parts, e.Context)
	}
	if e.ContextMark != nil {
		parts = append(parts, "in "+e.ContextMark.String())
	}
	if e.Problem != "" {
		parts = append(parts, e.Problem)
	}
	if e.ProblemMark != nil {
		parts = append(parts, "in "+e.ProblemMark.String())
	}
	return strings.Join(parts, "\n")
}
