package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// simpleKey remembers a position that may still turn out to be a mapping key.
// required is set when the key sits exactly at the current block indent, in
// which case failing to find a ':' for it is a scan error.
type simpleKey struct {
	tokenNumber int
	required    bool
	mark        Mark
}

// Scanner turns a document into a stream of Tokens. Tokens are queued
// internally and only delivered once no pending simple key can still change
// their interpretation; a stale required key therefore surfaces as an error
// before any queued token after it is handed out.
type Scanner struct {
	data   []rune
	index  int
	line   int
	column int

	done        bool
	flowLevel   int
	tokens      []Token
	tokensTaken int

	indent  int
	indents []int

	allowSimpleKey     bool
	possibleSimpleKeys map[int]simpleKey
}

func NewScanner(document string) *Scanner {
	s := &Scanner{
		data:               []rune(document),
		indent:             -1,
		allowSimpleKey:     true,
		possibleSimpleKeys: make(map[int]simpleKey),
	}
	m := s.mark()
	s.tokens = append(s.tokens, Token{Kind: TokenStreamStart, Start: m, End: m})
	return s
}

// Next returns the next token, or nil after the stream end token has been
// delivered. Once an error is returned, no further tokens are produced.
func (s *Scanner) Next() (*Token, *ScanError) {
	for {
		need, err := s.needMoreTokens()
		if err != nil {
			return nil, err
		}
		if !need {
			break
		}
		if err := s.fetchMoreTokens(); err != nil {
			return nil, err
		}
	}
	if len(s.tokens) == 0 {
		return nil, nil
	}
	tok := s.tokens[0]
	s.tokens = s.tokens[1:]
	s.tokensTaken++
	return &tok, nil
}

// Scan returns all tokens of document that the scanner delivers before
// hitting the end of the stream or a scan error.
func Scan(document string) ([]Token, *ScanError) {
	s := NewScanner(document)
	var tokens []Token
	for {
		tok, err := s.Next()
		if err != nil {
			return tokens, err
		}
		if tok == nil {
			return tokens, nil
		}
		tokens = append(tokens, *tok)
	}
}

func (s *Scanner) mark() Mark {
	return Mark{Index: s.index, Line: s.line, Column: s.column}
}

func (s *Scanner) peek(k int) rune {
	if s.index+k < len(s.data) {
		return s.data[s.index+k]
	}
	return 0
}

func (s *Scanner) prefix(n int) string {
	end := s.index + n
	if end > len(s.data) {
		end = len(s.data)
	}
	return string(s.data[s.index:end])
}

func (s *Scanner) forward(n int) {
	for ; n > 0; n-- {
		if s.index >= len(s.data) {
			return
		}
		ch := s.data[s.index]
		s.index++
		if ch == '\n' || ch == '\x85' || ch == '\u2028' || ch == '\u2029' ||
			(ch == '\r' && s.peek(0) != '\n') {
			s.line++
			s.column = 0
		} else if ch != '\ufeff' {
			s.column++
		}
	}
}

func isBreak(ch rune) bool {
	return ch == '\r' || ch == '\n' || ch == '\x85' || ch == '\u2028' || ch == '\u2029'
}

func isBreakOrZero(ch rune) bool {
	return ch == 0 || isBreak(ch)
}

func isBlankOrBreakOrZero(ch rune) bool {
	return ch == ' ' || ch == '\t' || isBreakOrZero(ch)
}

func isWordChar(ch rune) bool {
	return ch >= '0' && ch <= '9' || ch >= 'A' && ch <= 'Z' ||
		ch >= 'a' && ch <= 'z' || ch == '-' || ch == '_'
}

func isHex(ch rune) bool {
	return ch >= '0' && ch <= '9' || ch >= 'A' && ch <= 'F' || ch >= 'a' && ch <= 'f'
}

func scanErr(context string, contextMark *Mark, problem string, problemMark Mark) *ScanError {
	return &ScanError{
		Context:     context,
		ContextMark: contextMark,
		Problem:     problem,
		ProblemMark: &problemMark,
	}
}

func (s *Scanner) needMoreTokens() (bool, *ScanError) {
	if s.done {
		return false, nil
	}
	if len(s.tokens) == 0 {
		return true, nil
	}
	if err := s.stalePossibleSimpleKeys(); err != nil {
		return false, err
	}
	if n, ok := s.nextPossibleSimpleKey(); ok && n == s.tokensTaken {
		return true, nil
	}
	return false, nil
}

func (s *Scanner) nextPossibleSimpleKey() (int, bool) {
	min, found := 0, false
	for _, key := range s.possibleSimpleKeys {
		if !found || key.tokenNumber < min {
			min = key.tokenNumber
			found = true
		}
	}
	return min, found
}

// A simple key must stay on one line and cannot be longer than 1024
// characters. Keys that violate this are dropped, unless they were required.
func (s *Scanner) stalePossibleSimpleKeys() *ScanError {
	for level, key := range s.possibleSimpleKeys {
		if key.mark.Line != s.line || s.index-key.mark.Index > 1024 {
			if key.required {
				m := key.mark
				return scanErr("while scanning a simple key", &m,
					"could not find expected ':'", s.mark())
			}
			delete(s.possibleSimpleKeys, level)
		}
	}
	return nil
}

func (s *Scanner) savePossibleSimpleKey() *ScanError {
	required := s.flowLevel == 0 && s.indent == s.column
	if !s.allowSimpleKey {
		return nil
	}
	if err := s.removePossibleSimpleKey(); err != nil {
		return err
	}
	s.possibleSimpleKeys[s.flowLevel] = simpleKey{
		tokenNumber: s.tokensTaken + len(s.tokens),
		required:    required,
		mark:        s.mark(),
	}
	return nil
}

func (s *Scanner) removePossibleSimpleKey() *ScanError {
	key, ok := s.possibleSimpleKeys[s.flowLevel]
	if !ok {
		return nil
	}
	delete(s.possibleSimpleKeys, s.flowLevel)
	if key.required {
		m := key.mark
		return scanErr("while scanning a simple key", &m,
			"could not find expected ':'", s.mark())
	}
	return nil
}

func (s *Scanner) unwindIndent(column int) {
	if s.flowLevel != 0 {
		return
	}
	for s.indent > column {
		m := s.mark()
		s.indent = s.indents[len(s.indents)-1]
		s.indents = s.indents[:len(s.indents)-1]
		s.tokens = append(s.tokens, Token{Kind: TokenBlockEnd, Start: m, End: m})
	}
}

func (s *Scanner) addIndent(column int) bool {
	if s.indent < column {
		s.indents = append(s.indents, s.indent)
		s.indent = column
		return true
	}
	return false
}

func (s *Scanner) insertToken(i int, tok Token) {
	s.tokens = append(s.tokens, Token{})
	copy(s.tokens[i+1:], s.tokens[i:])
	s.tokens[i] = tok
}

func (s *Scanner) fetchMoreTokens() *ScanError {
	s.scanToNextToken()
	if err := s.stalePossibleSimpleKeys(); err != nil {
		return err
	}
	s.unwindIndent(s.column)

	ch := s.peek(0)
	switch {
	case ch == 0:
		return s.fetchStreamEnd()
	case ch == '%' && s.column == 0:
		return s.fetchDirective()
	case ch == '-' && s.checkDocumentIndicator("---"):
		return s.fetchDocumentIndicator(TokenDocumentStart)
	case ch == '.' && s.checkDocumentIndicator("..."):
		return s.fetchDocumentIndicator(TokenDocumentEnd)
	case ch == '[':
		return s.fetchFlowCollectionStart(TokenFlowSequenceStart)
	case ch == '{':
		return s.fetchFlowCollectionStart(TokenFlowMappingStart)
	case ch == ']':
		return s.fetchFlowCollectionEnd(TokenFlowSequenceEnd)
	case ch == '}':
		return s.fetchFlowCollectionEnd(TokenFlowMappingEnd)
	case ch == ',':
		return s.fetchFlowEntry()
	case ch == '-' && isBlankOrBreakOrZero(s.peek(1)):
		return s.fetchBlockEntry()
	case ch == '?' && (s.flowLevel != 0 || isBlankOrBreakOrZero(s.peek(1))):
		return s.fetchKey()
	case ch == ':' && (s.flowLevel != 0 || isBlankOrBreakOrZero(s.peek(1))):
		return s.fetchValue()
	case ch == '*':
		return s.fetchAnchor(TokenAlias)
	case ch == '&':
		return s.fetchAnchor(TokenAnchor)
	case ch == '!':
		return s.fetchTag()
	case ch == '|' && s.flowLevel == 0:
		return s.fetchBlockScalar('|')
	case ch == '>' && s.flowLevel == 0:
		return s.fetchBlockScalar('>')
	case ch == '\'':
		return s.fetchFlowScalar('\'')
	case ch == '"':
		return s.fetchFlowScalar('"')
	case s.checkPlain():
		return s.fetchPlain()
	}
	return scanErr("while scanning for the next token", nil,
		fmt.Sprintf("found character %q that cannot start any token", ch), s.mark())
}

func (s *Scanner) scanToNextToken() {
	if s.index == 0 && s.peek(0) == '\ufeff' {
		s.forward(1)
	}
	for {
		for s.peek(0) == ' ' {
			s.forward(1)
		}
		if s.peek(0) == '#' {
			for !isBreakOrZero(s.peek(0)) {
				s.forward(1)
			}
		}
		if s.scanLineBreak() == "" {
			return
		}
		if s.flowLevel == 0 {
			s.allowSimpleKey = true
		}
	}
}

func (s *Scanner) scanLineBreak() string {
	ch := s.peek(0)
	if ch == '\r' || ch == '\n' || ch == '\x85' {
		if s.prefix(2) == "\r\n" {
			s.forward(2)
		} else {
			s.forward(1)
		}
		return "\n"
	}
	if ch == '\u2028' || ch == '\u2029' {
		s.forward(1)
		return string(ch)
	}
	return ""
}

func (s *Scanner) checkDocumentIndicator(marker string) bool {
	return s.column == 0 && s.prefix(3) == marker && isBlankOrBreakOrZero(s.peek(3))
}

func (s *Scanner) checkDocumentSeparator() bool {
	pfx := s.prefix(3)
	return (pfx == "---" || pfx == "...") && isBlankOrBreakOrZero(s.peek(3))
}

func (s *Scanner) checkPlain() bool {
	ch := s.peek(0)
	if ch == 0 {
		return false
	}
	if !strings.ContainsRune(" \t\r\n\x85\u2028\u2029-?:,[]{}#&*!|>'\"%@`", ch) {
		return true
	}
	if isBlankOrBreakOrZero(s.peek(1)) {
		return false
	}
	return ch == '-' || (s.flowLevel == 0 && (ch == '?' || ch == ':'))
}

func (s *Scanner) fetchStreamEnd() *ScanError {
	s.unwindIndent(-1)
	if err := s.removePossibleSimpleKey(); err != nil {
		return err
	}
	s.allowSimpleKey = false
	s.possibleSimpleKeys = make(map[int]simpleKey)
	m := s.mark()
	s.tokens = append(s.tokens, Token{Kind: TokenStreamEnd, Start: m, End: m})
	s.done = true
	return nil
}

func (s *Scanner) fetchDirective() *ScanError {
	s.unwindIndent(-1)
	if err := s.removePossibleSimpleKey(); err != nil {
		return err
	}
	s.allowSimpleKey = false
	tok, err := s.scanDirective()
	if err != nil {
		return err
	}
	s.tokens = append(s.tokens, tok)
	return nil
}

func (s *Scanner) fetchDocumentIndicator(kind TokenKind) *ScanError {
	s.unwindIndent(-1)
	if err := s.removePossibleSimpleKey(); err != nil {
		return err
	}
	s.allowSimpleKey = false
	start := s.mark()
	s.forward(3)
	s.tokens = append(s.tokens, Token{Kind: kind, Start: start, End: s.mark()})
	return nil
}

func (s *Scanner) fetchFlowCollectionStart(kind TokenKind) *ScanError {
	if err := s.savePossibleSimpleKey(); err != nil {
		return err
	}
	s.flowLevel++
	s.allowSimpleKey = true
	start := s.mark()
	s.forward(1)
	s.tokens = append(s.tokens, Token{Kind: kind, Start: start, End: s.mark()})
	return nil
}

func (s *Scanner) fetchFlowCollectionEnd(kind TokenKind) *ScanError {
	if err := s.removePossibleSimpleKey(); err != nil {
		return err
	}
	s.flowLevel--
	s.allowSimpleKey = false
	start := s.mark()
	s.forward(1)
	s.tokens = append(s.tokens, Token{Kind: kind, Start: start, End: s.mark()})
	return nil
}

func (s *Scanner) fetchFlowEntry() *ScanError {
	s.allowSimpleKey = true
	if err := s.removePossibleSimpleKey(); err != nil {
		return err
	}
	start := s.mark()
	s.forward(1)
	s.tokens = append(s.tokens, Token{Kind: TokenFlowEntry, Start: start, End: s.mark()})
	return nil
}

func (s *Scanner) fetchBlockEntry() *ScanError {
	if s.flowLevel == 0 {
		if !s.allowSimpleKey {
			return &ScanError{
				Problem:     "sequence entries are not allowed here",
				ProblemMark: markPtr(s.mark()),
			}
		}
		if s.addIndent(s.column) {
			m := s.mark()
			s.tokens = append(s.tokens, Token{Kind: TokenBlockSequenceStart, Start: m, End: m})
		}
	}
	if err := s.removePossibleSimpleKey(); err != nil {
		return err
	}
	s.allowSimpleKey = true
	start := s.mark()
	s.forward(1)
	s.tokens = append(s.tokens, Token{Kind: TokenBlockEntry, Start: start, End: s.mark()})
	return nil
}

func (s *Scanner) fetchKey() *ScanError {
	if s.flowLevel == 0 {
		if !s.allowSimpleKey {
			return &ScanError{
				Problem:     "mapping keys are not allowed here",
				ProblemMark: markPtr(s.mark()),
			}
		}
		if s.addIndent(s.column) {
			m := s.mark()
			s.tokens = append(s.tokens, Token{Kind: TokenBlockMappingStart, Start: m, End: m})
		}
	}
	if err := s.removePossibleSimpleKey(); err != nil {
		return err
	}
	s.allowSimpleKey = s.flowLevel == 0
	start := s.mark()
	s.forward(1)
	s.tokens = append(s.tokens, Token{Kind: TokenKey, Start: start, End: s.mark()})
	return nil
}

func (s *Scanner) fetchValue() *ScanError {
	if key, ok := s.possibleSimpleKeys[s.flowLevel]; ok {
		delete(s.possibleSimpleKeys, s.flowLevel)
		i := key.tokenNumber - s.tokensTaken
		s.insertToken(i, Token{Kind: TokenKey, Start: key.mark, End: key.mark})
		if s.flowLevel == 0 && s.addIndent(key.mark.Column) {
			s.insertToken(i, Token{Kind: TokenBlockMappingStart, Start: key.mark, End: key.mark})
		}
		s.allowSimpleKey = false
	} else {
		if s.flowLevel == 0 && !s.allowSimpleKey {
			return &ScanError{
				Problem:     "mapping values are not allowed here",
				ProblemMark: markPtr(s.mark()),
			}
		}
		if s.flowLevel == 0 && s.addIndent(s.column) {
			m := s.mark()
			s.tokens = append(s.tokens, Token{Kind: TokenBlockMappingStart, Start: m, End: m})
		}
		s.allowSimpleKey = s.flowLevel == 0
		if err := s.removePossibleSimpleKey(); err != nil {
			return err
		}
	}
	start := s.mark()
	s.forward(1)
	s.tokens = append(s.tokens, Token{Kind: TokenValue, Start: start, End: s.mark()})
	return nil
}

func (s *Scanner) fetchAnchor(kind TokenKind) *ScanError {
	if err := s.savePossibleSimpleKey(); err != nil {
		return err
	}
	s.allowSimpleKey = false
	tok, err := s.scanAnchor(kind)
	if err != nil {
		return err
	}
	s.tokens = append(s.tokens, tok)
	return nil
}

func (s *Scanner) fetchTag() *ScanError {
	if err := s.savePossibleSimpleKey(); err != nil {
		return err
	}
	s.allowSimpleKey = false
	tok, err := s.scanTag()
	if err != nil {
		return err
	}
	s.tokens = append(s.tokens, tok)
	return nil
}

func (s *Scanner) fetchBlockScalar(style byte) *ScanError {
	s.allowSimpleKey = true
	if err := s.removePossibleSimpleKey(); err != nil {
		return err
	}
	tok, err := s.scanBlockScalar(style)
	if err != nil {
		return err
	}
	s.tokens = append(s.tokens, tok)
	return nil
}

func (s *Scanner) fetchFlowScalar(style byte) *ScanError {
	if err := s.savePossibleSimpleKey(); err != nil {
		return err
	}
	s.allowSimpleKey = false
	tok, err := s.scanFlowScalar(style)
	if err != nil {
		return err
	}
	s.tokens = append(s.tokens, tok)
	return nil
}

func (s *Scanner) fetchPlain() *ScanError {
	if err := s.savePossibleSimpleKey(); err != nil {
		return err
	}
	s.allowSimpleKey = false
	s.tokens = append(s.tokens, s.scanPlain())
	return nil
}

func markPtr(m Mark) *Mark {
	return &m
}

func (s *Scanner) scanDirective() (Token, *ScanError) {
	start := s.mark()
	s.forward(1)
	name, err := s.scanDirectiveName(start)
	if err != nil {
		return Token{}, err
	}
	value := name
	var end Mark
	switch name {
	case "YAML":
		major, minor, err := s.scanYAMLDirectiveValue(start)
		if err != nil {
			return Token{}, err
		}
		value = fmt.Sprintf("%s %d.%d", name, major, minor)
		end = s.mark()
	case "TAG":
		handle, prefix, err := s.scanTagDirectiveValue(start)
		if err != nil {
			return Token{}, err
		}
		value = name + " " + handle + " " + prefix
		end = s.mark()
	default:
		end = s.mark()
		for !isBreakOrZero(s.peek(0)) {
			s.forward(1)
		}
	}
	if err := s.scanDirectiveIgnoredLine(start); err != nil {
		return Token{}, err
	}
	return Token{Kind: TokenDirective, Start: start, End: end, Value: value}, nil
}

func (s *Scanner) scanDirectiveName(start Mark) (string, *ScanError) {
	length := 0
	for isWordChar(s.peek(length)) {
		length++
	}
	if length == 0 {
		return "", scanErr("while scanning a directive", &start,
			fmt.Sprintf("expected alphabetic or numeric character, but found %q", s.peek(0)), s.mark())
	}
	value := s.prefix(length)
	s.forward(length)
	if ch := s.peek(0); ch != ' ' && !isBreakOrZero(ch) {
		return "", scanErr("while scanning a directive", &start,
			fmt.Sprintf("expected alphabetic or numeric character, but found %q", ch), s.mark())
	}
	return value, nil
}

func (s *Scanner) scanYAMLDirectiveValue(start Mark) (int, int, *ScanError) {
	for s.peek(0) == ' ' {
		s.forward(1)
	}
	major, err := s.scanYAMLDirectiveNumber(start)
	if err != nil {
		return 0, 0, err
	}
	if s.peek(0) != '.' {
		return 0, 0, scanErr("while scanning a directive", &start,
			fmt.Sprintf("expected a digit or '.', but found %q", s.peek(0)), s.mark())
	}
	s.forward(1)
	minor, err := s.scanYAMLDirectiveNumber(start)
	if err != nil {
		return 0, 0, err
	}
	if ch := s.peek(0); ch != ' ' && !isBreakOrZero(ch) {
		return 0, 0, scanErr("while scanning a directive", &start,
			fmt.Sprintf("expected a digit or ' ', but found %q", ch), s.mark())
	}
	return major, minor, nil
}

func (s *Scanner) scanYAMLDirectiveNumber(start Mark) (int, *ScanError) {
	if ch := s.peek(0); ch < '0' || ch > '9' {
		return 0, scanErr("while scanning a directive", &start,
			fmt.Sprintf("expected a digit, but found %q", ch), s.mark())
	}
	length := 0
	for ch := s.peek(length); ch >= '0' && ch <= '9'; ch = s.peek(length) {
		length++
	}
	value, _ := strconv.Atoi(s.prefix(length))
	s.forward(length)
	return value, nil
}

func (s *Scanner) scanTagDirectiveValue(start Mark) (string, string, *ScanError) {
	for s.peek(0) == ' ' {
		s.forward(1)
	}
	handle, err := s.scanTagHandle("directive", start)
	if err != nil {
		return "", "", err
	}
	for s.peek(0) == ' ' {
		s.forward(1)
	}
	prefix, err := s.scanTagURI("directive", start)
	if err != nil {
		return "", "", err
	}
	if ch := s.peek(0); ch != ' ' && !isBreakOrZero(ch) {
		return "", "", scanErr("while scanning a directive", &start,
			fmt.Sprintf("expected ' ', but found %q", ch), s.mark())
	}
	return handle, prefix, nil
}

func (s *Scanner) scanDirectiveIgnoredLine(start Mark) *ScanError {
	for s.peek(0) == ' ' {
		s.forward(1)
	}
	if s.peek(0) == '#' {
		for !isBreakOrZero(s.peek(0)) {
			s.forward(1)
		}
	}
	if ch := s.peek(0); !isBreakOrZero(ch) {
		return scanErr("while scanning a directive", &start,
			fmt.Sprintf("expected a comment or a line break, but found %q", ch), s.mark())
	}
	s.scanLineBreak()
	return nil
}

func (s *Scanner) scanAnchor(kind TokenKind) (Token, *ScanError) {
	start := s.mark()
	name := "anchor"
	if kind == TokenAlias {
		name = "alias"
	}
	s.forward(1)
	length := 0
	for isWordChar(s.peek(length)) {
		length++
	}
	if length == 0 {
		return Token{}, scanErr("while scanning an "+name, &start,
			fmt.Sprintf("expected alphabetic or numeric character, but found %q", s.peek(length)), s.mark())
	}
	value := s.prefix(length)
	s.forward(length)
	if ch := s.peek(0); !isBlankOrBreakOrZero(ch) && !strings.ContainsRune("?:,]}%@`", ch) {
		return Token{}, scanErr("while scanning an "+name, &start,
			fmt.Sprintf("expected alphabetic or numeric character, but found %q", ch), s.mark())
	}
	return Token{Kind: kind, Start: start, End: s.mark(), Value: value}, nil
}

func (s *Scanner) scanTag() (Token, *ScanError) {
	start := s.mark()
	var handle, suffix string
	var err *ScanError
	if ch := s.peek(1); ch == '<' {
		s.forward(2)
		suffix, err = s.scanTagURI("tag", start)
		if err != nil {
			return Token{}, err
		}
		if s.peek(0) != '>' {
			return Token{}, scanErr("while parsing a tag", &start,
				fmt.Sprintf("expected '>', but found %q", s.peek(0)), s.mark())
		}
		s.forward(1)
	} else if isBlankOrBreakOrZero(ch) {
		suffix = "!"
		s.forward(1)
	} else {
		useHandle := false
		for length := 1; !isBreakOrZero(ch) && ch != ' '; ch = s.peek(length) {
			if ch == '!' {
				useHandle = true
				break
			}
			length++
		}
		if useHandle {
			handle, err = s.scanTagHandle("tag", start)
			if err != nil {
				return Token{}, err
			}
		} else {
			handle = "!"
			s.forward(1)
		}
		suffix, err = s.scanTagURI("tag", start)
		if err != nil {
			return Token{}, err
		}
	}
	if ch := s.peek(0); !isBreakOrZero(ch) && ch != ' ' {
		return Token{}, scanErr("while scanning a tag", &start,
			fmt.Sprintf("expected ' ', but found %q", ch), s.mark())
	}
	return Token{Kind: TokenTag, Start: start, End: s.mark(), Value: handle + suffix}, nil
}

func (s *Scanner) scanTagHandle(name string, start Mark) (string, *ScanError) {
	if s.peek(0) != '!' {
		return "", scanErr("while scanning a "+name, &start,
			fmt.Sprintf("expected '!', but found %q", s.peek(0)), s.mark())
	}
	length := 1
	if ch := s.peek(length); ch != ' ' {
		for isWordChar(ch) {
			length++
			ch = s.peek(length)
		}
		if ch != '!' {
			s.forward(length)
			return "", scanErr("while scanning a "+name, &start,
				fmt.Sprintf("expected '!', but found %q", ch), s.mark())
		}
		length++
	}
	value := s.prefix(length)
	s.forward(length)
	return value, nil
}

func (s *Scanner) scanTagURI(name string, start Mark) (string, *ScanError) {
	var chunks strings.Builder
	length := 0
	ch := s.peek(length)
	for isWordChar(ch) || strings.ContainsRune("-;/?:@&=+$,_.!~*'()[]%", ch) {
		if ch == '%' {
			chunks.WriteString(s.prefix(length))
			s.forward(length)
			length = 0
			decoded, err := s.scanURIEscapes(name, start)
			if err != nil {
				return "", err
			}
			chunks.WriteString(decoded)
		} else {
			length++
		}
		ch = s.peek(length)
	}
	if length > 0 {
		chunks.WriteString(s.prefix(length))
		s.forward(length)
	}
	if chunks.Len() == 0 {
		return "", scanErr("while parsing a "+name, &start,
			fmt.Sprintf("expected URI, but found %q", ch), s.mark())
	}
	return chunks.String(), nil
}

func (s *Scanner) scanURIEscapes(name string, start Mark) (string, *ScanError) {
	var raw []byte
	for s.peek(0) == '%' {
		s.forward(1)
		if !isHex(s.peek(0)) || !isHex(s.peek(1)) {
			return "", scanErr("while scanning a "+name, &start,
				fmt.Sprintf("expected URI escape sequence of 2 hexdecimal numbers, but found %q", s.peek(0)), s.mark())
		}
		code, _ := strconv.ParseUint(s.prefix(2), 16, 8)
		raw = append(raw, byte(code))
		s.forward(2)
	}
	if !utf8.Valid(raw) {
		return "", scanErr("while scanning a "+name, &start,
			"found an invalid UTF-8 sequence in a URI escape", s.mark())
	}
	return string(raw), nil
}

const (
	chompClip = iota
	chompStrip
	chompKeep
)

func (s *Scanner) scanBlockScalar(style byte) (Token, *ScanError) {
	folded := style == '>'
	var chunks strings.Builder
	start := s.mark()
	s.forward(1)
	chomping, increment, err := s.scanBlockScalarIndicators(start)
	if err != nil {
		return Token{}, err
	}
	if err := s.scanBlockScalarIgnoredLine(start); err != nil {
		return Token{}, err
	}
	minIndent := s.indent + 1
	if minIndent < 1 {
		minIndent = 1
	}
	var breaks string
	var indent int
	var end Mark
	if increment == 0 {
		var maxIndent int
		breaks, maxIndent, end = s.scanBlockScalarIndentation()
		indent = minIndent
		if maxIndent > indent {
			indent = maxIndent
		}
	} else {
		indent = minIndent + increment - 1
		breaks, end = s.scanBlockScalarBreaks(indent)
	}
	lineBreak := ""
	for s.column == indent && s.peek(0) != 0 {
		chunks.WriteString(breaks)
		leadingNonSpace := s.peek(0) != ' ' && s.peek(0) != '\t'
		length := 0
		for !isBreakOrZero(s.peek(length)) {
			length++
		}
		chunks.WriteString(s.prefix(length))
		s.forward(length)
		lineBreak = s.scanLineBreak()
		breaks, end = s.scanBlockScalarBreaks(indent)
		if s.column != indent || s.peek(0) == 0 {
			break
		}
		if folded && lineBreak == "\n" && leadingNonSpace &&
			s.peek(0) != ' ' && s.peek(0) != '\t' {
			if breaks == "" {
				chunks.WriteString(" ")
			}
		} else {
			chunks.WriteString(lineBreak)
		}
	}
	if chomping != chompStrip {
		chunks.WriteString(lineBreak)
	}
	if chomping == chompKeep {
		chunks.WriteString(breaks)
	}
	return Token{Kind: TokenScalar, Start: start, End: end, Value: chunks.String(), Style: style}, nil
}

func (s *Scanner) scanBlockScalarIndicators(start Mark) (int, int, *ScanError) {
	chomping, increment := chompClip, 0
	ch := s.peek(0)
	if ch == '+' || ch == '-' {
		if ch == '+' {
			chomping = chompKeep
		} else {
			chomping = chompStrip
		}
		s.forward(1)
		if ch = s.peek(0); ch >= '0' && ch <= '9' {
			increment = int(ch - '0')
			if increment == 0 {
				return 0, 0, scanErr("while scanning a block scalar", &start,
					"expected indentation indicator in the range 1-9, but found 0", s.mark())
			}
			s.forward(1)
		}
	} else if ch >= '0' && ch <= '9' {
		increment = int(ch - '0')
		if increment == 0 {
			return 0, 0, scanErr("while scanning a block scalar", &start,
				"expected indentation indicator in the range 1-9, but found 0", s.mark())
		}
		s.forward(1)
		if ch = s.peek(0); ch == '+' || ch == '-' {
			if ch == '+' {
				chomping = chompKeep
			} else {
				chomping = chompStrip
			}
			s.forward(1)
		}
	}
	if ch = s.peek(0); ch != ' ' && !isBreakOrZero(ch) {
		return 0, 0, scanErr("while scanning a block scalar", &start,
			fmt.Sprintf("expected chomping or indentation indicators, but found %q", ch), s.mark())
	}
	return chomping, increment, nil
}

func (s *Scanner) scanBlockScalarIgnoredLine(start Mark) *ScanError {
	for s.peek(0) == ' ' {
		s.forward(1)
	}
	if s.peek(0) == '#' {
		for !isBreakOrZero(s.peek(0)) {
			s.forward(1)
		}
	}
	if ch := s.peek(0); !isBreakOrZero(ch) {
		return scanErr("while scanning a block scalar", &start,
			fmt.Sprintf("expected a comment or a line break, but found %q", ch), s.mark())
	}
	s.scanLineBreak()
	return nil
}

func (s *Scanner) scanBlockScalarIndentation() (string, int, Mark) {
	var chunks strings.Builder
	maxIndent := 0
	end := s.mark()
	for s.peek(0) == ' ' || isBreak(s.peek(0)) {
		if s.peek(0) != ' ' {
			chunks.WriteString(s.scanLineBreak())
			end = s.mark()
		} else {
			s.forward(1)
			if s.column > maxIndent {
				maxIndent = s.column
			}
		}
	}
	return chunks.String(), maxIndent, end
}

func (s *Scanner) scanBlockScalarBreaks(indent int) (string, Mark) {
	var chunks strings.Builder
	end := s.mark()
	for s.column < indent && s.peek(0) == ' ' {
		s.forward(1)
	}
	for isBreak(s.peek(0)) {
		chunks.WriteString(s.scanLineBreak())
		end = s.mark()
		for s.column < indent && s.peek(0) == ' ' {
			s.forward(1)
		}
	}
	return chunks.String(), end
}

var escapeReplacements = map[rune]rune{
	'0':  0,
	'a':  '\x07',
	'b':  '\x08',
	't':  '\x09',
	'\t': '\x09',
	'n':  '\x0A',
	'v':  '\x0B',
	'f':  '\x0C',
	'r':  '\x0D',
	'e':  '\x1B',
	' ':  '\x20',
	'"':  '"',
	'\\': '\\',
	'/':  '/',
	'N':  '\x85',
	'_':  '\xA0',
	'L':  '\u2028',
	'P':  '\u2029',
}

var escapeCodes = map[rune]int{
	'x': 2,
	'u': 4,
	'U': 8,
}

func (s *Scanner) scanFlowScalar(style byte) (Token, *ScanError) {
	double := style == '"'
	var chunks strings.Builder
	start := s.mark()
	quote := s.peek(0)
	s.forward(1)
	if err := s.scanFlowScalarNonSpaces(double, start, &chunks); err != nil {
		return Token{}, err
	}
	for s.peek(0) != quote {
		if err := s.scanFlowScalarSpaces(start, &chunks); err != nil {
			return Token{}, err
		}
		if err := s.scanFlowScalarNonSpaces(double, start, &chunks); err != nil {
			return Token{}, err
		}
	}
	s.forward(1)
	return Token{Kind: TokenScalar, Start: start, End: s.mark(), Value: chunks.String(), Style: style}, nil
}

func (s *Scanner) scanFlowScalarNonSpaces(double bool, start Mark, chunks *strings.Builder) *ScanError {
	for {
		length := 0
		for {
			ch := s.peek(length)
			if ch == 0 || ch == '\'' || ch == '"' || ch == '\\' || isBlankOrBreakOrZero(ch) {
				break
			}
			length++
		}
		if length > 0 {
			chunks.WriteString(s.prefix(length))
			s.forward(length)
		}
		ch := s.peek(0)
		switch {
		case !double && ch == '\'' && s.peek(1) == '\'':
			chunks.WriteByte('\'')
			s.forward(2)
		case (double && ch == '\'') || (!double && (ch == '"' || ch == '\\')):
			chunks.WriteRune(ch)
			s.forward(1)
		case double && ch == '\\':
			s.forward(1)
			ch = s.peek(0)
			if repl, ok := escapeReplacements[ch]; ok {
				chunks.WriteRune(repl)
				s.forward(1)
			} else if codeLen, ok := escapeCodes[ch]; ok {
				s.forward(1)
				for k := 0; k < codeLen; k++ {
					if !isHex(s.peek(k)) {
						return scanErr("while scanning a double-quoted scalar", &start,
							fmt.Sprintf("expected escape sequence of %d hexdecimal numbers, but found %q", codeLen, s.peek(k)), s.mark())
					}
				}
				code, _ := strconv.ParseInt(s.prefix(codeLen), 16, 32)
				chunks.WriteRune(rune(code))
				s.forward(codeLen)
			} else if isBreak(ch) {
				s.scanLineBreak()
				if err := s.scanFlowScalarBreaks(start, chunks); err != nil {
					return err
				}
			} else {
				return scanErr("while scanning a double-quoted scalar", &start,
					fmt.Sprintf("found unknown escape character %q", ch), s.mark())
			}
		default:
			return nil
		}
	}
}

func (s *Scanner) scanFlowScalarSpaces(start Mark, chunks *strings.Builder) *ScanError {
	length := 0
	for ch := s.peek(length); ch == ' ' || ch == '\t'; ch = s.peek(length) {
		length++
	}
	whitespaces := s.prefix(length)
	s.forward(length)
	ch := s.peek(0)
	if ch == 0 {
		return scanErr("while scanning a quoted scalar", &start,
			"found unexpected end of stream", s.mark())
	}
	if isBreak(ch) {
		lineBreak := s.scanLineBreak()
		var breaks strings.Builder
		if err := s.scanFlowScalarBreaks(start, &breaks); err != nil {
			return err
		}
		if lineBreak != "\n" {
			chunks.WriteString(lineBreak)
		} else if breaks.Len() == 0 {
			chunks.WriteString(" ")
		}
		chunks.WriteString(breaks.String())
	} else {
		chunks.WriteString(whitespaces)
	}
	return nil
}

func (s *Scanner) scanFlowScalarBreaks(start Mark, chunks *strings.Builder) *ScanError {
	for {
		if s.checkDocumentSeparator() {
			return scanErr("while scanning a quoted scalar", &start,
				"found unexpected document separator", s.mark())
		}
		for ch := s.peek(0); ch == ' ' || ch == '\t'; ch = s.peek(0) {
			s.forward(1)
		}
		if !isBreak(s.peek(0)) {
			return nil
		}
		chunks.WriteString(s.scanLineBreak())
	}
}

func (s *Scanner) scanPlain() Token {
	var chunks strings.Builder
	start := s.mark()
	end := start
	indent := s.indent + 1
	spaces := ""
	for {
		if s.peek(0) == '#' {
			break
		}
		length := 0
		for {
			ch := s.peek(length)
			if isBlankOrBreakOrZero(ch) {
				break
			}
			if ch == ':' {
				next := s.peek(length + 1)
				if isBlankOrBreakOrZero(next) {
					break
				}
				if s.flowLevel != 0 && strings.ContainsRune(",[]{}", next) {
					break
				}
			}
			if s.flowLevel != 0 && strings.ContainsRune(",?[]{}", ch) {
				break
			}
			length++
		}
		if length == 0 {
			break
		}
		s.allowSimpleKey = false
		chunks.WriteString(spaces)
		chunks.WriteString(s.prefix(length))
		s.forward(length)
		end = s.mark()
		var ok bool
		spaces, ok = s.scanPlainSpaces()
		if !ok || spaces == "" || s.peek(0) == '#' ||
			(s.flowLevel == 0 && s.column < indent) {
			break
		}
	}
	return Token{Kind: TokenScalar, Start: start, End: end, Value: chunks.String(), Plain: true}
}

// scanPlainSpaces consumes the whitespace after a plain scalar chunk. The
// second return value is false when a document separator cuts the scalar
// short.
func (s *Scanner) scanPlainSpaces() (string, bool) {
	var chunks strings.Builder
	length := 0
	for s.peek(length) == ' ' {
		length++
	}
	whitespaces := s.prefix(length)
	s.forward(length)
	ch := s.peek(0)
	if isBreak(ch) {
		lineBreak := s.scanLineBreak()
		s.allowSimpleKey = true
		if s.checkDocumentSeparator() {
			return "", false
		}
		var breaks strings.Builder
		for s.peek(0) == ' ' || isBreak(s.peek(0)) {
			if s.peek(0) == ' ' {
				s.forward(1)
			} else {
				breaks.WriteString(s.scanLineBreak())
				if s.checkDocumentSeparator() {
					return "", false
				}
			}
		}
		if lineBreak != "\n" {
			chunks.WriteString(lineBreak)
		} else if breaks.Len() == 0 {
			chunks.WriteString(" ")
		}
		chunks.WriteString(breaks.String())
	} else if whitespaces != "" {
		chunks.WriteString(whitespaces)
	}
	return chunks.String(), true
}
