package workspace

import (
	"path/filepath"
	"regexp"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"

	"github.com/dhamidi/salt-lsp/sls"
	"github.com/dhamidi/salt-lsp/sls/parser"
)

const lsName = "salt-lsp"

// lineStartRegex matches the indented start of a line; the text between the
// last such match and the cursor is the state name a "." completion refers
// to.
var lineStartRegex = regexp.MustCompile(`(?m)^(\s*)\b`)

type LSPServer struct {
	workspace   *Workspace
	completions sls.CompletionsDict
	handler     protocol.Handler
	server      *server.Server
	version     string
}

func NewLSPServer(completions sls.CompletionsDict, version string) *LSPServer {
	ls := &LSPServer{
		workspace:   New(completions),
		completions: completions,
		version:     version,
	}

	ls.handler = protocol.Handler{
		Initialize:                 ls.initialize,
		Initialized:                ls.initialized,
		Shutdown:                   ls.shutdown,
		SetTrace:                   ls.setTrace,
		TextDocumentDidOpen:        ls.textDocumentDidOpen,
		TextDocumentDidChange:      ls.textDocumentDidChange,
		TextDocumentDidClose:       ls.textDocumentDidClose,
		TextDocumentDidSave:        ls.textDocumentDidSave,
		TextDocumentCompletion:     ls.textDocumentCompletion,
		TextDocumentDefinition:     ls.textDocumentDefinition,
		TextDocumentDocumentSymbol: ls.textDocumentDocumentSymbol,
	}

	ls.server = server.NewServer(&ls.handler, lsName, false)

	return ls
}

func (ls *LSPServer) RunStdio() error {
	return ls.server.RunStdio()
}

// Workspace exposes the tracked documents, mainly for tests and the CLI.
func (ls *LSPServer) Workspace() *Workspace {
	return ls.workspace
}

func (ls *LSPServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	if params.RootPath != nil && *params.RootPath != "" {
		ls.workspace.SetRootURI(*params.RootPath)
	} else if params.RootURI != nil && *params.RootURI != "" {
		ls.workspace.SetRootURI(*params.RootURI)
	}
	for _, folder := range params.WorkspaceFolders {
		ls.workspace.AddFolder(folder.URI)
	}

	capabilities := ls.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    syncKindPtr(protocol.TextDocumentSyncKindFull),
		Save: &protocol.SaveOptions{
			IncludeText: boolPtr(true),
		},
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"-", "."},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &ls.version,
		},
	}, nil
}

func (ls *LSPServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (ls *LSPServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (ls *LSPServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (ls *LSPServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	ls.workspace.PutDocument(params.TextDocument.URI, params.TextDocument.Text)
	return nil
}

func (ls *LSPServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	change := params.ContentChanges[len(params.ContentChanges)-1]
	if whole, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
		ls.workspace.PutDocument(params.TextDocument.URI, whole.Text)
	}
	return nil
}

func (ls *LSPServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	ls.workspace.RemoveDocument(params.TextDocument.URI)
	return nil
}

func (ls *LSPServer) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	if params.Text != nil {
		ls.workspace.PutDocument(params.TextDocument.URI, *params.Text)
	}
	return nil
}

func (ls *LSPServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	if params.Context != nil && params.Context.TriggerCharacter != nil &&
		*params.Context.TriggerCharacter == "." {
		subnames := ls.completeStateName(params.TextDocument.URI, params.Position)
		items := make([]protocol.CompletionItem, 0, len(subnames))
		for _, subname := range subnames {
			item := protocol.CompletionItem{Label: subname.Name}
			if subname.Documentation != "" {
				item.Documentation = subname.Documentation
			}
			items = append(items, item)
		}
		return protocol.CompletionList{IsIncomplete: false, Items: items}, nil
	}

	tree := ls.workspace.Tree(params.TextDocument.URI)
	if tree == nil {
		return nil, nil
	}

	path := sls.ConstructPathToPosition(tree, parser.Position{
		Line: int(params.Position.Line),
		Col:  int(params.Position.Character),
	})
	if len(path) == 0 {
		return nil, nil
	}

	_, inIncludes := path[len(path)-1].(*parser.IncludesNode)
	_, inParameter := path[len(path)-1].(*parser.StateParameterNode)
	isTopSls := filepath.Base(params.TextDocument.URI) == "top.sls"
	if !inIncludes && !(isTopSls && inParameter) {
		return nil, nil
	}

	filePath, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, nil
	}
	items := []protocol.CompletionItem{}
	for _, include := range sls.GetSlsIncludes(filePath) {
		items = append(items, protocol.CompletionItem{Label: " " + include})
	}
	return protocol.CompletionList{IsIncomplete: false, Items: items}, nil
}

// completeStateName returns the submodule completions of the state name left
// of the trigger dot, e.g. the submodules of "file" when the user typed
// "file." at the start of a line.
func (ls *LSPServer) completeStateName(uri string, pos protocol.Position) []sls.SubnameCompletion {
	contents, ok := ls.workspace.Document(uri)
	if !ok {
		return nil
	}
	ind := sls.PositionToIndex(contents, int(pos.Line), int(pos.Character))
	if ind < 1 || ind > len(contents) {
		return nil
	}
	matches := lineStartRegex.FindAllStringIndex(contents[:ind], -1)
	if len(matches) == 0 {
		return nil
	}
	stateName := contents[matches[len(matches)-1][1] : ind-1]
	if completer, ok := ls.completions[stateName]; ok {
		return completer.ProvideSubnameCompletion()
	}
	return nil
}

func (ls *LSPServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	tree := ls.workspace.Tree(uri)
	if tree == nil {
		return nil, nil
	}

	path := sls.ConstructPathToPosition(tree, parser.Position{
		Line: int(params.Position.Line),
		Col:  int(params.Position.Character),
	})
	if len(path) == 0 {
		return nil, nil
	}

	// Going to definition is only handled on requisite references.
	requisite, ok := path[len(path)-1].(*parser.RequisiteNode)
	if !ok || requisite.Reference == "" {
		return nil, nil
	}

	location := ls.workspace.FindIDInDocAndIncludes(requisite.Reference, uri)
	if location == nil {
		return nil, nil
	}
	return *location, nil
}

func (ls *LSPServer) textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	return ls.workspace.DocumentSymbols(params.TextDocument.URI), nil
}

func boolPtr(b bool) *bool {
	return &b
}

func syncKindPtr(kind protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &kind
}
