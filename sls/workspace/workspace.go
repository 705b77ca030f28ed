package workspace

import (
	"os"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/dhamidi/salt-lsp/sls"
	"github.com/dhamidi/salt-lsp/sls/parser"
)

// Workspace holds the open SLS documents together with everything derived
// from them: the parsed tree, the document symbols and the resolved include
// files of each document. All derived state is refreshed whenever a document
// changes.
type Workspace struct {
	mu sync.RWMutex

	completions sls.CompletionsDict

	documents map[FileURI]string
	trees     map[FileURI]*parser.Tree
	symbols   map[FileURI][]protocol.DocumentSymbol
	includes  map[FileURI][]FileURI

	folders  []FileURI
	topPaths map[FileURI]string
	rootURI  FileURI

	log commonlog.Logger
}

// New creates an empty workspace using completions for document symbol
// details.
func New(completions sls.CompletionsDict) *Workspace {
	return &Workspace{
		completions: completions,
		documents:   make(map[FileURI]string),
		trees:       make(map[FileURI]*parser.Tree),
		symbols:     make(map[FileURI][]protocol.DocumentSymbol),
		includes:    make(map[FileURI][]FileURI),
		topPaths:    make(map[FileURI]string),
		log:         commonlog.GetLogger("salt-lsp.workspace"),
	}
}

// SetRootURI records the root of the editing session, used as fallback when
// a document belongs to no workspace folder.
func (w *Workspace) SetRootURI(uri string) {
	root, err := NewFileURI(uri)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rootURI = root
}

// AddFolder registers a workspace folder and looks up its top.sls directory.
func (w *Workspace) AddFolder(uri string) {
	folder, err := NewFileURI(uri)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.folders = append(w.folders, folder)
	w.topPaths[folder] = sls.GetTop(folder.Path())
}

// RemoveFolder drops a workspace folder again.
func (w *Workspace) RemoveFolder(uri string) {
	folder, err := NewFileURI(uri)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, known := range w.folders {
		if known == folder {
			w.folders = append(w.folders[:i], w.folders[i+1:]...)
			break
		}
	}
	delete(w.topPaths, folder)
}

// PutDocument adds or replaces a document and refreshes its derived state.
func (w *Workspace) PutDocument(uri string, text string) {
	key, err := NewFileURI(uri)
	if err != nil {
		w.log.Errorf("ignoring document %q: %s", uri, err.Error())
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.putDocumentLocked(key, text)
}

// RemoveDocument drops a document and its derived state.
func (w *Workspace) RemoveDocument(uri string) {
	key, err := NewFileURI(uri)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.documents, key)
	delete(w.trees, key)
	delete(w.symbols, key)
	delete(w.includes, key)
}

// Document returns the tracked source text of a document.
func (w *Workspace) Document(uri string) (string, bool) {
	key, err := NewFileURI(uri)
	if err != nil {
		return "", false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	text, ok := w.documents[key]
	return text, ok
}

// Tree returns the parsed tree of a document, or nil when the document is
// not tracked.
func (w *Workspace) Tree(uri string) *parser.Tree {
	key, err := NewFileURI(uri)
	if err != nil {
		return nil
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.trees[key]
}

// DocumentSymbols returns the outline of a document.
func (w *Workspace) DocumentSymbols(uri string) []protocol.DocumentSymbol {
	key, err := NewFileURI(uri)
	if err != nil {
		return nil
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.symbols[key]
}

// Includes returns the resolved include files of a document, including the
// includes of the included files themselves.
func (w *Workspace) Includes(uri string) []FileURI {
	key, err := NewFileURI(uri)
	if err != nil {
		return nil
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.includes[key]
}

func (w *Workspace) putDocumentLocked(key FileURI, text string) {
	w.log.Debugf("updating document %q", key)
	w.documents[key] = text
	tree := parser.Parse(text)
	w.trees[key] = tree
	w.symbols[key] = sls.DocumentSymbols(tree, w.completions)
	w.resolveIncludesLocked(key)
}

// resolveIncludesLocked resolves the includes of a document to files and
// pulls any included file that is not yet tracked in from disk, so that its
// states are available for definition lookups.
func (w *Workspace) resolveIncludesLocked(key FileURI) {
	tree := w.trees[key]
	if tree == nil || tree.Includes == nil || len(tree.Includes.Includes) == 0 {
		return
	}

	topPath := w.topPathOfLocked(key)
	if topPath == "" {
		return
	}

	var resolved []FileURI
	for _, include := range tree.Includes.Includes {
		file := include.GetFile(topPath)
		if file == "" {
			continue
		}
		uri, err := NewFileURI(file)
		if err != nil {
			continue
		}
		resolved = append(resolved, uri)
	}
	w.includes[key] = resolved

	for _, include := range resolved {
		if _, tracked := w.trees[include]; !tracked {
			w.log.Debugf("adding file %q via includes of %q", include, key)
			content, err := os.ReadFile(include.Path())
			if err != nil {
				w.log.Errorf("reading include %q: %s", include, err.Error())
				continue
			}
			w.putDocumentLocked(include, string(content))
		}
		w.includes[key] = append(w.includes[key], w.includes[include]...)
	}
}

// topPathOfLocked finds the states top directory responsible for a document:
// the top path of its workspace folder when known, the folder itself
// otherwise, falling back to the session root.
func (w *Workspace) topPathOfLocked(key FileURI) string {
	for _, folder := range w.folders {
		if strings.HasPrefix(key.Path(), strings.TrimSuffix(folder.Path(), "/")+"/") {
			if top := w.topPaths[folder]; top != "" {
				return top
			}
			return folder.Path()
		}
	}
	if w.rootURI != "" {
		return w.rootURI.Path()
	}
	return ""
}

// FindIDInDocAndIncludes finds the location of the state with the given id,
// searching first in the given document and then in its includes.
func (w *Workspace) FindIDInDocAndIncludes(id string, startingURI string) *protocol.Location {
	key, err := NewFileURI(startingURI)
	if err != nil {
		return nil
	}
	w.mu.RLock()
	defer w.mu.RUnlock()

	tree := w.trees[key]
	if tree == nil {
		w.log.Errorf("cannot search in %q, no tree present", startingURI)
		return nil
	}

	candidates := []FileURI{key}
	candidates = append(candidates, w.includes[key]...)

	for _, uri := range candidates {
		tree := w.trees[uri]
		if tree == nil {
			continue
		}
		var matches []*parser.StateNode
		for _, state := range tree.States {
			if state.Identifier == id {
				matches = append(matches, state)
			}
		}
		if len(matches) != 1 {
			continue
		}
		if lspRange := sls.NodeToRange(matches[0]); lspRange != nil {
			return &protocol.Location{URI: uri.String(), Range: *lspRange}
		}
	}
	return nil
}
