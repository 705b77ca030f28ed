package workspace

import (
	"path/filepath"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

const completionTestFile = `saltmaster.packages:
  pkg.installed:
    - pkgs:
      - salt-master

/srv/git/salt-states:
  file.:
    - target: /srv/salt

git -C /srv/salt pull -q:
  cron.:
    - user: root
    - minute: '*/5'
`

func TestCompleteStateName(t *testing.T) {
	ls := NewLSPServer(testCompletions(t), "0.0.1")
	ls.workspace.PutDocument("/srv/salt/foo.sls", completionTestFile)

	t.Run("known state name", func(t *testing.T) {
		subnames := ls.completeStateName("/srv/salt/foo.sls",
			protocol.Position{Line: 6, Character: 7})
		if len(subnames) != 2 {
			t.Fatalf("got %d completions, want 2", len(subnames))
		}
		if subnames[0].Name != "absent" || subnames[0].Documentation != "doc of file.absent" {
			t.Errorf("got %+v", subnames[0])
		}
		if subnames[1].Name != "symlink" {
			t.Errorf("got %+v", subnames[1])
		}
	})

	t.Run("unknown state name", func(t *testing.T) {
		subnames := ls.completeStateName("/srv/salt/foo.sls",
			protocol.Position{Line: 10, Character: 8})
		if len(subnames) != 0 {
			t.Errorf("got %v for the cron module, which has no completion data", subnames)
		}
	})

	t.Run("untracked document", func(t *testing.T) {
		subnames := ls.completeStateName("/srv/salt/other.sls",
			protocol.Position{Line: 0, Character: 5})
		if len(subnames) != 0 {
			t.Errorf("got %v, want none", subnames)
		}
	})
}

func TestCompletionHandler(t *testing.T) {
	ls := NewLSPServer(testCompletions(t), "0.0.1")
	ls.workspace.PutDocument("/srv/salt/foo.sls", completionTestFile)

	trigger := "."
	result, err := ls.textDocumentCompletion(nil, &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "/srv/salt/foo.sls"},
			Position:     protocol.Position{Line: 6, Character: 7},
		},
		Context: &protocol.CompletionContext{TriggerCharacter: &trigger},
	})
	if err != nil {
		t.Fatal(err)
	}
	list, ok := result.(protocol.CompletionList)
	if !ok {
		t.Fatalf("got %T, want a completion list", result)
	}
	if len(list.Items) != 2 || list.Items[0].Label != "absent" {
		t.Errorf("got items %+v", list.Items)
	}
}

func TestIncludesCompletion(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "top.sls"), "")
	writeFile(t, filepath.Join(root, "web.sls"), "")
	writeFile(t, filepath.Join(root, "db", "init.sls"), "")

	ls := NewLSPServer(nil, "0.0.1")
	ls.workspace.AddFolder(root)

	mainPath := filepath.Join(root, "main.sls")
	ls.workspace.PutDocument(mainPath, "include:\n  - web\n")

	result, err := ls.textDocumentCompletion(nil, &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: mainPath},
			Position:     protocol.Position{Line: 1, Character: 3},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	list, ok := result.(protocol.CompletionList)
	if !ok {
		t.Fatalf("got %T, want a completion list", result)
	}
	labels := make(map[string]bool, len(list.Items))
	for _, item := range list.Items {
		labels[item.Label] = true
	}
	for _, want := range []string{" top", " web", " db", " main"} {
		if !labels[want] {
			t.Errorf("missing completion %q in %v", want, labels)
		}
	}
}

func TestDefinitionHandler(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "top.sls"), "")

	ls := NewLSPServer(nil, "0.0.1")
	ls.workspace.AddFolder(root)

	mainPath := filepath.Join(root, "main.sls")
	content := `libvirt_packages:
  pkg.installed

libvirt_service:
  service.running:
    - require:
      - pkg: libvirt_packages
`
	ls.workspace.PutDocument(mainPath, content)

	result, err := ls.textDocumentDefinition(nil, &protocol.DefinitionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: mainPath},
			Position:     protocol.Position{Line: 6, Character: 16},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	location, ok := result.(protocol.Location)
	if !ok {
		t.Fatalf("got %T, want a location", result)
	}
	if location.Range.Start.Line != 0 {
		t.Errorf("definition at line %d, want 0", location.Range.Start.Line)
	}

	t.Run("not on a requisite", func(t *testing.T) {
		result, err := ls.textDocumentDefinition(nil, &protocol.DefinitionParams{
			TextDocumentPositionParams: protocol.TextDocumentPositionParams{
				TextDocument: protocol.TextDocumentIdentifier{URI: mainPath},
				Position:     protocol.Position{Line: 0, Character: 3},
			},
		})
		if err != nil {
			t.Fatal(err)
		}
		if result != nil {
			t.Errorf("got %+v, want nil", result)
		}
	})
}

func TestDocumentSymbolHandler(t *testing.T) {
	ls := NewLSPServer(testCompletions(t), "0.0.1")
	ls.workspace.PutDocument("/srv/salt/foo.sls", "jdoe:\n  user.present\n")

	result, err := ls.textDocumentDocumentSymbol(nil, &protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "/srv/salt/foo.sls"},
	})
	if err != nil {
		t.Fatal(err)
	}
	symbols, ok := result.([]protocol.DocumentSymbol)
	if !ok {
		t.Fatalf("got %T, want document symbols", result)
	}
	if len(symbols) != 1 || symbols[0].Name != "jdoe" {
		t.Errorf("got %+v", symbols)
	}
}

func TestDidOpenAndDidChange(t *testing.T) {
	ls := NewLSPServer(nil, "0.0.1")

	if err := ls.textDocumentDidOpen(nil, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        "/srv/salt/foo.sls",
			LanguageID: "sls",
			Version:    0,
			Text:       "jdoe:\n  user.present\n",
		},
	}); err != nil {
		t.Fatal(err)
	}
	if tree := ls.workspace.Tree("/srv/salt/foo.sls"); tree == nil ||
		tree.States[0].Identifier != "jdoe" {
		t.Fatal("document not tracked after didOpen")
	}

	if err := ls.textDocumentDidChange(nil, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: "/srv/salt/foo.sls"},
			Version:                1,
		},
		ContentChanges: []any{
			protocol.TextDocumentContentChangeEventWhole{Text: "other:\n  user.present\n"},
		},
	}); err != nil {
		t.Fatal(err)
	}
	if tree := ls.workspace.Tree("/srv/salt/foo.sls"); tree.States[0].Identifier != "other" {
		t.Error("document not updated after didChange")
	}

	if err := ls.textDocumentDidClose(nil, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "/srv/salt/foo.sls"},
	}); err != nil {
		t.Fatal(err)
	}
	if ls.workspace.Tree("/srv/salt/foo.sls") != nil {
		t.Error("document still tracked after didClose")
	}
}

func TestDidSaveUsesIncludedText(t *testing.T) {
	ls := NewLSPServer(nil, "0.0.1")
	text := "saved:\n  user.present\n"
	if err := ls.textDocumentDidSave(nil, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "/srv/salt/foo.sls"},
		Text:         &text,
	}); err != nil {
		t.Fatal(err)
	}
	if tree := ls.workspace.Tree("/srv/salt/foo.sls"); tree == nil ||
		tree.States[0].Identifier != "saved" {
		t.Error("document not tracked after didSave")
	}
}
