package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dhamidi/salt-lsp/sls"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testStatesRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "top.sls"), "base:\n  '*':\n    - main\n")
	writeFile(t, filepath.Join(root, "main.sls"), `include:
  - libvirt

libvirt_config:
  file.managed:
    - name: /etc/libvirt/libvirtd.conf
    - require:
      - pkg: libvirt_packages
`)
	writeFile(t, filepath.Join(root, "libvirt", "init.sls"), `libvirt_packages:
  pkg.installed:
    - pkgs:
      - libvirt-daemon
`)
	return root
}

func TestWorkspaceTracksDocuments(t *testing.T) {
	ws := New(nil)
	ws.PutDocument("/srv/salt/test.sls", "jdoe:\n  user.present\n")

	tree := ws.Tree("file:///srv/salt/test.sls")
	if tree == nil {
		t.Fatal("document not tracked under its file:// uri")
	}
	if len(tree.States) != 1 || tree.States[0].Identifier != "jdoe" {
		t.Errorf("unexpected tree:\n%s", tree.StringWithPositions())
	}
	if symbols := ws.DocumentSymbols("/srv/salt/test.sls"); len(symbols) != 1 {
		t.Errorf("got %d document symbols, want 1", len(symbols))
	}

	ws.PutDocument("/srv/salt/test.sls", "other:\n  user.present\n")
	if tree := ws.Tree("/srv/salt/test.sls"); tree.States[0].Identifier != "other" {
		t.Error("tree not refreshed on update")
	}

	ws.RemoveDocument("/srv/salt/test.sls")
	if ws.Tree("/srv/salt/test.sls") != nil {
		t.Error("tree still present after removal")
	}
}

func TestWorkspaceResolvesIncludes(t *testing.T) {
	root := testStatesRoot(t)
	ws := New(nil)
	ws.AddFolder(root)

	mainPath := filepath.Join(root, "main.sls")
	content, err := os.ReadFile(mainPath)
	if err != nil {
		t.Fatal(err)
	}
	ws.PutDocument(mainPath, string(content))

	includes := ws.Includes(mainPath)
	if len(includes) != 1 {
		t.Fatalf("got includes %v, want one entry", includes)
	}
	wantInclude, _ := NewFileURI(filepath.Join(root, "libvirt", "init.sls"))
	if includes[0] != wantInclude {
		t.Errorf("include %q, want %q", includes[0], wantInclude)
	}

	// the included file must have been pulled in from disk
	if ws.Tree(string(wantInclude)) == nil {
		t.Error("included file not tracked")
	}
}

func TestFindIDInDocAndIncludes(t *testing.T) {
	root := testStatesRoot(t)
	ws := New(nil)
	ws.AddFolder(root)

	mainPath := filepath.Join(root, "main.sls")
	content, err := os.ReadFile(mainPath)
	if err != nil {
		t.Fatal(err)
	}
	ws.PutDocument(mainPath, string(content))

	t.Run("id in the document itself", func(t *testing.T) {
		location := ws.FindIDInDocAndIncludes("libvirt_config", mainPath)
		if location == nil {
			t.Fatal("no location found")
		}
		wantURI, _ := NewFileURI(mainPath)
		if location.URI != wantURI.String() {
			t.Errorf("uri %q, want %q", location.URI, wantURI)
		}
		if location.Range.Start.Line != 3 {
			t.Errorf("location starts at line %d, want 3", location.Range.Start.Line)
		}
	})

	t.Run("id in an included file", func(t *testing.T) {
		location := ws.FindIDInDocAndIncludes("libvirt_packages", mainPath)
		if location == nil {
			t.Fatal("no location found")
		}
		wantURI, _ := NewFileURI(filepath.Join(root, "libvirt", "init.sls"))
		if location.URI != wantURI.String() {
			t.Errorf("uri %q, want %q", location.URI, wantURI)
		}
		if location.Range.Start.Line != 0 {
			t.Errorf("location starts at line %d, want 0", location.Range.Start.Line)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		if location := ws.FindIDInDocAndIncludes("no_such_state", mainPath); location != nil {
			t.Errorf("got %+v, want nil", location)
		}
	})

	t.Run("untracked document", func(t *testing.T) {
		if location := ws.FindIDInDocAndIncludes("libvirt_config", "/nowhere.sls"); location != nil {
			t.Errorf("got %+v, want nil", location)
		}
	})
}

func TestWorkspaceFolderTopPaths(t *testing.T) {
	root := t.TempDir()
	states := filepath.Join(root, "states")
	writeFile(t, filepath.Join(states, "top.sls"), "")
	writeFile(t, filepath.Join(states, "web.sls"), "")
	writeFile(t, filepath.Join(root, "srv", "main.sls"), "include:\n  - web\n")

	ws := New(nil)
	ws.AddFolder(root)

	// the folder itself has no top.sls, its states subdirectory does not
	// apply to documents outside of it
	mainPath := filepath.Join(root, "srv", "main.sls")
	content, _ := os.ReadFile(mainPath)
	ws.PutDocument(mainPath, string(content))
	if includes := ws.Includes(mainPath); len(includes) != 0 {
		t.Errorf("resolved includes %v without a top.sls", includes)
	}

	ws.RemoveFolder(root)
	ws.AddFolder(states)
	statesMain := filepath.Join(states, "main.sls")
	ws.PutDocument(statesMain, "include:\n  - web\n")
	wantInclude, _ := NewFileURI(filepath.Join(states, "web.sls"))
	includes := ws.Includes(statesMain)
	if len(includes) != 1 || includes[0] != wantInclude {
		t.Errorf("got includes %v, want %q", includes, wantInclude)
	}
}

func testCompletions(t *testing.T) sls.CompletionsDict {
	t.Helper()
	completions, err := sls.ParseCompletions([]byte(`file:
  documentation: doc of file
  submodules:
    - name: absent
      documentation: doc of file.absent
      parameters: [name]
    - name: symlink
      documentation: doc of file.symlink
      parameters: [name, target]
`))
	if err != nil {
		t.Fatal(err)
	}
	return completions
}
