package sls

import (
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"testing"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestGetTop(t *testing.T) {
	t.Run("stops at the filesystem root", func(t *testing.T) {
		if got := GetTop("/no/such/path/i/a/e"); got != "" {
			t.Errorf("got %q, want empty", got)
		}
	})

	t.Run("looks in the directory itself", func(t *testing.T) {
		root := t.TempDir()
		write(t, filepath.Join(root, "top.sls"), "")
		if got := GetTop(root); got != root {
			t.Errorf("got %q, want %q", got, root)
		}
	})

	t.Run("looks in the parent of a file", func(t *testing.T) {
		root := t.TempDir()
		write(t, filepath.Join(root, "top.sls"), "")
		if got := GetTop(filepath.Join(root, "foo.sls")); got != root {
			t.Errorf("got %q, want %q", got, root)
		}
	})

	t.Run("recurses into parent directories", func(t *testing.T) {
		root := t.TempDir()
		write(t, filepath.Join(root, "top.sls"), "")
		write(t, filepath.Join(root, "foo", "init.sls"), "")
		if got := GetTop(filepath.Join(root, "foo")); got != root {
			t.Errorf("got %q, want %q", got, root)
		}
		if got := GetTop(filepath.Join(root, "foo", "init.sls")); got != root {
			t.Errorf("got %q, want %q", got, root)
		}
	})
}

func TestGetGitRoot(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}

	t.Run("inside a repository", func(t *testing.T) {
		root := t.TempDir()
		if out, err := exec.Command("git", "init", root).CombinedOutput(); err != nil {
			t.Fatalf("git init: %s: %s", err, out)
		}
		nested := filepath.Join(root, "foo", "bar")
		if err := os.MkdirAll(nested, 0o755); err != nil {
			t.Fatal(err)
		}
		for _, path := range []string{root, nested, filepath.Join(nested, "init.sls")} {
			got := GetGitRoot(path)
			// git may report the path with symlinks resolved
			if got == "" {
				t.Errorf("GetGitRoot(%q) found no repository", path)
				continue
			}
			want, _ := filepath.EvalSymlinks(root)
			if got != root && got != want {
				t.Errorf("GetGitRoot(%q) = %q, want %q", path, got, root)
			}
		}
	})

	t.Run("outside a repository", func(t *testing.T) {
		if got := GetGitRoot("/"); got != "" && !isDir(filepath.Join("/", ".git")) {
			t.Errorf("got %q, want empty", got)
		}
	})
}

func TestGetSlsIncludes(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "top.sls"), "")
	write(t, filepath.Join(root, "common.sls"), "")
	write(t, filepath.Join(root, "web", "init.sls"), "")
	write(t, filepath.Join(root, "web", "server.sls"), "")
	write(t, filepath.Join(root, "web", "README"), "")

	got := GetSlsIncludes(filepath.Join(root, "common.sls"))
	sort.Strings(got)
	want := []string{"common", "top", "web", "web.server"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("include %d is %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGetSlsIncludesWithoutRoot(t *testing.T) {
	dir := t.TempDir()
	if got := GetSlsIncludes(filepath.Join(dir, "orphan.sls")); len(got) != 0 {
		t.Errorf("got %v, want none", got)
	}
}
