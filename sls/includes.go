package sls

import (
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// GetGitRoot returns the root of the git repository that path belongs to, or
// the empty string when git is not installed or path is not in a repository.
func GetGitRoot(path string) string {
	dir := path
	if !isDir(dir) {
		dir = filepath.Dir(dir)
	}
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// GetTop walks up from path looking for the directory holding a top.sls.
func GetTop(path string) string {
	if isDir(path) && isFile(filepath.Join(path, "top.sls")) {
		return path
	}
	parent := filepath.Dir(path)
	if parent == path {
		return ""
	}
	if isFile(filepath.Join(parent, "top.sls")) {
		return parent
	}
	return GetTop(parent)
}

// GetRoot returns the states root of path: the top.sls directory when one
// exists, otherwise the git repository root.
func GetRoot(path string) string {
	if top := GetTop(path); top != "" {
		return top
	}
	return GetGitRoot(path)
}

// GetSlsIncludes returns the dotted names of all SLS files below the states
// root of path, e.g. "web.server" for <root>/web/server.sls and "web" for
// <root>/web/init.sls.
func GetSlsIncludes(path string) []string {
	top := GetRoot(path)
	if top == "" {
		return nil
	}
	var includes []string
	filepath.WalkDir(top, func(entry string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(entry, ".sls") {
			return nil
		}
		rel, err := filepath.Rel(top, entry)
		if err != nil {
			return nil
		}
		dir, file := filepath.Split(rel)
		parts := strings.FieldsFunc(dir, func(r rune) bool {
			return r == filepath.Separator
		})
		if file != "init.sls" {
			parts = append(parts, strings.TrimSuffix(file, ".sls"))
		}
		if len(parts) > 0 {
			includes = append(includes, strings.Join(parts, "."))
		}
		return nil
	})
	return includes
}
