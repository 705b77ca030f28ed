// Package workspace tracks the open SLS documents of an editing session and
// serves the language server protocol on top of them.
package workspace

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// FileURI is a normalized file:// URI. Documents are keyed by it so that the
// same file is found no matter whether a handler passes a plain path or a
// URI.
type FileURI string

// NewFileURI normalizes a path or file:// URI. URIs with any other scheme
// are rejected.
func NewFileURI(pathOrURI string) (FileURI, error) {
	parsed, err := url.Parse(pathOrURI)
	if err != nil {
		return "", fmt.Errorf("parsing uri %q: %w", pathOrURI, err)
	}
	switch parsed.Scheme {
	case "file":
		return FileURI("file://" + parsed.Path), nil
	case "":
		return FileURI("file://" + pathOrURI), nil
	}
	return "", fmt.Errorf("invalid uri scheme %s", parsed.Scheme)
}

// Path returns the filesystem path of the URI.
func (u FileURI) Path() string {
	return strings.TrimPrefix(string(u), "file://")
}

func (u FileURI) String() string {
	return string(u)
}

// IsValidFileURI reports whether uri is a path or a file:// URI.
func IsValidFileURI(uri string) bool {
	_, err := NewFileURI(uri)
	return err == nil
}

// uriToPath converts an LSP document URI to a filesystem path, leaving
// anything that is not a file:// URI untouched.
func uriToPath(uri string) (string, error) {
	if strings.HasPrefix(uri, "file://") {
		parsed, err := url.Parse(uri)
		if err != nil {
			return "", err
		}
		return filepath.Clean(parsed.Path), nil
	}
	return uri, nil
}
