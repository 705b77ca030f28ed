package workspace

import "testing"

func TestNewFileURI(t *testing.T) {
	tests := []struct {
		input string
		want  FileURI
		path  string
	}{
		{"/path/to/file", "file:///path/to/file", "/path/to/file"},
		{"file:///path/to/file", "file:///path/to/file", "/path/to/file"},
		{"file:///foo/bar", "file:///foo/bar", "/foo/bar"},
	}
	for _, tt := range tests {
		got, err := NewFileURI(tt.input)
		if err != nil {
			t.Errorf("NewFileURI(%q): %s", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NewFileURI(%q) = %q, want %q", tt.input, got, tt.want)
		}
		if got.Path() != tt.path {
			t.Errorf("Path() = %q, want %q", got.Path(), tt.path)
		}
	}
}

func TestNewFileURIRejectsOtherSchemes(t *testing.T) {
	if _, err := NewFileURI("http://foo.bar.xyz"); err == nil {
		t.Error("expected an error for an http uri")
	}
}

func TestIsValidFileURI(t *testing.T) {
	if !IsValidFileURI("/path/to/foo") {
		t.Error("plain paths should be valid")
	}
	if !IsValidFileURI("file:///path/to/foo") {
		t.Error("file uris should be valid")
	}
	if IsValidFileURI("https://www.foobar.xyz") {
		t.Error("https uris should be invalid")
	}
}
