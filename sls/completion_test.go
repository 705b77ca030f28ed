package sls

import (
	"os"
	"path/filepath"
	"testing"
)

const completionData = `file:
  documentation: doc of file
  submodules:
    - name: absent
      documentation: doc of file.absent
      parameters: [name]
    - name: symlink
      documentation: Just a dummy documentation of file.symlink
      parameters: [name, target, force, backupname, makedirs, user, group, mode]
    - name: managed
      parameters: [name, source, source_hash, user, group, mode, template]
cron:
  submodules:
    - name: present
      documentation: doc of cron.present
      parameters: [name, user, minute, hour]
`

func testCompletions(t *testing.T) CompletionsDict {
	t.Helper()
	completions, err := ParseCompletions([]byte(completionData))
	if err != nil {
		t.Fatalf("parsing completion data: %s", err)
	}
	return completions
}

func TestParseCompletions(t *testing.T) {
	completions := testCompletions(t)

	file := completions["file"]
	if file == nil {
		t.Fatal("no completion for the file module")
	}
	if file.StateName != "file" || file.StateDocs != "doc of file" {
		t.Errorf("got %q with docs %q", file.StateName, file.StateDocs)
	}
	wantSubNames := []string{"absent", "symlink", "managed"}
	if len(file.SubNames) != len(wantSubNames) {
		t.Fatalf("got submodules %v, want %v", file.SubNames, wantSubNames)
	}
	for i, name := range wantSubNames {
		if file.SubNames[i] != name {
			t.Errorf("submodule %d is %q, want %q", i, file.SubNames[i], name)
		}
	}

	cron := completions["cron"]
	if cron == nil {
		t.Fatal("no completion for the cron module")
	}
	if cron.StateDocs != "" {
		t.Errorf("cron module docs %q, want empty", cron.StateDocs)
	}
}

func TestProvideSubnameCompletion(t *testing.T) {
	completions := testCompletions(t)

	subnames := completions["file"].ProvideSubnameCompletion()
	if len(subnames) != 3 {
		t.Fatalf("got %d submodule completions, want 3", len(subnames))
	}
	if subnames[1].Name != "symlink" ||
		subnames[1].Documentation != "Just a dummy documentation of file.symlink" {
		t.Errorf("got %+v", subnames[1])
	}
	if subnames[2].Name != "managed" || subnames[2].Documentation != "" {
		t.Errorf("got %+v", subnames[2])
	}
}

func TestProvideParamCompletion(t *testing.T) {
	completions := testCompletions(t)

	params := completions["cron"].ProvideParamCompletion("present")
	want := []string{"name", "user", "minute", "hour"}
	if len(params) != len(want) {
		t.Fatalf("got %v, want %v", params, want)
	}
	for i := range want {
		if params[i] != want[i] {
			t.Errorf("parameter %d is %q, want %q", i, params[i], want[i])
		}
	}

	if params := completions["cron"].ProvideParamCompletion("absent"); len(params) != 0 {
		t.Errorf("unknown submodule yielded %v", params)
	}
}

func TestLoadCompletions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "states.yaml")
	if err := os.WriteFile(path, []byte(completionData), 0o644); err != nil {
		t.Fatal(err)
	}
	completions, err := LoadCompletions(path)
	if err != nil {
		t.Fatalf("loading completion data: %s", err)
	}
	if completions["file"] == nil || completions["cron"] == nil {
		t.Error("expected the file and cron modules to be loaded")
	}

	if _, err := LoadCompletions(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
