package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestRunInitCmd_ScaffoldsProjectScope(t *testing.T) {
	dir := t.TempDir()
	restoreChdir(t, dir)

	var stdout, stderr bytes.Buffer
	code := runInitCmd(nil, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("code = %d, stderr = %s", code, stderr.String())
	}

	for _, rel := range []string{
		".cupcake/system/evaluate.rego",
		".cupcake/rulebook.yml",
		".cupcake/signals",
		".cupcake/actions",
	} {
		if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
			t.Errorf("expected %s to exist: %v", rel, err)
		}
	}
}

func TestRunInitCmd_DoesNotOverwriteExistingRulebook(t *testing.T) {
	dir := t.TempDir()
	restoreChdir(t, dir)

	const sentinel = "# hand-edited rulebook\nbuiltins: {}\nsignals: {}\nactions: {}\nwatchdog: false\n"
	if err := os.MkdirAll(filepath.Join(dir, ".cupcake"), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".cupcake", "rulebook.yml"), []byte(sentinel), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if code := runInitCmd(nil, &out, &out); code != 0 {
		t.Fatalf("code = %d", code)
	}

	data, err := os.ReadFile(filepath.Join(dir, ".cupcake", "rulebook.yml"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != sentinel {
		t.Fatalf("rulebook was overwritten: %s", string(data))
	}
}

// restoreChdir changes the working directory for the duration of t,
// restoring it on cleanup so tests never leak cwd across each other.
func restoreChdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(orig) })
}
