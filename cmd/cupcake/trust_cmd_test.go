package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestRunTrustCmd_InitThenListRoundTrip(t *testing.T) {
	dir := t.TempDir()
	restoreChdir(t, dir)

	require(t, os.MkdirAll(filepath.Join(dir, ".cupcake", "signals"), 0o750))
	require(t, os.WriteFile(filepath.Join(dir, ".cupcake", "signals", "check.sh"), []byte("#!/bin/sh\necho ok\n"), 0o755))

	var out bytes.Buffer
	if code := runTrustCmd([]string{"init", "--test-mode"}, &out, &out); code != 0 {
		t.Fatalf("trust init failed: code=%d out=%s", code, out.String())
	}

	if _, err := os.Stat(filepath.Join(dir, ".cupcake", "trust.manifest")); err != nil {
		t.Fatalf("expected trust.manifest to exist: %v", err)
	}

	out.Reset()
	if code := runTrustCmd([]string{"list", "--test-mode"}, &out, &out); code != 0 {
		t.Fatalf("trust list failed: code=%d out=%s", code, out.String())
	}
	if !contains(out.String(), "signals/check.sh") {
		t.Fatalf("expected manifest entry in listing, got %q", out.String())
	}
}

func TestRunTrustCmd_EnableDisableToggleMarker(t *testing.T) {
	dir := t.TempDir()
	restoreChdir(t, dir)
	require(t, os.MkdirAll(filepath.Join(dir, ".cupcake"), 0o750))

	var out bytes.Buffer
	if code := runTrustCmd([]string{"enable"}, &out, &out); code != 0 {
		t.Fatalf("enable failed: %d", code)
	}
	marker := filepath.Join(dir, ".cupcake", trustEnabledMarker)
	if _, err := os.Stat(marker); err != nil {
		t.Fatalf("expected marker to exist after enable: %v", err)
	}

	out.Reset()
	if code := runTrustCmd([]string{"disable"}, &out, &out); code != 0 {
		t.Fatalf("disable failed: %d", code)
	}
	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Fatalf("expected marker to be removed after disable, stat err = %v", err)
	}
}

func TestRunTrustCmd_UnknownSubcommand(t *testing.T) {
	var out bytes.Buffer
	code := runTrustCmd([]string{"nonsense"}, &out, &out)
	if code != 2 {
		t.Fatalf("code = %d, want 2", code)
	}
}

func require(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func contains(haystack, needle string) bool {
	return bytes.Contains([]byte(haystack), []byte(needle))
}
