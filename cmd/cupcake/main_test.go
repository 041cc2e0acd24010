package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRun_NoArgsPrintsUsage(t *testing.T) {
	var out bytes.Buffer
	code := Run([]string{"cupcake"}, &out, &out)
	if code != 2 {
		t.Fatalf("code = %d, want 2", code)
	}
	if !strings.Contains(out.String(), "USAGE") {
		t.Fatalf("expected usage text, got %q", out.String())
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"cupcake", "frobnicate"}, &stdout, &stderr)
	if code != 2 {
		t.Fatalf("code = %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "Unknown command") {
		t.Fatalf("expected unknown command message, got %q", stderr.String())
	}
}

func TestRun_HelpPrintsUsage(t *testing.T) {
	var out bytes.Buffer
	code := Run([]string{"cupcake", "help"}, &out, &out)
	if code != 0 {
		t.Fatalf("code = %d, want 0", code)
	}
	if !strings.Contains(out.String(), "cupcake") {
		t.Fatalf("expected banner, got %q", out.String())
	}
}

func TestRun_TrustWithNoSubcommandIsUsageError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"cupcake", "trust"}, &stdout, &stderr)
	if code != 2 {
		t.Fatalf("code = %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "Usage: cupcake trust") {
		t.Fatalf("expected trust usage message, got %q", stderr.String())
	}
}
