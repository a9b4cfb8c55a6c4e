package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadHistory(t *testing.T) {
	if h, err := readHistory(""); err != nil || h != nil {
		t.Fatalf("empty path = %v, %v", h, err)
	}

	dir := t.TempDir()
	good := filepath.Join(dir, "history.json")
	if err := os.WriteFile(good, []byte(`[{"human":"hi","assistant":"hello"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	h, err := readHistory(good)
	if err != nil {
		t.Fatalf("readHistory: %v", err)
	}
	if len(h) != 1 || h[0].Human != "hi" || h[0].Assistant != "hello" {
		t.Fatalf("history = %+v", h)
	}

	bad := filepath.Join(dir, "bad.json")
	_ = os.WriteFile(bad, []byte(`{`), 0o644)
	if _, err := readHistory(bad); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if _, err := readHistory(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"ingest", "clear", "ask", "index"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("command %s not registered: %v", name, err)
		}
	}
	ask, _, _ := root.Find([]string{"ask"})
	for _, flag := range []string{"history-file", "system", "no-rag", "trace"} {
		if ask.Flags().Lookup(flag) == nil {
			t.Fatalf("ask is missing --%s", flag)
		}
	}
	if root.PersistentFlags().Lookup("env-file") == nil {
		t.Fatal("missing --env-file")
	}
}
