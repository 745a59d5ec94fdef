// Package testutil holds helpers shared by package tests.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jxwalker/cfcore/internal/config"
	"github.com/jxwalker/cfcore/internal/state"
)

// TestDB opens an in-memory ledger closed at test cleanup.
func TestDB(t *testing.T) *state.DB {
	t.Helper()
	db, err := state.OpenMemory()
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})
	return db
}

// WriteConfig writes a version 1 config rooted in a fresh temp dir, followed
// by any extra YAML lines, and returns its path and the root.
func WriteConfig(t *testing.T, extra ...string) (path, root string) {
	t.Helper()
	root = t.TempDir()
	lines := append([]string{
		"version: 1",
		"general:",
		"  data_root: \"" + filepath.Join(root, "data") + "\"",
		"  download_root: \"" + filepath.Join(root, "dl") + "\"",
	}, extra...)
	path = filepath.Join(root, "config.yml")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path, root
}

// LoadConfig is WriteConfig followed by config.Load.
func LoadConfig(t *testing.T, extra ...string) *config.Config {
	t.Helper()
	p, _ := WriteConfig(t, extra...)
	c, err := config.Load(p)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return c
}

// TempFile creates name under a temp dir with content.
func TempFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return p
}

func BoolPtr(b bool) *bool { return &b }
