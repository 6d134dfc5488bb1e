package engine

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateWorkingDirectory(t *testing.T) {
	eng := New()
	okDir := t.TempDir()

	file := filepath.Join(okDir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	tests := []struct {
		name    string
		dir     string
		wantErr bool
	}{
		{"valid directory", okDir, false},
		{"relative path", "some/relative/path", true},
		{"missing directory", filepath.Join(okDir, "nope"), true},
		{"file not directory", file, true},
		{"etc", "/etc", true},
		{"under etc", "/etc/nginx", true},
		{"root home", "/root", true},
		{"bin", "/bin", true},
		{"trailing slash on protected path", "/etc/", true},
		{"nonexistent prefix sibling", "/etcetera", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eng.ValidateWorkingDirectory(tt.dir)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateWorkingDirectory(%q) error = %v, wantErr %v", tt.dir, err, tt.wantErr)
			}
		})
	}
}

func TestDenylistMatchesPathBoundaries(t *testing.T) {
	eng := New()

	// A directory whose name merely starts with a protected prefix must not
	// be rejected by the denylist itself.
	dir := t.TempDir()
	if err := eng.ValidateWorkingDirectory(dir); err != nil {
		t.Fatalf("temp dir rejected: %v", err)
	}
}

func TestShouldDelegateDefaultsToTrue(t *testing.T) {
	eng := New()
	if !eng.ShouldDelegate("refactor the parser") {
		t.Error("v1 policy should always delegate")
	}
}

func TestPreparePromptPassthrough(t *testing.T) {
	eng := New()
	task := "add input validation to the signup form"
	if got := eng.PreparePrompt(task); got != task {
		t.Errorf("PreparePrompt() = %q, want unchanged input", got)
	}
}
