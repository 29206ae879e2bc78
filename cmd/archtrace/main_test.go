package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "archtrace" {
		t.Errorf("expected Use 'archtrace', got %q", rootCmd.Use)
	}
	if rootCmd.Short == "" {
		t.Error("Short description should not be empty")
	}
}

func TestCommandWiring(t *testing.T) {
	want := []string{"generate", "bootstrap", "sync", "hook", "record-read", "history"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
	if !hookCmd.HasSubCommands() {
		t.Error("hook should have subcommands")
	}
}

func TestGenerateCommandFlags(t *testing.T) {
	if generateCmd.RunE == nil {
		t.Error("RunE should not be nil")
	}
	for _, flag := range []string{"module", "low-level-only", "json"} {
		if generateCmd.Flags().Lookup(flag) == nil {
			t.Errorf("generate should define --%s", flag)
		}
	}
}

func TestSyncCommandFlags(t *testing.T) {
	for _, flag := range []string{"dry-run", "force"} {
		if syncCmd.Flags().Lookup(flag) == nil {
			t.Errorf("sync should define --%s", flag)
		}
	}
}

func TestHookCommandsNeverReturnError(t *testing.T) {
	// Hook commands fail open, so they use Run, not RunE.
	if hookPreEditCmd.Run == nil || hookPreEditCmd.RunE != nil {
		t.Error("pre-edit should use Run")
	}
	if hookPreCommitCmd.Run == nil || hookPreCommitCmd.RunE != nil {
		t.Error("pre-commit should use Run")
	}
}

func TestBootstrapThenGenerate(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"apps/web", "packages/shared"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "apps/web/index.ts"),
		[]byte("export function main() {}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	prev := rootDir
	rootDir = root
	defer func() { rootDir = prev }()

	if err := runBootstrap(bootstrapCmd, nil); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if err := runGenerate(generateCmd, nil); err != nil {
		t.Fatalf("generate: %v", err)
	}

	for _, p := range []string{
		"traces/trace.config.json",
		"traces/high-level.json",
		"traces/high-level.md",
		"traces/low-level/web.json",
		"traces/low-level/web.md",
		"traces/low-level/pkg-shared.json",
	} {
		if _, err := os.Stat(filepath.Join(root, p)); err != nil {
			t.Errorf("expected %s to exist: %v", p, err)
		}
	}
}
