package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestAllCategoriesLog tests that all categories create log files when debug_mode is true
func TestAllCategoriesLog(t *testing.T) {
	tempDir := t.TempDir()

	configDir := filepath.Join(tempDir, ".nixin")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	configContent := `{
		"logging": {
			"level": "debug",
			"debug_mode": true,
			"categories": {
				"boot": true,
				"nlp": true,
				"intent": true,
				"embedding": true,
				"planner": true,
				"dispatch": true,
				"store": true
			}
		}
	}`

	configPath := filepath.Join(configDir, "config.json")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	// Reset logging state
	CloseAll()
	loggers = make(map[Category]*Logger)
	logsDir = ""
	workspace = ""

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}

	if !IsDebugMode() {
		t.Error("Expected debug mode to be enabled")
	}

	categories := []Category{
		CategoryBoot,
		CategoryNLP,
		CategoryIntent,
		CategoryEmbedding,
		CategoryPlanner,
		CategoryDispatch,
		CategoryStore,
	}

	for _, cat := range categories {
		Get(cat).Info("test message for %s", cat)
	}
	CloseAll()

	entries, err := os.ReadDir(filepath.Join(tempDir, ".nixin", "logs"))
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}

	for _, cat := range categories {
		found := false
		for _, e := range entries {
			if strings.Contains(e.Name(), string(cat)) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("No log file created for category %s", cat)
		}
	}
}

// TestNoLogsWithoutDebugMode verifies production mode is a silent no-op
func TestNoLogsWithoutDebugMode(t *testing.T) {
	tempDir := t.TempDir()

	CloseAll()
	loggers = make(map[Category]*Logger)
	logsDir = ""
	workspace = ""

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if IsDebugMode() {
		t.Error("Expected debug mode to be disabled without config")
	}

	// Logging must not panic and must not create files
	Intent("classified %q", "hello")
	NLPDebug("extracted %d entities", 0)

	if _, err := os.Stat(filepath.Join(tempDir, ".nixin", "logs")); !os.IsNotExist(err) {
		t.Error("Logs directory should not exist in production mode")
	}
}

func TestCategoryFiltering(t *testing.T) {
	tempDir := t.TempDir()

	configDir := filepath.Join(tempDir, ".nixin")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	configContent := `{
		"logging": {
			"level": "debug",
			"debug_mode": true,
			"categories": {
				"intent": true,
				"store": false
			}
		}
	}`
	if err := os.WriteFile(filepath.Join(configDir, "config.json"), []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	CloseAll()
	loggers = make(map[Category]*Logger)
	logsDir = ""
	workspace = ""

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if !IsCategoryEnabled(CategoryIntent) {
		t.Error("intent category should be enabled")
	}
	if IsCategoryEnabled(CategoryStore) {
		t.Error("store category should be disabled")
	}
	// Unlisted categories default to enabled in debug mode
	if !IsCategoryEnabled(CategoryPlanner) {
		t.Error("unlisted category should default to enabled")
	}
	CloseAll()
}
