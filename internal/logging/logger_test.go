package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// resetState clears package state between tests.
func resetState() {
	CloseAll()
	loggers = make(map[Category]*Logger)
	logsDir = ""
	workspace = ""
	configLoaded = false
	config = loggingConfig{}
}

// TestAllCategoriesLog tests that all categories create log files when
// debug_mode is true
func TestAllCategoriesLog(t *testing.T) {
	tempDir := t.TempDir()

	configDir := filepath.Join(tempDir, ".votewallet")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	configContent := `{
		"logging": {
			"level": "debug",
			"debug_mode": true,
			"categories": {
				"boot": true,
				"sync": true,
				"sources": true,
				"ratelimit": true,
				"dedupe": true,
				"taxonomy": true,
				"alignment": true,
				"images": true,
				"store": true,
				"usage": true,
				"performance": true
			}
		}
	}`

	configPath := filepath.Join(configDir, "config.json")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	resetState()
	defer resetState()

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}

	if !IsDebugMode() {
		t.Error("Expected debug mode to be enabled")
	}

	categories := []Category{
		CategoryBoot,
		CategorySync,
		CategorySources,
		CategoryRateLimit,
		CategoryDedupe,
		CategoryTaxonomy,
		CategoryAlignment,
		CategoryImages,
		CategoryStore,
		CategoryUsage,
		CategoryPerformance,
	}

	for _, cat := range categories {
		if !IsCategoryEnabled(cat) {
			t.Errorf("Category %s should be enabled", cat)
		}

		logger := Get(cat)
		logger.Info("Test info message for %s", cat)
		logger.Debug("Test debug message for %s", cat)
		logger.Warn("Test warn message for %s", cat)
		logger.Error("Test error message for %s", cat)
	}

	// Also test convenience functions
	Boot("Convenience boot log")
	Sync("Convenience sync log")
	Sources("Convenience sources log")
	RateLimit("Convenience ratelimit log")
	Dedupe("Convenience dedupe log")
	Taxonomy("Convenience taxonomy log")
	Alignment("Convenience alignment log")
	Images("Convenience images log")
	Store("Convenience store log")
	Usage("Convenience usage log")

	CloseAll()

	// Verify each category produced a log file with content
	date := time.Now().Format("2006-01-02")
	for _, cat := range categories {
		logPath := filepath.Join(tempDir, ".votewallet", "logs",
			date+"_"+string(cat)+".log")
		data, err := os.ReadFile(logPath)
		if err != nil {
			t.Errorf("Log file missing for category %s: %v", cat, err)
			continue
		}
		if !strings.Contains(string(data), "Test info message") &&
			!strings.Contains(string(data), "Convenience") &&
			!strings.Contains(string(data), "Initialized") {
			t.Errorf("Log file for %s has no expected content", cat)
		}
	}
}

// TestProductionModeNoLogs verifies nothing is written when debug_mode is off.
func TestProductionModeNoLogs(t *testing.T) {
	tempDir := t.TempDir()

	resetState()
	defer resetState()

	// No config file at all = production mode
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if IsDebugMode() {
		t.Error("Expected debug mode to be disabled with no config")
	}

	Sync("This should go nowhere")
	Get(CategoryStore).Error("Neither should this")

	logsPath := filepath.Join(tempDir, ".votewallet", "logs")
	if _, err := os.Stat(logsPath); !os.IsNotExist(err) {
		t.Errorf("Logs directory should not exist in production mode")
	}
}

// TestCategoryFilter verifies disabled categories produce no-op loggers.
func TestCategoryFilter(t *testing.T) {
	tempDir := t.TempDir()

	configDir := filepath.Join(tempDir, ".votewallet")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	configContent := `{
		"logging": {
			"level": "debug",
			"debug_mode": true,
			"categories": {
				"sync": true,
				"sources": false
			}
		}
	}`
	if err := os.WriteFile(filepath.Join(configDir, "config.json"), []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	resetState()
	defer resetState()

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if !IsCategoryEnabled(CategorySync) {
		t.Error("sync category should be enabled")
	}
	if IsCategoryEnabled(CategorySources) {
		t.Error("sources category should be disabled")
	}

	// Disabled category returns a no-op logger that must not panic
	Get(CategorySources).Info("dropped")
}

// TestTimer verifies the timer helpers do not panic and report durations.
func TestTimer(t *testing.T) {
	resetState()
	defer resetState()

	timer := StartTimer(CategoryPerformance, "test_op")
	time.Sleep(5 * time.Millisecond)
	elapsed := timer.Stop()
	if elapsed < 5*time.Millisecond {
		t.Errorf("Timer reported %v, expected at least 5ms", elapsed)
	}

	timer2 := StartTimer(CategoryPerformance, "threshold_op")
	elapsed2 := timer2.StopWithThreshold(time.Hour)
	if elapsed2 <= 0 {
		t.Error("StopWithThreshold returned non-positive duration")
	}
}

// TestRequestLogger verifies run-scoped logging does not panic without init.
func TestRequestLogger(t *testing.T) {
	resetState()
	defer resetState()

	rl := WithRequestID(CategorySync, "run-123").WithField("batch", 2)
	rl.Info("processing")
	rl.Debug("detail")
	rl.Warn("careful")
	rl.Error("oops")
}
