// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/layerbuild/layerbuild/internal/issue"
	"github.com/layerbuild/layerbuild/internal/testutil"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if cfg.FragmentName != "layerbuild" {
		t.Errorf("FragmentName = %q, want layerbuild", cfg.FragmentName)
	}
	if cfg.OutputRoot != "build" {
		t.Errorf("OutputRoot = %q, want build", cfg.OutputRoot)
	}
	if cfg.LogLevel != LogLevelInfo {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("ColorScheme = %q, want auto", cfg.UI.ColorScheme)
	}
	if cfg.UI.Verbose {
		t.Error("expected default verbose to be false")
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("Watch.Debounce = %s, want 500ms", cfg.Watch.Debounce)
	}
	if cfg.Watch.Ignore == nil || len(cfg.Watch.Ignore) != 0 {
		t.Errorf("Watch.Ignore = %#v, want empty non-nil slice", cfg.Watch.Ignore)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestConfigDir(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG lookup is Linux-specific")
	}

	testXDGPath := filepath.Join(t.TempDir(), "xdg")
	restoreXDG := testutil.MustSetenv(t, "XDG_CONFIG_HOME", testXDGPath)
	defer restoreXDG()

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() returned error: %v", err)
	}
	if want := filepath.Join(testXDGPath, AppName); dir != want {
		t.Errorf("ConfigDir() = %s, want %s", dir, want)
	}

	restoreXDG()
	defer testutil.MustUnsetenv(t, "XDG_CONFIG_HOME")()
	home := t.TempDir()
	defer testutil.SetHomeDir(t, home)()

	dir, err = ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() returned error: %v", err)
	}
	if want := filepath.Join(home, ".config", AppName); dir != want {
		t.Errorf("ConfigDir() = %s, want %s", dir, want)
	}
}

func TestLoad_NoConfigFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{
		ConfigDirPath: t.TempDir(),
		BaseDir:       t.TempDir(),
	})
	if err != nil {
		t.Fatalf("loadWithOptions() returned error: %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want empty", path)
	}
	if cfg.OutputRoot != "build" || cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("loaded config = %+v, want defaults", cfg)
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	t.Parallel()

	cfgDir := t.TempDir()
	cfgPath := filepath.Join(cfgDir, "config.cue")
	testutil.MustWriteFile(t, cfgPath, `
output_root: "out"
log_level: "debug"
ui: color_scheme: "dark"
watch: {
	debounce: "2s"
	ignore: ["**/generated/**"]
}
`)

	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: cfgDir})
	if err != nil {
		t.Fatalf("loadWithOptions() returned error: %v", err)
	}
	if path != cfgPath {
		t.Errorf("resolved path = %q, want %q", path, cfgPath)
	}
	if cfg.OutputRoot != "out" {
		t.Errorf("OutputRoot = %q, want out", cfg.OutputRoot)
	}
	if cfg.LogLevel != LogLevelDebug {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.UI.ColorScheme != ColorSchemeDark {
		t.Errorf("ColorScheme = %q, want dark", cfg.UI.ColorScheme)
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("Debounce = %s, want 2s", cfg.Watch.Debounce)
	}
	if len(cfg.Watch.Ignore) != 1 || cfg.Watch.Ignore[0] != "**/generated/**" {
		t.Errorf("Ignore = %v", cfg.Watch.Ignore)
	}
	// Unset keys keep their defaults.
	if cfg.FragmentName != "layerbuild" {
		t.Errorf("FragmentName = %q, want layerbuild", cfg.FragmentName)
	}
}

func TestLoad_LocalConfigFallback(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	localPath := filepath.Join(base, LocalConfigFile)
	testutil.MustWriteFile(t, localPath, `fragment_name: "build-layer"`+"\n")

	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{
		ConfigDirPath: t.TempDir(),
		BaseDir:       base,
	})
	if err != nil {
		t.Fatalf("loadWithOptions() returned error: %v", err)
	}
	if path != localPath {
		t.Errorf("resolved path = %q, want %q", path, localPath)
	}
	if cfg.FragmentName != "build-layer" {
		t.Errorf("FragmentName = %q, want build-layer", cfg.FragmentName)
	}
}

func TestLoad_UserConfigWinsOverLocal(t *testing.T) {
	t.Parallel()

	cfgDir := t.TempDir()
	base := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(cfgDir, "config.cue"), `output_root: "user"`+"\n")
	testutil.MustWriteFile(t, filepath.Join(base, LocalConfigFile), `output_root: "local"`+"\n")

	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: cfgDir, BaseDir: base})
	if err != nil {
		t.Fatalf("loadWithOptions() returned error: %v", err)
	}
	if cfg.OutputRoot != "user" {
		t.Errorf("OutputRoot = %q, want user", cfg.OutputRoot)
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "nope.cue")
	_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: missing})
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}

	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("error should be *issue.ActionableError, got %T", err)
	}
	if ae.Resource != missing || ae.Issue != issue.ConfigLoadFailedId {
		t.Errorf("ActionableError = %+v", ae)
	}
	if !ae.HasSuggestions() {
		t.Error("expected suggestions")
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", `container_engine: "docker"`},
		{"bad log level", `log_level: "trace"`},
		{"bad color scheme", `ui: color_scheme: "neon"`},
		{"bad debounce", `watch: debounce: "soon"`},
		{"empty output root", `output_root: ""`},
		{"negative size", `max_fragment_size: -1`},
		{"syntax error", `output_root: "unterminated`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "config.cue")
			testutil.MustWriteFile(t, path, tt.content+"\n")

			_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: path})
			if err == nil {
				t.Fatalf("expected error for %s", tt.name)
			}
			if got := issue.IssueOf(err); got == nil || got.Id() != issue.ConfigLoadFailedId {
				t.Errorf("IssueOf() = %v, want ConfigLoadFailed", got)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	cfgDir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(cfgDir, "config.cue"), `output_root: "from-file"`+"\n")

	defer testutil.MustSetenv(t, "LAYERBUILD_OUTPUT_ROOT", "from-env")()
	defer testutil.MustSetenv(t, "LAYERBUILD_WATCH_DEBOUNCE", "1s")()
	defer testutil.MustSetenv(t, "LAYERBUILD_UI_VERBOSE", "true")()

	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: cfgDir})
	if err != nil {
		t.Fatalf("loadWithOptions() returned error: %v", err)
	}
	if cfg.OutputRoot != "from-env" {
		t.Errorf("OutputRoot = %q, want from-env", cfg.OutputRoot)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("Debounce = %s, want 1s", cfg.Watch.Debounce)
	}
	if !cfg.UI.Verbose {
		t.Error("UI.Verbose should be true from environment")
	}
}

func TestLoad_InvalidEnvOverride(t *testing.T) {
	defer testutil.MustSetenv(t, "LAYERBUILD_LOG_LEVEL", "chatty")()

	_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("loadWithOptions() error = %v, want ErrInvalidConfig", err)
	}
	if !strings.Contains(err.Error(), `"chatty"`) {
		t.Errorf("error should name the rejected level: %v", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := loadWithOptions(ctx, LoadOptions{ConfigDirPath: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Errorf("loadWithOptions() error = %v, want context.Canceled", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.OutputRoot = "$HOME/out"
	cfg.UI.Verbose = true
	cfg.Watch.Debounce = 750 * time.Millisecond
	cfg.Watch.Ignore = []string{"**/tmp/**", "*.log"}

	generated := GenerateCUE(cfg)
	for _, want := range []string{`output_root: "$HOME/out"`, "verbose: true", `debounce: "750ms"`, `"*.log",`} {
		if !strings.Contains(generated, want) {
			t.Errorf("GenerateCUE() missing %q:\n%s", want, generated)
		}
	}

	path := filepath.Join(t.TempDir(), "config.cue")
	testutil.MustWriteFile(t, path, generated)

	loaded, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("loading generated config failed: %v", err)
	}
	if loaded.OutputRoot != cfg.OutputRoot || loaded.Watch.Debounce != cfg.Watch.Debounce || !loaded.UI.Verbose {
		t.Errorf("round trip mismatch: got %+v, want %+v", loaded, cfg)
	}
	if len(loaded.Watch.Ignore) != 2 {
		t.Errorf("Ignore = %v", loaded.Watch.Ignore)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	t.Parallel()

	cfgDir := filepath.Join(t.TempDir(), AppName)
	opts := LoadOptions{ConfigDirPath: cfgDir}

	path, created, err := CreateDefaultConfig(opts)
	if err != nil {
		t.Fatalf("CreateDefaultConfig() returned error: %v", err)
	}
	if !created {
		t.Error("first CreateDefaultConfig() should create the file")
	}
	if path != filepath.Join(cfgDir, "config.cue") {
		t.Errorf("path = %q", path)
	}

	testutil.MustWriteFile(t, path, `output_root: "kept"`+"\n")
	if _, created, err = CreateDefaultConfig(opts); err != nil || created {
		t.Errorf("second CreateDefaultConfig() = created %v, err %v; want existing file kept", created, err)
	}
	if got := testutil.MustReadFile(t, path); !strings.Contains(got, "kept") {
		t.Errorf("existing config was overwritten:\n%s", got)
	}
}

func TestPath(t *testing.T) {
	t.Parallel()

	cfgDir := t.TempDir()
	if p, err := Path(LoadOptions{ConfigDirPath: cfgDir, BaseDir: t.TempDir()}); err != nil || p != "" {
		t.Errorf("Path() = %q, %v; want empty", p, err)
	}

	want := filepath.Join(cfgDir, "config.cue")
	if err := os.WriteFile(want, []byte("\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if p, err := Path(LoadOptions{ConfigDirPath: cfgDir}); err != nil || p != want {
		t.Errorf("Path() = %q, %v; want %q", p, err, want)
	}
	if p, _ := Path(LoadOptions{ConfigFilePath: "/explicit.cue"}); p != "/explicit.cue" {
		t.Errorf("Path() = %q, want explicit path", p)
	}
}
