// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteTree(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	WriteTree(t, root, map[string]string{
		"layerbuild.cue":     "plugins: [\"a\"]\n",
		"app/layerbuild.cue": "",
		"app/src/Main.kt":    "fun main() {}\n",
	})

	if got := MustReadFile(t, filepath.Join(root, "layerbuild.cue")); got != "plugins: [\"a\"]\n" {
		t.Errorf("root descriptor = %q", got)
	}
	AssertDir(t, filepath.Join(root, "app", "src"))
	AssertNotExist(t, filepath.Join(root, "missing"))
}

func TestMustSetenv_Restores(t *testing.T) {
	const key = "LAYERBUILD_TESTUTIL_SAMPLE"

	restoreOuter := MustUnsetenv(t, key)
	defer restoreOuter()

	cleanup := MustSetenv(t, key, "value")
	if got := os.Getenv(key); got != "value" {
		t.Fatalf("%s = %q, want %q", key, got, "value")
	}
	cleanup()

	if _, ok := os.LookupEnv(key); ok {
		t.Errorf("%s still set after cleanup", key)
	}
}
