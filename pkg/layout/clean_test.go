// SPDX-License-Identifier: MPL-2.0

package layout

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/layerbuild/layerbuild/pkg/types"
)

func populate(t *testing.T, l *Layout) {
	t.Helper()

	for _, e := range l.Entries() {
		if err := os.MkdirAll(filepath.Join(e.Dir, "intermediates"), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(filepath.Join(e.Dir, "intermediates", "classes.jar"), []byte("jar"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func TestClean_RemovesEveryDirectoryAndIsRepeatable(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "build")
	l, err := Rewrite(root, []types.ModuleName{"app", "camera"})
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	populate(t, l)

	if err := Clean(context.Background(), l); err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	for _, dir := range l.Dirs() {
		if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s still exists (stat err = %v)", dir, err)
		}
	}

	if err := Clean(context.Background(), l); err != nil {
		t.Errorf("second Clean() should be a no-op, got %v", err)
	}
}

func TestClean_FirstFailureAborts(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "build")
	l, err := Rewrite(root, []types.ModuleName{"app", "camera", "maps"})
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}

	denied := errors.New("permission denied")
	cameraDir, _ := l.Dir("camera")
	var attempted []string
	c := NewCleaner(WithRemoveFunc(func(path string) error {
		attempted = append(attempted, path)
		if path == cameraDir {
			return denied
		}
		return nil
	}))

	err = c.Clean(context.Background(), l)
	if !errors.Is(err, ErrClean) || !errors.Is(err, denied) {
		t.Fatalf("Clean() error = %v, want ErrClean wrapping the cause", err)
	}
	var cleanErr *CleanError
	if !errors.As(err, &cleanErr) || cleanErr.Path != cameraDir {
		t.Errorf("CleanError should name %q, got %v", cameraDir, err)
	}
	if len(attempted) != 2 {
		t.Errorf("deletion should stop at the failure, attempted %v", attempted)
	}
}

func TestClean_CanceledContext(t *testing.T) {
	t.Parallel()

	l, err := Rewrite(filepath.Join(t.TempDir(), "build"), []types.ModuleName{"app"})
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Clean(ctx, l); !errors.Is(err, context.Canceled) {
		t.Errorf("Clean() error = %v, want context.Canceled", err)
	}
}
