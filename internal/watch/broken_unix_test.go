// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import (
	"fmt"
	"os"
	"syscall"
	"testing"
)

func TestBrokenWatch(t *testing.T) {
	t.Parallel()

	broken := []error{
		syscall.ENOSPC,
		syscall.EMFILE,
		fmt.Errorf("inotify_add_watch: %w", syscall.ENFILE),
	}
	for _, err := range broken {
		if !brokenWatch(err) {
			t.Errorf("brokenWatch(%v) = false, want true", err)
		}
	}

	recoverable := []error{syscall.EACCES, os.ErrNotExist, fmt.Errorf("queue overflow")}
	for _, err := range recoverable {
		if brokenWatch(err) {
			t.Errorf("brokenWatch(%v) = true, want false", err)
		}
	}
}
