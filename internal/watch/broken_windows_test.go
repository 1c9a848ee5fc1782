// SPDX-License-Identifier: MPL-2.0

//go:build windows

package watch

import (
	"fmt"
	"syscall"
	"testing"
)

func TestBrokenWatch(t *testing.T) {
	t.Parallel()

	if !brokenWatch(fmt.Errorf("ReadDirectoryChanges: %w", errInvalidHandle)) {
		t.Error("invalid handle should break the watch")
	}
	if !brokenWatch(errTooManyOpenFiles) || !brokenWatch(errNotEnoughMemory) {
		t.Error("resource exhaustion should break the watch")
	}
	if brokenWatch(syscall.Errno(5)) {
		t.Error("access denied should be recoverable")
	}
}
