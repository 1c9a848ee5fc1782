// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"runtime"
	"testing"
)

// HomeEnv is the variable os.UserHomeDir reads on the current platform.
func HomeEnv() string {
	if runtime.GOOS == "windows" {
		return "USERPROFILE"
	}
	return "HOME"
}

// SetHomeDir points the user's home directory at dir and returns a func
// that restores the previous value.
//
//	defer testutil.SetHomeDir(t, t.TempDir())()
func SetHomeDir(t testing.TB, dir string) func() {
	t.Helper()
	return MustSetenv(t, HomeEnv(), dir)
}
