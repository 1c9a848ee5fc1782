// SPDX-License-Identifier: MPL-2.0

// Package types holds small value types shared across layerbuild packages:
// process exit codes and module names. Each type validates itself and
// reports failures through a typed error wrapping a package sentinel.
package types
