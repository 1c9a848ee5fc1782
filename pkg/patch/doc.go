// SPDX-License-Identifier: MPL-2.0

// Package patch applies idempotent, conditional text substitutions to files
// inside module source directories.
//
// A Rule names a target file relative to the module directory, a structured
// Predicate over the module name, and a find/replace pair. For every
// (module, rule) pair the Applier moves through a small state machine:
//
//	Unchecked -> NotApplicable   target file absent
//	          -> AlreadyPatched  find text absent
//	          -> Patched         find text replaced and file rewritten
//
// All three outcomes are terminal and none of them is an error: repeated
// invocations are the normal case for build configuration. The only fatal
// outcome is a file that exists but cannot be read or rewritten, reported as
// a *WriteError.
package patch
