// SPDX-License-Identifier: MPL-2.0

// Package resolver turns a project tree into a resolved build configuration.
//
// A resolution runs in two phases. Planning is read-only: it loads every
// fragment, discovers modules, orders them for evaluation, merges
// repositories/plugins/dependencies, computes the output layout and loads
// signing credentials. Only after planning succeeds does Resolve apply patch
// rules, so a missing or invalid fragment leaves the tree untouched.
package resolver
