// SPDX-License-Identifier: MPL-2.0

// Package fragment loads and merges layered build configuration.
//
// A project is described by a root descriptor (layerbuild.cue, .toml, .yaml
// or .yml) in the project directory. The root descriptor declares
// subprojects by relative path; each subproject directory carries its own
// descriptor. Loading produces the root fragment followed by one fragment
// per subproject, in declaration order.
//
// Merging is a monotonic, order-preserving union: later fragments add
// repositories, plugins and dependency coordinates but never remove what an
// earlier fragment declared.
//
// File organization:
//   - fragment.go: Fragment, Scope and the decoded descriptor shape
//   - format.go: descriptor formats and decoding
//   - loader.go: project tree loading and subproject discovery
//   - cache.go: parse cache for repeated loads
//   - merge.go: repository/plugin/dependency union and per-module views
package fragment
