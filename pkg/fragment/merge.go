// SPDX-License-Identifier: MPL-2.0

package fragment

import (
	"maps"
	"slices"
	"strings"
)

// repositoryAliases maps repository shorthands to their canonical URLs.
var repositoryAliases = map[string]string{
	"google":             "https://dl.google.com/dl/android/maven2",
	"mavencentral":       "https://repo.maven.apache.org/maven2",
	"gradlepluginportal": "https://plugins.gradle.org/m2",
}

type (
	// Merged is the union of a sequence of fragments. Every list keeps
	// first-seen order and holds no duplicates.
	Merged struct {
		Repositories []string     `json:"repositories"`
		Plugins      []string     `json:"plugins"`
		Dependencies []Dependency `json:"dependencies"`
	}

	// ModuleView is the effective configuration of one subproject: the
	// root fragment merged with the module's own fragment.
	ModuleView struct {
		Merged
		// Properties are the root properties overlaid by the module's.
		Properties map[string]string `json:"properties"`
	}
)

// NormalizeRepository canonicalises a repository reference so that
// shorthands and trailing slashes compare equal.
func NormalizeRepository(repo string) string {
	repo = strings.TrimSpace(repo)
	alias := strings.ToLower(strings.TrimSuffix(repo, "()"))
	if url, ok := repositoryAliases[alias]; ok {
		return url
	}
	return strings.TrimRight(repo, "/")
}

// Merge unions the fragments in order. Repositories are compared after
// NormalizeRepository; dependencies are de-duplicated on the exact
// (name, version) pair, so two versions of one artifact both survive.
func Merge(frags ...*Fragment) Merged {
	m := Merged{
		Repositories: []string{},
		Plugins:      []string{},
		Dependencies: []Dependency{},
	}
	repos := make(map[string]struct{})
	plugins := make(map[string]struct{})
	deps := make(map[Dependency]struct{})

	for _, f := range frags {
		if f == nil {
			continue
		}
		for _, r := range f.desc.Repositories {
			m.Repositories = appendUnique(m.Repositories, repos, NormalizeRepository(r))
		}
		for _, p := range f.desc.Plugins {
			m.Plugins = appendUnique(m.Plugins, plugins, strings.TrimSpace(p))
		}
		for _, d := range f.desc.Dependencies {
			m.Dependencies = appendUnique(m.Dependencies, deps, d)
		}
	}
	return m
}

// MergeModule builds the effective view of module by merging it over root.
func MergeModule(root, module *Fragment) ModuleView {
	props := make(map[string]string)
	for _, f := range []*Fragment{root, module} {
		if f != nil {
			maps.Copy(props, f.desc.Properties)
		}
	}
	return ModuleView{Merged: Merge(root, module), Properties: props}
}

// HasPlugin reports whether the merged plugin list contains id.
func (m Merged) HasPlugin(id string) bool {
	return slices.Contains(m.Plugins, id)
}

// VersionConflicts returns the dependency names that appear with more than
// one version, mapped to those versions in first-seen order.
func (m Merged) VersionConflicts() map[string][]string {
	versions := make(map[string][]string)
	for _, d := range m.Dependencies {
		versions[d.Name] = append(versions[d.Name], d.Version)
	}
	maps.DeleteFunc(versions, func(_ string, vs []string) bool { return len(vs) < 2 })
	return versions
}

func appendUnique[T comparable](dst []T, seen map[T]struct{}, v T) []T {
	if _, ok := seen[v]; ok {
		return dst
	}
	seen[v] = struct{}{}
	return append(dst, v)
}
