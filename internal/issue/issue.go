// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ConfigNotFoundId Id = iota + 1
	FragmentInvalidId
	ModuleCollisionId
	UnknownModuleId
	DependencyCycleId
	OutputRootInvalidId
	PatchWriteFailedId
	CleanFailedId
	SigningIncompleteId
	ConfigLoadFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // project documentation for this issue type
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range append(i.DocLinks(), i.extLinks...) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	configNotFoundIssue = &Issue{
		id: ConfigNotFoundId,
		mdMsg: `
# No layerbuild descriptor found!

Every project root and every declared subproject needs its own descriptor.

## Searched names (in order):
1. layerbuild.cue
2. layerbuild.toml
3. layerbuild.yaml
4. layerbuild.yml

## Things you can try:
- Check the subproject path in the root descriptor:
~~~cue
subprojects: [{path: "app"}]
~~~
- Create an empty descriptor in the subproject directory; an empty file is a valid fragment.
- Point at a different project root:
~~~
$ layerbuild resolve --project ./android
~~~`,
	}

	fragmentInvalidIssue = &Issue{
		id: FragmentInvalidId,
		mdMsg: `
# Invalid descriptor!

A descriptor failed schema validation.

## Common issues:
- Unknown field names (descriptors are closed)
- ` + "`subprojects`" + ` or ` + "`output`" + ` declared outside the root descriptor
- A patch rule whose predicate sets more than one of equals/pattern/contains
- A patch rule whose replace text still contains its find text
- A patch target that is absolute or escapes the module directory

## Things you can try:
- Check the error message above for the file, line and field
- Run with verbose mode for the full error chain:
~~~
$ layerbuild --verbose resolve
~~~`,
	}

	moduleCollisionIssue = &Issue{
		id: ModuleCollisionId,
		mdMsg: `
# Module name collision!

Two subprojects resolve to the same module name but different directories.
Module names must be unique because they name output directories.

## Things you can try:
- Give one of them an explicit name:
~~~cue
subprojects: [
	{path: "plugins/a/core", name: "a-core"},
	{path: "plugins/b/core"},
]
~~~`,
	}

	unknownModuleIssue = &Issue{
		id: UnknownModuleId,
		mdMsg: `
# Unknown module in evaluation_depends_on!

An evaluation dependency names a module that is not declared as a subproject.

## Things you can try:
- Check for typos in the module name
- Remember that a subproject's name defaults to the last element of its path`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle detected!

The evaluation_depends_on declarations form a cycle, so no evaluation order exists.

## Things you can try:
- Remove one of the declarations named in the error
- Note that a root-level evaluation_depends_on applies to every subproject`,
	}

	outputRootInvalidIssue = &Issue{
		id: OutputRootInvalidId,
		mdMsg: `
# Invalid output root!

The shared build output root could not be computed.

## Things you can try:
- Define every variable referenced by ` + "`output: root`" + `, in the environment or in the project's .env file
- Do not point the output root at a filesystem root`,
	}

	patchWriteFailedIssue = &Issue{
		id: PatchWriteFailedId,
		mdMsg: `
# Failed to write a patched file!

A patch target exists but could not be read or rewritten. The run was aborted;
patches applied before the failure remain applied.

## Things you can try:
- Check the file permissions of the target named in the error
- Preview the pending changes without writing:
~~~
$ layerbuild resolve --dry-run
~~~`,
	}

	cleanFailedIssue = &Issue{
		id: CleanFailedId,
		mdMsg: `
# Failed to clean the output directories!

A directory could not be deleted. Cleaning stops at the first failure;
directories listed before it have already been removed.

## Things you can try:
- Stop any build daemon holding files open (e.g. ` + "`./gradlew --stop`" + `)
- Check the permissions of the directory named in the error`,
	}

	signingIncompleteIssue = &Issue{
		id: SigningIncompleteId,
		mdMsg: `
# Incomplete signing configuration!

The signing properties must define storeFile, storePassword, keyAlias and keyPassword.

## Things you can try:
- Add the missing keys to the properties file
- Or provide them through the environment:
~~~
$ export LAYERBUILD_SIGNING_STORE_PASSWORD=...
$ export LAYERBUILD_SIGNING_KEY_PASSWORD=...
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The layerbuild configuration file could not be loaded.

## Things you can try:
- Show where the configuration is read from:
~~~
$ layerbuild config path
~~~
- Write a fresh default configuration:
~~~
$ layerbuild config init
~~~`,
	}

	issues = map[Id]*Issue{
		configNotFoundIssue.Id():    configNotFoundIssue,
		fragmentInvalidIssue.Id():   fragmentInvalidIssue,
		moduleCollisionIssue.Id():   moduleCollisionIssue,
		unknownModuleIssue.Id():     unknownModuleIssue,
		dependencyCycleIssue.Id():   dependencyCycleIssue,
		outputRootInvalidIssue.Id(): outputRootInvalidIssue,
		patchWriteFailedIssue.Id():  patchWriteFailedIssue,
		cleanFailedIssue.Id():       cleanFailedIssue,
		signingIncompleteIssue.Id(): signingIncompleteIssue,
		configLoadFailedIssue.Id():  configLoadFailedIssue,
	}
)

// Values returns every catalog issue ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
