// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/format"

	"github.com/layerbuild/layerbuild/internal/resolver"
	"github.com/layerbuild/layerbuild/internal/signing"
	"github.com/layerbuild/layerbuild/pkg/fragment"
	"github.com/layerbuild/layerbuild/pkg/patch"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatCUE  = "cue"
)

type (
	// ResolveView is the machine-readable rendering of a resolve run.
	ResolveView struct {
		ProjectRoot  string       `json:"project_root"`
		OutputRoot   string       `json:"output_root"`
		DryRun       bool         `json:"dry_run"`
		Repositories []string     `json:"repositories"`
		Plugins      []string     `json:"plugins"`
		Dependencies []string     `json:"dependencies"`
		Modules      []ModuleView `json:"modules"`
		Patches      []PatchView  `json:"patches"`
		Signing      *SigningView `json:"signing,omitempty"`
	}

	// ModuleView describes one module in evaluation order.
	ModuleView struct {
		Name         string            `json:"name"`
		SourceDir    string            `json:"source_dir"`
		OutputDir    string            `json:"output_dir"`
		Namespace    string            `json:"namespace,omitempty"`
		Plugins      []string          `json:"plugins"`
		Dependencies []string          `json:"dependencies"`
		Properties   map[string]string `json:"properties,omitempty"`
		Signing      *SigningView      `json:"signing,omitempty"`
	}

	// PatchView is one patch outcome.
	PatchView struct {
		Module       string `json:"module"`
		Rule         string `json:"rule"`
		File         string `json:"file"`
		State        string `json:"state"`
		Replacements int    `json:"replacements,omitempty"`
	}

	// SigningView names a signing configuration without its secrets.
	SigningView struct {
		Source    string `json:"source,omitempty"`
		StoreFile string `json:"store_file"`
		KeyAlias  string `json:"key_alias"`
	}
)

func validFormat(f string) bool {
	switch f {
	case formatText, formatJSON, formatCUE:
		return true
	}
	return false
}

// newResolveView flattens a resolver result for json and cue output.
func newResolveView(res *resolver.Result) ResolveView {
	view := ResolveView{
		ProjectRoot:  res.ProjectRoot,
		OutputRoot:   res.Layout.Root(),
		DryRun:       res.DryRun,
		Repositories: res.Merged.Repositories,
		Plugins:      res.Merged.Plugins,
		Dependencies: dependencyStrings(res.Merged.Dependencies),
		Modules:      make([]ModuleView, 0, len(res.Modules)),
		Patches:      make([]PatchView, 0, len(res.Patches.Outcomes)),
		Signing:      newSigningView(res.Signing),
	}
	for _, m := range res.Modules {
		view.Modules = append(view.Modules, ModuleView{
			Name:         m.Name.String(),
			SourceDir:    m.SourceDir,
			OutputDir:    m.OutputDir,
			Namespace:    m.Namespace,
			Plugins:      m.Config.Plugins,
			Dependencies: dependencyStrings(m.Config.Dependencies),
			Properties:   m.Config.Properties,
			Signing:      newSigningView(m.Signing),
		})
	}
	for _, o := range res.Patches.Outcomes {
		view.Patches = append(view.Patches, PatchView{
			Module:       o.Module.String(),
			Rule:         o.Rule,
			File:         o.File,
			State:        o.State.String(),
			Replacements: o.Replacements,
		})
	}
	return view
}

func newSigningView(c *signing.Config) *SigningView {
	if c == nil {
		return nil
	}
	return &SigningView{Source: c.Source, StoreFile: c.StoreFile, KeyAlias: c.KeyAlias}
}

func dependencyStrings(deps []fragment.Dependency) []string {
	out := make([]string, len(deps))
	for i, d := range deps {
		out[i] = d.String()
	}
	return out
}

// renderResult writes res to w in the requested format.
func renderResult(w io.Writer, res *resolver.Result, outputFormat string) error {
	switch outputFormat {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(newResolveView(res))
	case formatCUE:
		return renderCUE(w, newResolveView(res))
	default:
		renderText(w, res)
		return nil
	}
}

func renderCUE(w io.Writer, view ResolveView) error {
	v := cuecontext.New().Encode(view)
	if err := v.Err(); err != nil {
		return fmt.Errorf("encode result as CUE: %w", err)
	}
	src, err := format.Node(v.Syntax())
	if err != nil {
		return fmt.Errorf("format CUE output: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", src)
	return err
}

func renderText(w io.Writer, res *resolver.Result) {
	title := "Resolved " + res.ProjectRoot
	if res.DryRun {
		title += WarningStyle.Render(" (dry run)")
	}
	fmt.Fprintln(w, TitleStyle.Render(title))
	fmt.Fprintf(w, "%s %s\n", CmdStyle.Render("Output root:"), res.Layout.Root())

	fmt.Fprintln(w, sectionStyle.Render("Modules (evaluation order)"))
	if len(res.Modules) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none declared)"))
	}
	for i, m := range res.Modules {
		line := fmt.Sprintf("  %d. %s %s %s", i+1, CmdStyle.Render(m.Name.String()), SubtitleStyle.Render("→"), pathStyle.Render(m.OutputDir))
		if m.Namespace != "" {
			line += SubtitleStyle.Render(" namespace=") + m.Namespace
		}
		if m.Signing != nil {
			line += SubtitleStyle.Render(" signed")
		}
		fmt.Fprintln(w, line)
	}

	renderList(w, "Repositories", res.Merged.Repositories)
	renderList(w, "Plugins", res.Merged.Plugins)
	renderList(w, "Dependencies", dependencyStrings(res.Merged.Dependencies))

	fmt.Fprintln(w, sectionStyle.Render("Patches"))
	shown := 0
	for _, o := range res.Patches.Outcomes {
		if o.State == patch.StateNotApplicable {
			continue
		}
		shown++
		fmt.Fprintf(w, "  %s %s %s %s\n", stateMarker(o.State), CmdStyle.Render(o.Module.String()), o.State, pathStyle.Render(o.File))
	}
	if shown == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(no applicable patches)"))
	}

	summary := []string{
		fmt.Sprintf("%d patched", res.Patches.Count(patch.StatePatched)),
		fmt.Sprintf("%d already patched", res.Patches.Count(patch.StateAlreadyPatched)),
		fmt.Sprintf("%d not applicable", res.Patches.Count(patch.StateNotApplicable)),
	}
	if res.DryRun {
		summary[0] = fmt.Sprintf("%d would patch", res.Patches.Count(patch.StateWouldPatch))
	}
	fmt.Fprintf(w, "\n%s\n", SubtitleStyle.Render(strings.Join(summary, ", ")))
}

func renderList(w io.Writer, title string, items []string) {
	fmt.Fprintln(w, sectionStyle.Render(title))
	if len(items) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none)"))
		return
	}
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}
