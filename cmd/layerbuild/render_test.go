// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/layerbuild/layerbuild/internal/resolver"
	"github.com/layerbuild/layerbuild/internal/testutil"
)

func resolveFixture(t *testing.T, dryRun bool) *resolver.Result {
	t.Helper()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"layerbuild.cue": `
repositories: ["google"]
subprojects: [{path: "app"}, {path: "lib"}]
properties: "android.useAndroidX": "true"
patches: [{
	target: "AndroidManifest.xml"
	match: contains: "li"
	find: "old"
	replace: "new"
	namespace: "com.example.lib"
}]
`,
		"app/layerbuild.cue":      `dependencies: [{name: "androidx.core:core-ktx", version: "1.12.0"}]`,
		"lib/layerbuild.cue":      `signing: file: "key.properties"`,
		"lib/key.properties":      "storeFile=release.jks\nstorePassword=hunter2\nkeyAlias=upload\nkeyPassword=hunter3\n",
		"lib/AndroidManifest.xml": "<manifest package=\"old\"/>\n",
	})

	r := resolver.New(resolver.WithEnviron(func() []string { return nil }))
	res, err := r.Resolve(context.Background(), root, dryRun)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	return res
}

func TestNewResolveView(t *testing.T) {
	t.Parallel()

	res := resolveFixture(t, false)
	view := newResolveView(res)

	if view.OutputRoot != filepath.Join(res.ProjectRoot, "build") {
		t.Errorf("OutputRoot = %q", view.OutputRoot)
	}
	if len(view.Modules) != 2 || view.Modules[0].Name != "app" || view.Modules[1].Name != "lib" {
		t.Fatalf("Modules = %+v", view.Modules)
	}
	lib := view.Modules[1]
	if lib.Namespace != "com.example.lib" {
		t.Errorf("lib namespace = %q", lib.Namespace)
	}
	if lib.Signing == nil || lib.Signing.KeyAlias != "upload" {
		t.Errorf("lib signing = %+v", lib.Signing)
	}
	if lib.Properties["android.useAndroidX"] != "true" {
		t.Errorf("lib properties = %v", lib.Properties)
	}
	if got := view.Modules[0].Dependencies; len(got) != 1 || got[0] != "androidx.core:core-ktx:1.12.0" {
		t.Errorf("app dependencies = %v", got)
	}
	if len(view.Patches) != 1 || view.Patches[0].State != "patched" || view.Patches[0].Replacements != 1 {
		t.Errorf("Patches = %+v", view.Patches)
	}
}

func TestRenderResult_JSONHasNoSecrets(t *testing.T) {
	t.Parallel()

	res := resolveFixture(t, true)
	var buf bytes.Buffer
	if err := renderResult(&buf, res, formatJSON); err != nil {
		t.Fatalf("renderResult() error = %v", err)
	}

	var decoded ResolveView
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if !decoded.DryRun || decoded.Patches[0].State != "would-patch" {
		t.Errorf("decoded = %+v", decoded)
	}
	if strings.Contains(buf.String(), "hunter") {
		t.Errorf("JSON output leaks a signing password:\n%s", buf.String())
	}
}

func TestRenderResult_CUE(t *testing.T) {
	t.Parallel()

	res := resolveFixture(t, false)
	var buf bytes.Buffer
	if err := renderResult(&buf, res, formatCUE); err != nil {
		t.Fatalf("renderResult() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"project_root:", "modules:", `"com.example.lib"`, `"https://dl.google.com/dl/android/maven2"`} {
		if !strings.Contains(out, want) {
			t.Errorf("CUE output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "hunter") {
		t.Errorf("CUE output leaks a signing password:\n%s", out)
	}
}

func TestRenderResult_Text(t *testing.T) {
	t.Parallel()

	res := resolveFixture(t, false)
	var buf bytes.Buffer
	if err := renderResult(&buf, res, formatText); err != nil {
		t.Fatalf("renderResult() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"1. app", "2. lib", "namespace=com.example.lib", "signed", "1 patched, 0 already patched, 0 not applicable"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestValidFormat(t *testing.T) {
	t.Parallel()

	for _, f := range []string{"text", "json", "cue"} {
		if !validFormat(f) {
			t.Errorf("validFormat(%q) = false", f)
		}
	}
	for _, f := range []string{"", "yaml", "JSON"} {
		if validFormat(f) {
			t.Errorf("validFormat(%q) = true", f)
		}
	}
}
