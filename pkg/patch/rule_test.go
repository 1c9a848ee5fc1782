// SPDX-License-Identifier: MPL-2.0

package patch

import (
	"errors"
	"strings"
	"testing"
)

func TestRule_Validate(t *testing.T) {
	t.Parallel()

	valid := Rule{
		Target: "src/main/AndroidManifest.xml",
		Match:  Predicate{Equals: "lib"},
		Find:   `package="com.example.lib"`,
	}

	tests := []struct {
		name    string
		mutate  func(r *Rule)
		wantErr string
	}{
		{name: "valid", mutate: func(*Rule) {}},
		{name: "empty find", mutate: func(r *Rule) { r.Find = "" }, wantErr: "find text"},
		{name: "absolute target", mutate: func(r *Rule) { r.Target = "/etc/passwd" }, wantErr: "relative"},
		{name: "escaping target", mutate: func(r *Rule) { r.Target = "../other/file" }, wantErr: "escapes"},
		{name: "empty target", mutate: func(r *Rule) { r.Target = " " }, wantErr: "non-empty"},
		{name: "replace contains find", mutate: func(r *Rule) { r.Replace = "x" + r.Find }, wantErr: "must not contain"},
		{name: "invalid predicate", mutate: func(r *Rule) { r.Match = Predicate{} }, wantErr: "exactly one"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := valid
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidRule) {
				t.Errorf("error should wrap ErrInvalidRule, got: %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestRule_Label(t *testing.T) {
	t.Parallel()

	named := Rule{Name: "strip-package", Target: "a.xml", Match: Predicate{Equals: "x"}}
	if got := named.Label(); got != "strip-package" {
		t.Errorf("Label() = %q, want %q", got, "strip-package")
	}

	unnamed := Rule{Target: "a.xml", Match: Predicate{Contains: "x"}}
	if got := unnamed.Label(); got != "a.xml (contains x)" {
		t.Errorf("Label() = %q, want %q", got, "a.xml (contains x)")
	}
}

func TestRule_AppliesTo(t *testing.T) {
	t.Parallel()

	r := Rule{Match: Predicate{Contains: "keyboard"}, RequiresPlugin: "com.android.library"}

	if r.AppliesTo(Target{Name: "flutter_keyboard_visibility"}) {
		t.Error("rule requiring a plugin should not apply to a module without it")
	}
	if !r.AppliesTo(Target{Name: "flutter_keyboard_visibility", Plugins: []string{"com.android.library"}}) {
		t.Error("rule should apply once the plugin is present")
	}
	if r.AppliesTo(Target{Name: "camera", Plugins: []string{"com.android.library"}}) {
		t.Error("rule should not apply when the predicate misses")
	}
}
