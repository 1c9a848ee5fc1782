// SPDX-License-Identifier: MPL-2.0

package signing

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/layerbuild/layerbuild/internal/testutil"
)

const keyProperties = `storeFile=upload-keystore.jks
storePassword=hunter2
keyAlias=upload
keyPassword=s3cret
`

func envFrom(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func noEnv() Option { return WithLookupEnv(envFrom(nil)) }

func TestLoad_PropertiesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "key.properties")
	testutil.MustWriteFile(t, path, keyProperties)

	cfg, err := NewLoader(noEnv()).Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg == nil {
		t.Fatal("Load() = nil, want config")
	}
	if cfg.StoreFile != filepath.Join(dir, "upload-keystore.jks") {
		t.Errorf("StoreFile = %q", cfg.StoreFile)
	}
	if cfg.KeyAlias != "upload" {
		t.Errorf("KeyAlias = %q", cfg.KeyAlias)
	}
	if cfg.StorePassword.Reveal() != "hunter2" || cfg.KeyPassword.Reveal() != "s3cret" {
		t.Error("Reveal() did not return the stored secrets")
	}
	if cfg.Source != path {
		t.Errorf("Source = %q, want %q", cfg.Source, path)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "key.properties")
	testutil.MustWriteFile(t, path, keyProperties)

	cfg, err := NewLoader(WithLookupEnv(envFrom(map[string]string{
		"LAYERBUILD_SIGNING_STORE_PASSWORD": "from-env",
		"LAYERBUILD_SIGNING_KEY_ALIAS":      "release",
	}))).Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StorePassword.Reveal() != "from-env" || cfg.KeyAlias != "release" {
		t.Errorf("env overrides not applied: %s", cfg)
	}
	if cfg.KeyPassword.Reveal() != "s3cret" {
		t.Error("file value lost for key without override")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "key.properties")

	t.Run("no values is unset", func(t *testing.T) {
		t.Parallel()
		cfg, err := NewLoader(noEnv()).Load(path)
		if err != nil || cfg != nil {
			t.Errorf("Load() = %v, %v; want nil, nil", cfg, err)
		}
	})

	t.Run("environment alone is enough", func(t *testing.T) {
		t.Parallel()
		cfg, err := NewLoader(WithLookupEnv(envFrom(map[string]string{
			"LAYERBUILD_SIGNING_STORE_FILE":     "/keys/release.jks",
			"LAYERBUILD_SIGNING_STORE_PASSWORD": "a",
			"LAYERBUILD_SIGNING_KEY_ALIAS":      "b",
			"LAYERBUILD_SIGNING_KEY_PASSWORD":   "c",
		}))).Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Source != "" || cfg.StoreFile != "/keys/release.jks" {
			t.Errorf("cfg = %s (source %q)", cfg, cfg.Source)
		}
	})
}

func TestLoad_Incomplete(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "key.properties")
	testutil.MustWriteFile(t, path, "storeFile=upload.jks\nkeyAlias=upload\n")

	_, err := NewLoader(noEnv()).Load(path)
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("Load() error = %v, want ErrIncomplete", err)
	}
	var inc *IncompleteError
	if !errors.As(err, &inc) {
		t.Fatalf("error is %T", err)
	}
	if strings.Join(inc.Missing, ",") != "storePassword,keyPassword" {
		t.Errorf("Missing = %v", inc.Missing)
	}
}

func TestConfig_NeverLeaksSecrets(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		StoreFile:     "/keys/upload.jks",
		StorePassword: "hunter2",
		KeyAlias:      "upload",
		KeyPassword:   "s3cret",
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	renderings := map[string]string{
		"String": cfg.String(),
		"%v":     fmt.Sprintf("%v", cfg),
		"%+v":    fmt.Sprintf("%+v", *cfg),
		"%#v":    fmt.Sprintf("%#v", *cfg),
		"json":   string(data),
		"secret": fmt.Sprint(cfg.StorePassword),
	}
	for name, out := range renderings {
		if strings.Contains(out, "hunter2") || strings.Contains(out, "s3cret") {
			t.Errorf("%s rendering leaks a secret: %s", name, out)
		}
	}
	if !strings.Contains(cfg.String(), redacted) {
		t.Errorf("String() = %q, want redacted placeholder", cfg.String())
	}
}
