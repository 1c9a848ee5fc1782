// SPDX-License-Identifier: MPL-2.0

// Package signing loads release-signing credentials referenced by a fragment.
//
// Credentials are treated as opaque: they are read from a Java-properties
// file (storeFile, storePassword, keyAlias, keyPassword), optionally
// overridden from the environment, and handed to an external packager.
// Secret values never appear in logs, errors or rendered output.
package signing

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// DefaultEnvPrefix prefixes the environment variables that override
// properties-file values, e.g. LAYERBUILD_SIGNING_STORE_PASSWORD.
const DefaultEnvPrefix = "LAYERBUILD_SIGNING"

// redacted replaces every secret in rendered output.
const redacted = "********"

// ErrIncomplete is the sentinel error wrapped by IncompleteError.
var ErrIncomplete = errors.New("incomplete signing configuration")

// keys maps properties keys to their environment variable suffixes.
var keys = []struct {
	prop string
	env  string
}{
	{"storeFile", "STORE_FILE"},
	{"storePassword", "STORE_PASSWORD"},
	{"keyAlias", "KEY_ALIAS"},
	{"keyPassword", "KEY_PASSWORD"},
}

type (
	// Secret is a credential value that renders redacted.
	Secret string

	// Config is a loaded signing configuration.
	Config struct {
		// Source is the properties file the values came from, or "" when
		// they came only from the environment.
		Source string `json:"source,omitempty"`
		// StoreFile is the keystore path, resolved against the directory of
		// the properties file.
		StoreFile     string `json:"store_file"`
		StorePassword Secret `json:"store_password"`
		KeyAlias      string `json:"key_alias"`
		KeyPassword   Secret `json:"key_password"`
	}

	// IncompleteError is returned when some but not all signing values are
	// present.
	IncompleteError struct {
		Source  string
		Missing []string
	}

	// Loader reads signing configurations.
	Loader struct {
		envPrefix string
		logger    *log.Logger
		lookupEnv func(string) (string, bool)
	}

	// Option configures a Loader.
	Option func(*Loader)
)

// WithLogger sets the logger used for the missing-file warning.
func WithLogger(logger *log.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithEnvPrefix overrides DefaultEnvPrefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) { l.envPrefix = prefix }
}

// WithLookupEnv replaces os.LookupEnv, mainly for tests.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(l *Loader) {
		if fn != nil {
			l.lookupEnv = fn
		}
	}
}

// NewLoader creates a signing Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		envPrefix: DefaultEnvPrefix,
		logger:    log.New(io.Discard),
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the properties file at path and applies environment overrides.
// A missing file is not an error: Load logs a warning and returns a nil
// Config unless the environment supplies the values. A partially specified
// configuration fails with IncompleteError.
func (l *Loader) Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("properties")

	source := ""
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("read signing properties %s: %w", path, err)
		}
		source = path
	case errors.Is(err, fs.ErrNotExist):
		l.logger.Warn("signing properties not found; release signing disabled", "path", path)
	default:
		return nil, fmt.Errorf("read signing properties %s: %w", path, err)
	}

	values := make(map[string]string, len(keys))
	for _, k := range keys {
		if env, ok := l.lookupEnv(l.envPrefix + "_" + k.env); ok && env != "" {
			values[k.prop] = env
			continue
		}
		values[k.prop] = strings.TrimSpace(v.GetString(k.prop))
	}

	var missing []string
	present := 0
	for _, k := range keys {
		if values[k.prop] == "" {
			missing = append(missing, k.prop)
		} else {
			present++
		}
	}
	if present == 0 {
		return nil, nil
	}
	if len(missing) > 0 {
		return nil, &IncompleteError{Source: path, Missing: missing}
	}

	storeFile := values["storeFile"]
	if !filepath.IsAbs(storeFile) {
		storeFile = filepath.Join(filepath.Dir(path), filepath.FromSlash(storeFile))
	}

	cfg := &Config{
		Source:        source,
		StoreFile:     storeFile,
		StorePassword: Secret(values["storePassword"]),
		KeyAlias:      values["keyAlias"],
		KeyPassword:   Secret(values["keyPassword"]),
	}
	l.logger.Debug("loaded signing configuration", "source", source, "key_alias", cfg.KeyAlias)
	return cfg, nil
}

// Load reads a signing configuration with default options.
func Load(path string) (*Config, error) {
	return NewLoader().Load(path)
}

// Reveal returns the secret value. Only the external packager should call it.
func (s Secret) Reveal() string { return string(s) }

// String returns a redacted placeholder.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// GoString returns a redacted placeholder so %#v does not leak the value.
func (s Secret) GoString() string { return fmt.Sprintf("%q", s.String()) }

// MarshalText renders the secret redacted.
func (s Secret) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// String renders the configuration with secrets redacted.
func (c *Config) String() string {
	return fmt.Sprintf("storeFile=%s keyAlias=%s storePassword=%s keyPassword=%s",
		c.StoreFile, c.KeyAlias, c.StorePassword, c.KeyPassword)
}

// Error implements the error interface for IncompleteError.
func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%s: missing %s", e.Source, strings.Join(e.Missing, ", "))
}

// Unwrap returns ErrIncomplete for errors.Is() compatibility.
func (e *IncompleteError) Unwrap() error { return ErrIncomplete }
