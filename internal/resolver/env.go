// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"
)

// ErrInvalidOutputRoot is returned when the output root cannot be expanded.
var ErrInvalidOutputRoot = errors.New("invalid output root")

// dotenvFile is read from the project root for variable expansion.
const dotenvFile = ".env"

// projectEnv returns the project's .env values overlaid by the process
// environment, in KEY=VALUE form. The process environment is never modified.
func projectEnv(projectRoot string, environ []string) ([]string, error) {
	vars, err := godotenv.Read(filepath.Join(projectRoot, dotenvFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", dotenvFile, err)
	}

	env := make([]string, 0, len(vars)+len(environ))
	for k, v := range vars {
		env = append(env, k+"="+v)
	}
	// Later entries win in expand.ListEnviron.
	return append(env, environ...), nil
}

// expandPath expands $VAR and ${VAR} references in raw. Referencing an
// unset variable is an error.
func expandPath(raw string, env []string) (string, error) {
	word, err := syntax.NewParser().Document(strings.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidOutputRoot, raw, err)
	}
	cfg := &expand.Config{
		Env:     expand.ListEnviron(env...),
		NoUnset: true,
	}
	out, err := expand.Document(cfg, word)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidOutputRoot, raw, err)
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("%w: %q expands to an empty path", ErrInvalidOutputRoot, raw)
	}
	return out, nil
}
