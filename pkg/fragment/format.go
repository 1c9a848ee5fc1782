// SPDX-License-Identifier: MPL-2.0

package fragment

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/layerbuild/layerbuild/pkg/cueutil"
)

const (
	// FormatCUE is a CUE descriptor (layerbuild.cue).
	FormatCUE Format = "cue"
	// FormatTOML is a TOML descriptor (layerbuild.toml).
	FormatTOML Format = "toml"
	// FormatYAML is a YAML descriptor (layerbuild.yaml or layerbuild.yml).
	FormatYAML Format = "yaml"
)

// descriptorExtensions lists the recognised descriptor extensions in lookup
// order. The first file present in a directory wins.
var descriptorExtensions = []struct {
	ext    string
	format Format
}{
	{".cue", FormatCUE},
	{".toml", FormatTOML},
	{".yaml", FormatYAML},
	{".yml", FormatYAML},
}

// Format identifies the encoding of a descriptor file.
type Format string

// candidates returns the descriptor file names tried in a directory.
func candidates(dir, base string) []string {
	out := make([]string, len(descriptorExtensions))
	for i, e := range descriptorExtensions {
		out[i] = filepath.Join(dir, base+e.ext)
	}
	return out
}

// formatFor maps a descriptor path to its format.
func formatFor(path string) (Format, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range descriptorExtensions {
		if e.ext == ext {
			return e.format, true
		}
	}
	return "", false
}

// decode parses descriptor bytes. TOML and YAML documents are decoded
// generically and then checked against the same CUE schema as CUE files.
func decode(format Format, data []byte, filename string, maxSize int64) (*descriptor, error) {
	opts := []cueutil.Option{cueutil.WithFilename(filename), cueutil.WithMaxFileSize(maxSize)}

	if format == FormatCUE {
		result, err := cueutil.ParseAndDecode[descriptor](fragmentSchema, data, "#Fragment", opts...)
		if err != nil {
			return nil, err
		}
		return result.Value, nil
	}

	if err := cueutil.CheckFileSize(data, maxSize, filename); err != nil {
		return nil, err
	}

	var doc map[string]any
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		doc, _ = scalarsToText(doc).(map[string]any)
	case FormatYAML:
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		v, err := yamlValue(&node)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		if v != nil {
			m, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s: top level must be a mapping", filename)
			}
			doc = m
		}
	default:
		return nil, fmt.Errorf("%s: unsupported descriptor format %q", filename, format)
	}
	if doc == nil {
		// An empty document is an empty fragment.
		doc = map[string]any{}
	}

	result, err := cueutil.DecodeGoValue[descriptor](fragmentSchema, doc, "#Fragment", opts...)
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}

// yamlValue converts a YAML node tree to maps, slices and strings. Scalars
// keep their source text, so `version: 1.10` stays "1.10".
func yamlValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return yamlValue(n.Content[0])
	case yaml.AliasNode:
		return yamlValue(n.Alias)
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil, nil
		}
		return n.Value, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := yamlValue(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		out := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", key.Line)
			}
			v, err := yamlValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			out[key.Value] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node", n.Line)
}

// scalarsToText formats the numbers and booleans of a decoded TOML document
// as strings. TOML floats lose trailing zeros (1.10 becomes "1.1"), so such
// versions must be quoted.
func scalarsToText(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, inner := range t {
			t[k] = scalarsToText(inner)
		}
		return t
	case []any:
		for i, inner := range t {
			t[i] = scalarsToText(inner)
		}
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time, toml.LocalDate, toml.LocalDateTime, toml.LocalTime:
		return fmt.Sprint(t)
	}
	return v
}
