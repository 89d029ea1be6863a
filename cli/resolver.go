package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"
)

// resolve is a [kong.ConfigurationLoader] for YAML configuration files.
//
// Nested mappings are flattened by joining keys with hyphens, so both of
// these set --log-level:
//
//	log-level: debug
//
//	log:
//	  level: debug
//
// Keys may use underscores in place of hyphens. Sequences become
// comma-separated values. Command-line flags override the file.
func resolve(r io.Reader) (kong.Resolver, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}

	c := config{}
	c.flatten("", doc)

	return c, nil
}

// config implements [kong.Resolver] over flattened YAML keys.
type config map[string]any

func (c config) Validate(*kong.Application) error { return nil }

func (c config) Resolve(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
	if v, ok := c[flag.Name]; ok {
		return v, nil
	}

	if v, ok := c[strings.ReplaceAll(flag.Name, "-", "_")]; ok {
		return v, nil
	}

	return nil, nil
}

func (c config) flatten(prefix string, m map[string]any) {
	for k, v := range m {
		if prefix != "" {
			k = prefix + "-" + k
		}

		if sub, ok := v.(map[string]any); ok {
			c.flatten(k, sub)

			continue
		}

		if v = scalar(v); v != nil {
			c[k] = v
		}
	}
}

// scalar converts a decoded YAML value to the form Kong parses: strings and
// booleans as they are, numbers and sequences as strings.
func scalar(v any) any {
	switch v := v.(type) {
	case nil:
		return nil
	case string, bool:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(v))
		for _, e := range v {
			if s := scalar(e); s != nil {
				parts = append(parts, fmt.Sprint(s))
			}
		}

		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}
