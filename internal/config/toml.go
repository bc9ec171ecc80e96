package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/proxyd/proxyd/internal/ptr"
)

// fromTomlFile decodes the file at path. Sections missing from the file stay
// nil so that they do not override the defaults when merged.
func fromTomlFile(path string) (*Config, error) {
	// TOML 1.1 lets inline tables span several lines.
	_ = os.Setenv("BURNTSUSHI_TOML_110", "1")

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// searchTomlFile picks the config file to load. A path given explicitly must
// exist. Otherwise the first existing candidate wins, and finding none is not
// an error.
func searchTomlFile(explicit string, candidates []string) (string, error) {
	if explicit != "" {
		if !fileExists(explicit) {
			return "", fmt.Errorf("no such file: %s", explicit)
		}

		return explicit, nil
	}

	for _, p := range candidates {
		if p != "" && fileExists(p) {
			return p, nil
		}
	}

	return "", nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// findFrom runs parser on table[key]. It returns nil when the key is absent
// or when an earlier field already failed; a parse failure is stored in errp
// so that callers can chain lookups and check once.
func findFrom[T any](
	table map[string]any,
	key string,
	parser func(any) (T, error),
	errp *error,
) *T {
	raw, ok := table[key]
	if !ok || (errp != nil && *errp != nil) {
		return nil
	}

	v, err := parser(raw)
	if err != nil {
		*errp = fmt.Errorf("field %q: %w", key, err)
		return nil
	}

	return ptr.FromValue(v)
}

// findStructFrom decodes the sub-table table[key] through the section's own
// UnmarshalTOML, with the same error chaining as findFrom.
func findStructFrom[T any, PT interface {
	*T
	toml.Unmarshaler
}](table map[string]any, key string, errp *error) *T {
	raw, ok := table[key]
	if !ok || (errp != nil && *errp != nil) {
		return nil
	}

	section := new(T)
	if err := PT(section).UnmarshalTOML(raw); err != nil {
		*errp = fmt.Errorf("section [%s]: %w", key, err)
		return nil
	}

	return section
}
