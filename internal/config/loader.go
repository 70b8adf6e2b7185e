package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the conventional configuration file name.
const FileName = "keepsake.yaml"

// envPattern matches ${VAR} and ${VAR:-default}. A default may contain an
// escaped closing brace (\}) to carry a literal one.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// ResolvePath picks the configuration file to load. An explicit path (the
// --config flag) always wins; otherwise the search order is
// $XDG_CONFIG_HOME/keepsake/keepsake.yaml, ~/.config/keepsake/keepsake.yaml,
// then keepsake.yaml in the working directory.
func ResolvePath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	var candidates []string
	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "keepsake", FileName))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "keepsake", FileName))
	}
	candidates = append(candidates, FileName)

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("config: no configuration file found (searched %s)", strings.Join(candidates, ", "))
}

// Load reads the YAML file at path, substitutes environment variables, and
// decodes the result. Substitution runs over the raw bytes, before YAML
// parsing, so any value may reference the environment.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded, missing := substituteEnv(raw)
	if len(missing) > 0 {
		return nil, fmt.Errorf("config: %s: unresolved variables: %s", path, strings.Join(missing, ", "))
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// substituteEnv expands every ${VAR} and ${VAR:-default} occurrence. A set
// variable wins over its default, even when set to the empty string. An
// unset variable without a default is left in place and reported in missing,
// deduplicated in first-seen order.
func substituteEnv(raw []byte) (out []byte, missing []string) {
	seen := make(map[string]bool)

	out = envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		groups := envPattern.FindSubmatch(match)
		name := string(groups[1])

		if value, ok := os.LookupEnv(name); ok {
			return []byte(value)
		}
		if groups[2] != nil {
			return []byte(strings.ReplaceAll(string(groups[2]), `\}`, "}"))
		}

		if !seen[name] {
			seen[name] = true
			missing = append(missing, name)
		}
		return match
	})
	return out, missing
}
