package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Loader hydrates a Configuration following the defaults -> file ->
// environment precedence chain (§6 "the core consumes the already-parsed
// aggregate"; SPEC_FULL.md's Configuration loading section).
type Loader struct {
	envPrefix string
	files     []string
}

// NewLoader prepares a Configuration hydrator. envPrefix may be empty to
// skip the environment-variable overlay entirely.
func NewLoader(envPrefix string, files ...string) *Loader {
	return &Loader{envPrefix: envPrefix, files: files}
}

// Load assembles the effective Configuration, normalizing kebab-case YAML
// keys to the camelCase koanf tags used by Configuration's struct fields
// (§6 "Key naming convention in YAML is kebab-case; internal field names
// are lowerCamelCase... SHOULD accept both on ingress").
func (l *Loader) Load(ctx context.Context) (Configuration, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultsMap(), "."), nil); err != nil {
		return Configuration{}, fmt.Errorf("config: load defaults: %w", err)
	}

	for _, path := range l.files {
		if path == "" {
			continue
		}
		select {
		case <-ctx.Done():
			return Configuration{}, ctx.Err()
		default:
		}
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return Configuration{}, fmt.Errorf("config: file %s not found", path)
			}
			return Configuration{}, fmt.Errorf("config: stat %s: %w", path, err)
		}
		raw := koanf.New(".")
		if err := raw.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Configuration{}, fmt.Errorf("config: load file %s: %w", path, err)
		}
		normalized, _ := normalizeKeys(raw.Raw()).(map[string]any)
		if err := k.Load(confmap.Provider(normalized, "."), nil); err != nil {
			return Configuration{}, fmt.Errorf("config: merge file %s: %w", path, err)
		}
	}

	if l.envPrefix != "" {
		transform := func(s string) string {
			key := strings.TrimPrefix(s, l.envPrefix+"_")
			key = strings.ReplaceAll(key, "__", ".")
			return strings.ToLower(key)
		}
		if err := k.Load(env.Provider(l.envPrefix, ".", transform), nil); err != nil {
			return Configuration{}, fmt.Errorf("config: load env: %w", err)
		}
	}

	var cfg Configuration
	if err := k.Unmarshal("", &cfg); err != nil {
		return Configuration{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if cfg.DataSources == nil {
		cfg.DataSources = make(map[string]DataSourceConfig)
	}
	if err := cfg.Validate(); err != nil {
		return Configuration{}, err
	}
	return cfg, nil
}

// defaultsMap is the bare map koanf's confmap provider expects for the
// precedence chain's base layer: empty metadata fields and nothing else.
func defaultsMap() map[string]any {
	return map[string]any{
		"metadata": map[string]any{
			"name":        "",
			"version":     "",
			"description": "",
		},
	}
}

// normalizeKeys walks a raw parsed document and rewrites kebab-case map keys
// (at any depth, including nested dataset rows) to camelCase, so authors may
// write either `rule-groups` or `ruleGroups`, `stop-on-first-failure` or
// `stopOnFirstFailure`, and so on. Record field names that happen to contain
// hyphens (rare, and always reachable via `record['field-name']` in
// expressions regardless of this rewrite) are the one corner this blanket
// approach doesn't special-case; the convenience for schema keys outweighs
// that edge case.
func normalizeKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[camelize(k)] = normalizeKeys(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeKeys(item)
		}
		return out
	default:
		return v
	}
}

// camelize converts a kebab-case key to camelCase; a key with no hyphens is
// returned unchanged.
func camelize(key string) string {
	if !strings.Contains(key, "-") {
		return key
	}
	parts := strings.Split(key, "-")
	var sb strings.Builder
	sb.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		sb.WriteString(strings.ToUpper(p[:1]))
		sb.WriteString(p[1:])
	}
	return sb.String()
}
