package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadFile reads a persisted override layer from a yaml/json/toml file. The
// returned map is fed into Resolve as the middle layer. A missing path is not
// an error when path is empty; a named file that cannot be read is.
func LoadFile(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	return canonicalize(v.AllSettings(), defaults()), nil
}

// canonicalize rewrites keys that viper lowercased back to the canonical
// camelCase names of the default layer. Without this, Merge would hold both
// "maxIterations" (default) and "maxiterations" (override) and the decoder's
// exact-tag match would pick the default, silently dropping the override.
func canonicalize(m, ref map[string]any) map[string]any {
	canon := make(map[string]string, len(ref))
	for k := range ref {
		canon[strings.ToLower(k)] = k
	}

	out := make(map[string]any, len(m))
	for k, v := range m {
		key := k
		if c, ok := canon[strings.ToLower(k)]; ok {
			key = c
		}
		switch val := v.(type) {
		case map[string]any:
			if refMap, ok := ref[key].(map[string]any); ok {
				out[key] = canonicalize(val, refMap)
				continue
			}
		case []any:
			if refSlice, ok := ref[key].([]any); ok && len(refSlice) > 0 {
				if refElem, ok := refSlice[0].(map[string]any); ok {
					out[key] = canonicalizeSlice(val, refElem)
					continue
				}
			}
		}
		out[key] = v
	}
	return out
}

func canonicalizeSlice(items []any, ref map[string]any) []any {
	out := make([]any, len(items))
	for i, item := range items {
		if m, ok := item.(map[string]any); ok {
			out[i] = canonicalize(m, ref)
			continue
		}
		out[i] = item
	}
	return out
}

// LoadEnv reads overrides from TASKMESH_* environment variables, mapping
// TASKMESH_ORCHESTRATION_MODE to orchestration.mode and so on. Only leaf keys
// known to the default layer are considered.
func LoadEnv() map[string]any {
	v := viper.New()
	v.SetEnvPrefix("taskmesh")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	out := map[string]any{}
	for key := range flatten("", defaults()) {
		if val := v.Get(key); val != nil {
			assign(out, strings.Split(key, "."), val)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func flatten(prefix string, m map[string]any) map[string]any {
	out := map[string]any{}
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = v
	}
	return out
}

func assign(m map[string]any, path []string, val any) {
	for _, p := range path[:len(path)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[path[len(path)-1]] = val
}
