package config

import (
	"fmt"
	"sort"

	"github.com/google/shlex"
)

// Options is one hook's effective option record. Values keep the shape they
// had in the configuration file.
type Options map[string]any

// Has reports whether key is set (a null value counts as unset).
func (o Options) Has(key string) bool {
	v, ok := o[key]
	return ok && v != nil
}

// Bool returns a boolean option, false when absent or not a bool.
func (o Options) Bool(key string) bool {
	return o.BoolOr(key, false)
}

// BoolOr returns a boolean option or def.
func (o Options) BoolOr(key string, def bool) bool {
	if b, ok := o[key].(bool); ok {
		return b
	}
	return def
}

// String returns a string option, "" when absent.
func (o Options) String(key string) string {
	if s, ok := o[key].(string); ok {
		return s
	}
	return ""
}

// Int returns an integer option or def.
func (o Options) Int(key string, def int) int {
	switch v := o[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// StringList returns an option that may be a single string or a list.
func (o Options) StringList(key string) []string {
	switch v := o[key].(type) {
	case string:
		return []string{v}
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}

// Argv returns an option holding a command line. A string is split with
// shell quoting rules; a list is taken verbatim.
func (o Options) Argv(key string) ([]string, error) {
	if s, ok := o[key].(string); ok {
		argv, err := shlex.Split(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		return argv, nil
	}
	return o.StringList(key), nil
}

// Env splits the env option into variables to set and variables to remove
// (those configured with a null value).
func (o Options) Env() (set map[string]string, unset []string) {
	set = make(map[string]string)
	raw, _ := o["env"].(map[string]any)
	for k, v := range raw {
		if v == nil {
			unset = append(unset, k)
			continue
		}
		set[k] = fmt.Sprint(v)
	}
	sort.Strings(unset)
	return set, unset
}

// Clone returns a deep copy.
func (o Options) Clone() Options {
	return Options(deepCopyMap(o))
}
