package config

// SmartMerge layers child over parent and returns a new tree; neither input
// is modified.
//
// A child ALL entry is first merged onto every map-valued key of parent, so a
// repository-wide default overrides per-hook defaults inherited from parent.
// Child keys are then merged in: maps merge recursively, anything else
// (scalars and lists alike) replaces the parent value. A null child value
// leaves a parent map untouched.
func SmartMerge(parent, child map[string]any) map[string]any {
	out := deepCopyMap(parent)
	if out == nil {
		out = make(map[string]any)
	}

	if childAll, ok := asMap(child["ALL"]); ok {
		for k, v := range out {
			if m, ok := asMap(v); ok {
				out[k] = SmartMerge(m, childAll)
			}
		}
	}

	for k, newVal := range child {
		oldMap, oldIsMap := asMap(out[k])
		if !oldIsMap {
			out[k] = deepCopyValue(newVal)
			continue
		}
		if newVal == nil {
			continue
		}
		if newMap, ok := asMap(newVal); ok {
			out[k] = SmartMerge(oldMap, newMap)
			continue
		}
		out[k] = deepCopyValue(newVal)
	}
	return out
}

// asMap accepts the map shapes YAML and TOML decoders produce.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Options:
		return map[string]any(m), true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			if ks, ok := k.(string); ok {
				out[ks] = val
			}
		}
		return out, true
	}
	return nil, false
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	if m, ok := asMap(v); ok {
		return deepCopyMap(m)
	}
	switch s := v.(type) {
	case []any:
		out := make([]any, len(s))
		for i, item := range s {
			out[i] = deepCopyValue(item)
		}
		return out
	case []string:
		return append([]string(nil), s...)
	}
	return v
}
