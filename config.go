package nimble

import "gopkg.in/yaml.v3"

// SetConfigYAML parses a YAML document (typically shipped alongside a
// task's AST by the host) and stores it as the Map `get_config()`
// returns. yaml.v3 unmarshals into map[string]any/[]any/scalars directly,
// which convertYAMLValue folds into the same Value model as everything
// else.
func (t *Task) SetConfigYAML(data []byte) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return statusError(1, "parsing config yaml: %v", err)
	}
	v := convertYAMLValue(raw)
	m, ok := v.(*Map)
	if !ok {
		m = NewMap()
		m.Set("value", v)
	}
	t.mu.Lock()
	t.config = m
	t.mu.Unlock()
	return nil
}

func (t *Task) getConfig() (Value, error) {
	t.mu.Lock()
	cfg := t.config
	t.mu.Unlock()
	if cfg == nil {
		return NewMap(), nil
	}
	return cfg, nil
}

func convertYAMLValue(raw any) Value {
	switch v := raw.(type) {
	case nil:
		return None
	case bool:
		return NewBool(v)
	case int:
		return NewInt64(int64(v))
	case int64:
		return NewInt64(v)
	case float64:
		return NewDouble(v)
	case string:
		return NewUnicodeString(v)
	case []any:
		elems := make([]Value, len(v))
		for i, e := range v {
			elems[i] = convertYAMLValue(e)
		}
		return NewList(elems)
	case map[string]any:
		m := NewMap()
		for k, e := range v {
			m.Set(k, convertYAMLValue(e))
		}
		return m
	case map[any]any:
		m := NewMap()
		for k, e := range v {
			if ks, ok := k.(string); ok {
				m.Set(ks, convertYAMLValue(e))
			}
		}
		return m
	}
	return None
}
