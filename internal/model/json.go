package model

import (
	"database/sql/driver"
	"encoding/json"
)

// JSONMap stores structured model output as a JSON column.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*m = JSONMap{}
		return nil
	}
	return json.Unmarshal(bytes, m)
}

// Bool reads a boolean field, tolerating absent or differently typed values.
func (m JSONMap) Bool(key string) bool {
	v, ok := m[key].(bool)
	return ok && v
}

// String reads a string field, returning "" when absent.
func (m JSONMap) String(key string) string {
	v, _ := m[key].(string)
	return v
}

// Float reads a numeric field, returning 0 when absent.
func (m JSONMap) Float(key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	return 0
}
