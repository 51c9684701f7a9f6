// Package jsonvalue provides an opaque JSON-value tagged sum used to carry
// cache entries and provider payloads through the pipeline without forcing
// the orchestrator to know any provider's concrete response shape.
package jsonvalue

import "encoding/json"

// Value wraps an arbitrary JSON-decoded value (object, array, string, number,
// bool, or null). It round-trips through encoding/json without loss; callers
// that need a concrete shape type-assert on Raw after decoding.
type Value struct {
	Raw interface{}
}

// Of wraps an already-decoded Go value (as produced by json.Unmarshal into
// interface{}) as a Value.
func Of(raw interface{}) Value {
	return Value{Raw: raw}
}

// Parse decodes a JSON byte slice into a Value.
func Parse(data []byte) (Value, error) {
	var raw interface{}
	if len(data) == 0 {
		return Value{}, nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Value{}, err
	}
	return Value{Raw: raw}, nil
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Raw == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v.Raw)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v.Raw = raw
	return nil
}

// Object returns Raw as a map, if it is one.
func (v Value) Object() (map[string]interface{}, bool) {
	m, ok := v.Raw.(map[string]interface{})
	return m, ok
}

// Array returns Raw as a slice, if it is one.
func (v Value) Array() (arr []interface{}, ok bool) {
	arr, ok = v.Raw.([]interface{})
	return arr, ok
}

// IsNull reports whether the value decoded to JSON null (or was never set).
func (v Value) IsNull() bool {
	return v.Raw == nil
}
