package jsonvalue

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Parse decodes raw JSON bytes into a Value.
func Parse(data []byte) (Value, error) {
	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Null(), err
	}
	return fromInterface(raw)
}

// Encode serializes v to compact JSON bytes.
func Encode(v Value) ([]byte, error) {
	return json.Marshal(v)
}

// MarshalJSON implements json.Marshaler so a Value can be embedded in
// ordinary Go structs that still go through encoding/json (the wire
// envelope, for instance).
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return json.Marshal(v.n)
	case KindString:
		return json.Marshal(v.s)
	case KindArray:
		buf := []byte{'['}
		for i, item := range v.arr {
			if i > 0 {
				buf = append(buf, ',')
			}
			enc, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, enc...)
		}
		return append(buf, ']'), nil
	case KindObject:
		buf := []byte{'{'}
		for i, k := range v.keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf = append(buf, key...)
			buf = append(buf, ':')
			enc, err := v.obj[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, enc...)
		}
		return append(buf, '}'), nil
	default:
		return nil, fmt.Errorf("jsonvalue: unknown kind %d", v.kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func fromInterface(raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Null(), err
		}
		return Number(f), nil
	case float64:
		return Number(t), nil
	case string:
		return String(t), nil
	case []interface{}:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := fromInterface(item)
			if err != nil {
				return Null(), err
			}
			items[i] = v
		}
		return Array(items...), nil
	case map[string]interface{}:
		v := Value{kind: KindObject, obj: map[string]Value{}}
		// json.Decoder with UseNumber still gives us a map without key
		// order; re-decoding via a token stream would preserve it, but
		// the wire formats this core parses (DAP bodies) do not depend
		// on object key order for meaning, only array order.
		for k, item := range t {
			val, err := fromInterface(item)
			if err != nil {
				return Null(), err
			}
			v.Set(k, val)
		}
		return v, nil
	default:
		return Null(), fmt.Errorf("jsonvalue: unsupported type %T", t)
	}
}

// Path looks up a value by a gjson path expression (e.g.
// "capabilities.supportsStepBack" or "breakpoints.0.line"), the same
// dotted-path convention gjson uses elsewhere in the retrieval pack.
// Returns Null(), false if the path does not resolve.
func (v Value) Path(path string) (Value, bool) {
	data, err := Encode(v)
	if err != nil {
		return Null(), false
	}
	result := gjson.GetBytes(data, path)
	if !result.Exists() {
		return Null(), false
	}
	parsed, err := Parse([]byte(result.Raw))
	if err != nil {
		return Null(), false
	}
	return parsed, true
}

// WithPath returns a copy of v with path set to val, using sjson's
// path-setting semantics (creating intermediate objects/arrays as
// needed). Used when a component needs to patch one nested field of a
// larger body without reconstructing the whole Value by hand.
func (v Value) WithPath(path string, val Value) (Value, error) {
	data, err := Encode(v)
	if err != nil {
		return Null(), err
	}
	valBytes, err := Encode(val)
	if err != nil {
		return Null(), err
	}
	patched, err := sjson.SetRawBytes(data, path, valBytes)
	if err != nil {
		return Null(), err
	}
	return Parse(patched)
}
