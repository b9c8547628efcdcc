// Package reconcile implements the settings reconciliation engine used by the
// admin default-settings editor: flattening nested configuration into dotted
// paths, splitting paths into UI-visible and advanced groups, diffing a
// current configuration against the defaults, tallying risk counts, and
// validating cross-field invariants before a save.
package reconcile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Leaf is one flattened setting: a dotted path and its terminal value.
// Arrays are leaves (never recursed into); nested objects are not leaves.
type Leaf struct {
	Path  string      `json:"path"`
	Value interface{} `json:"value"`
}

// Object is an order-preserving JSON object. encoding/json maps lose key
// order, but diff equality here is serialization-based and order-sensitive,
// so nested objects are kept in document order all the way through.
type Object struct {
	Keys   []string
	Values map[string]interface{}
}

// Get returns the value for a key and whether it exists.
func (o *Object) Get(key string) (interface{}, bool) {
	v, ok := o.Values[key]
	return v, ok
}

// MarshalJSON serializes the object with its original key order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := marshalValue(o.Values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Flatten converts raw JSON into an ordered list of (dotted path, leaf value)
// pairs. Key order follows the document; traversal is depth-first. Nulls are
// emitted as leaves with a nil value. Malformed or non-object input yields an
// empty list, not an error - flattening is total.
func Flatten(raw []byte) []Leaf {
	root, err := parseOrdered(raw)
	if err != nil {
		return []Leaf{}
	}
	obj, ok := root.(*Object)
	if !ok {
		return []Leaf{}
	}
	leaves := []Leaf{}
	flattenObject("", obj, &leaves)
	return leaves
}

// FlattenValue flattens an arbitrary Go value by serializing it to JSON
// first. Struct field order drives path order, matching how typed default
// sections are compared in the admin handlers.
func FlattenValue(v interface{}) []Leaf {
	raw, err := json.Marshal(v)
	if err != nil {
		return []Leaf{}
	}
	return Flatten(raw)
}

func flattenObject(prefix string, obj *Object, out *[]Leaf) {
	for _, key := range obj.Keys {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		child := obj.Values[key]
		if nested, ok := child.(*Object); ok {
			flattenObject(path, nested, out)
			continue
		}
		*out = append(*out, Leaf{Path: path, Value: child})
	}
}

// parseOrdered decodes raw JSON into *Object / []interface{} / scalar values,
// preserving object key order via the token stream. Numbers come back as
// json.Number so serialization can normalize them without float drift.
func parseOrdered(raw []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	v, err := parseValue(dec)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func parseValue(dec *json.Decoder) (interface{}, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return parseObject(dec)
		case '[':
			return parseArray(dec)
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	default:
		// string, json.Number, bool, or nil
		return tok, nil
	}
}

func parseObject(dec *json.Decoder) (*Object, error) {
	obj := &Object{Values: make(map[string]interface{})}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is not a string: %v", keyTok)
		}
		val, err := parseValue(dec)
		if err != nil {
			return nil, err
		}
		if _, exists := obj.Values[key]; !exists {
			obj.Keys = append(obj.Keys, key)
		}
		obj.Values[key] = val
	}
	// consume closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

func parseArray(dec *json.Decoder) ([]interface{}, error) {
	arr := []interface{}{}
	for dec.More() {
		val, err := parseValue(dec)
		if err != nil {
			return nil, err
		}
		arr = append(arr, val)
	}
	// consume closing ']'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return arr, nil
}

// CanonicalSerialize renders a leaf value as a canonical string for equality
// checks. Object keys and array elements keep their existing order (the
// reference behavior is an order-sensitive string comparison); numbers are
// normalized so 5 and 5.0 compare equal without epsilon tolerance.
func CanonicalSerialize(v interface{}) string {
	b, err := marshalValue(v)
	if err != nil {
		return fmt.Sprintf("!unserializable:%v", v)
	}
	return string(b)
}

func marshalValue(v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return []byte("null"), nil
	case *Object:
		return t.MarshalJSON()
	case []interface{}:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, el := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := marshalValue(el)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case json.Number:
		return []byte(normalizeNumber(t.String())), nil
	case float64:
		return []byte(strconv.FormatFloat(t, 'g', -1, 64)), nil
	case float32:
		return []byte(strconv.FormatFloat(float64(t), 'g', -1, 64)), nil
	case int:
		return []byte(strconv.Itoa(t)), nil
	case int64:
		return []byte(strconv.FormatInt(t, 10)), nil
	default:
		return json.Marshal(v)
	}
}

// normalizeNumber collapses representations like "5.0" and "5" so numeric
// equality is exact rather than textual.
func normalizeNumber(s string) string {
	if !strings.ContainsAny(s, ".eE") {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// NumberValue coerces a leaf value to float64. Missing or non-numeric values
// coerce to 0, matching the validator contract.
func NumberValue(v interface{}) float64 {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return f
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
