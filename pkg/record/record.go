// Package record holds the key/value records produced by the parsers and the
// whitelist-ordered form that is written into snapshots.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Lookup is anything a whitelist can be applied to.
type Lookup interface {
	Lookup(key string) (any, bool)
}

// Record maps a normalized key to its value. A nil value means null.
type Record map[string]any

// Lookup implements Lookup.
func (r Record) Lookup(key string) (any, bool) {
	v, ok := r[key]
	return v, ok
}

// String returns the value for key if it is a non-empty string.
func (r Record) String(key string) (string, bool) {
	s, ok := r[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Field is a single key/value pair of an Ordered record.
type Field struct {
	Key   string
	Value any
}

// Ordered is a record whose JSON form keeps the field order.
// A nil Ordered encodes as null.
type Ordered []Field

// Lookup implements Lookup.
func (o Ordered) Lookup(key string) (any, bool) {
	for _, f := range o {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Keys returns the field keys in order.
func (o Ordered) Keys() []string {
	keys := make([]string, len(o))
	for i, f := range o {
		keys[i] = f.Key
	}
	return keys
}

// Filter keeps only whitelisted keys, in whitelist order. Keys missing from src
// are skipped, never padded with null.
func Filter(src Lookup, whitelist []string) Ordered {
	out := make(Ordered, 0, len(whitelist))
	if src == nil {
		return out
	}
	seen := make(map[string]bool, len(whitelist))
	for _, key := range whitelist {
		if seen[key] {
			continue
		}
		seen[key] = true
		if v, ok := src.Lookup(key); ok {
			out = append(out, Field{Key: key, Value: v})
		}
	}
	return out
}

// MarshalJSON writes the fields as a JSON object in order, leaving <, > and &
// unescaped. json.Marshal re-escapes them; encode through a json.Encoder with
// SetEscapeHTML(false) to keep them literal.
func (o Ordered) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := marshalNoEscape(f.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal field %q: %w", f.Key, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping its key order. Numbers are kept
// as json.Number.
func (o *Ordered) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*o = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: expected object, got %v", tok)
	}

	out := Ordered{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record: expected key, got %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("record: field %q: %w", key, err)
		}
		out = append(out, Field{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*o = out
	return nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
