package pack

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// field is one member of an ordered JSON object.
type field struct {
	key   string
	value any
}

// object is a JSON object whose members are emitted in declaration order.
type object []field

// compact drops members holding null, "", empty arrays, empty objects or false.
// true and every number, zero included, are kept.
func compact(members ...field) object {
	out := make(object, 0, len(members))
	for _, m := range members {
		if isBlank(m.value) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	case object:
		return len(x) == 0
	case json.RawMessage:
		return len(bytes.TrimSpace(x)) == 0
	default:
		return false
	}
}

// encode renders o as single-line JSON without HTML escaping.
func (o object) encode() (string, error) {
	var buf bytes.Buffer
	if err := o.write(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (o object) write(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeScalar(buf, m.key); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeValue(buf, m.value); err != nil {
			return fmt.Errorf("field %q: %w", m.key, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeValue(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case object:
		return x.write(buf)
	case json.RawMessage:
		return json.Compact(buf, x)
	default:
		return writeScalar(buf, v)
	}
}

// writeScalar marshals v with the standard encoder, minus HTML escaping and
// the trailing newline. Nested maps come out with sorted keys.
func writeScalar(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}
