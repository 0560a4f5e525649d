package bindings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// TagField is the discriminator key used by every tagged union on the wire.
const TagField = "type"

// UnknownTagError reports a tag that does not name any variant of the union.
type UnknownTagError struct {
	Union string
	Tag   string
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("bindings: unknown %s tag %q", e.Union, e.Tag)
}

// marshalTagged encodes v as a JSON object and prepends the "type" member.
// v must encode to an object.
func marshalTagged(tag string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("bindings: variant %q did not encode to an object", tag)
	}
	quoted, err := json.Marshal(tag)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(body) + len(quoted) + 10)
	buf.WriteString(`{"` + TagField + `":`)
	buf.Write(quoted)
	inner := bytes.TrimSpace(body[1 : len(body)-1])
	if len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// readTag extracts the "type" member of a JSON object.
func readTag(union string, data []byte) (string, error) {
	var head struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", fmt.Errorf("bindings: decode %s: %w", union, err)
	}
	if head.Type == nil {
		return "", fmt.Errorf("bindings: decode %s: missing %q field", union, TagField)
	}
	return *head.Type, nil
}

// decodeInto unmarshals the variant body. Unit variants pass a nil target.
func decodeInto(union, tag string, data []byte, target any) error {
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("bindings: decode %s %q: %w", union, tag, err)
	}
	return nil
}

// decodeVariant unmarshals a variant body into a fresh T. Variant types only
// customize marshalling, so the "type" member is ignored here.
func decodeVariant[T any](union, tag string, data []byte) (T, error) {
	var v T
	if err := decodeInto(union, tag, data, &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// Char is a single Unicode scalar value encoded as a one-character JSON string.
type Char rune

// MarshalJSON implements json.Marshaler.
func (c Char) MarshalJSON() ([]byte, error) {
	r := rune(c)
	if !utf8.ValidRune(r) {
		return nil, fmt.Errorf("bindings: invalid char %U", r)
	}
	return json.Marshal(string(r))
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Char) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || size != len(s) || (r == utf8.RuneError && size == 1) {
		return errors.New("bindings: char must be exactly one character")
	}
	*c = Char(r)
	return nil
}

// String returns the character as a string.
func (c Char) String() string { return string(rune(c)) }
