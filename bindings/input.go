package bindings

import (
	"encoding/json"
	"fmt"
	"strings"
)

// KeyKind names a key on the wire.
type KeyKind string

const (
	KeyKindBackspace KeyKind = "backspace"
	KeyKindLeft      KeyKind = "left"
	KeyKindRight     KeyKind = "right"
	KeyKindUp        KeyKind = "up"
	KeyKindDown      KeyKind = "down"
	KeyKindHome      KeyKind = "home"
	KeyKindEnd       KeyKind = "end"
	KeyKindPageUp    KeyKind = "pageup"
	KeyKindPageDown  KeyKind = "pagedown"
	KeyKindBackTab   KeyKind = "backtab"
	KeyKindDelete    KeyKind = "delete"
	KeyKindInsert    KeyKind = "insert"
	KeyKindF         KeyKind = "f"
	KeyKindChar      KeyKind = "char"
	KeyKindNull      KeyKind = "null"
	KeyKindEsc       KeyKind = "esc"
)

var plainKeys = map[KeyKind]struct{}{
	KeyKindBackspace: {}, KeyKindLeft: {}, KeyKindRight: {}, KeyKindUp: {}, KeyKindDown: {},
	KeyKindHome: {}, KeyKindEnd: {}, KeyKindPageUp: {}, KeyKindPageDown: {}, KeyKindBackTab: {},
	KeyKindDelete: {}, KeyKindInsert: {}, KeyKindNull: {}, KeyKindEsc: {},
}

// KeyCode identifies a key. Char carries the character for KeyKindChar and
// F the function key number (1-12) for KeyKindF. KeyCode is comparable.
type KeyCode struct {
	Kind KeyKind
	Char rune
	F    uint8
}

var (
	KeyBackspace = KeyCode{Kind: KeyKindBackspace}
	KeyLeft      = KeyCode{Kind: KeyKindLeft}
	KeyRight     = KeyCode{Kind: KeyKindRight}
	KeyUp        = KeyCode{Kind: KeyKindUp}
	KeyDown      = KeyCode{Kind: KeyKindDown}
	KeyHome      = KeyCode{Kind: KeyKindHome}
	KeyEnd       = KeyCode{Kind: KeyKindEnd}
	KeyPageUp    = KeyCode{Kind: KeyKindPageUp}
	KeyPageDown  = KeyCode{Kind: KeyKindPageDown}
	KeyBackTab   = KeyCode{Kind: KeyKindBackTab}
	KeyDelete    = KeyCode{Kind: KeyKindDelete}
	KeyInsert    = KeyCode{Kind: KeyKindInsert}
	KeyNull      = KeyCode{Kind: KeyKindNull}
	KeyEsc       = KeyCode{Kind: KeyKindEsc}
)

// CharKey returns the key code for a printable character.
func CharKey(c rune) KeyCode {
	return KeyCode{Kind: KeyKindChar, Char: c}
}

// FKey returns the key code for function key n.
func FKey(n uint8) KeyCode {
	return KeyCode{Kind: KeyKindF, F: n}
}

// String renders the key for humans, e.g. "q", "F5", "esc".
func (k KeyCode) String() string {
	switch k.Kind {
	case KeyKindChar:
		return string(k.Char)
	case KeyKindF:
		return fmt.Sprintf("F%d", k.F)
	default:
		return string(k.Kind)
	}
}

// ParseKeyCode is the inverse of String for single characters, "F<n>" and the
// named keys.
func ParseKeyCode(s string) (KeyCode, error) {
	if r := []rune(s); len(r) == 1 {
		return CharKey(r[0]), nil
	}
	lower := strings.ToLower(strings.TrimSpace(s))
	if _, ok := plainKeys[KeyKind(lower)]; ok {
		return KeyCode{Kind: KeyKind(lower)}, nil
	}
	if rest, ok := strings.CutPrefix(lower, "f"); ok {
		var n uint8
		if _, err := fmt.Sscanf(rest, "%d", &n); err == nil {
			return FKey(n), nil
		}
	}
	return KeyCode{}, fmt.Errorf("parse key %q: unknown key", s)
}

// MarshalJSON implements json.Marshaler. Named keys encode as strings,
// characters as {"char":"q"} and function keys as {"f":5}.
func (k KeyCode) MarshalJSON() ([]byte, error) {
	switch k.Kind {
	case KeyKindChar:
		return json.Marshal(map[string]Char{string(KeyKindChar): Char(k.Char)})
	case KeyKindF:
		return json.Marshal(map[string]uint8{string(KeyKindF): k.F})
	}
	if _, ok := plainKeys[k.Kind]; !ok {
		return nil, &UnknownTagError{Union: "key code", Tag: string(k.Kind)}
	}
	return json.Marshal(string(k.Kind))
}

// UnmarshalJSON implements json.Unmarshaler.
func (k *KeyCode) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		if _, ok := plainKeys[KeyKind(name)]; !ok {
			return &UnknownTagError{Union: "key code", Tag: name}
		}
		*k = KeyCode{Kind: KeyKind(name)}
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("bindings: decode key code: %w", err)
	}
	if len(obj) != 1 {
		return fmt.Errorf("bindings: decode key code: expected one member, got %d", len(obj))
	}
	for tag, raw := range obj {
		switch KeyKind(tag) {
		case KeyKindChar:
			var c Char
			if err := json.Unmarshal(raw, &c); err != nil {
				return fmt.Errorf("bindings: decode key code %q: %w", tag, err)
			}
			*k = CharKey(rune(c))
		case KeyKindF:
			var n uint8
			if err := json.Unmarshal(raw, &n); err != nil {
				return fmt.Errorf("bindings: decode key code %q: %w", tag, err)
			}
			*k = FKey(n)
		default:
			return &UnknownTagError{Union: "key code", Tag: tag}
		}
	}
	return nil
}

// KeyModifier is the modifier held with a key press.
type KeyModifier string

const (
	ModAlt  KeyModifier = "alt"
	ModCtrl KeyModifier = "ctrl"
	ModNone KeyModifier = "none"
)

// UnmarshalJSON implements json.Unmarshaler.
func (m *KeyModifier) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("bindings: decode key modifier: %w", err)
	}
	switch mod := KeyModifier(raw); mod {
	case ModAlt, ModCtrl, ModNone:
		*m = mod
		return nil
	}
	return &UnknownTagError{Union: "key modifier", Tag: raw}
}

// MouseType is the kind of mouse action.
type MouseType string

const (
	MouseLeft      MouseType = "Left"
	MouseRight     MouseType = "Right"
	MouseMiddle    MouseType = "Middle"
	MouseWheelUp   MouseType = "WheelUp"
	MouseWheelDown MouseType = "WheelDown"
	MouseRelease   MouseType = "Release"
	// MouseHold is emitted while the mouse moves with the left button held.
	MouseHold MouseType = "Hold"
)

// UnmarshalJSON implements json.Unmarshaler.
func (t *MouseType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("bindings: decode mouse type: %w", err)
	}
	switch mt := MouseType(raw); mt {
	case MouseLeft, MouseRight, MouseMiddle, MouseWheelUp, MouseWheelDown, MouseRelease, MouseHold:
		*t = mt
		return nil
	}
	return &UnknownTagError{Union: "mouse type", Tag: raw}
}
