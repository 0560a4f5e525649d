package bindings

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ColourKind names a colour variant on the wire.
type ColourKind string

const (
	ColourKindBlack        ColourKind = "black"
	ColourKindBlue         ColourKind = "blue"
	ColourKindCyan         ColourKind = "cyan"
	ColourKindGreen        ColourKind = "green"
	ColourKindMagenta      ColourKind = "magenta"
	ColourKindRed          ColourKind = "red"
	ColourKindWhite        ColourKind = "white"
	ColourKindYellow       ColourKind = "yellow"
	ColourKindLightBlack   ColourKind = "lightblack"
	ColourKindLightBlue    ColourKind = "lightblue"
	ColourKindLightCyan    ColourKind = "lightcyan"
	ColourKindLightGreen   ColourKind = "lightgreen"
	ColourKindLightMagenta ColourKind = "lightmagenta"
	ColourKindLightRed     ColourKind = "lightred"
	ColourKindLightWhite   ColourKind = "lightwhite"
	ColourKindLightYellow  ColourKind = "lightyellow"
	ColourKindReset        ColourKind = "reset"
	ColourKindAnsi         ColourKind = "ansi"
	ColourKindRgb          ColourKind = "rgb"
)

var namedColours = map[ColourKind]struct{}{
	ColourKindBlack: {}, ColourKindBlue: {}, ColourKindCyan: {}, ColourKindGreen: {},
	ColourKindMagenta: {}, ColourKindRed: {}, ColourKindWhite: {}, ColourKindYellow: {},
	ColourKindLightBlack: {}, ColourKindLightBlue: {}, ColourKindLightCyan: {}, ColourKindLightGreen: {},
	ColourKindLightMagenta: {}, ColourKindLightRed: {}, ColourKindLightWhite: {}, ColourKindLightYellow: {},
	ColourKindReset: {},
}

// Colour is a terminal colour: one of the named colours, an ANSI palette
// index, or a 24-bit RGB value. The zero value is invalid; use the package
// level values or Ansi/RGB.
type Colour struct {
	Kind  ColourKind
	Value uint8
	Red   uint8
	Green uint8
	Blue  uint8
}

var (
	Black        = Colour{Kind: ColourKindBlack}
	Blue         = Colour{Kind: ColourKindBlue}
	Cyan         = Colour{Kind: ColourKindCyan}
	Green        = Colour{Kind: ColourKindGreen}
	Magenta      = Colour{Kind: ColourKindMagenta}
	Red          = Colour{Kind: ColourKindRed}
	White        = Colour{Kind: ColourKindWhite}
	Yellow       = Colour{Kind: ColourKindYellow}
	LightBlack   = Colour{Kind: ColourKindLightBlack}
	LightBlue    = Colour{Kind: ColourKindLightBlue}
	LightCyan    = Colour{Kind: ColourKindLightCyan}
	LightGreen   = Colour{Kind: ColourKindLightGreen}
	LightMagenta = Colour{Kind: ColourKindLightMagenta}
	LightRed     = Colour{Kind: ColourKindLightRed}
	LightWhite   = Colour{Kind: ColourKindLightWhite}
	LightYellow  = Colour{Kind: ColourKindLightYellow}
	Reset        = Colour{Kind: ColourKindReset}
)

// Ansi returns a colour from the 256-colour ANSI palette.
func Ansi(value uint8) Colour {
	return Colour{Kind: ColourKindAnsi, Value: value}
}

// RGB returns a 24-bit colour.
func RGB(red, green, blue uint8) Colour {
	return Colour{Kind: ColourKindRgb, Red: red, Green: green, Blue: blue}
}

// ParseColour accepts a named colour, "ansi:N", or "#rrggbb".
func ParseColour(s string) (Colour, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, ok := namedColours[ColourKind(s)]; ok {
		return Colour{Kind: ColourKind(s)}, nil
	}
	if rest, ok := strings.CutPrefix(s, "ansi:"); ok {
		var v uint8
		if _, err := fmt.Sscanf(rest, "%d", &v); err != nil {
			return Colour{}, fmt.Errorf("parse colour %q: %w", s, err)
		}
		return Ansi(v), nil
	}
	if rest, ok := strings.CutPrefix(s, "#"); ok && len(rest) == 6 {
		var r, g, b uint8
		if _, err := fmt.Sscanf(rest, "%02x%02x%02x", &r, &g, &b); err != nil {
			return Colour{}, fmt.Errorf("parse colour %q: %w", s, err)
		}
		return RGB(r, g, b), nil
	}
	return Colour{}, fmt.Errorf("parse colour %q: unknown colour", s)
}

// MarshalJSON implements json.Marshaler.
func (c Colour) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case ColourKindAnsi:
		return marshalTagged(string(c.Kind), struct {
			Value uint8 `json:"value"`
		}{c.Value})
	case ColourKindRgb:
		return marshalTagged(string(c.Kind), struct {
			Red   uint8 `json:"red"`
			Green uint8 `json:"green"`
			Blue  uint8 `json:"blue"`
		}{c.Red, c.Green, c.Blue})
	}
	if _, ok := namedColours[c.Kind]; !ok {
		return nil, &UnknownTagError{Union: "colour", Tag: string(c.Kind)}
	}
	return marshalTagged(string(c.Kind), struct{}{})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Colour) UnmarshalJSON(data []byte) error {
	tag, err := readTag("colour", data)
	if err != nil {
		return err
	}
	kind := ColourKind(tag)
	switch kind {
	case ColourKindAnsi:
		var body struct {
			Value uint8 `json:"value"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return fmt.Errorf("bindings: decode colour %q: %w", tag, err)
		}
		*c = Ansi(body.Value)
		return nil
	case ColourKindRgb:
		var body struct {
			Red   uint8 `json:"red"`
			Green uint8 `json:"green"`
			Blue  uint8 `json:"blue"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return fmt.Errorf("bindings: decode colour %q: %w", tag, err)
		}
		*c = RGB(body.Red, body.Green, body.Blue)
		return nil
	}
	if _, ok := namedColours[kind]; !ok {
		return &UnknownTagError{Union: "colour", Tag: tag}
	}
	*c = Colour{Kind: kind}
	return nil
}

// CursorStyle controls how the terminal cursor is drawn.
type CursorStyle string

const (
	CursorBlinkingBar       CursorStyle = "blinking bar"
	CursorBlinkingBlock     CursorStyle = "blinking block"
	CursorBlinkingUnderline CursorStyle = "blinking underline"
	CursorSteadyBar         CursorStyle = "steady bar"
	CursorSteadyBlock       CursorStyle = "steady block"
	CursorSteadyUnderline   CursorStyle = "steady underline"
)

// Valid reports whether s is a known cursor style.
func (s CursorStyle) Valid() bool {
	switch s {
	case CursorBlinkingBar, CursorBlinkingBlock, CursorBlinkingUnderline,
		CursorSteadyBar, CursorSteadyBlock, CursorSteadyUnderline:
		return true
	}
	return false
}

// MarshalJSON implements json.Marshaler.
func (s CursorStyle) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, &UnknownTagError{Union: "cursor style", Tag: string(s)}
	}
	return json.Marshal(string(s))
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *CursorStyle) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("bindings: decode cursor style: %w", err)
	}
	style := CursorStyle(raw)
	if !style.Valid() {
		return &UnknownTagError{Union: "cursor style", Tag: raw}
	}
	*s = style
	return nil
}
