package bindings

import "encoding/json"

// Render operation tags.
const (
	TagSetChar         = "set char"
	TagSetColouredChar = "set colouredchar"
	TagFlush           = "flush"
	TagSetCursorStyle  = "set cursorstyle"
	TagHideCursor      = "hide cursor"
	TagShowCursor      = "show cursor"
	TagRenderMultiple  = "render multiple"
)

// RenderRequest is a draw primitive applied by the server.
type RenderRequest interface {
	renderTag() string
}

type (
	// SetChar writes one character at a cell.
	SetChar struct {
		X uint32 `json:"x"`
		Y uint32 `json:"y"`
		C Char   `json:"c"`
	}
	// SetColouredChar writes one character with foreground and background colours.
	SetColouredChar struct {
		X  uint32 `json:"x"`
		Y  uint32 `json:"y"`
		C  Char   `json:"c"`
		Fg Colour `json:"fg"`
		Bg Colour `json:"bg"`
	}
	// Flush asks the terminal to flush pending changes. Rarely needed.
	Flush struct{}
	// SetCursorStyle changes the cursor shape.
	SetCursorStyle struct {
		Style CursorStyle `json:"style"`
	}
	// HideCursor hides the cursor.
	HideCursor struct{}
	// ShowCursor shows the cursor.
	ShowCursor struct{}
	// RenderMultiple applies its tasks atomically and in order.
	RenderMultiple struct {
		Tasks []RenderRequest
	}
)

func (SetChar) renderTag() string         { return TagSetChar }
func (SetColouredChar) renderTag() string { return TagSetColouredChar }
func (Flush) renderTag() string           { return TagFlush }
func (SetCursorStyle) renderTag() string  { return TagSetCursorStyle }
func (HideCursor) renderTag() string      { return TagHideCursor }
func (ShowCursor) renderTag() string      { return TagShowCursor }
func (RenderMultiple) renderTag() string  { return TagRenderMultiple }

func (r SetChar) MarshalJSON() ([]byte, error) {
	type plain SetChar
	return marshalTagged(TagSetChar, plain(r))
}

func (r SetColouredChar) MarshalJSON() ([]byte, error) {
	type plain SetColouredChar
	return marshalTagged(TagSetColouredChar, plain(r))
}

func (Flush) MarshalJSON() ([]byte, error) {
	return marshalTagged(TagFlush, struct{}{})
}

func (r SetCursorStyle) MarshalJSON() ([]byte, error) {
	type plain SetCursorStyle
	return marshalTagged(TagSetCursorStyle, plain(r))
}

func (HideCursor) MarshalJSON() ([]byte, error) {
	return marshalTagged(TagHideCursor, struct{}{})
}

func (ShowCursor) MarshalJSON() ([]byte, error) {
	return marshalTagged(TagShowCursor, struct{}{})
}

func (r RenderMultiple) MarshalJSON() ([]byte, error) {
	tasks := r.Tasks
	if tasks == nil {
		tasks = []RenderRequest{}
	}
	return marshalTagged(TagRenderMultiple, struct {
		Tasks []RenderRequest `json:"tasks"`
	}{tasks})
}

// RenderTag returns the wire tag of a render request.
func RenderTag(r RenderRequest) string {
	if r == nil {
		return ""
	}
	return r.renderTag()
}

// DecodeRenderRequest decodes a tagged render request.
func DecodeRenderRequest(data []byte) (RenderRequest, error) {
	const union = "render request"
	tag, err := readTag(union, data)
	if err != nil {
		return nil, err
	}
	switch tag {
	case TagSetChar:
		return decodeRender[SetChar](union, tag, data)
	case TagSetColouredChar:
		return decodeRender[SetColouredChar](union, tag, data)
	case TagFlush:
		return Flush{}, nil
	case TagSetCursorStyle:
		return decodeRender[SetCursorStyle](union, tag, data)
	case TagHideCursor:
		return HideCursor{}, nil
	case TagShowCursor:
		return ShowCursor{}, nil
	case TagRenderMultiple:
		var body struct {
			Tasks []json.RawMessage `json:"tasks"`
		}
		if err := decodeInto(union, tag, data, &body); err != nil {
			return nil, err
		}
		tasks := make([]RenderRequest, 0, len(body.Tasks))
		for _, raw := range body.Tasks {
			task, err := DecodeRenderRequest(raw)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, task)
		}
		return RenderMultiple{Tasks: tasks}, nil
	}
	return nil, &UnknownTagError{Union: union, Tag: tag}
}

func decodeRender[T RenderRequest](union, tag string, data []byte) (RenderRequest, error) {
	v, err := decodeVariant[T](union, tag, data)
	if err != nil {
		return nil, err
	}
	return v, nil
}
