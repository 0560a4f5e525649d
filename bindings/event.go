package bindings

// Event variant tags.
const (
	TagKeyEvent       = "key"
	TagMouseEvent     = "mouse"
	TagResizeEvent    = "resize"
	TagMessageEvent   = "message"
	TagFocusedEvent   = "focused"
	TagUnfocusedEvent = "unfocused"
)

// EventVariant is the payload of an event pushed by the server.
type EventVariant interface {
	eventTag() string
}

// KeyEvent is a key press.
type KeyEvent struct {
	Code     KeyCode     `json:"code"`
	Modifier KeyModifier `json:"modifier"`
}

// MouseEvent is a mouse action at a screen cell.
type MouseEvent struct {
	X    uint32    `json:"x"`
	Y    uint32    `json:"y"`
	Type MouseType `json:"mousetype"`
}

// ResizeEvent reports new terminal dimensions; components should re-render.
type ResizeEvent struct {
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

// MessageEvent carries a message sent by another component.
type MessageEvent struct {
	Sender  Discriminator `json:"sender"`
	Target  Discriminator `json:"target"`
	Content string        `json:"content"`
}

// FocusedEvent is delivered when the component's space gains focus.
type FocusedEvent struct{}

// UnfocusedEvent is delivered when the component's space loses focus.
type UnfocusedEvent struct{}

func (KeyEvent) eventTag() string       { return TagKeyEvent }
func (MouseEvent) eventTag() string     { return TagMouseEvent }
func (ResizeEvent) eventTag() string    { return TagResizeEvent }
func (MessageEvent) eventTag() string   { return TagMessageEvent }
func (FocusedEvent) eventTag() string   { return TagFocusedEvent }
func (UnfocusedEvent) eventTag() string { return TagUnfocusedEvent }

func (e KeyEvent) MarshalJSON() ([]byte, error) {
	type plain KeyEvent
	return marshalTagged(TagKeyEvent, plain(e))
}

func (e MouseEvent) MarshalJSON() ([]byte, error) {
	type plain MouseEvent
	return marshalTagged(TagMouseEvent, plain(e))
}

func (e ResizeEvent) MarshalJSON() ([]byte, error) {
	type plain ResizeEvent
	return marshalTagged(TagResizeEvent, plain(e))
}

func (e MessageEvent) MarshalJSON() ([]byte, error) {
	type plain MessageEvent
	return marshalTagged(TagMessageEvent, plain(e))
}

func (FocusedEvent) MarshalJSON() ([]byte, error) {
	return marshalTagged(TagFocusedEvent, struct{}{})
}

func (UnfocusedEvent) MarshalJSON() ([]byte, error) {
	return marshalTagged(TagUnfocusedEvent, struct{}{})
}

// EventTag returns the wire tag of an event variant.
func EventTag(e EventVariant) string {
	if e == nil {
		return ""
	}
	return e.eventTag()
}

// DecodeEventVariant decodes a tagged event payload.
func DecodeEventVariant(data []byte) (EventVariant, error) {
	const union = "event"
	tag, err := readTag(union, data)
	if err != nil {
		return nil, err
	}
	switch tag {
	case TagKeyEvent:
		return decodeEvent[KeyEvent](union, tag, data)
	case TagMouseEvent:
		return decodeEvent[MouseEvent](union, tag, data)
	case TagResizeEvent:
		return decodeEvent[ResizeEvent](union, tag, data)
	case TagMessageEvent:
		return decodeEvent[MessageEvent](union, tag, data)
	case TagFocusedEvent:
		return FocusedEvent{}, nil
	case TagUnfocusedEvent:
		return UnfocusedEvent{}, nil
	}
	return nil, &UnknownTagError{Union: union, Tag: tag}
}

func decodeEvent[T EventVariant](union, tag string, data []byte) (EventVariant, error) {
	v, err := decodeVariant[T](union, tag, data)
	if err != nil {
		return nil, err
	}
	return v, nil
}
