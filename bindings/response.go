package bindings

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Response content tags.
const (
	TagUndelivered = "undelivered"
	TagEvent       = "event"
	TagError       = "error"
	TagSuccess     = "success"
)

// Success tags.
const (
	TagSubscribeAdded   = "subscribe added"
	TagListenerSet      = "listener set"
	TagDropped          = "dropped"
	TagRendered         = "rendered"
	TagSpawned          = "spawned"
	TagMessageDelivered = "message delivered"
	TagSpaceCreated     = "space created"
	TagFocusChanged     = "focus changed"
)

// Error tags.
const (
	TagComponentNotFound = "component not found"
	TagSpawnFailed       = "spawn failed"
)

// Response is a message pushed by the server to the listener socket.
// Request is set when the response answers a request; events leave it nil
// and use ID as the event id to confirm.
type Response struct {
	Content ResponseContent
	ID      uint32
	Request *uint32
}

// MarshalJSON implements json.Marshaler.
func (r Response) MarshalJSON() ([]byte, error) {
	if r.Content == nil {
		return nil, errors.New("bindings: response without content")
	}
	return json.Marshal(struct {
		Content ResponseContent `json:"content"`
		ID      uint32          `json:"id"`
		Request *uint32         `json:"request"`
	}{r.Content, r.ID, r.Request})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Response) UnmarshalJSON(data []byte) error {
	var raw struct {
		Content json.RawMessage `json:"content"`
		ID      *uint32         `json:"id"`
		Request *uint32         `json:"request"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("bindings: decode response: %w", err)
	}
	if raw.ID == nil {
		return errors.New("bindings: decode response: missing id")
	}
	if len(raw.Content) == 0 {
		return errors.New("bindings: decode response: missing content")
	}
	content, err := DecodeResponseContent(raw.Content)
	if err != nil {
		return err
	}
	*r = Response{Content: content, ID: *raw.ID, Request: raw.Request}
	return nil
}

// DecodeResponse decodes one listener message.
func DecodeResponse(data []byte) (Response, error) {
	var r Response
	if err := json.Unmarshal(data, &r); err != nil {
		return Response{}, err
	}
	return r, nil
}

// ResponseContent is the payload of a response.
type ResponseContent interface {
	responseTag() string
}

type (
	// Undelivered means the target component did not exist or could not be
	// reached.
	Undelivered struct{}
	// EventContent carries an event for a subscription.
	EventContent struct {
		Content EventVariant
	}
	// ErrorContent reports a failed request.
	ErrorContent struct {
		Content ResponseError
	}
	// SuccessContent reports a completed request.
	SuccessContent struct {
		Content ResponseSuccess
	}
)

func (Undelivered) responseTag() string    { return TagUndelivered }
func (EventContent) responseTag() string   { return TagEvent }
func (ErrorContent) responseTag() string   { return TagError }
func (SuccessContent) responseTag() string { return TagSuccess }

func (Undelivered) MarshalJSON() ([]byte, error) {
	return marshalTagged(TagUndelivered, struct{}{})
}

func (c EventContent) MarshalJSON() ([]byte, error) {
	if c.Content == nil {
		return nil, errors.New("bindings: event response without content")
	}
	return marshalTagged(TagEvent, struct {
		Content EventVariant `json:"content"`
	}{c.Content})
}

func (c ErrorContent) MarshalJSON() ([]byte, error) {
	if c.Content == nil {
		return nil, errors.New("bindings: error response without content")
	}
	return marshalTagged(TagError, struct {
		Content ResponseError `json:"content"`
	}{c.Content})
}

func (c SuccessContent) MarshalJSON() ([]byte, error) {
	if c.Content == nil {
		return nil, errors.New("bindings: success response without content")
	}
	return marshalTagged(TagSuccess, struct {
		Content ResponseSuccess `json:"content"`
	}{c.Content})
}

// ResponseTag returns the wire tag of a response content.
func ResponseTag(c ResponseContent) string {
	if c == nil {
		return ""
	}
	return c.responseTag()
}

// DecodeResponseContent decodes a tagged response payload.
func DecodeResponseContent(data []byte) (ResponseContent, error) {
	const union = "response content"
	tag, err := readTag(union, data)
	if err != nil {
		return nil, err
	}
	if tag == TagUndelivered {
		return Undelivered{}, nil
	}
	var body struct {
		Content json.RawMessage `json:"content"`
	}
	switch tag {
	case TagEvent, TagError, TagSuccess:
		if err := decodeInto(union, tag, data, &body); err != nil {
			return nil, err
		}
		if len(body.Content) == 0 {
			return nil, fmt.Errorf("bindings: decode %s %q: missing content", union, tag)
		}
	default:
		return nil, &UnknownTagError{Union: union, Tag: tag}
	}

	switch tag {
	case TagEvent:
		ev, err := DecodeEventVariant(body.Content)
		if err != nil {
			return nil, err
		}
		return EventContent{Content: ev}, nil
	case TagError:
		re, err := DecodeResponseError(body.Content)
		if err != nil {
			return nil, err
		}
		return ErrorContent{Content: re}, nil
	default:
		rs, err := DecodeResponseSuccess(body.Content)
		if err != nil {
			return nil, err
		}
		return SuccessContent{Content: rs}, nil
	}
}

// ResponseSuccess is the payload of a success response.
type ResponseSuccess interface {
	successTag() string
}

type (
	SubscribeAdded   struct{}
	ListenerSet      struct{}
	Dropped          struct{}
	Rendered         struct{}
	MessageDelivered struct{}
	FocusChanged     struct{}
	// Spawned carries the discriminator of the new process component.
	Spawned struct {
		Discrim Discriminator `json:"discrim"`
	}
	// SpaceCreated carries the discriminator of the new space.
	SpaceCreated struct {
		Discrim Discriminator `json:"discrim"`
	}
)

func (SubscribeAdded) successTag() string   { return TagSubscribeAdded }
func (ListenerSet) successTag() string      { return TagListenerSet }
func (Dropped) successTag() string          { return TagDropped }
func (Rendered) successTag() string         { return TagRendered }
func (Spawned) successTag() string          { return TagSpawned }
func (MessageDelivered) successTag() string { return TagMessageDelivered }
func (SpaceCreated) successTag() string     { return TagSpaceCreated }
func (FocusChanged) successTag() string     { return TagFocusChanged }

func (SubscribeAdded) MarshalJSON() ([]byte, error) {
	return marshalTagged(TagSubscribeAdded, struct{}{})
}

func (ListenerSet) MarshalJSON() ([]byte, error) {
	return marshalTagged(TagListenerSet, struct{}{})
}

func (Dropped) MarshalJSON() ([]byte, error) {
	return marshalTagged(TagDropped, struct{}{})
}

func (Rendered) MarshalJSON() ([]byte, error) {
	return marshalTagged(TagRendered, struct{}{})
}

func (s Spawned) MarshalJSON() ([]byte, error) {
	type plain Spawned
	return marshalTagged(TagSpawned, plain(s))
}

func (MessageDelivered) MarshalJSON() ([]byte, error) {
	return marshalTagged(TagMessageDelivered, struct{}{})
}

func (s SpaceCreated) MarshalJSON() ([]byte, error) {
	type plain SpaceCreated
	return marshalTagged(TagSpaceCreated, plain(s))
}

func (FocusChanged) MarshalJSON() ([]byte, error) {
	return marshalTagged(TagFocusChanged, struct{}{})
}

// SuccessTag returns the wire tag of a success payload.
func SuccessTag(s ResponseSuccess) string {
	if s == nil {
		return ""
	}
	return s.successTag()
}

// DecodeResponseSuccess decodes a tagged success payload.
func DecodeResponseSuccess(data []byte) (ResponseSuccess, error) {
	const union = "response success"
	tag, err := readTag(union, data)
	if err != nil {
		return nil, err
	}
	switch tag {
	case TagSubscribeAdded:
		return SubscribeAdded{}, nil
	case TagListenerSet:
		return ListenerSet{}, nil
	case TagDropped:
		return Dropped{}, nil
	case TagRendered:
		return Rendered{}, nil
	case TagSpawned:
		return decodeSuccess[Spawned](union, tag, data)
	case TagMessageDelivered:
		return MessageDelivered{}, nil
	case TagSpaceCreated:
		return decodeSuccess[SpaceCreated](union, tag, data)
	case TagFocusChanged:
		return FocusChanged{}, nil
	}
	return nil, &UnknownTagError{Union: union, Tag: tag}
}

func decodeSuccess[T ResponseSuccess](union, tag string, data []byte) (ResponseSuccess, error) {
	v, err := decodeVariant[T](union, tag, data)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ResponseError is the payload of an error response. Every variant is also a
// Go error.
type ResponseError interface {
	error
	errorTag() string
}

type (
	// ComponentNotFound means the request target does not exist.
	ComponentNotFound struct{}
	// SpawnFailed means the server could not start the requested process.
	SpawnFailed struct{}
)

func (ComponentNotFound) errorTag() string { return TagComponentNotFound }
func (SpawnFailed) errorTag() string       { return TagSpawnFailed }

func (ComponentNotFound) Error() string { return "component not found" }
func (SpawnFailed) Error() string       { return "spawn failed" }

func (ComponentNotFound) MarshalJSON() ([]byte, error) {
	return marshalTagged(TagComponentNotFound, struct{}{})
}

func (SpawnFailed) MarshalJSON() ([]byte, error) {
	return marshalTagged(TagSpawnFailed, struct{}{})
}

// ErrorTag returns the wire tag of an error payload.
func ErrorTag(e ResponseError) string {
	if e == nil {
		return ""
	}
	return e.errorTag()
}

// DecodeResponseError decodes a tagged error payload.
func DecodeResponseError(data []byte) (ResponseError, error) {
	const union = "response error"
	tag, err := readTag(union, data)
	if err != nil {
		return nil, err
	}
	switch tag {
	case TagComponentNotFound:
		return ComponentNotFound{}, nil
	case TagSpawnFailed:
		return SpawnFailed{}, nil
	}
	return nil, &UnknownTagError{Union: union, Tag: tag}
}
