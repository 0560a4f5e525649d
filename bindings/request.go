package bindings

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Request content tags.
const (
	TagConfirmReceive = "confirm recieve"
	TagSubscribe      = "subscribe"
	TagUnsubscribe    = "unsubscribe"
	TagSetSocket      = "set socket"
	TagDrop           = "drop"
	TagRender         = "render"
	TagSpawn          = "spawn"
	TagMessage        = "message"
	TagNewSpace       = "new space"
	TagFocusAt        = "focus at"
)

// Request is a message sent to the server. It is built once per logical
// operation and never modified afterwards.
type Request struct {
	target  Discriminator
	content RequestContent
	id      uint32
}

// NewRequest builds a request. The id must come from an allocator shared by
// every client in the process.
func NewRequest(target Discriminator, content RequestContent, id uint32) Request {
	return Request{target: target, content: content, id: id}
}

// Target returns the component the request is addressed to.
func (r Request) Target() Discriminator { return r.target }

// Content returns the request payload.
func (r Request) Content() RequestContent { return r.content }

// ID returns the request id echoed back in the matching response.
func (r Request) ID() uint32 { return r.id }

// MarshalJSON implements json.Marshaler.
func (r Request) MarshalJSON() ([]byte, error) {
	if r.content == nil {
		return nil, errors.New("bindings: request without content")
	}
	return json.Marshal(struct {
		Target  Discriminator  `json:"target"`
		Content RequestContent `json:"content"`
		ID      uint32         `json:"id"`
	}{r.target, r.content, r.id})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Request) UnmarshalJSON(data []byte) error {
	var raw struct {
		Target  Discriminator   `json:"target"`
		Content json.RawMessage `json:"content"`
		ID      *uint32         `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("bindings: decode request: %w", err)
	}
	if raw.ID == nil {
		return errors.New("bindings: decode request: missing id")
	}
	content, err := DecodeRequestContent(raw.Content)
	if err != nil {
		return err
	}
	*r = Request{target: raw.Target, content: content, id: *raw.ID}
	return nil
}

// RequestContent is the payload of a request.
type RequestContent interface {
	requestTag() string
}

type (
	// ConfirmReceive releases an event. Pass=false captures the event so lower
	// priority subscribers never see it.
	ConfirmReceive struct {
		ID   uint32 `json:"id"`
		Pass bool   `json:"pass"`
	}
	// Subscribe adds a subscription, optionally with a priority and on behalf
	// of another component.
	Subscribe struct {
		Channel   Subscription
		Priority  *uint32
		Component *Discriminator
	}
	// Unsubscribe removes a subscription.
	Unsubscribe struct {
		Channel   Subscription
		Component *Discriminator
	}
	// SetSocket tells the server where to deliver responses and events.
	SetSocket struct {
		Path string `json:"path"`
	}
	// Drop removes a component. A nil Discrim drops the sender itself.
	Drop struct {
		Discrim *Discriminator `json:"discrim"`
	}
	// Render draws to the terminal.
	Render struct {
		Content RenderRequest
		Flush   bool
	}
	// Spawn starts a new process as a child of the request target.
	Spawn struct {
		Command string   `json:"command"`
		Args    []string `json:"args"`
		Label   string   `json:"label"`
	}
	// Message sends content to another component. A space target fans out to
	// every component under it.
	Message struct {
		Content string        `json:"content"`
		Sender  Discriminator `json:"sender"`
		Target  Discriminator `json:"target"`
	}
	// NewSpace creates a space under the request target.
	NewSpace struct {
		Label string `json:"label"`
	}
	// FocusAt focuses the space named by the request target.
	FocusAt struct{}
)

func (ConfirmReceive) requestTag() string { return TagConfirmReceive }
func (Subscribe) requestTag() string      { return TagSubscribe }
func (Unsubscribe) requestTag() string    { return TagUnsubscribe }
func (SetSocket) requestTag() string      { return TagSetSocket }
func (Drop) requestTag() string           { return TagDrop }
func (Render) requestTag() string         { return TagRender }
func (Spawn) requestTag() string          { return TagSpawn }
func (Message) requestTag() string        { return TagMessage }
func (NewSpace) requestTag() string       { return TagNewSpace }
func (FocusAt) requestTag() string        { return TagFocusAt }

func (c ConfirmReceive) MarshalJSON() ([]byte, error) {
	type plain ConfirmReceive
	return marshalTagged(TagConfirmReceive, plain(c))
}

func (c Subscribe) MarshalJSON() ([]byte, error) {
	if c.Channel == nil {
		return nil, errors.New("bindings: subscribe without channel")
	}
	return marshalTagged(TagSubscribe, struct {
		Channel   Subscription   `json:"channel"`
		Priority  *uint32        `json:"priority"`
		Component *Discriminator `json:"component"`
	}{c.Channel, c.Priority, c.Component})
}

func (c Unsubscribe) MarshalJSON() ([]byte, error) {
	if c.Channel == nil {
		return nil, errors.New("bindings: unsubscribe without channel")
	}
	return marshalTagged(TagUnsubscribe, struct {
		Channel   Subscription   `json:"channel"`
		Component *Discriminator `json:"component"`
	}{c.Channel, c.Component})
}

func (c SetSocket) MarshalJSON() ([]byte, error) {
	type plain SetSocket
	return marshalTagged(TagSetSocket, plain(c))
}

func (c Drop) MarshalJSON() ([]byte, error) {
	type plain Drop
	return marshalTagged(TagDrop, plain(c))
}

func (c Render) MarshalJSON() ([]byte, error) {
	if c.Content == nil {
		return nil, errors.New("bindings: render without content")
	}
	return marshalTagged(TagRender, struct {
		Content RenderRequest `json:"content"`
		Flush   bool          `json:"flush"`
	}{c.Content, c.Flush})
}

func (c Spawn) MarshalJSON() ([]byte, error) {
	type plain Spawn
	if c.Args == nil {
		c.Args = []string{}
	}
	return marshalTagged(TagSpawn, plain(c))
}

func (c Message) MarshalJSON() ([]byte, error) {
	type plain Message
	return marshalTagged(TagMessage, plain(c))
}

func (c NewSpace) MarshalJSON() ([]byte, error) {
	type plain NewSpace
	return marshalTagged(TagNewSpace, plain(c))
}

func (FocusAt) MarshalJSON() ([]byte, error) {
	return marshalTagged(TagFocusAt, struct{}{})
}

// RequestTag returns the wire tag of a request content.
func RequestTag(c RequestContent) string {
	if c == nil {
		return ""
	}
	return c.requestTag()
}

// DecodeRequestContent decodes a tagged request payload.
func DecodeRequestContent(data []byte) (RequestContent, error) {
	const union = "request content"
	tag, err := readTag(union, data)
	if err != nil {
		return nil, err
	}
	switch tag {
	case TagConfirmReceive:
		return decodeRequest[ConfirmReceive](union, tag, data)
	case TagSubscribe:
		var body struct {
			Channel   json.RawMessage `json:"channel"`
			Priority  *uint32         `json:"priority"`
			Component *Discriminator  `json:"component"`
		}
		if err := decodeInto(union, tag, data, &body); err != nil {
			return nil, err
		}
		channel, err := DecodeSubscription(body.Channel)
		if err != nil {
			return nil, err
		}
		return Subscribe{Channel: channel, Priority: body.Priority, Component: body.Component}, nil
	case TagUnsubscribe:
		var body struct {
			Channel   json.RawMessage `json:"channel"`
			Component *Discriminator  `json:"component"`
		}
		if err := decodeInto(union, tag, data, &body); err != nil {
			return nil, err
		}
		channel, err := DecodeSubscription(body.Channel)
		if err != nil {
			return nil, err
		}
		return Unsubscribe{Channel: channel, Component: body.Component}, nil
	case TagSetSocket:
		return decodeRequest[SetSocket](union, tag, data)
	case TagDrop:
		return decodeRequest[Drop](union, tag, data)
	case TagRender:
		var body struct {
			Content json.RawMessage `json:"content"`
			Flush   bool            `json:"flush"`
		}
		if err := decodeInto(union, tag, data, &body); err != nil {
			return nil, err
		}
		content, err := DecodeRenderRequest(body.Content)
		if err != nil {
			return nil, err
		}
		return Render{Content: content, Flush: body.Flush}, nil
	case TagSpawn:
		return decodeRequest[Spawn](union, tag, data)
	case TagMessage:
		return decodeRequest[Message](union, tag, data)
	case TagNewSpace:
		return decodeRequest[NewSpace](union, tag, data)
	case TagFocusAt:
		return FocusAt{}, nil
	}
	return nil, &UnknownTagError{Union: union, Tag: tag}
}

func decodeRequest[T RequestContent](union, tag string, data []byte) (RequestContent, error) {
	v, err := decodeVariant[T](union, tag, data)
	if err != nil {
		return nil, err
	}
	return v, nil
}
