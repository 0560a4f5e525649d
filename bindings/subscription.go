package bindings

import (
	"encoding/json"
	"fmt"
)

// Subscription channel tags.
const (
	TagAllKeyPresses       = "all key presses"
	TagAllMouseEvents      = "all mouse events"
	TagAllMessages         = "all messages"
	TagSpecificKeyPress    = "specific key press"
	TagSpecificKeyModifier = "specific key modifier"
	TagSpecificKeyCode     = "specific key code"
	TagSpecificMouseEvent  = "specific mouse event"
	TagSpecificMessage     = "specific message"
	TagScreenResize        = "screen resize"
	TagFocused             = "focused"
	TagUnfocused           = "unfocused"
	TagMultiple            = "multiple"
)

// Subscription is an event channel a component can register interest in.
type Subscription interface {
	subscriptionTag() string
}

type (
	// AllKeyPresses matches every key press.
	AllKeyPresses struct{}
	// AllMouseEvents matches every mouse event.
	AllMouseEvents struct{}
	// AllMessages matches every message from other components.
	AllMessages struct{}
	// SpecificKeyPress matches one key with one modifier.
	SpecificKeyPress struct {
		Key KeyEvent `json:"key"`
	}
	// SpecificKeyModifier matches any key held with the modifier.
	SpecificKeyModifier struct {
		Modifier KeyModifier `json:"modifier"`
	}
	// SpecificKeyCode matches one key regardless of modifier.
	SpecificKeyCode struct {
		Code KeyCode `json:"code"`
	}
	// SpecificMouseEvent matches one kind of mouse action.
	SpecificMouseEvent struct {
		Mouse MouseType `json:"mouse"`
	}
	// SpecificMessage matches messages sent by one component.
	SpecificMessage struct {
		Source Discriminator `json:"source"`
	}
	// ScreenResize matches terminal resizes.
	ScreenResize struct{}
	// Focused matches the component's space gaining focus.
	Focused struct{}
	// Unfocused matches the component's space losing focus.
	Unfocused struct{}
	// Multiple bundles several subscriptions, each with an optional priority.
	Multiple struct {
		Subs []PrioritizedSubscription
	}
)

// PrioritizedSubscription pairs a subscription with an optional priority.
// Encoded as a two element array [subscription, priority|null].
type PrioritizedSubscription struct {
	Channel  Subscription
	Priority *uint32
}

func (AllKeyPresses) subscriptionTag() string       { return TagAllKeyPresses }
func (AllMouseEvents) subscriptionTag() string      { return TagAllMouseEvents }
func (AllMessages) subscriptionTag() string         { return TagAllMessages }
func (SpecificKeyPress) subscriptionTag() string    { return TagSpecificKeyPress }
func (SpecificKeyModifier) subscriptionTag() string { return TagSpecificKeyModifier }
func (SpecificKeyCode) subscriptionTag() string     { return TagSpecificKeyCode }
func (SpecificMouseEvent) subscriptionTag() string  { return TagSpecificMouseEvent }
func (SpecificMessage) subscriptionTag() string     { return TagSpecificMessage }
func (ScreenResize) subscriptionTag() string        { return TagScreenResize }
func (Focused) subscriptionTag() string             { return TagFocused }
func (Unfocused) subscriptionTag() string           { return TagUnfocused }
func (Multiple) subscriptionTag() string            { return TagMultiple }

func (AllKeyPresses) MarshalJSON() ([]byte, error) {
	return marshalTagged(TagAllKeyPresses, struct{}{})
}

func (AllMouseEvents) MarshalJSON() ([]byte, error) {
	return marshalTagged(TagAllMouseEvents, struct{}{})
}

func (AllMessages) MarshalJSON() ([]byte, error) {
	return marshalTagged(TagAllMessages, struct{}{})
}

// keyPress is KeyEvent without its event tag.
type keyPress struct {
	Code     KeyCode     `json:"code"`
	Modifier KeyModifier `json:"modifier"`
}

func (s SpecificKeyPress) MarshalJSON() ([]byte, error) {
	return marshalTagged(TagSpecificKeyPress, struct {
		Key keyPress `json:"key"`
	}{keyPress(s.Key)})
}

func (s SpecificKeyModifier) MarshalJSON() ([]byte, error) {
	type plain SpecificKeyModifier
	return marshalTagged(TagSpecificKeyModifier, plain(s))
}

func (s SpecificKeyCode) MarshalJSON() ([]byte, error) {
	type plain SpecificKeyCode
	return marshalTagged(TagSpecificKeyCode, plain(s))
}

func (s SpecificMouseEvent) MarshalJSON() ([]byte, error) {
	type plain SpecificMouseEvent
	return marshalTagged(TagSpecificMouseEvent, plain(s))
}

func (s SpecificMessage) MarshalJSON() ([]byte, error) {
	type plain SpecificMessage
	return marshalTagged(TagSpecificMessage, plain(s))
}

func (ScreenResize) MarshalJSON() ([]byte, error) {
	return marshalTagged(TagScreenResize, struct{}{})
}

func (Focused) MarshalJSON() ([]byte, error) {
	return marshalTagged(TagFocused, struct{}{})
}

func (Unfocused) MarshalJSON() ([]byte, error) {
	return marshalTagged(TagUnfocused, struct{}{})
}

func (m Multiple) MarshalJSON() ([]byte, error) {
	subs := m.Subs
	if subs == nil {
		subs = []PrioritizedSubscription{}
	}
	return marshalTagged(TagMultiple, struct {
		Subs []PrioritizedSubscription `json:"subs"`
	}{subs})
}

// MarshalJSON implements json.Marshaler.
func (p PrioritizedSubscription) MarshalJSON() ([]byte, error) {
	if p.Channel == nil {
		return nil, fmt.Errorf("bindings: prioritized subscription without channel")
	}
	return json.Marshal([]any{p.Channel, p.Priority})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *PrioritizedSubscription) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("bindings: decode prioritized subscription: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("bindings: decode prioritized subscription: expected 2 elements, got %d", len(pair))
	}
	channel, err := DecodeSubscription(pair[0])
	if err != nil {
		return err
	}
	var priority *uint32
	if err := json.Unmarshal(pair[1], &priority); err != nil {
		return fmt.Errorf("bindings: decode subscription priority: %w", err)
	}
	*p = PrioritizedSubscription{Channel: channel, Priority: priority}
	return nil
}

// SubscriptionTag returns the wire tag of a subscription.
func SubscriptionTag(s Subscription) string {
	if s == nil {
		return ""
	}
	return s.subscriptionTag()
}

// DecodeSubscription decodes a tagged subscription.
func DecodeSubscription(data []byte) (Subscription, error) {
	const union = "subscription"
	tag, err := readTag(union, data)
	if err != nil {
		return nil, err
	}
	switch tag {
	case TagAllKeyPresses:
		return AllKeyPresses{}, nil
	case TagAllMouseEvents:
		return AllMouseEvents{}, nil
	case TagAllMessages:
		return AllMessages{}, nil
	case TagSpecificKeyPress:
		return decodeSubscription[SpecificKeyPress](union, tag, data)
	case TagSpecificKeyModifier:
		return decodeSubscription[SpecificKeyModifier](union, tag, data)
	case TagSpecificKeyCode:
		return decodeSubscription[SpecificKeyCode](union, tag, data)
	case TagSpecificMouseEvent:
		return decodeSubscription[SpecificMouseEvent](union, tag, data)
	case TagSpecificMessage:
		return decodeSubscription[SpecificMessage](union, tag, data)
	case TagScreenResize:
		return ScreenResize{}, nil
	case TagFocused:
		return Focused{}, nil
	case TagUnfocused:
		return Unfocused{}, nil
	case TagMultiple:
		var body struct {
			Subs []PrioritizedSubscription `json:"subs"`
		}
		if err := decodeInto(union, tag, data, &body); err != nil {
			return nil, err
		}
		return Multiple{Subs: body.Subs}, nil
	}
	return nil, &UnknownTagError{Union: union, Tag: tag}
}

func decodeSubscription[T Subscription](union, tag string, data []byte) (Subscription, error) {
	v, err := decodeVariant[T](union, tag, data)
	if err != nil {
		return nil, err
	}
	return v, nil
}
