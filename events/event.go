package events

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Discriminator values, as written to the "type" field.
const (
	TypeLog          = `Log`
	TypeOtherMessage = `OtherMessage`
)

// Event is the closed set of events that may be published.
// Implementations are [Log] and [OtherMessage].
type Event interface {
	// Type returns the discriminator of the variant.
	Type() string
	isEvent()
}

// Log is a free-form log line.
type Log struct {
	Message string `json:"message"`
}

// OtherMessage is a coded message.
type OtherMessage struct {
	Code        int32  `json:"code"`
	Description string `json:"description"`
}

func (Log) Type() string          { return TypeLog }
func (OtherMessage) Type() string { return TypeOtherMessage }
func (Log) isEvent()              {}
func (OtherMessage) isEvent()     {}

type (
	logWire struct {
		Type string `json:"type"`
		Log
	}

	otherMessageWire struct {
		Type string `json:"type"`
		OtherMessage
	}
)

// Marshal encodes event to its text form.
func Marshal(event Event) (string, error) {
	var v any
	switch e := event.(type) {
	case Log:
		v = logWire{Type: TypeLog, Log: e}
	case *Log:
		v = logWire{Type: TypeLog, Log: *e}
	case OtherMessage:
		v = otherMessageWire{Type: TypeOtherMessage, OtherMessage: e}
	case *OtherMessage:
		v = otherMessageWire{Type: TypeOtherMessage, OtherMessage: *e}
	default:
		return ``, fmt.Errorf("events: cannot marshal %T", event)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ``, fmt.Errorf("events: failed to marshal %s: %w", event.Type(), err)
	}
	return string(b), nil
}

// MustMarshal is Marshal, but panics on failure. Failure indicates a
// programming error, as the set of events is closed.
func MustMarshal(event Event) string {
	s, err := Marshal(event)
	if err != nil {
		panic(err)
	}
	return s
}

// Unmarshal decodes the text form of an event. For compatibility, the code
// of an OtherMessage may also be supplied as "num".
func Unmarshal(s string) (Event, error) {
	if !gjson.Valid(s) {
		return nil, fmt.Errorf("events: invalid json: %q", s)
	}
	doc := gjson.Parse(s)
	if !doc.IsObject() {
		return nil, fmt.Errorf("events: expected object, got %s", doc.Type)
	}

	switch typ := doc.Get(`type`); typ.String() {
	case TypeLog:
		var e Log
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			return nil, fmt.Errorf("events: failed to decode %s: %w", TypeLog, err)
		}
		return e, nil

	case TypeOtherMessage:
		var e OtherMessage
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			return nil, fmt.Errorf("events: failed to decode %s: %w", TypeOtherMessage, err)
		}
		if !doc.Get(`code`).Exists() {
			// decoded like code, so out of range or fractional values are rejected
			if num := doc.Get(`num`); num.Exists() {
				if err := json.Unmarshal([]byte(num.Raw), &e.Code); err != nil {
					return nil, fmt.Errorf("events: failed to decode %s num: %w", TypeOtherMessage, err)
				}
			}
		}
		return e, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, typ.String())
	}
}
