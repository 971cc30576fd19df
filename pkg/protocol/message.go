package protocol

import (
	"encoding/json"
	"fmt"
)

// MessageType identifies the type of a protocol message.
type MessageType int

const (
	MessageInvocation MessageType = 1 // Method call, optionally expecting a completion
	MessageCompletion MessageType = 3 // Result or error for a pending invocation
	MessagePing       MessageType = 6 // Keep-alive
	MessageClose      MessageType = 7 // Connection shutdown
)

// String returns the string representation of the message type.
func (mt MessageType) String() string {
	switch mt {
	case MessageInvocation:
		return "Invocation"
	case MessageCompletion:
		return "Completion"
	case MessagePing:
		return "Ping"
	case MessageClose:
		return "Close"
	default:
		return fmt.Sprintf("Unknown(%d)", int(mt))
	}
}

// Message is implemented by all protocol message variants.
type Message interface {
	MessageType() MessageType
}

// Invocation is a type-1 message: invoke a target method. An empty
// InvocationID marks a fire-and-forget invocation.
type Invocation struct {
	Type         MessageType       `json:"type"`
	InvocationID string            `json:"invocationId,omitempty"`
	Target       string            `json:"target"`
	Arguments    []json.RawMessage `json:"arguments"`
}

// MessageType implements Message.
func (m *Invocation) MessageType() MessageType { return MessageInvocation }

// Blocking reports whether this invocation expects a completion.
func (m *Invocation) Blocking() bool { return m.InvocationID != "" }

// Completion is a type-3 message terminating a pending invocation.
// Error and Result are mutually exclusive.
type Completion struct {
	Type         MessageType     `json:"type"`
	InvocationID string          `json:"invocationId"`
	Result       json.RawMessage `json:"result,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// MessageType implements Message.
func (m *Completion) MessageType() MessageType { return MessageCompletion }

// Ping is a type-6 keep-alive message.
type Ping struct {
	Type MessageType `json:"type"`
}

// MessageType implements Message.
func (m *Ping) MessageType() MessageType { return MessagePing }

// NewPing returns a ready-to-send ping message.
func NewPing() *Ping { return &Ping{Type: MessagePing} }

// Close is a type-7 shutdown message.
type Close struct {
	Type           MessageType `json:"type"`
	Error          string      `json:"error,omitempty"`
	AllowReconnect bool        `json:"allowReconnect,omitempty"`
}

// MessageType implements Message.
func (m *Close) MessageType() MessageType { return MessageClose }

// Raw carries a message with an unrecognized type field. Receivers
// log and ignore it.
type Raw struct {
	Type MessageType
	Data json.RawMessage
}

// MessageType implements Message.
func (m *Raw) MessageType() MessageType { return m.Type }

// NewInvocation builds an invocation message, marshaling each argument
// to JSON. id is empty for fire-and-forget.
func NewInvocation(id, target string, args ...any) (*Invocation, error) {
	encoded := make([]json.RawMessage, 0, len(args))
	for i, arg := range args {
		data, err := json.Marshal(arg)
		if err != nil {
			return nil, fmt.Errorf("protocol: marshal argument %d for %s: %w", i, target, err)
		}
		encoded = append(encoded, data)
	}
	return &Invocation{
		Type:         MessageInvocation,
		InvocationID: id,
		Target:       target,
		Arguments:    encoded,
	}, nil
}

// typeProbe extracts just the type discriminator.
type typeProbe struct {
	Type MessageType `json:"type"`
}

// ParseMessage decodes a single JSON message (without its record
// separator) into a tagged variant.
func ParseMessage(data []byte) (Message, error) {
	var probe typeProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("protocol: invalid message: %w", err)
	}

	switch probe.Type {
	case MessageInvocation:
		var m Invocation
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("protocol: invalid invocation: %w", err)
		}
		return &m, nil

	case MessageCompletion:
		var m Completion
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("protocol: invalid completion: %w", err)
		}
		return &m, nil

	case MessagePing:
		return NewPing(), nil

	case MessageClose:
		var m Close
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("protocol: invalid close: %w", err)
		}
		return &m, nil

	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return &Raw{Type: probe.Type, Data: raw}, nil
	}
}

// EncodeMessage marshals a message and appends the record separator.
func EncodeMessage(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal %s: %w", m.MessageType(), err)
	}
	return Terminate(data), nil
}
