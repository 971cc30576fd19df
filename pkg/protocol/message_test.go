package protocol

import (
	"encoding/json"
	"testing"
)

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		check func(t *testing.T, m Message)
	}{
		{
			name: "invocation",
			data: `{"type":1,"invocationId":"7","target":"ApplyPatches","arguments":["c1",[]]}`,
			check: func(t *testing.T, m Message) {
				inv, ok := m.(*Invocation)
				if !ok {
					t.Fatalf("got %T", m)
				}
				if inv.InvocationID != "7" || inv.Target != "ApplyPatches" {
					t.Errorf("inv = %+v", inv)
				}
				if !inv.Blocking() {
					t.Error("invocation with id should be blocking")
				}
				if len(inv.Arguments) != 2 {
					t.Errorf("arguments = %d, want 2", len(inv.Arguments))
				}
			},
		},
		{
			name: "fire_and_forget",
			data: `{"type":1,"target":"Error","arguments":["boom"]}`,
			check: func(t *testing.T, m Message) {
				inv := m.(*Invocation)
				if inv.Blocking() {
					t.Error("invocation without id should not be blocking")
				}
			},
		},
		{
			name: "completion_result",
			data: `{"type":3,"invocationId":"7","result":{"ok":true}}`,
			check: func(t *testing.T, m Message) {
				comp, ok := m.(*Completion)
				if !ok {
					t.Fatalf("got %T", m)
				}
				if comp.InvocationID != "7" || comp.Error != "" {
					t.Errorf("comp = %+v", comp)
				}
			},
		},
		{
			name: "completion_error",
			data: `{"type":3,"invocationId":"8","error":"no such method"}`,
			check: func(t *testing.T, m Message) {
				comp := m.(*Completion)
				if comp.Error != "no such method" {
					t.Errorf("error = %q", comp.Error)
				}
			},
		},
		{
			name: "ping",
			data: `{"type":6}`,
			check: func(t *testing.T, m Message) {
				if _, ok := m.(*Ping); !ok {
					t.Fatalf("got %T", m)
				}
			},
		},
		{
			name: "close",
			data: `{"type":7,"error":"server going down","allowReconnect":true}`,
			check: func(t *testing.T, m Message) {
				cl, ok := m.(*Close)
				if !ok {
					t.Fatalf("got %T", m)
				}
				if !cl.AllowReconnect || cl.Error != "server going down" {
					t.Errorf("close = %+v", cl)
				}
			},
		},
		{
			name: "unknown_type",
			data: `{"type":42,"whatever":true}`,
			check: func(t *testing.T, m Message) {
				raw, ok := m.(*Raw)
				if !ok {
					t.Fatalf("got %T", m)
				}
				if raw.Type != MessageType(42) {
					t.Errorf("type = %v", raw.Type)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, err := ParseMessage([]byte(tc.data))
			if err != nil {
				t.Fatalf("ParseMessage() error = %v", err)
			}
			tc.check(t, m)
		})
	}
}

func TestParseMessageInvalid(t *testing.T) {
	if _, err := ParseMessage([]byte(`not json`)); err == nil {
		t.Fatal("ParseMessage() accepted garbage")
	}
}

func TestNewInvocation(t *testing.T) {
	inv, err := NewInvocation("3", "UpdateComponentState", "c1", "state_0", 1)
	if err != nil {
		t.Fatalf("NewInvocation() error = %v", err)
	}
	if inv.Type != MessageInvocation {
		t.Errorf("type = %v", inv.Type)
	}
	if got := string(inv.Arguments[2]); got != "1" {
		t.Errorf("argument 2 = %q", got)
	}

	data, err := EncodeMessage(inv)
	if err != nil {
		t.Fatalf("EncodeMessage() error = %v", err)
	}
	if data[len(data)-1] != RecordSeparator {
		t.Error("EncodeMessage() missing record separator")
	}

	// Round-trip through the parser.
	parsed, err := ParseMessage(data[:len(data)-1])
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	back := parsed.(*Invocation)
	if back.Target != inv.Target || back.InvocationID != inv.InvocationID {
		t.Errorf("round-trip = %+v", back)
	}
}

func TestPingEncoding(t *testing.T) {
	data, err := EncodeMessage(NewPing())
	if err != nil {
		t.Fatalf("EncodeMessage() error = %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data[:len(data)-1], &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["type"] != float64(6) {
		t.Errorf("ping type = %v", m["type"])
	}
}

func TestMessageTypeString(t *testing.T) {
	tests := []struct {
		mt   MessageType
		want string
	}{
		{MessageInvocation, "Invocation"},
		{MessageCompletion, "Completion"},
		{MessagePing, "Ping"},
		{MessageClose, "Close"},
		{MessageType(99), "Unknown(99)"},
	}
	for _, tc := range tests {
		if got := tc.mt.String(); got != tc.want {
			t.Errorf("%d.String() = %q, want %q", int(tc.mt), got, tc.want)
		}
	}
}
