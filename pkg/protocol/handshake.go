package protocol

import (
	"encoding/json"
	"fmt"
)

// ProtocolName is the only hub protocol the client speaks.
const ProtocolName = "json"

// ProtocolVersion is the negotiated protocol version.
const ProtocolVersion = 1

// HandshakeRequest is the first message the client sends after the
// socket opens.
type HandshakeRequest struct {
	Protocol string `json:"protocol"`
	Version  int    `json:"version"`
}

// HandshakeResponse is the server's reply. A non-empty Error fails
// the connection.
type HandshakeResponse struct {
	Error string `json:"error,omitempty"`
}

// OK reports whether the handshake succeeded.
func (hr *HandshakeResponse) OK() bool { return hr.Error == "" }

// EncodeHandshakeRequest returns the terminated handshake request.
func EncodeHandshakeRequest() ([]byte, error) {
	req := HandshakeRequest{Protocol: ProtocolName, Version: ProtocolVersion}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal handshake: %w", err)
	}
	return Terminate(data), nil
}

// DecodeHandshakeResponse splits the handshake response off the first
// frame the server sends. The remainder holds any regular messages
// the server coalesced into the same frame; callers must process it.
func DecodeHandshakeResponse(frame []byte) (*HandshakeResponse, []byte, error) {
	msg, rest, err := SplitFirst(frame)
	if err != nil {
		return nil, nil, err
	}
	var hr HandshakeResponse
	if err := json.Unmarshal(msg, &hr); err != nil {
		return nil, nil, fmt.Errorf("protocol: invalid handshake response: %w", err)
	}
	return &hr, rest, nil
}
