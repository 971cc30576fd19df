package protocol

import (
	"bytes"
	"errors"
	"fmt"
)

// RecordSeparator terminates every protocol message.
const RecordSeparator byte = 0x1E

// MaxMessageSize is the maximum size of a single JSON message.
// Messages larger than this are rejected during frame splitting.
const MaxMessageSize = 1 << 20 // 1 MiB

// Framing errors.
var (
	ErrUnterminatedMessage = errors.New("protocol: frame ends with unterminated message")
	ErrMessageTooLarge     = errors.New("protocol: message exceeds size limit")
	ErrEmptyMessage        = errors.New("protocol: empty message in frame")
)

// SplitFrame splits a WebSocket frame into its record-separated
// messages. Every message in a well-formed frame is terminated by the
// record separator, so a frame with trailing bytes after the last
// separator is an error.
func SplitFrame(frame []byte) ([][]byte, error) {
	if len(frame) == 0 {
		return nil, nil
	}

	segments := bytes.Split(frame, []byte{RecordSeparator})

	// A terminated final message leaves one empty trailing segment.
	last := segments[len(segments)-1]
	if len(last) != 0 {
		return nil, ErrUnterminatedMessage
	}
	segments = segments[:len(segments)-1]

	messages := make([][]byte, 0, len(segments))
	for i, seg := range segments {
		if len(seg) == 0 {
			return nil, fmt.Errorf("%w (index %d)", ErrEmptyMessage, i)
		}
		if len(seg) > MaxMessageSize {
			return nil, fmt.Errorf("%w (%d bytes)", ErrMessageTooLarge, len(seg))
		}
		messages = append(messages, seg)
	}
	return messages, nil
}

// AppendMessage appends a terminated message to dst and returns the
// extended slice.
func AppendMessage(dst, msg []byte) []byte {
	dst = append(dst, msg...)
	return append(dst, RecordSeparator)
}

// Terminate returns msg with the record separator appended.
func Terminate(msg []byte) []byte {
	out := make([]byte, 0, len(msg)+1)
	return AppendMessage(out, msg)
}

// SplitFirst splits the first terminated message off a frame,
// returning the message and the unconsumed remainder. Used for the
// handshake response, which the server may coalesce with regular
// messages in one frame.
func SplitFirst(frame []byte) (msg, rest []byte, err error) {
	idx := bytes.IndexByte(frame, RecordSeparator)
	if idx < 0 {
		return nil, nil, ErrUnterminatedMessage
	}
	if idx == 0 {
		return nil, nil, ErrEmptyMessage
	}
	if idx > MaxMessageSize {
		return nil, nil, fmt.Errorf("%w (%d bytes)", ErrMessageTooLarge, idx)
	}
	return frame[:idx], frame[idx+1:], nil
}
