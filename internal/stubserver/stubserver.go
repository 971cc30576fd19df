// Package stubserver is a scriptable in-process minimact server used
// by integration tests and the bench command. It speaks just enough
// of the wire protocol to exercise the client: handshake, ping
// counting (pings are not reflected), invocation recording,
// completions, and pushed server-to-client invocations.
package stubserver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/minimact-dev/minimact/pkg/protocol"
)

// WSPath is the WebSocket route the stub serves.
const WSPath = "/minimact/ws"

// Invocation records one client-to-server invocation.
type Invocation struct {
	InvocationID string
	Target       string
	Arguments    []json.RawMessage
}

// Arg unmarshals the i-th argument into dest.
func (inv *Invocation) Arg(i int, dest any) error {
	if i >= len(inv.Arguments) {
		return fmt.Errorf("stubserver: invocation %s has no argument %d", inv.Target, i)
	}
	return json.Unmarshal(inv.Arguments[i], dest)
}

// InvokeResponder computes the completion for a blocking invocation.
// Returning a non-empty error string completes the invocation with an
// error.
type InvokeResponder func(target string, args []json.RawMessage) (result any, errText string)

// Server is the stub. Zero value is not usable; use New.
type Server struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	// HandshakeError, when non-empty, rejects every handshake.
	HandshakeError string

	// Responder computes completions for blocking invocations.
	// Defaults to a null result.
	Responder InvokeResponder

	// SuppressCompletions leaves blocking invocations pending, to
	// exercise client-side timeout and close handling.
	SuppressCompletions bool

	mu          sync.Mutex
	conns       []*clientConn
	invocations []Invocation
	waiters     []chan Invocation
	pings       int
}

type clientConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// New creates a stub server.
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:   logger,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
}

// Handler returns the HTTP handler serving the WebSocket route.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get(WSPath, s.serveWS)
	return r
}

// serveWS upgrades one client and pumps its messages.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("upgrade failed", "error", err)
		return
	}

	// Handshake first.
	_, frame, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return
	}
	msgs, err := protocol.SplitFrame(frame)
	if err != nil || len(msgs) == 0 {
		s.logger.Error("bad handshake frame", "error", err)
		conn.Close()
		return
	}
	var req protocol.HandshakeRequest
	if err := json.Unmarshal(msgs[0], &req); err != nil || req.Protocol != protocol.ProtocolName {
		s.logger.Error("bad handshake request", "error", err)
		conn.Close()
		return
	}

	resp, _ := json.Marshal(protocol.HandshakeResponse{Error: s.HandshakeError})
	cc := &clientConn{conn: conn}
	if err := cc.write(protocol.Terminate(resp)); err != nil {
		conn.Close()
		return
	}
	if s.HandshakeError != "" {
		conn.Close()
		return
	}

	s.mu.Lock()
	s.conns = append(s.conns, cc)
	s.mu.Unlock()

	go s.readLoop(cc)
}

func (s *Server) readLoop(cc *clientConn) {
	defer s.drop(cc)
	for {
		_, frame, err := cc.conn.ReadMessage()
		if err != nil {
			return
		}
		msgs, err := protocol.SplitFrame(frame)
		if err != nil {
			s.logger.Error("frame split error", "error", err)
			continue
		}
		for _, raw := range msgs {
			msg, err := protocol.ParseMessage(raw)
			if err != nil {
				s.logger.Error("parse error", "error", err)
				continue
			}
			s.handle(cc, msg)
		}
	}
}

func (s *Server) handle(cc *clientConn, msg protocol.Message) {
	switch m := msg.(type) {
	case *protocol.Ping:
		// Counted, not reflected: the client reflects pings, so a
		// reflecting stub would storm.
		s.mu.Lock()
		s.pings++
		s.mu.Unlock()

	case *protocol.Invocation:
		inv := Invocation{
			InvocationID: m.InvocationID,
			Target:       m.Target,
			Arguments:    m.Arguments,
		}
		s.record(inv)

		s.mu.Lock()
		suppress := s.SuppressCompletions
		s.mu.Unlock()
		if m.Blocking() && !suppress {
			result, errText := s.respond(m.Target, m.Arguments)
			comp := &protocol.Completion{
				Type:         protocol.MessageCompletion,
				InvocationID: m.InvocationID,
				Error:        errText,
			}
			if errText == "" {
				data, err := json.Marshal(result)
				if err == nil {
					comp.Result = data
				}
			}
			data, _ := protocol.EncodeMessage(comp)
			_ = cc.write(data)
		}

	case *protocol.Close:
		cc.conn.Close()
	}
}

func (s *Server) respond(target string, args []json.RawMessage) (any, string) {
	s.mu.Lock()
	responder := s.Responder
	s.mu.Unlock()
	if responder == nil {
		return nil, ""
	}
	return responder(target, args)
}

func (s *Server) record(inv Invocation) {
	s.mu.Lock()
	s.invocations = append(s.invocations, inv)
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()
	for _, ch := range waiters {
		ch <- inv
	}
}

func (s *Server) drop(cc *clientConn) {
	cc.conn.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.conns {
		if c == cc {
			s.conns = append(s.conns[:i], s.conns[i+1:]...)
			return
		}
	}
}

func (cc *clientConn) write(data []byte) error {
	cc.writeMu.Lock()
	defer cc.writeMu.Unlock()
	cc.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return cc.conn.WriteMessage(websocket.TextMessage, data)
}

// Invocations returns a copy of every recorded invocation.
func (s *Server) Invocations() []Invocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Invocation(nil), s.invocations...)
}

// InvocationsFor returns the recorded invocations of one target.
func (s *Server) InvocationsFor(target string) []Invocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Invocation
	for _, inv := range s.invocations {
		if inv.Target == target {
			out = append(out, inv)
		}
	}
	return out
}

// WaitForInvocation blocks until an invocation of target arrives or
// the timeout passes. Already-recorded invocations satisfy it
// immediately.
func (s *Server) WaitForInvocation(target string, timeout time.Duration) (Invocation, bool) {
	deadline := time.Now().Add(timeout)
	for {
		s.mu.Lock()
		for _, inv := range s.invocations {
			if inv.Target == target {
				s.mu.Unlock()
				return inv, true
			}
		}
		ch := make(chan Invocation, 1)
		s.waiters = append(s.waiters, ch)
		s.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Invocation{}, false
		}
		select {
		case inv := <-ch:
			if inv.Target == target {
				return inv, true
			}
		case <-time.After(remaining):
			return Invocation{}, false
		}
	}
}

// ResetInvocations clears the recorded invocation log.
func (s *Server) ResetInvocations() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invocations = nil
}

// Push sends a server-to-client invocation to every connected client.
func (s *Server) Push(target string, args ...any) error {
	inv, err := protocol.NewInvocation("", target, args...)
	if err != nil {
		return err
	}
	data, err := protocol.EncodeMessage(inv)
	if err != nil {
		return err
	}
	return s.broadcast(data)
}

// PushFrame sends several invocations coalesced into one WebSocket
// frame, for frame-ordering tests.
func (s *Server) PushFrame(messages ...protocol.Message) error {
	var frame []byte
	for _, m := range messages {
		data, err := protocol.EncodeMessage(m)
		if err != nil {
			return err
		}
		frame = append(frame, data...)
	}
	return s.broadcast(frame)
}

func (s *Server) broadcast(frame []byte) error {
	s.mu.Lock()
	conns := append([]*clientConn(nil), s.conns...)
	s.mu.Unlock()
	for _, cc := range conns {
		if err := cc.write(frame); err != nil {
			return err
		}
	}
	return nil
}

// CloseAll closes every client socket. A positive code sends a close
// frame first; code <= 0 drops the TCP connection abruptly, which the
// client observes as an abnormal (1006-class) closure. Used to
// exercise reconnection.
func (s *Server) CloseAll(code int) {
	s.mu.Lock()
	conns := append([]*clientConn(nil), s.conns...)
	s.conns = nil
	s.mu.Unlock()
	for _, cc := range conns {
		if code > 0 {
			msg := websocket.FormatCloseMessage(code, "")
			cc.writeMu.Lock()
			cc.conn.SetWriteDeadline(time.Now().Add(time.Second))
			_ = cc.conn.WriteMessage(websocket.CloseMessage, msg)
			cc.writeMu.Unlock()
		}
		cc.conn.Close()
	}
}

// PingCount returns the number of protocol pings received from
// clients.
func (s *Server) PingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pings
}

// ConnCount returns the number of connected clients.
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}
