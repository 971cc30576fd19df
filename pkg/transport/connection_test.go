package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/minimact-dev/minimact/internal/stubserver"
	"github.com/minimact-dev/minimact/pkg/protocol"
)

// testServer starts a stub server and returns it with its WS URL.
func testServer(t *testing.T) (*stubserver.Server, string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := stubserver.New(logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, "ws" + strings.TrimPrefix(ts.URL, "http") + stubserver.WSPath
}

func testConn(t *testing.T, url string, opts ...Option) *Connection {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]Option{WithLogger(logger)}, opts...)
	conn := New(url, opts...)
	t.Cleanup(conn.Stop)
	return conn
}

// waitFor polls a condition until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStartStopLifecycle(t *testing.T) {
	_, url := testServer(t)
	conn := testConn(t, url)

	if conn.State() != StateDisconnected {
		t.Fatalf("initial state = %v", conn.State())
	}

	if err := conn.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if conn.State() != StateConnected {
		t.Fatalf("state after start = %v", conn.State())
	}

	// Start while connected fails.
	if err := conn.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v", err)
	}

	conn.Stop()
	if conn.State() != StateDisconnected {
		t.Errorf("state after stop = %v", conn.State())
	}
}

func TestStartHandshakeRejected(t *testing.T) {
	srv, url := testServer(t)
	srv.HandshakeError = "unsupported protocol"

	conn := testConn(t, url)
	err := conn.Start(context.Background())
	if !errors.Is(err, ErrHandshake) {
		t.Fatalf("Start() error = %v, want handshake failure", err)
	}
	if conn.State() != StateDisconnected {
		t.Errorf("state = %v", conn.State())
	}
}

func TestStartUnreachable(t *testing.T) {
	conn := testConn(t, "ws://127.0.0.1:1/minimact/ws",
		WithHandshakeTimeout(500*time.Millisecond))
	if err := conn.Start(context.Background()); err == nil {
		t.Fatal("Start() succeeded against nothing")
	}
	if conn.State() != StateDisconnected {
		t.Errorf("state = %v", conn.State())
	}
}

func TestInvokeCompletion(t *testing.T) {
	srv, url := testServer(t)
	srv.Responder = func(target string, args []json.RawMessage) (any, string) {
		if target != "Echo" || len(args) != 1 {
			return nil, "bad call"
		}
		var s string
		_ = json.Unmarshal(args[0], &s)
		return s, ""
	}

	conn := testConn(t, url)
	if err := conn.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	result, err := conn.Invoke(context.Background(), "Echo", "ping!")
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	var back string
	if err := json.Unmarshal(result, &back); err != nil || back != "ping!" {
		t.Errorf("result = %s (%v)", result, err)
	}
}

func TestInvokeServerError(t *testing.T) {
	srv, url := testServer(t)
	srv.Responder = func(string, []json.RawMessage) (any, string) {
		return nil, "no such method"
	}

	conn := testConn(t, url)
	if err := conn.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	_, err := conn.Invoke(context.Background(), "Nope")
	if err == nil || !strings.Contains(err.Error(), "no such method") {
		t.Fatalf("Invoke() error = %v", err)
	}
}

func TestInvokeNotConnected(t *testing.T) {
	_, url := testServer(t)
	conn := testConn(t, url)

	if _, err := conn.Invoke(context.Background(), "X"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Invoke() error = %v", err)
	}
	if err := conn.Send("X"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send() error = %v", err)
	}
}

func TestSendFireAndForget(t *testing.T) {
	srv, url := testServer(t)
	conn := testConn(t, url)
	if err := conn.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := conn.Send("UpdateComponentState", "c1", "state_0", 1); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	inv, ok := srv.WaitForInvocation("UpdateComponentState", 2*time.Second)
	if !ok {
		t.Fatal("server never saw the invocation")
	}
	if inv.InvocationID != "" {
		t.Errorf("fire-and-forget carried id %q", inv.InvocationID)
	}
	var componentID string
	if err := inv.Arg(0, &componentID); err != nil || componentID != "c1" {
		t.Errorf("arg 0 = %q (%v)", componentID, err)
	}
}

func TestInvocationIDsMonotonic(t *testing.T) {
	srv, url := testServer(t)
	srv.Responder = func(string, []json.RawMessage) (any, string) { return nil, "" }
	conn := testConn(t, url)
	if err := conn.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := conn.Invoke(context.Background(), "Tick"); err != nil {
			t.Fatalf("Invoke() error = %v", err)
		}
	}

	invs := srv.InvocationsFor("Tick")
	if len(invs) != 3 {
		t.Fatalf("server saw %d invocations", len(invs))
	}
	seen := map[string]bool{}
	var prev uint64
	for _, inv := range invs {
		if inv.InvocationID == "" || seen[inv.InvocationID] {
			t.Errorf("non-unique invocation id %q", inv.InvocationID)
		}
		seen[inv.InvocationID] = true
		n, err := strconv.ParseUint(inv.InvocationID, 10, 64)
		if err != nil || n <= prev {
			t.Errorf("invocation id %q does not increase after %d", inv.InvocationID, prev)
		}
		prev = n
	}
}

func TestPingReflected(t *testing.T) {
	srv, url := testServer(t)
	conn := testConn(t, url)
	if err := conn.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := srv.PushFrame(protocol.NewPing()); err != nil {
		t.Fatalf("push ping: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return srv.PingCount() >= 1 }, "reflected ping")
}

// Frame-splitting scenario: one frame carrying a ping and an
// ApplyPatches invocation dispatches both, in order.
func TestCoalescedFrameDispatch(t *testing.T) {
	srv, url := testServer(t)
	conn := testConn(t, url)
	if err := conn.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var order []string
	dispatched := make(chan struct{})
	conn.On("ApplyPatches", func(args []json.RawMessage) {
		order = append(order, "patches")
		close(dispatched)
	})

	inv, err := protocol.NewInvocation("", "ApplyPatches", "c1", []any{})
	if err != nil {
		t.Fatalf("build invocation: %v", err)
	}
	if err := srv.PushFrame(protocol.NewPing(), inv); err != nil {
		t.Fatalf("push frame: %v", err)
	}

	select {
	case <-dispatched:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never ran")
	}
	waitFor(t, 2*time.Second, func() bool { return srv.PingCount() >= 1 }, "pong")
}

func TestDispatchHandlerOrderAndPanicIsolation(t *testing.T) {
	srv, url := testServer(t)
	conn := testConn(t, url)
	if err := conn.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var order []int
	done := make(chan struct{})
	conn.On("Evt", func([]json.RawMessage) {
		order = append(order, 1)
		panic("first handler explodes")
	})
	conn.On("Evt", func([]json.RawMessage) {
		order = append(order, 2)
		close(done)
	})

	inv, _ := protocol.NewInvocation("", "Evt")
	if err := srv.PushFrame(inv); err != nil {
		t.Fatalf("push: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second handler never ran")
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("order = %v", order)
	}
}

func TestOffRemovesHandler(t *testing.T) {
	srv, url := testServer(t)
	conn := testConn(t, url)
	if err := conn.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var first atomic.Int32
	second := make(chan struct{})
	off := conn.On("Evt", func([]json.RawMessage) { first.Add(1) })
	conn.On("Evt", func([]json.RawMessage) {
		select {
		case second <- struct{}{}:
		default:
		}
	})

	off()
	inv, _ := protocol.NewInvocation("", "Evt")
	if err := srv.PushFrame(inv); err != nil {
		t.Fatalf("push: %v", err)
	}

	select {
	case <-second:
	case <-time.After(2 * time.Second):
		t.Fatal("remaining handler never ran")
	}
	if first.Load() != 0 {
		t.Error("removed handler still ran")
	}
}

func TestUnknownCompletionIgnored(t *testing.T) {
	srv, url := testServer(t)
	srv.Responder = func(string, []json.RawMessage) (any, string) { return "ok", "" }
	conn := testConn(t, url)
	if err := conn.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// A completion nobody asked for.
	if err := srv.PushFrame(&protocol.Completion{
		Type:         protocol.MessageCompletion,
		InvocationID: "999",
	}); err != nil {
		t.Fatalf("push: %v", err)
	}

	// The connection keeps working.
	if _, err := conn.Invoke(context.Background(), "Still"); err != nil {
		t.Fatalf("Invoke() after stray completion: %v", err)
	}
}

func TestPendingRejectedOnClose(t *testing.T) {
	srv, url := testServer(t)
	srv.SuppressCompletions = true
	conn := testConn(t, url)
	if err := conn.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := conn.Invoke(context.Background(), "Hang")
		errCh <- err
	}()

	if _, ok := srv.WaitForInvocation("Hang", 2*time.Second); !ok {
		t.Fatal("server never saw the invocation")
	}
	conn.Stop()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrConnectionClosed) {
			t.Errorf("Invoke() error = %v, want ErrConnectionClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending invocation never rejected")
	}
}

// Reconnect scenario: an abnormal close triggers the backoff
// schedule; handlers survive, and the reconnected callback fires.
func TestReconnectAfterAbnormalClose(t *testing.T) {
	srv, url := testServer(t)
	conn := testConn(t, url, WithReconnectDelays([]time.Duration{time.Millisecond, 10 * time.Millisecond}))

	reconnected := make(chan struct{})
	conn.OnReconnected(func() {
		select {
		case reconnected <- struct{}{}:
		default:
		}
	})

	if err := conn.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	handled := make(chan struct{}, 4)
	conn.On("Evt", func([]json.RawMessage) { handled <- struct{}{} })

	srv.CloseAll(0) // abrupt drop, no close frame

	select {
	case <-reconnected:
	case <-time.After(5 * time.Second):
		t.Fatal("never reconnected")
	}
	if conn.State() != StateConnected {
		t.Fatalf("state = %v", conn.State())
	}

	// Handlers registered before the drop still dispatch.
	inv, _ := protocol.NewInvocation("", "Evt")
	if err := srv.PushFrame(inv); err != nil {
		t.Fatalf("push after reconnect: %v", err)
	}
	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("handler lost across reconnect")
	}
}

func TestCleanCloseDoesNotReconnect(t *testing.T) {
	srv, url := testServer(t)
	conn := testConn(t, url, WithReconnectDelays([]time.Duration{time.Millisecond}))

	disconnected := make(chan struct{})
	conn.OnDisconnected(func(error) {
		select {
		case disconnected <- struct{}{}:
		default:
		}
	})

	if err := conn.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	srv.CloseAll(1000)

	select {
	case <-disconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("disconnected callback never fired")
	}
	// Give a mistaken reconnect a moment to happen, then check state.
	time.Sleep(50 * time.Millisecond)
	if conn.State() != StateDisconnected {
		t.Errorf("state = %v, want Disconnected", conn.State())
	}
}

func TestServerCloseMessageWithoutReconnect(t *testing.T) {
	srv, url := testServer(t)
	conn := testConn(t, url, WithReconnectDelays([]time.Duration{time.Millisecond}))
	if err := conn.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := srv.PushFrame(&protocol.Close{Type: protocol.MessageClose}); err != nil {
		t.Fatalf("push close: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		return conn.State() == StateDisconnected
	}, "disconnect after type-7 close")
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateDisconnected, "Disconnected"},
		{StateConnecting, "Connecting"},
		{StateConnected, "Connected"},
		{StateReconnecting, "Reconnecting"},
		{State(9), "Unknown"},
	}
	for _, tc := range tests {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("%d.String() = %q", int(tc.state), got)
		}
	}
}
