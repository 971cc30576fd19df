package minimact

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/net/html"

	"github.com/minimact-dev/minimact/pkg/component"
	"github.com/minimact-dev/minimact/pkg/dom"
	"github.com/minimact-dev/minimact/pkg/hints"
	"github.com/minimact-dev/minimact/pkg/metrics"
	"github.com/minimact-dev/minimact/pkg/template"
	"github.com/minimact-dev/minimact/pkg/transport"
)

// Runtime errors.
var (
	ErrAlreadyStarted = errors.New("minimact: runtime already started")
	ErrNotStarted     = errors.New("minimact: runtime not started")
)

// Runtime wires the transport, the hint queue, the patcher, and the
// mounted components together. All DOM and state mutation is
// serialized onto the runtime loop.
type Runtime struct {
	config *Config
	logger *slog.Logger

	conn      *transport.Connection
	registry  *component.Registry
	hintQueue *hints.Queue
	renderer  *template.Renderer
	applier   *dom.Applier
	delegate  *component.Delegate

	mu        sync.Mutex
	document  *html.Node
	started   bool
	installed bool

	tasksMu sync.Mutex
	tasks   []func()
	wake    chan struct{}
	quit    chan struct{}
	loopEnd chan struct{}
}

// New creates a runtime targeting the given WebSocket URL.
func New(url string, opts ...Option) *Runtime {
	config := defaultConfig(url)
	for _, opt := range opts {
		opt(config)
	}
	logger := config.Logger

	if config.EnableMetrics {
		metrics.Register(config.MetricsOptions...)
	}

	renderer := template.NewRenderer(logger)
	rt := &Runtime{
		config:    config,
		logger:    logger,
		registry:  component.NewRegistry(),
		hintQueue: hints.NewQueue(renderer, hints.WithLogger(logger)),
		renderer:  renderer,
		applier:   dom.NewApplier(logger),
		wake:      make(chan struct{}, 1),
	}
	rt.conn = transport.New(url, append([]transport.Option{transport.WithLogger(logger)}, config.TransportOptions...)...)
	rt.delegate = component.NewDelegate(rt.registry, rt, logger)
	return rt
}

// Connection exposes the underlying transport, mainly for lifecycle
// callbacks and tests.
func (rt *Runtime) Connection() *transport.Connection { return rt.conn }

// LoadHTML seeds the live document from server-rendered markup. When
// the runtime is already started the new document hydrates (and its
// components register) before LoadHTML returns.
func (rt *Runtime) LoadHTML(markup string) error {
	body, err := dom.ParseDocument(markup)
	if err != nil {
		return err
	}

	rt.mu.Lock()
	rt.document = body
	started := rt.started
	rt.mu.Unlock()

	if started {
		rt.run(func() {
			rt.hydrate()
			rt.registerAll()
		})
	}
	return nil
}

// Document returns the live document body, or nil before LoadHTML.
func (rt *Runtime) Document() *html.Node {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.document
}

// Component returns the mounted context for an id, or nil.
func (rt *Runtime) Component(id string) *component.Context {
	return rt.registry.Get(id)
}

// Components returns all mounted contexts in hydration order.
func (rt *Runtime) Components() []*component.Context {
	return rt.registry.All()
}

// Start opens the transport, installs the server dispatchers,
// hydrates the loaded document, and registers every component with
// the server. It fails if the runtime is already started.
func (rt *Runtime) Start(ctx context.Context) error {
	rt.mu.Lock()
	if rt.started {
		rt.mu.Unlock()
		return ErrAlreadyStarted
	}
	rt.started = true
	rt.quit = make(chan struct{})
	rt.loopEnd = make(chan struct{})
	rt.mu.Unlock()

	go rt.loop()

	// Dispatchers survive transport reconnection, so one installation
	// serves the runtime's whole lifetime, restarts included.
	rt.mu.Lock()
	install := !rt.installed
	rt.installed = true
	rt.mu.Unlock()
	if install {
		rt.installHandlers()
		rt.conn.OnReconnected(func() {
			rt.Dispatch(rt.registerAll)
		})
	}

	if err := rt.conn.Start(ctx); err != nil {
		rt.shutdownLoop()
		rt.mu.Lock()
		rt.started = false
		rt.mu.Unlock()
		return err
	}

	rt.run(func() {
		rt.hydrate()
		rt.registerAll()
	})
	return nil
}

// Stop closes the transport, stops the loop, and clears the hint
// queue.
func (rt *Runtime) Stop() {
	rt.mu.Lock()
	if !rt.started {
		rt.mu.Unlock()
		return
	}
	rt.started = false
	rt.mu.Unlock()

	rt.conn.Stop()
	rt.shutdownLoop()
	rt.hintQueue.ClearAll()
}

// Dispatch enqueues work onto the runtime loop. Tasks run in FIFO
// order; the queue is unbounded so loop-originated dispatches (effect
// scheduling) can never deadlock.
func (rt *Runtime) Dispatch(fn func()) {
	rt.tasksMu.Lock()
	rt.tasks = append(rt.tasks, fn)
	rt.tasksMu.Unlock()

	select {
	case rt.wake <- struct{}{}:
	default:
	}
}

// Flush blocks until every task enqueued before the call has run.
func (rt *Runtime) Flush() {
	rt.mu.Lock()
	started := rt.started
	rt.mu.Unlock()
	if !started {
		return
	}
	done := make(chan struct{})
	rt.Dispatch(func() { close(done) })
	<-done
}

// run executes fn on the loop and waits for it. Before Start the
// loop is not pumping, so fn runs inline.
func (rt *Runtime) run(fn func()) {
	rt.mu.Lock()
	started := rt.started
	rt.mu.Unlock()
	if !started {
		rt.safeRun(fn)
		return
	}

	done := make(chan struct{})
	rt.Dispatch(func() {
		defer close(done)
		fn()
	})
	<-done
}

// loop is the runtime's single logical task executor. The channels
// are captured once; shutdownLoop clears the fields after signaling.
func (rt *Runtime) loop() {
	rt.mu.Lock()
	quit := rt.quit
	end := rt.loopEnd
	rt.mu.Unlock()

	defer close(end)
	for {
		select {
		case <-rt.wake:
			rt.drain()
		case <-quit:
			rt.drain()
			return
		}
	}
}

// drain runs queued tasks until the queue is empty, including tasks
// the running tasks enqueue.
func (rt *Runtime) drain() {
	for {
		rt.tasksMu.Lock()
		if len(rt.tasks) == 0 {
			rt.tasksMu.Unlock()
			return
		}
		fn := rt.tasks[0]
		rt.tasks = rt.tasks[1:]
		rt.tasksMu.Unlock()

		rt.safeRun(fn)
	}
}

// safeRun executes one task with panic recovery so a bad task cannot
// kill the loop.
func (rt *Runtime) safeRun(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			rt.logger.Error("runtime task panic", "panic", r)
		}
	}()
	fn()
}

// shutdownLoop signals the loop and waits for it to exit.
func (rt *Runtime) shutdownLoop() {
	rt.mu.Lock()
	quit := rt.quit
	end := rt.loopEnd
	rt.quit = nil
	rt.mu.Unlock()
	if quit == nil {
		return
	}
	close(quit)
	<-end
}

// hydrate binds every component container in the document.
func (rt *Runtime) hydrate() {
	rt.mu.Lock()
	doc := rt.document
	rt.mu.Unlock()
	if doc == nil {
		rt.logger.Debug("no document loaded, skipping hydration")
		return
	}

	deps := component.Deps{
		Hints:    rt.hintQueue,
		Applier:  rt.applier,
		Renderer: rt.renderer,
		Sync:     rt,
		Schedule: rt.Dispatch,
		Logger:   rt.logger,
	}
	mounted := component.Hydrate(doc, rt.registry, deps)
	rt.logger.Info("hydrated components", "count", len(mounted))
}

// DispatchEvent feeds one synthetic user event through the delegation
// layer on the runtime loop, returning whether an invocation was
// sent. target must be a node in the live document.
func (rt *Runtime) DispatchEvent(eventType string, target *html.Node, value string) bool {
	var sent bool
	rt.run(func() {
		sent = rt.delegate.Dispatch(eventType, target, value)
	})
	return sent
}

// ElementByID finds an element by its id attribute in the live
// document, or nil.
func (rt *Runtime) ElementByID(id string) *html.Node {
	doc := rt.Document()
	if doc == nil {
		return nil
	}
	return findByAttr(doc, "id", id)
}

func findByAttr(n *html.Node, attr, value string) *html.Node {
	if n.Type == html.ElementNode {
		if v, ok := dom.GetAttr(n, attr); ok && v == value {
			return n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByAttr(c, attr, value); found != nil {
			return found
		}
	}
	return nil
}
