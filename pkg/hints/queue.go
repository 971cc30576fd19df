package hints

import (
	"log/slog"
	"time"

	"github.com/minimact-dev/minimact/pkg/metrics"
	"github.com/minimact-dev/minimact/pkg/template"
	"github.com/minimact-dev/minimact/pkg/vdom"
)

// DefaultTTL bounds how long an unconsumed hint stays matchable.
const DefaultTTL = 5 * time.Second

// Hint is a pre-computed patch batch keyed to a predicted state
// transition.
type Hint struct {
	ComponentID    string         `json:"componentId"`
	HintID         string         `json:"hintId"`
	Patches        []vdom.Patch   `json:"patches"`
	Confidence     float64        `json:"confidence"`
	PredictedState template.State `json:"predictedState"`

	// QueuedAt and IsTemplate are derived on insert, not wire fields.
	QueuedAt   time.Time `json:"-"`
	IsTemplate bool      `json:"-"`
}

// key is the queue key for this hint.
func (h *Hint) key() string { return h.ComponentID + ":" + h.HintID }

// Match is the result of a successful hint probe. Patches are already
// materialized against the actual state change.
type Match struct {
	HintID     string
	Patches    []vdom.Patch
	Confidence float64
}

// Queue caches hints until they match, expire, or are cleared. It is
// owned by the runtime loop and is not safe for concurrent use.
type Queue struct {
	entries  map[string]*Hint
	order    []string // insertion order, for deterministic matching
	ttl      time.Duration
	now      func() time.Time
	renderer *template.Renderer
	logger   *slog.Logger
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithTTL overrides the hint TTL.
func WithTTL(ttl time.Duration) QueueOption {
	return func(q *Queue) { q.ttl = ttl }
}

// WithNow injects the clock, for tests.
func WithNow(now func() time.Time) QueueOption {
	return func(q *Queue) { q.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) QueueOption {
	return func(q *Queue) { q.logger = logger }
}

// NewQueue creates an empty hint queue.
func NewQueue(renderer *template.Renderer, opts ...QueueOption) *Queue {
	q := &Queue{
		entries:  make(map[string]*Hint),
		ttl:      DefaultTTL,
		now:      time.Now,
		renderer: renderer,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.renderer == nil {
		q.renderer = template.NewRenderer(q.logger)
	}
	return q
}

// Queue inserts a hint, replacing any entry with the same key, and
// evicts expired entries.
func (q *Queue) Queue(h *Hint) {
	if h == nil || h.ComponentID == "" || h.HintID == "" {
		q.logger.Warn("dropping hint without component or hint id")
		return
	}

	h.QueuedAt = q.now()
	h.IsTemplate = vdom.AnyTemplate(h.Patches)

	key := h.key()
	if _, exists := q.entries[key]; !exists {
		q.order = append(q.order, key)
	}
	q.entries[key] = h
	metrics.RecordHintQueued()

	q.evictExpired()
}

// Match probes the queue for a hint whose predicted state is
// satisfied by stateChanges. Hints are tried in insertion order; the
// first match is removed and returned with its patches materialized
// against the actual changes. Returns nil on miss.
func (q *Queue) Match(componentID string, stateChanges template.State) *Match {
	now := q.now()
	for _, key := range q.order {
		h, ok := q.entries[key]
		if !ok || h.ComponentID != componentID {
			continue
		}
		if now.Sub(h.QueuedAt) > q.ttl {
			continue // evictExpired will reap it
		}
		if !satisfies(h.PredictedState, stateChanges) {
			continue
		}

		q.remove(key)
		return &Match{
			HintID:     h.HintID,
			Patches:    q.renderer.MaterializePatches(h.Patches, stateChanges),
			Confidence: h.Confidence,
		}
	}
	return nil
}

// satisfies reports whether every predicted key is present in the
// actual changes with a deep-equal value. Extra actual keys are
// allowed.
func satisfies(predicted, actual template.State) bool {
	for k, want := range predicted {
		got, ok := actual[k]
		if !ok {
			return false
		}
		if !JSONEqual(want, got) {
			return false
		}
	}
	return true
}

// ClearComponent drops every hint for the component.
func (q *Queue) ClearComponent(componentID string) {
	for _, key := range append([]string(nil), q.order...) {
		if h, ok := q.entries[key]; ok && h.ComponentID == componentID {
			q.remove(key)
		}
	}
}

// ClearAll empties the queue.
func (q *Queue) ClearAll() {
	q.entries = make(map[string]*Hint)
	q.order = nil
}

// Len returns the number of live (possibly expired but unreaped)
// hints.
func (q *Queue) Len() int { return len(q.entries) }

// evictExpired reaps entries past the TTL.
func (q *Queue) evictExpired() {
	now := q.now()
	expired := 0
	for _, key := range append([]string(nil), q.order...) {
		h, ok := q.entries[key]
		if !ok {
			continue
		}
		if now.Sub(h.QueuedAt) > q.ttl {
			q.remove(key)
			expired++
		}
	}
	if expired > 0 {
		metrics.RecordHintsExpired(expired)
		q.logger.Debug("evicted expired hints", "count", expired)
	}
}

// remove deletes an entry and its order slot.
func (q *Queue) remove(key string) {
	delete(q.entries, key)
	for i, k := range q.order {
		if k == key {
			q.order = append(q.order[:i], q.order[i+1:]...)
			return
		}
	}
}
