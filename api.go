package reactor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/pipz"
)

// Store composes one or more asynchronous patch streams into a single
// consistent, observable state value. Sources, actions, selectors, and
// effects are declared before Start; the owning context governs the lifetime
// of every subscription.
type Store struct {
	initial  State
	sources  []Source
	lazy     []Source
	actions  map[string]*action
	order    []string // action declaration order
	derived  map[string]func(Reader) any
	effects  []*effect
	envFns   map[string][]func(Envelope)
	guard    func(State) error
	pipeline pipz.Chainable[*Apply]
	clock    clockz.Clock
	metrics  MetricsProvider
	onStop   func(Status)

	status    atomic.Int32
	current   atomic.Pointer[State]
	lastError atomic.Pointer[error]
	errors    *errorRing

	mu      sync.Mutex
	started bool
	ctx     context.Context

	// cycleMu serializes patch application and the effect runs each
	// commit schedules.
	cycleMu sync.Mutex

	selMu     sync.Mutex
	selectors map[string]func() any

	lazyArmed atomic.Bool
	lazyOnce  sync.Once
}

// New creates a Store with the given initial state. Every declared field must
// carry a concrete non-nil initial value; partial initial state is rejected
// at Start. Pipeline options (With*) configure the patch-application
// pipeline; instance configuration uses chainable methods before Start().
//
// Example:
//
//	store := reactor.New(reactor.State{"age": 35, "name": "kirk"}).
//	    Source(reactor.ChannelSource(updates)).
//	    Action("grow", growReducer).
//	    Effect("log", func(r reactor.Reader) {
//	        log.Printf("age is now %v", r.Get("age"))
//	    })
//
//	if err := store.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
func New(initial State, opts ...Option) *Store {
	terminal := pipz.Transform(commitID, func(_ context.Context, ap *Apply) *Apply {
		return ap
	})

	// A nil initial state stays nil so Start can reject it.
	var snap State
	if initial != nil {
		snap = make(State, len(initial))
		for k, v := range initial {
			snap[k] = v
		}
	}

	s := &Store{
		initial:   snap,
		actions:   make(map[string]*action),
		derived:   make(map[string]func(Reader) any),
		envFns:    make(map[string][]func(Envelope)),
		pipeline:  buildPipeline(terminal, opts),
		clock:     clockz.RealClock,
		selectors: make(map[string]func() any),
	}
	s.current.Store(&snap)
	s.status.Store(int32(StatusLoading))
	return s
}

// -----------------------------------------------------------------------------
// Chainable Instance Configuration
// -----------------------------------------------------------------------------

// Source adds eager patch sources, connected at Start in declaration order.
// Must be called before Start().
func (s *Store) Source(srcs ...Source) *Store {
	s.sources = append(s.sources, srcs...)
	return s
}

// LazySource adds deferred patch sources. Their subscription is withheld
// until the first read of the composed state or any selector, then every lazy
// source is connected exactly once, synchronously within that read.
// Must be called before Start().
func (s *Store) LazySource(srcs ...Source) *Store {
	s.lazy = append(s.lazy, srcs...)
	return s
}

// Action declares a named action. The reducer is invoked once at Start; its
// output stream is merged into the state cell like any other source, feeds
// the action's effect callbacks, and is exposed via ActionStream.
// Must be called before Start().
func (s *Store) Action(name string, reducer Reducer) *Store {
	if _, ok := s.actions[name]; ok {
		return s
	}
	s.actions[name] = &action{name: name, reducer: reducer}
	s.order = append(s.order, name)
	return s
}

// ActionEffect registers a callback receiving an Envelope for every emission
// and every error of the named action's reducer stream.
// Must be called before Start().
func (s *Store) ActionEffect(name string, fn func(Envelope)) *Store {
	s.envFns[name] = append(s.envFns[name], fn)
	return s
}

// Derive declares a named selector computed from other selectors. The
// function runs at accessor call time against the current state; inside an
// effect its reads register as that effect's dependencies.
// Must be called before Start().
func (s *Store) Derive(name string, fn func(Reader) any) *Store {
	s.derived[name] = fn
	return s
}

// Effect registers a side-effect callback. It runs once eagerly at Start to
// establish its dependency set and re-runs once per commit that changes any
// key it read. Effects must not block; a blocked effect stalls patch
// application.
// Must be called before Start().
func (s *Store) Effect(name string, fn func(Reader)) *Store {
	s.effects = append(s.effects, &effect{name: name, fn: fn})
	return s
}

// Validate sets a post-merge guard. A failing validation rejects the patch:
// the previous state is retained and the failure is surfaced like any other
// emission error. Must be called before Start().
func (s *Store) Validate(fn func(State) error) *Store {
	s.guard = fn
	return s
}

// Clock sets a custom clock for time operations.
// Use this with clockz.FakeClock for deterministic timing tests.
// Must be called before Start().
func (s *Store) Clock(clock clockz.Clock) *Store {
	s.clock = clock
	return s
}

// Metrics sets a metrics provider for observability integration.
// Must be called before Start().
func (s *Store) Metrics(provider MetricsProvider) *Store {
	s.metrics = provider
	return s
}

// OnStop sets a callback invoked when the store's owning context is canceled.
// The callback receives the final status. Must be called before Start().
func (s *Store) OnStop(fn func(Status)) *Store {
	s.onStop = fn
	return s
}

// ErrorHistorySize sets the number of recent errors to retain.
// Use 0 (default) to only retain the most recent error via LastError().
// Must be called before Start().
func (s *Store) ErrorHistorySize(n int) *Store {
	s.errors = newErrorRing(n)
	return s
}

// -----------------------------------------------------------------------------
// Health
// -----------------------------------------------------------------------------

// Status returns the current health of the Store.
func (s *Store) Status() Status {
	return Status(s.status.Load())
}

// LastError returns the last error encountered, or nil if no error occurred.
func (s *Store) LastError() error {
	ptr := s.lastError.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// ErrorHistory returns the recent error history, oldest first.
// Returns nil unless enabled via ErrorHistorySize.
func (s *Store) ErrorHistory() []error {
	return s.errors.all()
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start validates the configuration, connects every eager source in
// declaration order, invokes every reducer once, arms the lazy connection
// gate, and runs every effect once eagerly in registration order. Teardown is
// ctx cancellation: every subscription, action channel, and effect is
// released together.
//
// Start can only be called once. Subsequent calls return an error.
func (s *Store) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("store already started")
	}

	if err := s.checkConfig(); err != nil {
		s.mu.Unlock()
		return err
	}

	s.started = true
	s.ctx = ctx
	s.mu.Unlock()

	capitan.Emit(ctx, StoreStarted,
		KeySources.Field(len(s.sources)+len(s.lazy)),
		KeyActions.Field(len(s.order)),
	)

	// Eager sources, declaration order.
	for i, src := range s.sources {
		label := fmt.Sprintf("source:%d", i)
		if err := s.connect(label, "eager", src); err != nil {
			return fmt.Errorf("failed to start %s: %w", label, err)
		}
	}

	// Action channels: one input channel and one reducer invocation per
	// declaration, in declaration order.
	for _, name := range s.order {
		a := s.actions[name]
		a.in = make(chan any)
		a.effects = s.envFns[name]
		a.out = a.reducer(ctx, s, a.in)
		if a.out == nil {
			return fmt.Errorf("action %q: reducer returned nil stream", name)
		}
		go s.consumeAction(a)
	}

	// Lazy sources connect on first read from here on.
	s.lazyArmed.Store(true)

	// Eager effect runs establish dependency sets, registration order.
	s.cycleMu.Lock()
	for _, e := range s.effects {
		s.runEffect(e)
	}
	s.cycleMu.Unlock()

	s.transitionStatus(StatusHealthy)

	go s.waitForStop(ctx)
	return nil
}

// checkConfig rejects partial initial state and dangling references.
// Callers hold s.mu.
func (s *Store) checkConfig() error {
	if s.initial == nil {
		return fmt.Errorf("initial state is required")
	}
	for k, v := range s.initial {
		if v == nil {
			return fmt.Errorf("initial state field %q has no value", k)
		}
	}
	for name := range s.envFns {
		if _, ok := s.actions[name]; !ok {
			return fmt.Errorf("action effect references unknown action %q", name)
		}
	}
	return nil
}

func (s *Store) waitForStop(ctx context.Context) {
	<-ctx.Done()
	s.transitionStatus(StatusStopped)
	capitan.Emit(ctx, StoreStopped,
		KeyStatus.Field(StatusStopped.String()),
	)
	if s.onStop != nil {
		s.onStop(StatusStopped)
	}
}

// -----------------------------------------------------------------------------
// Source connection & patch application
// -----------------------------------------------------------------------------

// connect subscribes one source and starts draining it. A connection error
// from an eager source fails Start; lazy connection errors are isolated.
func (s *Store) connect(label, mode string, src Source) error {
	ch, err := src.Patches(s.ctx, s)
	if err != nil {
		return err
	}
	capitan.Emit(s.ctx, SourceConnected,
		KeyOrigin.Field(label),
		KeyMode.Field(mode),
	)
	go s.consumeSource(label, ch)
	return nil
}

// connectLazy trips the one-shot connection gate. Every lazy source is
// connected exactly once, synchronously within the read that got here first.
// Reads before Start return the initial snapshot without consuming the gate.
func (s *Store) connectLazy() {
	if !s.lazyArmed.Load() {
		return
	}
	s.lazyOnce.Do(func() {
		for i, src := range s.lazy {
			label := fmt.Sprintf("lazy:%d", i)
			if err := s.connect(label, "lazy", src); err != nil {
				s.recordFailure(label, "connect", err, 0)
				capitan.Emit(s.ctx, SourceFailed,
					KeyOrigin.Field(label),
					KeyError.Field(err.Error()),
				)
			}
		}
	})
}

// consumeSource drains one plain source. Error emissions are isolated: the
// failing emission contributes no patch, the error is recorded, and the
// source stays connected.
func (s *Store) consumeSource(label string, ch <-chan Emission) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case em, ok := <-ch:
			if !ok {
				return
			}
			if em.Err != nil {
				s.recordFailure(label, "source", em.Err, 0)
				capitan.Emit(s.ctx, SourceFailed,
					KeyOrigin.Field(label),
					KeyError.Field(em.Err.Error()),
				)
				continue
			}
			// Failures are recorded inside applyPatch.
			_, _ = s.applyPatch(label, em.Patch)
		}
	}
}

// applyPatch runs one emission through the pipeline, merges it, and commits.
// It returns the post-commit snapshot. One call is one mutation cycle:
// dependent effects run once before the cycle ends.
func (s *Store) applyPatch(origin string, p Patch) (State, error) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	if s.ctx.Err() != nil {
		return nil, fmt.Errorf("store stopped: %w", s.ctx.Err())
	}

	start := s.clock.Now()
	prev := s.snapshot()

	req := &Apply{Origin: origin, Patch: p, Previous: prev}
	processed, err := s.pipeline.Process(s.ctx, req)
	if err != nil {
		s.recordFailure(origin, "pipeline", err, s.clock.Since(start))
		capitan.Emit(s.ctx, PatchRejected,
			KeyOrigin.Field(origin),
			KeyStage.Field("pipeline"),
			KeyError.Field(err.Error()),
		)
		return nil, fmt.Errorf("pipeline failed: %w", err)
	}

	next, changed := merge(prev, processed.Patch)

	if s.guard != nil {
		if err := s.guard(next); err != nil {
			s.recordFailure(origin, "validate", err, s.clock.Since(start))
			capitan.Emit(s.ctx, PatchRejected,
				KeyOrigin.Field(origin),
				KeyStage.Field("validate"),
				KeyError.Field(err.Error()),
			)
			return nil, fmt.Errorf("validation failed: %w", err)
		}
	}

	s.lastError.Store(nil)
	s.errors.clear()
	s.transitionStatus(StatusHealthy)
	s.current.Store(&next)

	capitan.Emit(s.ctx, PatchApplied,
		KeyOrigin.Field(origin),
		KeyChanged.Field(strings.Join(changed, ",")),
	)
	if s.metrics != nil {
		s.metrics.OnPatchApplied(origin, s.clock.Since(start))
	}

	if len(changed) > 0 {
		s.runDependentEffects(changed)
	}
	return next, nil
}

func (s *Store) recordFailure(origin, stage string, err error, elapsed time.Duration) {
	e := err
	s.lastError.Store(&e)
	s.errors.push(err)
	s.transitionStatus(StatusDegraded)
	if s.metrics != nil {
		s.metrics.OnPatchRejected(origin, stage, elapsed)
	}
}

func (s *Store) transitionStatus(next Status) {
	old := Status(s.status.Swap(int32(next)))
	if old == next {
		return
	}
	capitan.Emit(s.ctx, StoreStatusChanged,
		KeyOldStatus.Field(old.String()),
		KeyNewStatus.Field(next.String()),
	)
	if s.metrics != nil {
		s.metrics.OnStatusChange(old, next)
	}
}
