/*
Package reactor composes asynchronous patch streams into a single consistent,
observable state value, with selectors for reads, named actions for writes,
and effects for side effects.

reactor is designed to be embedded within services that need one authoritative
piece of in-process state fed by many producers (config watchers, poll loops,
event subscriptions, user commands) without each producer reaching into
shared maps. It follows the same builder pattern as flux: declare everything,
then Start.

# Basic Usage

Declare the initial state, sources, actions, and effects, then start:

	store := reactor.New(reactor.State{"age": 35, "name": "kirk"}).
	    Source(reactor.ChannelSource(updates)).
	    LazySource(expensiveSource).
	    Action("grow", func(ctx context.Context, r reactor.Reader, in <-chan any) <-chan reactor.Emission {
	        return reactor.Map(ctx, in, func(v any) (reactor.Patch, error) {
	            age := r.Get("age").(int)
	            return reactor.Patch{"age": age + v.(int)}, nil
	        })
	    }).
	    Effect("log", func(r reactor.Reader) {
	        log.Printf("age: %v", r.Get("age"))
	    })

	if err := store.Start(ctx); err != nil {
	    log.Fatal(err)
	}

Read state through the store or through memoized selectors:

	snapshot := store.State()
	age := store.Selector("age")
	_ = age()

Dispatch an action and wait for the resulting commit:

	pending, err := store.Dispatch("grow", 1)
	if err != nil {
	    return err
	}
	snap, err := pending.Wait(ctx)

# Patches and Merging

A Patch is a partial-state map. Applying it deep-merges onto the current
state: nested maps merge key by key, everything else replaces, absent keys are
left untouched. The state cell is the only shared mutable resource; every
mutation flows through the same apply path, serialized per commit.

# Sources

The Source interface abstracts patch producers. Eager sources connect at
Start in declaration order. Lazy sources connect exactly once, synchronously
inside the first read of the composed state or any selector. A source that
emits an error is isolated: the error is recorded, the store degrades, and
the source stays connected.

Byte-level producers plug in through Watcher and Codec:

	src := reactor.FromWatcher(reactor.NewFileWatcher("overrides.json"), reactor.JSONCodec{})

Source processors wrap bursty producers:

	src = reactor.Buffered(src, 100)
	src = reactor.Throttled(src, 10.0)

# Actions

Each declared action gets an input channel and a reducer invoked once at
Start. The reducer's output stream merges into the state cell like any other
source. Dispatch returns a Pending that resolves with the snapshot taken
immediately after the dispatch's patch commits, and never resolves on
reducer error. Failures surface through ActionEffect callbacks as Envelopes
carrying either a patch or an error, never both.

Cancellation semantics belong to the reducer. Compose with Switch for
cancel-on-latest behavior; the store never buffers action inputs, so an
in-flight computation stays cancellable.

# Effects

Effects run once eagerly at Start and re-run when a commit changes a key they
read. Dependency tracking is explicit: the Reader handed to a running effect
records every key it touches. One commit is one batch: an effect runs at
most once per commit. Effects run on the apply path and must not block.

# Pipeline

Every emission flows through a pipz pipeline before commit. Pipeline options
wrap the commit path with reliability patterns:

	store := reactor.New(initial,
	    reactor.WithRetry(3),
	    reactor.WithTimeout(5*time.Second),
	    reactor.WithMiddleware(reactor.UseEffect("audit", auditFn)),
	)

The package is built on top of:
  - capitan: typed signals for lifecycle observability
  - clockz: testable time for delays and timers
  - pipz: composable apply pipelines
  - streamz: channel-based source processors
*/
package reactor
