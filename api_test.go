package reactor

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

// waitFor polls a condition until it returns true or the timeout is reached.
func waitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return condition()
}

func TestStore_InitialStateOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initial := State{"age": 35, "name": "kirk"}
	store := New(initial)

	if err := store.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if !reflect.DeepEqual(store.State(), initial) {
		t.Errorf("expected state equal to initial, got %v", store.State())
	}
	for k, v := range initial {
		if got := store.Selector(k)(); got != v {
			t.Errorf("selector %q: expected %v, got %v", k, v, got)
		}
	}
	if store.Status() != StatusHealthy {
		t.Errorf("expected healthy, got %s", store.Status())
	}
}

func TestStore_RejectsNilInitialField(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := New(State{"age": nil})
	if err := store.Start(ctx); err == nil {
		t.Fatal("expected error for nil initial field")
	}
}

func TestStore_RejectsMissingInitialState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := New(nil).Start(ctx); err == nil {
		t.Fatal("expected error for nil initial state")
	}
}

func TestStore_StartTwiceFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := New(State{"age": 35})
	if err := store.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := store.Start(ctx); err == nil {
		t.Fatal("expected error on second Start")
	}
}

func TestStore_EagerSourcesMergeInEmissionOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch1 := make(chan Patch, 1)
	ch2 := make(chan Patch, 1)

	store := New(State{"age": 35, "name": "kirk"}).
		Source(ChannelSource(ch1), ChannelSource(ch2))

	if err := store.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ch1 <- Patch{"age": 36}
	ch2 <- Patch{"name": "spock", "rank": "commander"}

	ok := waitFor(t, time.Second, func() bool {
		s := store.State()
		return s["age"] == 36 && s["name"] == "spock" && s["rank"] == "commander"
	})
	if !ok {
		t.Errorf("expected merged state, got %v", store.State())
	}
}

func TestStore_SourceFunctionReadsComposedState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := New(State{"age": 35}).
		Source(SourceFunc(func(ctx context.Context, r Reader) (<-chan Emission, error) {
			age := r.Get("age").(int)
			return Just(Patch{"age": age + 1}), nil
		}))

	if err := store.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if !waitFor(t, time.Second, func() bool { return store.Get("age") == 36 }) {
		t.Errorf("expected age 36, got %v", store.Get("age"))
	}
}

func TestStore_SourceErrorIsolatedAndRecorded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := make(chan Emission, 2)
	store := New(State{"age": 35}).
		Source(EmissionSource(ch)).
		ErrorHistorySize(4)

	if err := store.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ch <- Emission{Err: errors.New("poll failed")}

	if !waitFor(t, time.Second, func() bool { return store.Status() == StatusDegraded }) {
		t.Fatalf("expected degraded, got %s", store.Status())
	}
	if store.Get("age") != 35 {
		t.Errorf("failed emission must contribute no patch, got %v", store.Get("age"))
	}
	if store.LastError() == nil {
		t.Error("expected LastError set")
	}

	// The source stays connected: a later good emission recovers.
	ch <- Emission{Patch: Patch{"age": 40}}
	if !waitFor(t, time.Second, func() bool { return store.Get("age") == 40 }) {
		t.Errorf("expected recovery, got %v", store.Get("age"))
	}
	if store.Status() != StatusHealthy {
		t.Errorf("expected healthy after recovery, got %s", store.Status())
	}
	if store.LastError() != nil {
		t.Error("expected LastError cleared after commit")
	}
}

func TestStore_ValidateRejectsPatchAndRetainsState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := make(chan Patch, 2)
	store := New(State{"age": 35}).
		Source(ChannelSource(ch)).
		Validate(func(s State) error {
			if age, ok := s["age"].(int); ok && age < 0 {
				return errors.New("age must not be negative")
			}
			return nil
		})

	if err := store.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ch <- Patch{"age": -1}
	if !waitFor(t, time.Second, func() bool { return store.Status() == StatusDegraded }) {
		t.Fatalf("expected degraded, got %s", store.Status())
	}
	if store.Get("age") != 35 {
		t.Errorf("expected previous state retained, got %v", store.Get("age"))
	}

	ch <- Patch{"age": 36}
	if !waitFor(t, time.Second, func() bool { return store.Get("age") == 36 }) {
		t.Errorf("expected valid patch applied, got %v", store.Get("age"))
	}
}

func TestStore_StopReleasesEverything(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var final Status
	stopped := make(chan struct{})
	store := New(State{"age": 35}).
		OnStop(func(st Status) {
			final = st
			close(stopped)
		})

	if err := store.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("OnStop not invoked")
	}
	if final != StatusStopped {
		t.Errorf("expected stopped, got %s", final)
	}
	if store.Status() != StatusStopped {
		t.Errorf("expected stopped status, got %s", store.Status())
	}
}

func TestStore_PipelineMiddlewareTransformsPatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := make(chan Patch, 1)
	store := New(
		State{"age": 35},
		WithMiddleware(UseTransform("stamp", func(_ context.Context, ap *Apply) *Apply {
			next := make(Patch, len(ap.Patch)+1)
			for k, v := range ap.Patch {
				next[k] = v
			}
			next["origin"] = ap.Origin
			ap.Patch = next
			return ap
		})),
	).Source(ChannelSource(ch))

	if err := store.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ch <- Patch{"age": 36}
	if !waitFor(t, time.Second, func() bool { return store.Get("origin") == "source:0" }) {
		t.Errorf("expected middleware stamp, got %v", store.State())
	}
}

func TestStore_ActionEffectForUnknownActionFailsStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := New(State{"age": 35}).
		ActionEffect("missing", func(Envelope) {})

	if err := store.Start(ctx); err == nil {
		t.Fatal("expected error for unknown action reference")
	}
}
