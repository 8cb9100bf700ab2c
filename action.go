package reactor

import (
	"context"
	"fmt"
	"sync"

	"github.com/zoobzio/capitan"
)

// Envelope is the record delivered to action-effect callbacks. Exactly one of
// Patch or Err is set: Patch for a successful emission, Err when the reducer
// stream failed or the emission was rejected on its way into the state cell.
//
// Payload is the most recently dispatched input for the action, carried as
// best-effort attribution; reducers that reorder or coalesce inputs may emit
// under a newer payload.
type Envelope struct {
	Name    string
	Payload any
	Patch   Patch
	Err     error
}

// Pending is the completion handle returned by a dispatch. It resolves with
// the state snapshot taken immediately after the dispatch's patch is
// committed, and never resolves on reducer error: the handle models "state
// after successful update", not the outcome of the operation. Failures are
// surfaced through action-effect callbacks instead.
type Pending struct {
	done chan State

	// Guarded by the owning action's mutex. after is the count of
	// emissions already drawn from the reducer stream when the reducer
	// accepted this dispatch's value; only a commit drawn past that point
	// resolves the handle.
	after    uint64
	complete bool
	sent     bool
	resolved bool
}

func newPending() *Pending {
	return &Pending{done: make(chan State, 1)}
}

// Done returns a channel that receives the post-commit snapshot exactly once,
// then closes.
func (p *Pending) Done() <-chan State {
	return p.done
}

// Wait blocks until the dispatch resolves or ctx is canceled.
func (p *Pending) Wait(ctx context.Context) (State, error) {
	select {
	case snap := <-p.done:
		return snap, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// action is one declared named channel: an input channel, the reducer's
// output stream, and the bookkeeping that correlates dispatches with
// committed emissions.
type action struct {
	name    string
	reducer Reducer

	in  chan any
	out <-chan Emission

	mu         sync.Mutex
	pulled     uint64 // emissions drawn from the reducer stream so far
	lastCommit uint64 // pull index of the most recent committed emission
	pendings   []*Pending
	subs       []chan Emission
	effects    []func(Envelope)
	payload    any
}

// resolveReady resolves, under a.mu, every pending whose arming point has
// been passed by the most recent committed emission.
func (a *action) resolveReady(snap State) {
	kept := a.pendings[:0]
	for _, p := range a.pendings {
		if p.complete && a.lastCommit > p.after {
			p.resolve(snap)
			continue
		}
		kept = append(kept, p)
	}
	a.pendings = kept
}

func (p *Pending) resolve(snap State) {
	if p.resolved {
		return
	}
	p.resolved = true
	p.done <- snap
	close(p.done)
}

// broadcast delivers a raw reducer emission to every tee subscriber. A full
// subscriber drops the emission rather than stalling the apply path.
func (a *action) broadcast(em Emission) {
	a.mu.Lock()
	subs := a.subs
	a.mu.Unlock()
	for _, sub := range subs {
		select {
		case sub <- em:
		default:
		}
	}
}

func (a *action) deliver(env Envelope) {
	for _, fn := range a.effects {
		fn(env)
	}
}

// Dispatch pushes a single value into the named action's input channel and
// returns a Pending that resolves with the snapshot taken immediately after
// the next patch committed from an emission drawn past this push. The push is
// synchronous: Dispatch blocks until the reducer receives the value, and the
// handle is armed only after that acceptance, so an earlier value's commit
// landing mid-push cannot resolve it.
func (s *Store) Dispatch(name string, payload any) (*Pending, error) {
	a, err := s.runningAction(name)
	if err != nil {
		return nil, err
	}

	p := newPending()
	p.complete = true

	a.mu.Lock()
	a.payload = payload
	a.mu.Unlock()

	capitan.Emit(s.ctx, ActionDispatched, KeyAction.Field(name))
	if s.metrics != nil {
		s.metrics.OnActionDispatched(name)
	}

	select {
	case a.in <- payload:
	case <-s.ctx.Done():
		return nil, fmt.Errorf("store stopped: %w", s.ctx.Err())
	}

	a.mu.Lock()
	p.after = a.pulled
	a.pendings = append(a.pendings, p)
	a.mu.Unlock()
	return p, nil
}

// DispatchStream subscribes the supplied value stream and forwards every
// value into the named action's input channel. Each intermediate emission
// applies its patch as it arrives; the returned Pending resolves once, after
// the input stream completes and a patch drawn past the final forwarded value
// has been committed. An input stream that completes without values resolves
// immediately with the current snapshot.
func (s *Store) DispatchStream(name string, values <-chan any) (*Pending, error) {
	a, err := s.runningAction(name)
	if err != nil {
		return nil, err
	}

	p := newPending()
	a.mu.Lock()
	a.pendings = append(a.pendings, p)
	a.mu.Unlock()

	go func() {
		for {
			select {
			case <-s.ctx.Done():
				return
			case v, ok := <-values:
				if !ok {
					a.mu.Lock()
					p.complete = true
					if !p.sent || a.lastCommit > p.after {
						p.resolve(s.snapshot())
						a.unregisterLocked(p)
					}
					a.mu.Unlock()
					return
				}

				a.mu.Lock()
				a.payload = v
				a.mu.Unlock()

				capitan.Emit(s.ctx, ActionDispatched, KeyAction.Field(name))
				if s.metrics != nil {
					s.metrics.OnActionDispatched(name)
				}

				select {
				case a.in <- v:
					// Re-arm at acceptance of each value; the final
					// arming point is what completion resolves against.
					a.mu.Lock()
					p.after = a.pulled
					p.sent = true
					a.mu.Unlock()
				case <-s.ctx.Done():
					return
				}
			}
		}
	}()
	return p, nil
}

// ActionStream returns a tee of the named action's raw reducer output stream
// for external composition, for example feeding one action's emissions into
// another store as a Source. The channel is buffered; emissions are dropped
// for subscribers that fall behind. It is closed when the reducer stream
// completes or the store stops.
func (s *Store) ActionStream(name string) (<-chan Emission, error) {
	s.mu.Lock()
	a, ok := s.actions[name]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown action %q", name)
	}

	sub := make(chan Emission, actionStreamBuffer)
	a.mu.Lock()
	a.subs = append(a.subs, sub)
	a.mu.Unlock()
	return sub, nil
}

// actionStreamBuffer is the tee subscriber capacity.
const actionStreamBuffer = 64

func (s *Store) runningAction(name string) (*action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[name]
	if !ok {
		return nil, fmt.Errorf("unknown action %q", name)
	}
	if !s.started {
		return nil, fmt.Errorf("store not started")
	}
	return a, nil
}

func (a *action) unregisterLocked(p *Pending) {
	for i, q := range a.pendings {
		if q == p {
			a.pendings = append(a.pendings[:i], a.pendings[i+1:]...)
			return
		}
	}
}

// consumeAction drains one action's reducer stream: applies each successful
// patch, resolves dispatch handles, delivers envelopes, and tees the raw
// emission to subscribers. Each emission is numbered as it is drawn, before
// processing, so dispatch handles armed at value acceptance can tell commits
// of earlier in-flight values from commits of their own. Envelope delivery
// happens after the apply attempt; both always occur for every emission.
func (s *Store) consumeAction(a *action) {
	for em := range a.out {
		a.mu.Lock()
		a.pulled++
		idx := a.pulled
		a.mu.Unlock()

		if em.Err != nil {
			s.recordFailure(a.name, "action", em.Err, 0)
			capitan.Emit(s.ctx, ActionFailed,
				KeyAction.Field(a.name),
				KeyError.Field(em.Err.Error()),
			)
			a.deliver(Envelope{Name: a.name, Payload: a.currentPayload(), Err: em.Err})
			a.broadcast(em)
			continue
		}

		snap, err := s.applyPatch(a.name, em.Patch)
		if err != nil {
			capitan.Emit(s.ctx, ActionFailed,
				KeyAction.Field(a.name),
				KeyError.Field(err.Error()),
			)
			a.deliver(Envelope{Name: a.name, Payload: a.currentPayload(), Err: err})
			a.broadcast(em)
			continue
		}

		a.mu.Lock()
		a.lastCommit = idx
		a.resolveReady(snap)
		payload := a.payload
		a.mu.Unlock()

		a.deliver(Envelope{Name: a.name, Payload: payload, Patch: em.Patch})
		a.broadcast(em)
	}

	a.mu.Lock()
	for _, sub := range a.subs {
		close(sub)
	}
	a.subs = nil
	a.mu.Unlock()
}

func (a *action) currentPayload() any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.payload
}
