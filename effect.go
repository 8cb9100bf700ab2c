package reactor

import "github.com/zoobzio/capitan"

// effect is one registered side-effect callback plus the dependency set
// recorded during its last run.
type effect struct {
	name string
	fn   func(Reader)
	deps map[string]struct{}
	all  bool // read the whole state; depends on every key
}

// trackingReader is the Reader handed to a running effect. Every read
// registers the effect as a dependent of the keys it touched, so commits
// only re-run effects whose inputs changed.
type trackingReader struct {
	s *Store
	e *effect
}

func (t *trackingReader) State() State {
	t.e.all = true
	t.s.connectLazy()
	return t.s.snapshot()
}

func (t *trackingReader) Get(key string) any {
	t.e.deps[key] = struct{}{}
	t.s.connectLazy()
	return t.s.snapshot()[key]
}

func (t *trackingReader) Select(name string) any {
	// derived is fixed once the store starts; no lock needed here.
	if d, ok := t.s.derived[name]; ok {
		// Derived selectors evaluate against the tracking reader so the
		// keys they read register for this effect.
		return d(t)
	}
	return t.Get(name)
}

// runEffect re-tracks and runs one effect. Callers hold cycleMu, which
// serializes effect runs with patch application.
func (s *Store) runEffect(e *effect) {
	start := s.clock.Now()
	e.deps = make(map[string]struct{})
	e.all = false
	e.fn(&trackingReader{s: s, e: e})
	capitan.Emit(s.ctx, EffectRan, KeyEffect.Field(e.name))
	if s.metrics != nil {
		s.metrics.OnEffectRun(e.name, s.clock.Since(start))
	}
}

// runDependentEffects re-runs, once each, every effect that depends on any
// of the keys changed by the committed patch. One commit is one batch: an
// effect runs at most once per cycle regardless of how many of its keys
// changed.
func (s *Store) runDependentEffects(changed []string) {
	for _, e := range s.effects {
		if e.all {
			s.runEffect(e)
			continue
		}
		for _, k := range changed {
			if _, ok := e.deps[k]; ok {
				s.runEffect(e)
				break
			}
		}
	}
}
