package reactor

// Reader provides read access to the composed state. Sources, reducers,
// derived selectors, and effects all receive a Reader bound to the one
// authoritative state cell. Inside an effect the Reader additionally records
// which keys were read, to drive selective re-runs.
type Reader interface {
	// State returns the whole current snapshot.
	State() State

	// Get returns one top-level key's current value.
	Get(key string) any

	// Select evaluates a derived selector by name, falling back to the
	// key of that name if no derived selector is declared.
	Select(name string) any
}

// State returns the current snapshot. The first read after Start, whether of
// the whole state or of any selector, synchronously connects every lazy source
// before returning.
func (s *Store) State() State {
	s.connectLazy()
	return s.snapshot()
}

// Get returns one top-level key's current value.
func (s *Store) Get(key string) any {
	s.connectLazy()
	return s.snapshot()[key]
}

// Select evaluates the named derived selector, or reads the key of that name.
func (s *Store) Select(name string) any {
	return s.Selector(name)()
}

// Selector returns the memoized zero-argument accessor for a top-level state
// key or a derived selector name. Repeated calls with the same name return
// the same accessor. Invoking the accessor triggers lazy connection, like any
// other read.
func (s *Store) Selector(name string) func() any {
	s.selMu.Lock()
	defer s.selMu.Unlock()

	if fn, ok := s.selectors[name]; ok {
		return fn
	}

	var fn func() any
	if d, ok := s.derived[name]; ok {
		fn = func() any {
			s.connectLazy()
			return d(s)
		}
	} else {
		fn = func() any {
			s.connectLazy()
			return s.snapshot()[name]
		}
	}
	s.selectors[name] = fn
	return fn
}

func (s *Store) snapshot() State {
	return *s.current.Load()
}

// Ensure Store implements Reader.
var _ Reader = (*Store)(nil)
