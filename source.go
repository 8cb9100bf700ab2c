package reactor

import (
	"context"

	"github.com/zoobzio/streamz"
)

// Source produces a stream of patch emissions feeding the composed state.
// The Reader is bound to the composed Store, so a source may read live state
// while constructing its own emissions.
//
// Implementations must close the returned channel when the context is
// canceled or the source is exhausted.
type Source interface {
	// Patches begins producing and returns the emission channel. For an
	// eager source this is called during Start; for a lazy source it is
	// called synchronously inside the first read of the composed state.
	Patches(ctx context.Context, r Reader) (<-chan Emission, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, r Reader) (<-chan Emission, error)

// Patches calls f.
func (f SourceFunc) Patches(ctx context.Context, r Reader) (<-chan Emission, error) {
	return f(ctx, r)
}

// ChannelSource wraps an existing patch channel as a Source. Values are
// forwarded through an internal goroutine so the producer is decoupled from
// the store's consumption.
func ChannelSource(ch <-chan Patch) Source {
	return SourceFunc(func(ctx context.Context, _ Reader) (<-chan Emission, error) {
		out := make(chan Emission)
		go func() {
			defer close(out)
			for {
				select {
				case <-ctx.Done():
					return
				case p, ok := <-ch:
					if !ok {
						return
					}
					select {
					case out <- Emission{Patch: p}:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
		return out, nil
	})
}

// EmissionSource wraps an existing emission channel as a Source. Use this for
// producers that report per-emission errors alongside patches.
func EmissionSource(ch <-chan Emission) Source {
	return SourceFunc(func(ctx context.Context, _ Reader) (<-chan Emission, error) {
		out := make(chan Emission)
		go func() {
			defer close(out)
			for {
				select {
				case <-ctx.Done():
					return
				case em, ok := <-ch:
					if !ok {
						return
					}
					select {
					case out <- em:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
		return out, nil
	})
}

// FromWatcher adapts a byte-level Watcher into a Source by decoding each
// value with the codec. A value that fails to decode becomes an error
// emission; the watcher stays connected.
func FromWatcher(w Watcher, codec Codec) Source {
	return SourceFunc(func(ctx context.Context, _ Reader) (<-chan Emission, error) {
		raw, err := w.Watch(ctx)
		if err != nil {
			return nil, err
		}
		out := make(chan Emission)
		go func() {
			defer close(out)
			for {
				select {
				case <-ctx.Done():
					return
				case data, ok := <-raw:
					if !ok {
						return
					}
					p, err := codec.Decode(data)
					em := Emission{Patch: p}
					if err != nil {
						em = Emission{Err: err}
					}
					select {
					case out <- em:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
		return out, nil
	})
}

// -----------------------------------------------------------------------------
// Source Processors
// -----------------------------------------------------------------------------
// These wrap a Source's emission channel with streamz processors. They apply
// to plain and lazy sources only; action reducer streams are consumed
// directly so that cancelling reducers stay cancellable.

// Buffered wraps a source with a buffer to absorb bursts. Emissions are held
// up to size before backpressure reaches the underlying producer.
func Buffered(src Source, size int) Source {
	return SourceFunc(func(ctx context.Context, r Reader) (<-chan Emission, error) {
		ch, err := src.Patches(ctx, r)
		if err != nil {
			return nil, err
		}
		return streamz.NewBuffer[Emission](size).Process(ctx, ch), nil
	})
}

// Throttled wraps a source with rate limiting. At most perSecond emissions
// per second reach the store.
func Throttled(src Source, perSecond float64) Source {
	return SourceFunc(func(ctx context.Context, r Reader) (<-chan Emission, error) {
		ch, err := src.Patches(ctx, r)
		if err != nil {
			return nil, err
		}
		return streamz.NewThrottle[Emission](perSecond, streamz.RealClock).Process(ctx, ch), nil
	})
}

// Filtered wraps a source with a patch predicate. Patches the predicate
// rejects are dropped before they reach the store; error emissions always
// pass through.
func Filtered(src Source, name string, keep func(Patch) bool) Source {
	return SourceFunc(func(ctx context.Context, r Reader) (<-chan Emission, error) {
		ch, err := src.Patches(ctx, r)
		if err != nil {
			return nil, err
		}
		filter := streamz.NewFilter[Emission](func(em Emission) bool {
			return em.Err != nil || keep(em.Patch)
		}).WithName(name)
		return filter.Process(ctx, ch), nil
	})
}
