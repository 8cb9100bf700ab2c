package reactor

import (
	"context"
	"time"

	"github.com/zoobzio/clockz"
)

// Stream operators for composing reducer pipelines out of channels. Patches
// from a single channel apply in emission order; cross-channel ordering is
// whatever Merge observes.

// Just returns a closed single-emission stream carrying p.
func Just(p Patch) <-chan Emission {
	out := make(chan Emission, 1)
	out <- Emission{Patch: p}
	close(out)
	return out
}

// Fail returns a closed single-emission stream carrying err.
func Fail(err error) <-chan Emission {
	out := make(chan Emission, 1)
	out <- Emission{Err: err}
	close(out)
	return out
}

// Map transforms each input value into an emission. An fn error becomes an
// error emission; the stream continues with subsequent values.
func Map[I any](ctx context.Context, in <-chan I, fn func(I) (Patch, error)) <-chan Emission {
	out := make(chan Emission)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					return
				}
				p, err := fn(v)
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
	return out
}

// Switch projects each input value into an inner emission stream and cancels
// the previous projection when a new value arrives. This is the
// cancel-on-latest composition: only the most recent input's emissions reach
// the output. When the input channel closes, the in-flight inner stream is
// drained to completion before the output closes.
func Switch[I any](ctx context.Context, in <-chan I, project func(ctx context.Context, v I) <-chan Emission) <-chan Emission {
	out := make(chan Emission)
	go func() {
		defer close(out)

		var inner <-chan Emission
		stop := func() {}
		defer func() { stop() }()

		for {
			select {
			case <-ctx.Done():
				return

			case v, ok := <-in:
				if !ok {
					// Input complete: drain the current inner stream.
					if inner == nil {
						return
					}
					for {
						select {
						case <-ctx.Done():
							return
						case em, ok := <-inner:
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
				}
				stop()
				innerCtx, cancel := context.WithCancel(ctx)
				stop = cancel
				inner = project(innerCtx, v)

			case em, ok := <-inner:
				if !ok {
					inner = nil
					continue
				}
				select {
				case out <- em:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Merge fans multiple channels into one. The output closes after every input
// has closed.
func Merge[T any](ctx context.Context, ins ...<-chan T) <-chan T {
	out := make(chan T)
	done := make(chan struct{})

	remaining := len(ins)
	if remaining == 0 {
		close(out)
		return out
	}

	for _, in := range ins {
		go func(in <-chan T) {
			defer func() {
				select {
				case done <- struct{}{}:
				case <-ctx.Done():
				}
			}()
			for {
				select {
				case <-ctx.Done():
					return
				case v, ok := <-in:
					if !ok {
						return
					}
					select {
					case out <- v:
					case <-ctx.Done():
						return
					}
				}
			}
		}(in)
	}

	go func() {
		defer close(out)
		for remaining > 0 {
			select {
			case <-ctx.Done():
				return
			case <-done:
				remaining--
			}
		}
	}()

	return out
}

// Delay forwards each value after a fixed delay, preserving order. Use a
// clockz.FakeClock for deterministic tests.
func Delay[T any](ctx context.Context, clock clockz.Clock, d time.Duration, in <-chan T) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					return
				}
				timer := clock.NewTimer(d)
				select {
				case <-timer.C():
				case <-ctx.Done():
					timer.Stop()
					return
				}
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
