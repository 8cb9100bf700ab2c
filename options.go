package reactor

import (
	"context"
	"time"

	"github.com/zoobzio/pipz"
)

// Option configures the patch-application pipeline of a Store. Pipeline
// options wrap the commit path with middleware for retry, timeout, and other
// reliability patterns; every emission from every source and action flows
// through the resulting pipeline before it is merged.
//
// Instance configuration (clock, metrics, error history, etc.) is handled via
// chainable methods on the Store before calling Start().
type Option func(pipz.Chainable[*Apply]) pipz.Chainable[*Apply]

// buildPipeline wraps a terminal with pipeline options.
func buildPipeline(terminal pipz.Chainable[*Apply], opts []Option) pipz.Chainable[*Apply] {
	pipeline := terminal
	for _, opt := range opts {
		pipeline = opt(pipeline)
	}
	return pipeline
}

// -----------------------------------------------------------------------------
// Pipeline Options - Wrapping (With*)
// -----------------------------------------------------------------------------
// These options wrap the entire pipeline, providing protection at the boundary.

// WithRetry wraps the pipeline with retry logic.
// Failed applications are retried immediately up to maxAttempts times.
// For exponential backoff between retries, use WithBackoff instead.
func WithRetry(maxAttempts int) Option {
	return func(p pipz.Chainable[*Apply]) pipz.Chainable[*Apply] {
		return pipz.NewRetry("retry", p, maxAttempts)
	}
}

// WithBackoff wraps the pipeline with exponential backoff retry logic.
// Failed applications are retried with increasing delays: baseDelay,
// 2*baseDelay, 4*baseDelay, etc.
func WithBackoff(maxAttempts int, baseDelay time.Duration) Option {
	return func(p pipz.Chainable[*Apply]) pipz.Chainable[*Apply] {
		return pipz.NewBackoff("backoff", p, maxAttempts, baseDelay)
	}
}

// WithTimeout wraps the pipeline with a timeout.
// If applying a patch takes longer than the specified duration, the emission
// fails with a timeout error and the previous state is retained.
func WithTimeout(d time.Duration) Option {
	return func(p pipz.Chainable[*Apply]) pipz.Chainable[*Apply] {
		return pipz.NewTimeout("timeout", p, d)
	}
}

// WithErrorHandler adds error observation to the pipeline.
// Errors are passed to the handler for logging, metrics, or alerting,
// but the error still propagates. Use this for observability, not recovery.
func WithErrorHandler(handler pipz.Chainable[*pipz.Error[*Apply]]) Option {
	return func(p pipz.Chainable[*Apply]) pipz.Chainable[*Apply] {
		return pipz.NewHandle("error-handler", p, handler)
	}
}

// WithMiddleware wraps the pipeline with a sequence of processors.
// Processors execute in order, with the commit stage last.
//
// Use the Use* functions to create processors for common patterns,
// or provide custom pipz.Chainable implementations directly.
//
// Example:
//
//	store := reactor.New(initial,
//	    reactor.WithMiddleware(
//	        reactor.UseEffect("audit", auditFn),
//	        reactor.UseApply("enrich", enrichFn),
//	    ),
//	    reactor.WithRetry(3),
//	)
func WithMiddleware(processors ...pipz.Chainable[*Apply]) Option {
	return func(p pipz.Chainable[*Apply]) pipz.Chainable[*Apply] {
		all := make([]pipz.Chainable[*Apply], 0, len(processors)+1)
		all = append(all, processors...)
		all = append(all, p)
		return pipz.NewSequence("middleware", all...)
	}
}

// -----------------------------------------------------------------------------
// Middleware Processors - Adapters (Use*)
// -----------------------------------------------------------------------------
// These create processors for use inside WithMiddleware. They transform or
// observe the pending application as it flows through the pipeline.

// UseTransform creates a processor that transforms the pending application.
// Cannot fail. Use for pure transformations that always succeed.
func UseTransform(name string, fn func(context.Context, *Apply) *Apply) pipz.Chainable[*Apply] {
	return pipz.Transform(pipz.Name(name), fn)
}

// UseApply creates a processor that can transform the pending application and
// fail. A failure rejects the emission; the previous state is retained.
func UseApply(name string, fn func(context.Context, *Apply) (*Apply, error)) pipz.Chainable[*Apply] {
	return pipz.Apply(pipz.Name(name), fn)
}

// UseEffect creates a processor that performs a side effect.
// The pending application passes through unchanged. Use for logging, metrics,
// or notifications that should not affect the patch.
func UseEffect(name string, fn func(context.Context, *Apply) error) pipz.Chainable[*Apply] {
	return pipz.Effect(pipz.Name(name), fn)
}

// UseMutate creates a processor that conditionally transforms the pending
// application. The transformer is only applied if the condition returns true.
func UseMutate(name string, transformer func(context.Context, *Apply) *Apply, condition func(context.Context, *Apply) bool) pipz.Chainable[*Apply] {
	return pipz.Mutate(pipz.Name(name), transformer, condition)
}

// UseEnrich creates a processor that attempts optional enhancement.
// If the enrichment fails, processing continues with the original patch.
func UseEnrich(name string, fn func(context.Context, *Apply) (*Apply, error)) pipz.Chainable[*Apply] {
	return pipz.Enrich(pipz.Name(name), fn)
}

// UseRateLimit creates a rate limiting processor.
// Uses a token bucket algorithm with the specified rate (applications per
// second) and burst size. When tokens are exhausted, applications wait.
func UseRateLimit(rate float64, burst int) pipz.Chainable[*Apply] {
	return pipz.NewRateLimiter[*Apply]("rate-limiter", rate, burst)
}
