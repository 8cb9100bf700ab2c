package reactor

import (
	"context"

	"github.com/zoobzio/pipz"
)

// Apply carries one patch through the processing pipeline on its way into
// the state cell. Pipeline stages may inspect the previous state, observe
// the patch, or replace it before commit.
type Apply struct {
	// Origin names where the patch came from: a source label ("source:0",
	// "lazy:1") or an action name.
	Origin string

	// Patch is the pending update. Pipeline stages may modify it before
	// it is merged.
	Patch Patch

	// Previous is the committed state the patch will merge onto.
	Previous State
}

// Reducer turns an action's input channel into a patch stream. It is invoked
// exactly once per declared action when the store starts; the returned
// channel is merged into the state cell like any other source and also feeds
// that action's effect callbacks and tee subscribers.
//
// Cancellation behavior belongs to the reducer: compose with Switch for
// cancel-on-latest semantics, or consume inputs sequentially for queue
// semantics. The store never buffers action inputs.
type Reducer func(ctx context.Context, r Reader, inputs <-chan any) <-chan Emission

// commitID names the terminal pipeline stage.
var commitID = pipz.Name("commit")
