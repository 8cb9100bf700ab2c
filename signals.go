package reactor

import "github.com/zoobzio/capitan"

// Store lifecycle signals.
var (
	// StoreStarted is emitted when a Store begins consuming sources.
	StoreStarted = capitan.NewSignal(
		"reactor.store.started",
		"Store started",
	)

	// StoreStopped is emitted when a Store's owning context is canceled.
	StoreStopped = capitan.NewSignal(
		"reactor.store.stopped",
		"Store stopped",
	)

	// StoreStatusChanged is emitted when a Store transitions between
	// health statuses.
	StoreStatusChanged = capitan.NewSignal(
		"reactor.store.status.changed",
		"Store status transition",
	)
)

// Source and patch signals.
var (
	// SourceConnected is emitted when a source's subscription begins,
	// either eagerly at Start or lazily on first read.
	SourceConnected = capitan.NewSignal(
		"reactor.source.connected",
		"Source subscription established",
	)

	// SourceFailed is emitted when a source emits an error or cannot be
	// connected. The source is isolated; the store keeps running.
	SourceFailed = capitan.NewSignal(
		"reactor.source.failed",
		"Source emission or connection failed",
	)

	// PatchApplied is emitted when a patch is merged into the state cell.
	PatchApplied = capitan.NewSignal(
		"reactor.patch.applied",
		"Patch merged into state",
	)

	// PatchRejected is emitted when a patch fails the pipeline or the
	// post-merge validation guard. The previous state is retained.
	PatchRejected = capitan.NewSignal(
		"reactor.patch.rejected",
		"Patch rejected, previous state retained",
	)
)

// Action and effect signals.
var (
	// ActionDispatched is emitted when a value is pushed into an action
	// channel.
	ActionDispatched = capitan.NewSignal(
		"reactor.action.dispatched",
		"Action input dispatched",
	)

	// ActionFailed is emitted when an action's reducer stream yields an
	// error emission.
	ActionFailed = capitan.NewSignal(
		"reactor.action.failed",
		"Action reducer emission failed",
	)

	// EffectRan is emitted each time a registered effect callback runs.
	EffectRan = capitan.NewSignal(
		"reactor.effect.ran",
		"Effect callback invoked",
	)
)
