package reactor

import "github.com/zoobzio/capitan"

// Field keys for Store events.
var (
	// KeyOrigin names the source or action a patch came from.
	KeyOrigin = capitan.NewStringKey("origin")

	// KeyAction is the action name on dispatch and failure events.
	KeyAction = capitan.NewStringKey("action")

	// KeyEffect is the effect name on effect events.
	KeyEffect = capitan.NewStringKey("effect")

	// KeyMode distinguishes eager from lazy source connections.
	KeyMode = capitan.NewStringKey("mode")

	// KeyStage is the processing stage a rejection occurred in.
	KeyStage = capitan.NewStringKey("stage")

	// KeyChanged lists the top-level keys a patch changed.
	KeyChanged = capitan.NewStringKey("changed")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyStatus is the store status on stop events.
	KeyStatus = capitan.NewStringKey("status")

	// KeyOldStatus is the previous status before a transition.
	KeyOldStatus = capitan.NewStringKey("old_status")

	// KeyNewStatus is the new status after a transition.
	KeyNewStatus = capitan.NewStringKey("new_status")

	// KeySources is the number of configured sources at start.
	KeySources = capitan.NewIntKey("sources")

	// KeyActions is the number of declared actions at start.
	KeyActions = capitan.NewIntKey("actions")
)
