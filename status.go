package reactor

// Status represents the health of a Store.
type Status int32

const (
	// StatusLoading indicates the Store has been constructed but not yet
	// started.
	StatusLoading Status = iota

	// StatusHealthy indicates the last emission was committed successfully.
	StatusHealthy

	// StatusDegraded indicates the last emission failed. The previous
	// committed state remains active and the Store continues consuming
	// sources.
	StatusDegraded

	// StatusStopped indicates the owning context was canceled and every
	// subscription has been released.
	StatusStopped
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
