package orchestrator

// State names a position in the run's lifecycle. Failed is reachable only
// from SessionOpen: a session that never opens is fatal, a failed item is
// not.
type State int

const (
	StateIdle State = iota
	StateSessionOpen
	StateItemPending
	StateItemLocating
	StateItemApplying
	StateItemDone
	StateFinalizing
	StateFinalized
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSessionOpen:
		return "session_open"
	case StateItemPending:
		return "item_pending"
	case StateItemLocating:
		return "item_locating"
	case StateItemApplying:
		return "item_applying"
	case StateItemDone:
		return "item_done"
	case StateFinalizing:
		return "finalizing"
	case StateFinalized:
		return "finalized"
	case StateFailed:
		return "failed"
	default:
		return "invalid"
	}
}
