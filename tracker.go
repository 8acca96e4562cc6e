package logic

// ProcessOrder selects how process hooks of logics sharing an action are
// sequenced.
type ProcessOrder int

const (
	// ProcessOrderReverse runs process hooks in the reverse order of the
	// logic chain, like a middleware stack unwinding. A begin from another
	// logic holds the tracker open until that logic ends.
	ProcessOrderReverse ProcessOrder = iota
	// ProcessOrderSettled runs a process hook once the action has settled
	// through the rest of the chain, without waiting for later logics to end.
	ProcessOrderSettled
	// ProcessOrderNone disables gating; process hooks run as soon as the
	// intercept decides.
	ProcessOrderNone
)

func (o ProcessOrder) String() string {
	switch o {
	case ProcessOrderReverse:
		return "reverse"
	case ProcessOrderSettled:
		return "settled"
	case ProcessOrderNone:
		return "none"
	default:
		return "unknown"
	}
}

// pendingState is the tracker accumulator for one (action, logic) pair.
type pendingState struct {
	pending int
	owner   string
	tracked map[*Action]struct{}
	ready   bool
}

func newPendingState(action *Action, owner string) pendingState {
	return pendingState{
		pending: 1,
		owner:   owner,
		tracked: map[*Action]struct{}{action: {}},
	}
}

func (s pendingState) relevant(evt Event) bool {
	if _, ok := s.tracked[evt.Action]; ok && evt.Action != nil {
		return true
	}
	if evt.Op == OpBottom && evt.NextAction != nil {
		_, ok := s.tracked[evt.NextAction]
		return ok
	}
	return false
}

// reducePending folds one monitor event into the tracker state. Once ready,
// the state no longer changes.
func reducePending(s pendingState, evt Event, order ProcessOrder) pendingState {
	if s.ready || !s.relevant(evt) {
		return s
	}

	switch evt.Op {
	case OpBegin:
		s.pending++
		if order == ProcessOrderReverse && evt.Name != s.owner {
			s.pending++
		}
	case OpNext:
		s.pending--
		if evt.NextAction != nil {
			s.tracked[evt.NextAction] = struct{}{}
		}
	case OpNextDisp, OpFiltered, OpDispatchError, OpCancelled:
		// no bottom follows these
		s.pending -= 2
	case OpBottom, OpDispFuture, OpEnd:
		s.pending--
	}

	if s.pending <= 0 {
		s.ready = true
	}
	return s
}
