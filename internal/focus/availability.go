package focus

import "sync"

// State is the backend availability of a session.
type State int

const (
	StateLoading State = iota
	StateOnline
	StateOffline
	// StateClosed is reported by a Session after Close. Availability never
	// enters it.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateOnline:
		return "online"
	case StateOffline:
		return "offline"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Availability tracks whether the backend may be called. It only moves
// forward: Loading to Online once, and from anywhere to Offline for good.
type Availability struct {
	mu       sync.Mutex
	state    State
	onChange func(from, to State)
}

// NewAvailability returns a monitor in StateLoading. onChange, if non-nil,
// is called after every transition without any lock held.
func NewAvailability(onChange func(from, to State)) *Availability {
	return &Availability{state: StateLoading, onChange: onChange}
}

func (a *Availability) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Online reports whether writes may be sent to the backend.
func (a *Availability) Online() bool {
	return a.State() == StateOnline
}

// MarkOnline moves Loading to Online. It reports whether a transition happened.
func (a *Availability) MarkOnline() bool {
	return a.transition(StateOnline, func(from State) bool { return from == StateLoading })
}

// MarkOffline moves the monitor to Offline. It reports whether a transition happened.
func (a *Availability) MarkOffline() bool {
	return a.transition(StateOffline, func(from State) bool { return from != StateOffline })
}

func (a *Availability) transition(to State, allowed func(from State) bool) bool {
	a.mu.Lock()
	from := a.state
	if !allowed(from) {
		a.mu.Unlock()
		return false
	}
	a.state = to
	a.mu.Unlock()

	if a.onChange != nil {
		a.onChange(from, to)
	}
	return true
}
