package focus

import "strconv"

// SetID identifies a set within a session. A durable id was assigned by the
// backend; a temporary id was minted locally for a set whose create call has
// not been acknowledged yet.
type SetID struct {
	value     string
	temporary bool
}

// DurableID wraps a backend-assigned set id.
func DurableID(id string) SetID {
	return SetID{value: id}
}

func temporaryID(n uint64) SetID {
	return SetID{value: "tmp-" + strconv.FormatUint(n, 10), temporary: true}
}

func (id SetID) String() string { return id.value }

// Temporary reports whether the id still awaits reconciliation.
func (id SetID) Temporary() bool { return id.temporary }

// IsZero reports whether id is the zero SetID.
func (id SetID) IsZero() bool { return id.value == "" }
