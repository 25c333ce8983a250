package photon

import "errors"

var (
	// ErrAlreadyMeasured is returned when a consumed qubit is touched again.
	ErrAlreadyMeasured = errors.New("qubit already measured")
	// ErrAlreadyResent is returned when a qubit is intercepted a second time.
	ErrAlreadyResent = errors.New("qubit already intercepted and resent")
)

// A Qubit is the in-flight record for a single transmitted qubit. It is
// created by the sender, may be overwritten once by an interceptor, and is
// consumed by exactly one measurement at the receiver.
type Qubit struct {
	state    State
	resent   bool
	measured bool
}

// NewQubit prepares a qubit encoding bit in basis.
func NewQubit(bit int, basis Basis) *Qubit {
	return &Qubit{state: Prepare(bit, basis)}
}

// State returns the qubit's current state.
func (q *Qubit) State() State {
	return q.state
}

// Resent reports whether the qubit has been replaced by an interceptor.
func (q *Qubit) Resent() bool {
	return q.resent
}

// Measured reports whether the qubit has been consumed.
func (q *Qubit) Measured() bool {
	return q.measured
}

// Resend replaces the qubit's state with s.
func (q *Qubit) Resend(s State) error {
	if q.measured {
		return ErrAlreadyMeasured
	}
	if q.resent {
		return ErrAlreadyResent
	}
	q.state = s
	q.resent = true
	return nil
}

// Measure consumes the qubit, measuring it in basis.
func (q *Qubit) Measure(basis Basis, src Source) (int, error) {
	if q.measured {
		return 0, ErrAlreadyMeasured
	}
	q.measured = true
	return Measure(q.state, basis, src), nil
}
