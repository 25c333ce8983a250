// Package photon provides utilities for preparing and measuring simulated
// photon-encoded qubits.
//
// Only the single-qubit statistics BB84 needs are modelled: a qubit is
// prepared in one of the four states |0>, |1>, |+>, |-> and measured in
// either the rectilinear (Z) or the diagonal (X) basis.
package photon

import "fmt"

// A Basis is a choice of preparation or measurement axis.
type Basis int

const (
	// Rectilinear is the computational, or Z, basis.
	Rectilinear Basis = 0
	// Diagonal is the Hadamard, or X, basis.
	Diagonal Basis = 1
)

func (b Basis) String() string {
	switch b {
	case Rectilinear:
		return "Z"
	case Diagonal:
		return "X"
	}
	return fmt.Sprintf("Basis(%d)", int(b))
}

// A State describes the prepared state of a single qubit.
type State int

const (
	Zero  State = iota // |0>
	One                // |1>
	Plus               // |+>
	Minus              // |->
)

// states is indexed by [basis][bit].
var states = [2][2]State{
	{Zero, One},
	{Plus, Minus},
}

// Prepare returns the state encoding bit in basis. Only the low bit of each
// argument is significant.
func Prepare(bit int, basis Basis) State {
	return states[basis&1][bit&1]
}

// Basis returns the basis s was prepared in.
func (s State) Basis() Basis {
	if s >= Plus {
		return Diagonal
	}
	return Rectilinear
}

// Bit returns the bit encoded in s.
func (s State) Bit() int {
	return int(s) & 1
}

func (s State) String() string {
	switch s {
	case Zero:
		return "|0>"
	case One:
		return "|1>"
	case Plus:
		return "|+>"
	case Minus:
		return "|->"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText renders s in ket notation.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Measure applies the measurement law to a qubit in state s, measured in
// basis. Measuring in the preparation basis reproduces the encoded bit;
// measuring in the conjugate basis yields a fresh uniformly random bit drawn
// from src.
func Measure(s State, basis Basis, src Source) int {
	if s.Basis() == basis {
		return s.Bit()
	}
	return src.NextBit() & 1
}
