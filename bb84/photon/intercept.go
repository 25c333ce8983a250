package photon

import "fmt"

// An Interception records what an interceptor did to a single qubit.
type Interception struct {
	Index     int   `json:"index"`
	EveBasis  Basis `json:"eve_basis"`
	EveResult int   `json:"eve_result"`
	Resent    State `json:"resent_state"`
}

// An Interceptor mounts an intercept-resend attack: it measures each qubit in
// a randomly chosen basis and replaces it with a fresh qubit prepared from
// its own result. Whenever its basis differs from the sender's, the resent
// qubit carries the wrong basis and the receiver sees a coin flip.
type Interceptor struct {
	Rand Source
}

// Intercept attacks q, the index-th qubit on the channel.
func (e Interceptor) Intercept(index int, q *Qubit) (Interception, error) {
	basis := e.Rand.NextBasis()
	result := Measure(q.State(), basis, e.Rand)
	resent := Prepare(result, basis)
	if err := q.Resend(resent); err != nil {
		return Interception{}, fmt.Errorf("intercepting qubit %d: %w", index, err)
	}
	return Interception{
		Index:     index,
		EveBasis:  basis,
		EveResult: result,
		Resent:    resent,
	}, nil
}
