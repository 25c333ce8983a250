package bb84

import (
	"fmt"

	"github.com/qkdsim/bb84/bb84/bitmap"
	"github.com/qkdsim/bb84/bb84/photon"
)

// Run performs one protocol run. Stages execute strictly in order, each
// appending one entry to the trace.
func (r *Runner) Run(in Input) (RunResult, error) {
	if err := r.validate(in); err != nil {
		return RunResult{}, err
	}
	res := RunResult{RunID: r.newID(), OriginalMessage: in.Message}
	log := r.log.With().Str("run_id", res.RunID).Logger()

	bits, err := r.encode(in)
	if err != nil {
		return RunResult{}, err
	}
	res.TotalBits = len(bits)
	res.Steps = append(res.Steps, Step{StepTextToBits, map[string]interface{}{
		"text":       in.Message,
		"bit_string": bitmap.FromBits(bits).String(),
		"bits":       bits,
	}})
	log.Debug().Int("bits", len(bits)).Msg("encoded")

	aliceBases, qubits, prepared := r.prepareAll(bits)
	res.Steps = append(res.Steps,
		Step{StepAliceBases, map[string]interface{}{"bases": aliceBases}},
		Step{StepAlicePrepare, map[string]interface{}{"prepared": prepared}},
	)
	log.Debug().Msg("prepared")

	if in.Eavesdrop {
		actions, err := r.interceptAll(qubits)
		if err != nil {
			return RunResult{}, err
		}
		res.Steps = append(res.Steps, Step{StepEveActions, map[string]interface{}{"actions": actions}})
		log.Debug().Int("intercepted", len(actions)).Msg("intercepted")
	}

	bobBases, results, err := r.measureAll(qubits)
	if err != nil {
		return RunResult{}, err
	}
	if err := checkDelivered(qubits, in.Eavesdrop); err != nil {
		return RunResult{}, err
	}
	res.Steps = append(res.Steps,
		Step{StepBobBases, map[string]interface{}{"bases": bobBases}},
		Step{StepBobResults, map[string]interface{}{"results": results}},
	)
	log.Debug().Msg("measured")

	sifted, err := Sift(bits, aliceBases, bobBases, results)
	if err != nil {
		return RunResult{}, err
	}
	res.AliceKey, res.BobKey, res.SiftedIndices = sifted.Alice, sifted.Bob, sifted.Indices
	res.SiftedKeyLength = len(sifted.Indices)
	res.Steps = append(res.Steps, Step{StepSifting, map[string]interface{}{
		"sifted_indices": sifted.Indices,
		"alice_sifted":   sifted.Alice,
		"bob_sifted":     sifted.Bob,
	}})
	log.Debug().Int("sifted", res.SiftedKeyLength).Msg("sifted")

	est := EstimateQBER(sifted.Alice, sifted.Bob, r.threshold)
	res.QBER, res.EveDetected = est.QBER, est.EveDetected
	res.Steps = append(res.Steps, Step{StepQBER, map[string]interface{}{
		"errors":          est.Errors,
		"compared":        est.Compared,
		"qber":            est.QBER,
		"threshold":       est.Threshold,
		"eve_detected":    est.EveDetected,
		"detection_power": est.DetectionPower,
	}})
	log.Debug().Float64("qber", est.QBER).Bool("eve_detected", est.EveDetected).Msg("estimated")

	text, table, ok := Decode(sifted.Bob)
	if ok {
		res.DeliveredMessage = &text
	}
	res.Steps = append(res.Steps, Step{StepReconstruction, map[string]interface{}{"reconstruction": table}})
	log.Debug().Bool("delivered", ok).Msg("reconstructed")

	return res, nil
}

func (r *Runner) encode(in Input) ([]int, error) {
	if in.Mode == ModeMessage {
		return Encode(in.Message)
	}
	bits := make([]int, in.NumBits)
	for i := range bits {
		bits[i] = r.alice.NextBit()
	}
	return bits, nil
}

func (r *Runner) prepareAll(bits []int) ([]photon.Basis, []*photon.Qubit, []PreparedQubit) {
	bases := make([]photon.Basis, len(bits))
	for i := range bases {
		bases[i] = r.alice.NextBasis()
	}
	qubits := make([]*photon.Qubit, len(bits))
	prepared := make([]PreparedQubit, len(bits))
	for i, bit := range bits {
		qubits[i] = photon.NewQubit(bit, bases[i])
		prepared[i] = PreparedQubit{Index: i, Bit: bit, Basis: bases[i], State: qubits[i].State()}
	}
	return bases, qubits, prepared
}

func (r *Runner) interceptAll(qubits []*photon.Qubit) ([]photon.Interception, error) {
	eve := photon.Interceptor{Rand: r.eve}
	actions := make([]photon.Interception, 0, len(qubits))
	for i, q := range qubits {
		a, err := eve.Intercept(i, q)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func (r *Runner) measureAll(qubits []*photon.Qubit) ([]photon.Basis, []int, error) {
	bases := make([]photon.Basis, len(qubits))
	for i := range bases {
		bases[i] = r.bob.NextBasis()
	}
	results := make([]int, len(qubits))
	for i, q := range qubits {
		bit, err := q.Measure(bases[i], r.bob)
		if err != nil {
			return nil, nil, fmt.Errorf("measuring qubit %d: %w", i, err)
		}
		results[i] = bit
	}
	return bases, results, nil
}

// checkDelivered verifies every qubit was consumed by Bob, and resent on the
// way exactly when Eve was listening.
func checkDelivered(qubits []*photon.Qubit, eavesdrop bool) error {
	for i, q := range qubits {
		if !q.Measured() {
			return fmt.Errorf("qubit %d never reached the receiver", i)
		}
		if q.Resent() != eavesdrop {
			return fmt.Errorf("qubit %d: resent == %v with eavesdropping %v", i, q.Resent(), eavesdrop)
		}
	}
	return nil
}
