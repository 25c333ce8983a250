package bb84

import (
	"encoding/json"
	"fmt"

	"github.com/qkdsim/bb84/bb84/photon"
)

// Names of the trace steps, in the order a run emits them.
const (
	StepTextToBits     = "text_to_bits"
	StepAliceBases     = "alice_bases"
	StepAlicePrepare   = "alice_prepare"
	StepEveActions     = "eve_actions"
	StepBobBases       = "bob_bases"
	StepBobResults     = "bob_results"
	StepSifting        = "sifting"
	StepQBER           = "qber"
	StepReconstruction = "reconstruction"
)

// A Step is one named entry of a run's trace. It serializes as a flat JSON
// object: {"step": Name, <payload fields>...}.
type Step struct {
	Name    string
	Payload map[string]interface{}
}

// MarshalJSON implements json.Marshaler.
func (s Step) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(s.Payload)+1)
	for k, v := range s.Payload {
		m[k] = v
	}
	m["step"] = s.Name
	return json.Marshal(m)
}

// UnmarshalJSON implements json.Unmarshaler. Payload values decode into
// their generic JSON representations.
func (s *Step) UnmarshalJSON(b []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	name, ok := m["step"].(string)
	if !ok {
		return fmt.Errorf("trace step without a name: %s", b)
	}
	delete(m, "step")
	s.Name, s.Payload = name, m
	return nil
}

// A PreparedQubit records Alice's preparation of a single qubit.
type PreparedQubit struct {
	Index int          `json:"index"`
	Bit   int          `json:"bit"`
	Basis photon.Basis `json:"basis"`
	State photon.State `json:"state"`
}

// A RunResult is the outcome of one protocol run, including the full trace
// needed to replay or render it.
type RunResult struct {
	RunID           string `json:"run_id"`
	OriginalMessage string `json:"original_message"`
	// DeliveredMessage is nil when the sifted key held less than one
	// character.
	DeliveredMessage *string `json:"delivered_message"`
	EveDetected      bool    `json:"eve_detected"`
	QBER             float64 `json:"qber"`
	AliceKey         []int   `json:"alice_key"`
	BobKey           []int   `json:"bob_key"`
	SiftedIndices    []int   `json:"sifted_indices"`
	TotalBits        int     `json:"total_bits"`
	SiftedKeyLength  int     `json:"sifted_key_length"`
	Steps            []Step  `json:"steps"`
}

// Step returns the first trace step with the given name.
func (r RunResult) Step(name string) (Step, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return Step{}, false
}
