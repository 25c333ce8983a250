package bb84

import (
	"math"

	"github.com/qkdsim/bb84/bb84/bitmap"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultDetectionThreshold is the QBER above which eavesdropping is
// suspected. It is a tunable heuristic, not a bound derived from the
// protocol.
const DefaultDetectionThreshold = 0.15

// interceptResendQBER is the sifted-key error rate induced by an attacker who
// intercepts and resends every qubit in a random basis.
const interceptResendQBER = 0.25

// An Estimate summarises the error rate observed over a sifted key.
type Estimate struct {
	Errors      int
	Compared    int
	QBER        float64
	Threshold   float64
	EveDetected bool

	// DetectionPower is the probability that a full intercept-resend attack
	// on a sifted key of this length would push the QBER over Threshold.
	DetectionPower float64
}

// EstimateQBER compares Alice's and Bob's sifted keys. The QBER of an empty
// key is 0.
func EstimateQBER(alice, bob []int, threshold float64) Estimate {
	a, b := bitmap.FromBits(alice), bitmap.FromBits(bob)
	e := Estimate{
		Errors:         bitmap.CountOnes(bitmap.XOr(a, b)),
		Compared:       len(alice),
		Threshold:      threshold,
		DetectionPower: detectionPower(len(alice), threshold),
	}
	if e.Compared > 0 {
		e.QBER = float64(e.Errors) / float64(e.Compared)
	}
	e.EveDetected = e.QBER > threshold
	return e
}

// detectionPower returns P[X > threshold*n] for X ~ Binomial(n, 1/4).
func detectionPower(n int, threshold float64) float64 {
	if n == 0 {
		return 0
	}
	b := distuv.Binomial{N: float64(n), P: interceptResendQBER}
	return 1 - b.CDF(math.Floor(threshold*float64(n)))
}
