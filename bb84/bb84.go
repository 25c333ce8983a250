// Package bb84 simulates the BB84 quantum key distribution protocol over a
// classical stand-in for the quantum channel.
//
// A run walks a fixed pipeline: encode the message to bits, have Alice
// prepare one qubit per bit in a random basis, optionally let Eve intercept
// and resend every qubit, have Bob measure each qubit in his own random basis,
// sift to the positions where the bases agree, estimate the quantum bit error
// rate, and finally rebuild the message from Bob's sifted bits. Every stage
// is recorded in the returned RunResult's trace.
//
// This is a teaching simulation. It performs no authentication of the
// classical channel, no error correction and no privacy amplification.
package bb84

import (
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/qkdsim/bb84/bb84/photon"
	"github.com/rs/zerolog"
)

// DefaultNumBits is the number of qubits exchanged by a count-mode run that
// does not specify one.
const DefaultNumBits = 20

// A Mode selects what a run transmits.
type Mode string

const (
	// ModeCount exchanges NumBits random bits.
	ModeCount Mode = "count"
	// ModeMessage exchanges the bits of Message.
	ModeMessage Mode = "message"
)

// An Input describes a single run.
type Input struct {
	Mode      Mode
	NumBits   int
	Message   string
	Eavesdrop bool
}

// A Config packages the tunable parameters of Simulate.
type Config struct {
	// DetectionThreshold is the QBER above which eavesdropping is flagged.
	// Nil selects DefaultDetectionThreshold; zero flags any error at all.
	DetectionThreshold *float64
}

// Options packages together the arguments necessary to construct a Runner.
type Options struct {
	// Rand provides randomness for every party. This may be a pRNG; nothing
	// here is meant to be secure. Must be non-nil unless all of AliceRand,
	// BobRand and EveRand are given.
	Rand photon.Source

	// AliceRand, BobRand and EveRand override Rand for a single party. Each
	// party's measurement outcomes in a conjugate basis are drawn from its
	// own source.
	AliceRand photon.Source
	BobRand   photon.Source
	EveRand   photon.Source

	// DetectionThreshold is the QBER above which eavesdropping is flagged.
	// Nil selects DefaultDetectionThreshold; zero flags any error at all.
	DetectionThreshold *float64

	// MaxBits bounds the number of qubits a single run may exchange. Zero
	// means unbounded.
	MaxBits int

	// Log receives one debug event per completed stage. Defaults to a no-op
	// logger.
	Log *zerolog.Logger

	// NewID stamps each RunResult. Defaults to random UUIDs.
	NewID func() string
}

// A Runner executes protocol runs. A Runner is safe for concurrent use if its
// sources are.
type Runner struct {
	alice, bob, eve photon.Source
	threshold       float64
	maxBits         int
	log             zerolog.Logger
	newID           func() string
}

// NewRunner returns a new Runner configured in accordance with opts, or an
// error if the options are nonsensical.
func NewRunner(opts Options) (*Runner, error) {
	r := &Runner{
		alice:     pick(opts.AliceRand, opts.Rand),
		bob:       pick(opts.BobRand, opts.Rand),
		eve:       pick(opts.EveRand, opts.Rand),
		threshold: DefaultDetectionThreshold,
		maxBits:   opts.MaxBits,
		log:       zerolog.Nop(),
		newID:     opts.NewID,
	}
	if r.alice == nil || r.bob == nil || r.eve == nil {
		return nil, configErr("Rand", "must provide a randomness source for every party")
	}
	if opts.DetectionThreshold != nil {
		r.threshold = *opts.DetectionThreshold
	}
	if err := checkThreshold(r.threshold); err != nil {
		return nil, err
	}
	if r.maxBits < 0 {
		return nil, configErr("MaxBits", "must not be negative, got %d", r.maxBits)
	}
	if opts.Log != nil {
		r.log = *opts.Log
	}
	if r.newID == nil {
		r.newID = uuid.NewString
	}
	return r, nil
}

// Simulate performs a single run with fresh entropy-seeded randomness.
func Simulate(in Input, cfg Config) (RunResult, error) {
	src, err := photon.NewEntropySource()
	if err != nil {
		return RunResult{}, err
	}
	r, err := NewRunner(Options{Rand: src, DetectionThreshold: cfg.DetectionThreshold})
	if err != nil {
		return RunResult{}, err
	}
	return r.Run(in)
}

// Threshold returns the detection threshold r applies.
func (r *Runner) Threshold() float64 {
	return r.threshold
}

// WithThreshold returns a copy of r that flags eavesdropping above threshold
// instead. The copy shares r's randomness sources.
func (r *Runner) WithThreshold(threshold float64) (*Runner, error) {
	if err := checkThreshold(threshold); err != nil {
		return nil, err
	}
	c := *r
	c.threshold = threshold
	return &c, nil
}

// RunMessage transmits msg.
func (r *Runner) RunMessage(msg string, eavesdrop bool) (RunResult, error) {
	return r.Run(Input{Mode: ModeMessage, Message: msg, Eavesdrop: eavesdrop})
}

// RunCount exchanges numBits random bits.
func (r *Runner) RunCount(numBits int, eavesdrop bool) (RunResult, error) {
	return r.Run(Input{Mode: ModeCount, NumBits: numBits, Eavesdrop: eavesdrop})
}

func (r *Runner) validate(in Input) error {
	switch in.Mode {
	case ModeCount:
		if in.NumBits < 0 {
			return configErr("num_bits", "must not be negative, got %d", in.NumBits)
		}
		if r.maxBits > 0 && in.NumBits > r.maxBits {
			return configErr("num_bits", "%d exceeds the limit of %d", in.NumBits, r.maxBits)
		}
	case ModeMessage:
		if n := utf8.RuneCountInString(in.Message); r.maxBits > 0 && n*charBits > r.maxBits {
			return configErr("message", "%d characters exceed the limit of %d bits", n, r.maxBits)
		}
	default:
		return configErr("mode", "unknown mode %q", in.Mode)
	}
	return nil
}

func checkThreshold(t float64) error {
	if !(t >= 0 && t <= 1) {
		return configErr("detection_threshold", "must lie in [0, 1], got %v", t)
	}
	return nil
}

func pick(srcs ...photon.Source) photon.Source {
	for _, s := range srcs {
		if s != nil {
			return s
		}
	}
	return nil
}
