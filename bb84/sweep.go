package bb84

import (
	"context"
	"runtime"

	"github.com/qkdsim/bb84/bb84/photon"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// SweepOpts describes a batch of independent count-mode runs sharing one
// parameterization.
type SweepOpts struct {
	NumBits   int
	Eavesdrop bool
	Trials    int
	// DetectionThreshold defaults to DefaultDetectionThreshold when nil.
	DetectionThreshold *float64

	// Seed derives the per-trial sources: trial i draws from
	// NewSeededSource(Seed + i).
	Seed int64

	// Workers bounds the number of concurrent trials. Defaults to
	// GOMAXPROCS.
	Workers int
}

// SweepResult aggregates the statistics of a sweep.
type SweepResult struct {
	NumBits         int
	Eavesdrop       bool
	Trials          int
	Threshold       float64
	MeanQBER        float64
	StdDevQBER      float64
	DetectionRate   float64
	MeanSiftedRatio float64
	// MeanDetectionPower averages the per-run probability that a full
	// intercept-resend attack would have been flagged.
	MeanDetectionPower float64
}

// Sweep runs opts.Trials independent simulations and aggregates them.
func Sweep(ctx context.Context, opts SweepOpts) (SweepResult, error) {
	if opts.Trials <= 0 {
		return SweepResult{}, configErr("trials", "must be positive, got %d", opts.Trials)
	}
	if opts.NumBits < 0 {
		return SweepResult{}, configErr("num_bits", "must not be negative, got %d", opts.NumBits)
	}
	threshold := DefaultDetectionThreshold
	if opts.DetectionThreshold != nil {
		threshold = *opts.DetectionThreshold
	}
	if err := checkThreshold(threshold); err != nil {
		return SweepResult{}, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	qbers := make([]float64, opts.Trials)
	ratios := make([]float64, opts.Trials)
	powers := make([]float64, opts.Trials)
	detected := make([]bool, opts.Trials)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < opts.Trials; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := NewRunner(Options{
				Rand:               photon.NewSeededSource(opts.Seed + int64(i)),
				DetectionThreshold: &threshold,
				NewID:              func() string { return "" },
			})
			if err != nil {
				return err
			}
			res, err := r.RunCount(opts.NumBits, opts.Eavesdrop)
			if err != nil {
				return err
			}
			qbers[i] = res.QBER
			detected[i] = res.EveDetected
			if res.TotalBits > 0 {
				ratios[i] = float64(res.SiftedKeyLength) / float64(res.TotalBits)
			}
			if s, ok := res.Step(StepQBER); ok {
				powers[i], _ = s.Payload["detection_power"].(float64)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SweepResult{}, err
	}

	out := SweepResult{
		NumBits:   opts.NumBits,
		Eavesdrop: opts.Eavesdrop,
		Trials:    opts.Trials,
		Threshold: threshold,
	}
	if opts.Trials == 1 {
		out.MeanQBER = qbers[0]
	} else {
		out.MeanQBER, out.StdDevQBER = stat.MeanStdDev(qbers, nil)
	}
	out.MeanSiftedRatio = stat.Mean(ratios, nil)
	out.MeanDetectionPower = stat.Mean(powers, nil)
	n := 0
	for _, d := range detected {
		if d {
			n++
		}
	}
	out.DetectionRate = float64(n) / float64(opts.Trials)
	return out, nil
}
