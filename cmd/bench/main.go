// bench runs a sweep of BB84 simulations for each entry in the cartesian
// product of a collection of parameters, e.g. qubits exchanged and whether Eve
// intercepts, and outputs a CSV of aggregate statistics for each combination,
// e.g. mean QBER and the rate at which eavesdropping was flagged.
package main

import (
	"context"
	"os"
	"strings"
	"text/template"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/qkdsim/bb84/bb84"
	"github.com/qkdsim/bb84/internal/logger"
)

var (
	bits       = flag.IntSlice("bits", []int{bb84.DefaultNumBits}, "The number of qubits to exchange per run.")
	eavesdrop  = flag.BoolSlice("eavesdrop", []bool{false, true}, "Whether Eve intercepts and resends every qubit.")
	thresholds = flag.Float64Slice("threshold", []float64{bb84.DefaultDetectionThreshold}, "The QBER above which eavesdropping is flagged.")
	trials     = flag.Int("trials", 1000, "The number of independent runs per parameterization.")
	seed       = flag.Int64("seed", 1234, "The base seed for per-trial randomness.")
	workers    = flag.Int("workers", 0, "The number of concurrent runs; zero uses every CPU.")
	logLevel   = flag.String("log-level", "info", "The minimum log level written to stderr.")
)

var (
	inputs  = []string{"bits", "eavesdrop", "threshold"}
	columns = []string{"NumBits", "Eavesdrop", "Threshold", "Trials", "MeanQBER",
		"StdDevQBER", "DetectionRate", "MeanSiftedRatio", "MeanDetectionPower", "Succeeded"}
)

// An Experiment packages together the result of a single sweep for easy
// formatting.
type Experiment struct {
	bb84.SweepResult
	Succeeded bool
}

func main() {
	flag.Parse()
	log := logger.New(logger.Config{Level: *logLevel, Pretty: true, Out: os.Stderr})

	os.Stdout.WriteString(header() + "\n")
	tmpl := template.Must(template.New("line").Parse(lineTmpl()))
	var args [][]interface{}
	for _, inp := range inputs {
		args = append(args, lookupInput(log, inp))
	}
	ctx := context.Background()
	applyCartesian(func(args []interface{}) {
		threshold := args[inpIndex("threshold")].(float64)
		opts := bb84.SweepOpts{
			NumBits:            args[inpIndex("bits")].(int),
			Eavesdrop:          args[inpIndex("eavesdrop")].(bool),
			DetectionThreshold: &threshold,
			Trials:             *trials,
			Seed:               *seed,
			Workers:            *workers,
		}
		res, err := bb84.Sweep(ctx, opts)
		exp := &Experiment{SweepResult: res, Succeeded: err == nil}
		if err != nil {
			log.Error().Err(err).Interface("opts", opts).Msg("Sweep failed")
			exp.NumBits, exp.Eavesdrop, exp.Threshold, exp.Trials = opts.NumBits, opts.Eavesdrop, threshold, opts.Trials
		}
		if err := tmpl.Execute(os.Stdout, exp); err != nil {
			log.Fatal().Err(err).Msg("BUG: could not fill in line template")
		}
	}, args)
}

func inpIndex(v string) int {
	for i, inp := range inputs {
		if inp == v {
			return i
		}
	}
	return -1
}

func header() string {
	return strings.Join(columns, ", ")
}

func lineTmpl() string {
	var els []string
	for _, c := range columns {
		els = append(els, "{{."+c+"}}")
	}
	return strings.Join(els, ", ") + "\n"
}

func lookupInput(log zerolog.Logger, name string) []interface{} {
	var r []interface{}
	if v, err := flag.CommandLine.GetIntSlice(name); err == nil {
		for _, val := range v {
			r = append(r, val)
		}
	} else if v, err := flag.CommandLine.GetFloat64Slice(name); err == nil {
		for _, val := range v {
			r = append(r, val)
		}
	} else if v, err := flag.CommandLine.GetBoolSlice(name); err == nil {
		for _, val := range v {
			r = append(r, val)
		}
	} else {
		log.Fatal().Str("input", name).Msg("Unknown type for input")
	}
	return r
}

// applyCartesian calls f once for every combination that picks one value from
// each of args.
func applyCartesian(f func([]interface{}), args [][]interface{}) {
	for i := range args {
		if len(args[i]) == 1 {
			continue
		}
		l := make([][]interface{}, len(args))
		r := make([][]interface{}, len(args))
		copy(l, args)
		copy(r, args)
		l[i] = args[i][:1]
		r[i] = args[i][1:]
		applyCartesian(f, l)
		applyCartesian(f, r)
		return
	}
	x := make([]interface{}, 0, len(args))
	for _, a := range args {
		x = append(x, a[0])
	}
	f(x)
}
