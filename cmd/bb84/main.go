// bb84 runs the BB84 simulation from the command line and prints a summary of
// each run. With no --eavesdrop flag it runs twice, once without Eve and once
// with her, so the QBER of the two can be compared.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/qkdsim/bb84/bb84"
	"github.com/qkdsim/bb84/bb84/photon"
	"github.com/qkdsim/bb84/internal/logger"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	bits       int
	message    string
	eavesdrop  bool
	threshold  float64
	seed       int64
	transcript string
	replay     string
	asJSON     bool
	verbose    bool
}

func run(args []string, stdout, stderr io.Writer) error {
	var opts options
	fs := flag.NewFlagSet("bb84", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&opts.bits, "bits", bb84.DefaultNumBits, "The number of random bits to exchange.")
	fs.StringVar(&opts.message, "message", "", "A message to transmit instead of random bits.")
	fs.BoolVar(&opts.eavesdrop, "eavesdrop", false, "Whether Eve intercepts and resends every qubit. Unset runs both ways.")
	fs.Float64Var(&opts.threshold, "threshold", bb84.DefaultDetectionThreshold, "The QBER above which eavesdropping is flagged.")
	fs.Int64Var(&opts.seed, "seed", 0, "Seed for reproducible runs; zero draws from the OS entropy pool.")
	fs.StringVar(&opts.transcript, "transcript", "", "Write the transcript of the last run to this file.")
	fs.StringVar(&opts.replay, "replay", "", "Print the summary of a previously written transcript and exit.")
	fs.BoolVar(&opts.asJSON, "json", false, "Print full results as JSON instead of a summary.")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "Log every protocol stage to stderr.")
	if err := fs.Parse(args); err != nil {
		return err
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{Level: level, Pretty: true, Out: stderr})

	if opts.replay != "" {
		return replay(opts, stdout)
	}

	runner, err := newRunner(opts, &log)
	if err != nil {
		return err
	}

	in := bb84.Input{Mode: bb84.ModeCount, NumBits: opts.bits}
	if fs.Changed("message") {
		in = bb84.Input{Mode: bb84.ModeMessage, Message: opts.message}
	}
	plan := []bool{opts.eavesdrop}
	if !fs.Changed("eavesdrop") {
		plan = []bool{false, true}
	}

	var last bb84.RunResult
	for i, eve := range plan {
		in.Eavesdrop = eve
		res, err := runner.Run(in)
		if err != nil {
			return err
		}
		if len(plan) > 1 {
			if i > 0 {
				fmt.Fprintln(stdout)
			}
			label := "Without Eve (Expected low QBER)"
			if eve {
				label = "With Eve (Expected high QBER)"
			}
			fmt.Fprintf(stdout, "Run %d: %s\n", i+1, label)
		}
		if err := printResult(stdout, res, opts.asJSON); err != nil {
			return err
		}
		last = res
	}

	if opts.transcript != "" {
		f, err := os.Create(opts.transcript)
		if err != nil {
			return fmt.Errorf("creating transcript: %w", err)
		}
		defer f.Close()
		if err := bb84.WriteTranscript(f, last); err != nil {
			return err
		}
		return f.Close()
	}
	return nil
}

func newRunner(opts options, log *zerolog.Logger) (*bb84.Runner, error) {
	var src photon.Source
	if opts.seed != 0 {
		src = photon.NewSeededSource(opts.seed)
	} else {
		var err error
		if src, err = photon.NewEntropySource(); err != nil {
			return nil, err
		}
	}
	return bb84.NewRunner(bb84.Options{
		Rand:               src,
		DetectionThreshold: &opts.threshold,
		Log:                log,
	})
}

func replay(opts options, stdout io.Writer) error {
	f, err := os.Open(opts.replay)
	if err != nil {
		return fmt.Errorf("opening transcript: %w", err)
	}
	defer f.Close()
	res, err := bb84.ReadTranscript(f)
	if err != nil {
		return err
	}
	return printResult(stdout, res, opts.asJSON)
}

func printResult(w io.Writer, res bb84.RunResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintln(w, "\n=== BB84 Simulation Results ===")
	fmt.Fprintf(w, "Total bits sent: %d\n", res.TotalBits)
	fmt.Fprintf(w, "Sifted key length: %d\n", res.SiftedKeyLength)
	fmt.Fprintf(w, "QBER: %.2f%%\n", res.QBER*100)
	fmt.Fprintf(w, "Eavesdropper detected: %v\n", res.EveDetected)
	fmt.Fprintln(w, "Final shared key (Alice):", res.AliceKey)
	fmt.Fprintln(w, "Final shared key (Bob)  :", res.BobKey)
	if res.OriginalMessage != "" {
		delivered := "(none)"
		if res.DeliveredMessage != nil {
			delivered = fmt.Sprintf("%q", *res.DeliveredMessage)
		}
		fmt.Fprintf(w, "Message sent: %q\n", res.OriginalMessage)
		fmt.Fprintf(w, "Message delivered: %s\n", delivered)
	}
	return nil
}
