package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/BTBurke/labstat"
	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/spf13/pflag"
)

func main() {
	log.SetHandler(cli.New(os.Stderr))

	files, opts, err := labstat.ParseCommandLine()
	if err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Printf("Could not parse configuration: %s\n\nUse labstat --help for options\n", err)
		}
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Println("No dataset given\n\nUse labstat --help for options")
		os.Exit(1)
	}

	cfg, errs := labstat.NewConfig(opts...)
	if len(errs) > 0 {
		fmt.Println("Error in config:")
		for _, e := range errs {
			fmt.Println(e)
		}
		os.Exit(1)
	}
	reporter := labstat.NewErrorReporter(cfg)

	in, err := load(files)
	if err != nil {
		os.Exit(fail(reporter, "Could not load dataset", err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	analysis, err := labstat.New(cfg).Analyze(ctx, in)
	if err != nil {
		fmt.Println("Analysis failed:", err)
		os.Exit(1)
	}

	if err := write(os.Stdout, analysis, cfg.Output); err != nil {
		os.Exit(fail(reporter, "Could not write analysis", err))
	}

	if cfg.Publish != "" {
		sink := labstat.NewHTTPSink(cfg.Publish, labstat.WithErrorReporter(reporter))
		if err := sink.Send(ctx, analysis); err != nil {
			fmt.Printf("Analysis not published: %s\n", err)
			reporter.Wait()
			os.Exit(1)
		}
	}

	os.Exit(0)
}

// load merges every dataset file into one input.  Values of the same parameter are appended in file order.
func load(files []string) (labstat.Input, error) {
	merged := labstat.Input{}
	for _, f := range files {
		d, err := labstat.LoadDataset(f)
		if err != nil {
			return labstat.Input{}, err
		}
		in, rejected, err := d.Input(log.WithField("dataset", f))
		if err != nil {
			return labstat.Input{}, fmt.Errorf("%s: %w", f, err)
		}
		if len(rejected) > 0 {
			log.WithField("dataset", f).Warnf("%d values rejected", len(rejected))
		}
		merged.Merge(in)
	}
	return merged, nil
}

// fail reports err and waits for the report to be sent.  It returns the exit code.
func fail(reporter labstat.ErrorReporter, msg string, err error) int {
	fmt.Printf("%s: %s\n", msg, err)
	reporter.ReportError(err)
	reporter.Wait()
	return 1
}

func write(w io.Writer, a *labstat.Analysis, format string) error {
	switch format {
	case labstat.OutputMetrics:
		for _, p := range a.Metrics() {
			if _, err := fmt.Fprintln(w, p.String()); err != nil {
				return err
			}
		}
		return nil
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(a)
	}
}
