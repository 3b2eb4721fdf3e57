// Command calibrate estimates the false alarm rate of the EWMA chart by simulation.  For every control
// limit width it draws in-control normal samples and counts the samples the chart flags.
package main

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/BTBurke/labstat/pkg/rng"
	"github.com/BTBurke/labstat/pkg/spc"
	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

type results struct {
	name string
	mu   sync.Mutex
	val  map[float64]float64
}

func (r *results) record(l float64, falseAlarm float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.val[l] = falseAlarm
}

func newResults(name string) *results {
	return &results{
		name: name,
		val:  make(map[float64]float64),
	}
}

func main() {
	log.SetHandler(cli.New(os.Stderr))

	pf := pflag.NewFlagSet("calibrate", pflag.ExitOnError)
	lambda := pf.Float64("lambda", 0.25, "EWMA smoothing constant")
	loops := pf.Int("loops", 2000, "Simulated samples per limit width")
	size := pf.Int("size", 50, "Values per simulated sample")
	from := pf.Float64("from", 2.0, "Smallest limit width in standard deviations")
	to := pf.Float64("to", 3.5, "Largest limit width in standard deviations")
	procs := pf.Int("procs", 4, "Limit widths simulated at once")
	pf.Parse(os.Args[1:])

	res := newResults(fmt.Sprintf("ewma-%g", *lambda))
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(*procs)
	for i := 0; ; i++ {
		l := *from + 0.1*float64(i)
		if l > *to+1e-9 {
			break
		}
		g.Go(func() error {
			log.WithField("L", l).Info("start")
			return falseAlarmRate(res, l, *lambda, *loops, *size)
		})
	}
	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("calibration failed")
	}
	log.Infof("Time Elapsed: %v", time.Since(start))

	widths := make([]float64, 0, len(res.val))
	for l := range res.val {
		widths = append(widths, l)
	}
	sort.Float64s(widths)
	var b bytes.Buffer
	for _, l := range widths {
		b.WriteString(fmt.Sprintf("%f %f\n", l, res.val[l]))
	}
	if err := ioutil.WriteFile(fmt.Sprintf("%s.txt", res.name), b.Bytes(), 0644); err != nil {
		log.WithError(err).Fatal("could not write results")
	}
}

func falseAlarmRate(results *results, l float64, lambda float64, loops int, size int) error {
	alarms := 0
	for i := 0; i < loops; i++ {
		sample := rng.Sample(rng.NewNormalRNG(10.0, 1.0, int64(i+1)), size)
		chart, err := spc.Analyze(sample, spc.WithSigma(l), spc.WithEWMA(lambda))
		if err != nil {
			return fmt.Errorf("unexpected error building chart: %v", err)
		}
		if len(chart.EWMA.OutOfControl) > 0 {
			alarms++
		}
	}
	rate := float64(alarms) / float64(loops)
	log.WithFields(log.Fields{"L": l, "alarms": alarms}).Infof("false alarm rate %1.5f", rate)
	results.record(l, rate)
	return nil
}
