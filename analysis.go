// Package labstat analyzes measurements from materials testing.  For every measured parameter it computes
// descriptive statistics, a control chart with capability indices, a trend with forecast, a measurement
// uncertainty budget and compliance against reference values.  Across parameters it computes a correlation
// matrix and, when the measurements are grouped (e.g. by operator), a one-way ANOVA.  The results are
// combined into an overall quality score with findings and recommendations.
package labstat

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/BTBurke/labstat/pkg/anova"
	"github.com/BTBurke/labstat/pkg/compliance"
	"github.com/BTBurke/labstat/pkg/correlation"
	"github.com/BTBurke/labstat/pkg/metric"
	"github.com/BTBurke/labstat/pkg/spc"
	"github.com/BTBurke/labstat/pkg/stat"
	"github.com/BTBurke/labstat/pkg/trend"
	"github.com/BTBurke/labstat/pkg/uncertainty"
	"github.com/apex/log"
	"golang.org/x/sync/errgroup"
)

// Capability thresholds used for the quality score
const (
	CapableCpk  = 1.33
	MarginalCpk = 1.0
)

// Input is everything analyzed in one run.  Only Samples is required.  References and SpecLimits are keyed
// by parameter name; Groups maps a group label to the values measured in that group.
type Input struct {
	Samples    map[string][]float64
	References map[string][]compliance.Reference
	SpecLimits map[string]spc.Limits
	Groups     map[string][]float64
}

// Merge appends the samples and groups of other to in.  References and specification limits of other
// replace those given for the same parameter in in.
func (in *Input) Merge(other Input) {
	if in.Samples == nil {
		in.Samples = make(map[string][]float64)
	}
	if in.Groups == nil {
		in.Groups = make(map[string][]float64)
	}
	if in.References == nil {
		in.References = make(map[string][]compliance.Reference)
	}
	if in.SpecLimits == nil {
		in.SpecLimits = make(map[string]spc.Limits)
	}
	for name, values := range other.Samples {
		in.Samples[name] = append(in.Samples[name], values...)
	}
	for label, values := range other.Groups {
		in.Groups[label] = append(in.Groups[label], values...)
	}
	for name, refs := range other.References {
		in.References[name] = refs
	}
	for name, l := range other.SpecLimits {
		in.SpecLimits[name] = l
	}
}

// Parameter holds the results for one measured parameter
type Parameter struct {
	Name         string              `json:"name"`
	Descriptive  *stat.Summary       `json:"descriptiveStats"`
	ControlChart *spc.ControlChart   `json:"controlChart"`
	Trend        *trend.Model        `json:"trend"`
	Uncertainty  *uncertainty.Model  `json:"uncertainty"`
	Compliance   []compliance.Result `json:"complianceChecks"`
}

// Skipped is a parameter that could not be analyzed
type Skipped struct {
	Parameter string    `json:"parameter"`
	Kind      stat.Kind `json:"kind"`
	Reason    string    `json:"reason"`
}

// Quality summarizes the capability of all analyzed parameters
type Quality struct {
	Score            float64  `json:"score"`
	Recommendations  []string `json:"recommendations"`
	CriticalFindings []string `json:"criticalFindings"`
}

// Analysis is the result of one run.  ANOVA is nil when fewer than two groups were given.
type Analysis struct {
	Parameters   map[string]*Parameter `json:"parameters"`
	Correlation  []correlation.Edge    `json:"correlationMatrix"`
	SkippedPairs []correlation.Skipped `json:"skippedPairs"`
	ANOVA        *anova.Result         `json:"anova,omitempty"`
	ANOVAError   string                `json:"anovaError,omitempty"`
	Quality      Quality               `json:"overallQuality"`
	Skipped      []Skipped             `json:"skippedParameters"`
}

// Analyzer runs analyses with a fixed configuration.  It holds no state between runs and is safe for
// concurrent use.
type Analyzer struct {
	cfg  *Config
	dist stat.Distribution
	log  log.Interface
}

type AnalyzerOption func(a *Analyzer)

// WithLogger sets the logger.  Defaults to the apex/log default logger.
func WithLogger(l log.Interface) AnalyzerOption {
	return func(a *Analyzer) {
		a.log = l
	}
}

// WithDistribution replaces the t and F distribution source chosen by the configuration
func WithDistribution(d stat.Distribution) AnalyzerOption {
	return func(a *Analyzer) {
		a.dist = d
	}
}

// New returns an analyzer for the configuration.  A nil configuration uses the defaults of NewConfig.
func New(cfg *Config, opts ...AnalyzerOption) *Analyzer {
	if cfg == nil {
		cfg, _ = NewConfig()
	}
	a := &Analyzer{cfg: cfg, log: log.Log}
	switch {
	case cfg.ExactDistributions:
		a.dist = stat.Exact{}
	default:
		a.dist = stat.NewLookupTable()
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// validate rejects configurations that were built without NewConfig.  Every value an analyzer option
// checks is checked here before any parameter runs.
func (a *Analyzer) validate() error {
	c := a.cfg
	switch {
	case c.OutlierMethod != OutlierIQR:
		return configError("unsupported outlier method %q", c.OutlierMethod)
	case c.TrendMethod != TrendLinear:
		return configError("unsupported trend method %q", c.TrendMethod)
	case c.Concurrency < 1:
		return configError("concurrency must be at least 1, got %d", c.Concurrency)
	case c.Window < 0:
		return configError("window must not be negative, got %d", c.Window)
	case !(c.ConfidenceLevel > 0 && c.ConfidenceLevel < 100):
		return configError("confidence level must be between 0 and 100, got %v", c.ConfidenceLevel)
	case !(c.ControlLimitSigma > 0) || math.IsInf(c.ControlLimitSigma, 0):
		return configError("control limit sigma must be positive, got %v", c.ControlLimitSigma)
	case c.ForecastHorizon < 1:
		return configError("forecast horizon must be at least 1, got %d", c.ForecastHorizon)
	case !(c.EWMALambda >= 0 && c.EWMALambda <= 1):
		return configError("ewma lambda must be in [0, 1], got %v", c.EWMALambda)
	case !(c.InstrumentUncertainty >= 0) || math.IsInf(c.InstrumentUncertainty, 0):
		return configError("instrument uncertainty must not be negative, got %v", c.InstrumentUncertainty)
	case !(c.EnvironmentalUncertainty >= 0) || math.IsInf(c.EnvironmentalUncertainty, 0):
		return configError("environmental uncertainty must not be negative, got %v", c.EnvironmentalUncertainty)
	case a.dist == nil:
		return configError("distribution must not be nil")
	}
	return nil
}

// Analyze runs every analysis on the input.  A parameter that cannot be analyzed is reported in Skipped
// and left out of the correlation matrix and quality score; it never fails the run.  Errors are returned
// for an invalid configuration, an input without samples and a cancelled context.
func (a *Analyzer) Analyze(ctx context.Context, in Input) (*Analysis, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}
	if len(in.Samples) == 0 {
		return nil, stat.Errorf(stat.InvalidInput, "analyze", "no samples")
	}

	names := make([]string, 0, len(in.Samples))
	for name := range in.Samples {
		names = append(names, name)
	}
	sort.Strings(names)

	samples := make([][]float64, len(names))
	for i, name := range names {
		samples[i] = a.window("parameter", name, in.Samples[name])
	}
	results := make([]*Parameter, len(names))
	errs := make([]error, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Concurrency)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], errs[i] = a.parameter(name, samples[i], in)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Analysis{
		Parameters:   make(map[string]*Parameter),
		Correlation:  make([]correlation.Edge, 0),
		SkippedPairs: make([]correlation.Skipped, 0),
		Skipped:      make([]Skipped, 0),
	}
	analyzed := make(map[string][]float64)
	for i, name := range names {
		if errs[i] != nil {
			a.log.WithFields(log.Fields{"parameter": name, "kind": stat.KindOf(errs[i])}).Warnf("parameter skipped: %v", errs[i])
			out.Skipped = append(out.Skipped, Skipped{Parameter: name, Kind: stat.KindOf(errs[i]), Reason: errs[i].Error()})
			continue
		}
		out.Parameters[name] = results[i]
		analyzed[name] = samples[i]
	}

	if len(analyzed) >= 2 {
		matrix, err := correlation.Matrix(ctx, analyzed, correlation.WithDistribution(a.dist), correlation.WithConcurrency(a.cfg.Concurrency))
		if err != nil {
			return nil, fmt.Errorf("correlation matrix: %w", err)
		}
		for _, s := range matrix.Skipped {
			a.log.WithFields(log.Fields{"paramA": s.A, "paramB": s.B}).Debugf("pair skipped: %s", s.Reason)
		}
		out.Correlation = matrix.Edges
		out.SkippedPairs = matrix.Skipped
	}

	if len(in.Groups) >= 2 {
		groups := make(map[string][]float64, len(in.Groups))
		for label, values := range in.Groups {
			groups[label] = a.window("group", label, values)
		}
		res, err := anova.OneWay(groups, anova.WithDistribution(a.dist))
		switch {
		case err != nil:
			a.log.WithField("groups", len(groups)).Warnf("anova skipped: %v", err)
			out.ANOVAError = err.Error()
		default:
			out.ANOVA = res
		}
	}

	out.Quality = quality(out, names)
	a.log.WithFields(log.Fields{
		"parameters": len(out.Parameters),
		"skipped":    len(out.Skipped),
		"score":      out.Quality.Score,
	}).Info("analysis complete")
	return out, nil
}

// window keeps the most recent Window values of a parameter or group and logs how many were dropped
func (a *Analyzer) window(kind string, name string, values []float64) []float64 {
	if a.cfg.Window <= 0 {
		return metric.Window(values, 0)
	}
	s, _ := metric.NewSeries(a.cfg.Window, metric.WithName("window", map[string]string{kind: name}), metric.WithValues(values))
	if s.Dropped() > 0 {
		a.log.WithFields(log.Fields{
			"series":   s.Name(),
			"recorded": s.Count(),
			"dropped":  s.Dropped(),
		}).Debug("older values outside the window")
	}
	return s.Values()
}

// parameter runs the per-parameter analyses.  The first failure is returned with the parameter name.
func (a *Analyzer) parameter(name string, sample []float64, in Input) (*Parameter, error) {
	summary, err := stat.Describe(sample, stat.WithDistribution(a.dist), stat.WithConfidenceLevel(a.cfg.ConfidenceLevel))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	chartOpts := []spc.Option{spc.WithSigma(a.cfg.ControlLimitSigma)}
	if l, ok := in.SpecLimits[name]; ok {
		chartOpts = append(chartOpts, spc.WithSpecLimits(l.Lower, l.Upper))
	}
	if a.cfg.EWMALambda > 0 {
		chartOpts = append(chartOpts, spc.WithEWMA(a.cfg.EWMALambda))
	}
	chart, err := spc.Analyze(sample, chartOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	model, err := trend.Analyze(sample, trend.WithHorizon(a.cfg.ForecastHorizon))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	uncOpts := []uncertainty.Option{
		uncertainty.WithInstrument(a.cfg.InstrumentUncertainty),
		uncertainty.WithEnvironmental(a.cfg.EnvironmentalUncertainty),
	}
	if a.cfg.ApplyDivisors {
		uncOpts = append(uncOpts, uncertainty.WithDivisorsApplied())
	}
	budget, err := uncertainty.Analyze(sample, uncOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	checks, err := compliance.Check(summary.Mean, in.References[name])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return &Parameter{
		Name:         name,
		Descriptive:  summary,
		ControlChart: chart,
		Trend:        model,
		Uncertainty:  budget,
		Compliance:   checks,
	}, nil
}

// quality scores the analyzed parameters and collects findings in parameter name order
func quality(a *Analysis, names []string) Quality {
	q := Quality{Recommendations: make([]string, 0), CriticalFindings: make([]string, 0)}
	total := 0.0
	for _, name := range names {
		p, ok := a.Parameters[name]
		if !ok {
			continue
		}
		c := p.ControlChart
		total += capabilityScore(c.Cpk)

		switch {
		case c.Cpk < MarginalCpk:
			q.CriticalFindings = append(q.CriticalFindings, fmt.Sprintf("%s: process capability is inadequate (Cpk %.2f < %.2f)", name, c.Cpk, MarginalCpk))
		case c.Cpk <= CapableCpk:
			q.Recommendations = append(q.Recommendations, fmt.Sprintf("%s: process capability is marginal (Cpk %.2f), reduce process variation", name, c.Cpk))
		}
		if n := len(c.OutOfControl); n > 0 {
			q.CriticalFindings = append(q.CriticalFindings, fmt.Sprintf("%s: %d point(s) outside the control limits", name, n))
		}
		if c.EWMA != nil && len(c.EWMA.OutOfControl) > 0 {
			q.CriticalFindings = append(q.CriticalFindings, fmt.Sprintf("%s: EWMA chart signals a sustained shift at %d point(s)", name, len(c.EWMA.OutOfControl)))
		}
		if n := len(p.Descriptive.Outliers); n > 0 {
			q.Recommendations = append(q.Recommendations, fmt.Sprintf("%s: %d outlier(s) detected, investigate the test conditions", name, n))
		}
		if p.Trend.Direction != trend.Stable {
			q.Recommendations = append(q.Recommendations, fmt.Sprintf("%s: %s trend detected (slope %.4g per observation)", name, p.Trend.Direction, p.Trend.Slope))
		}
		for _, r := range p.Compliance {
			if !r.Compliant {
				q.CriticalFindings = append(q.CriticalFindings, fmt.Sprintf("%s: mean %.4g does not comply with %s (deviation %.4g, tolerance %.4g)", name, r.MeasuredValue, r.StandardID, r.Deviation, r.Tolerance))
			}
		}
	}
	if a.ANOVA != nil && a.ANOVA.Significant {
		q.Recommendations = append(q.Recommendations, fmt.Sprintf("groups differ significantly (F %.2f > %.2f), review operator and equipment effects", a.ANOVA.FStatistic, a.ANOVA.CriticalValue))
	}
	for _, s := range a.Skipped {
		action := "check the measurements"
		if s.Kind == stat.InsufficientData {
			action = "collect more measurements"
		}
		q.Recommendations = append(q.Recommendations, fmt.Sprintf("%s: not analyzed (%s), %s", s.Parameter, s.Kind, action))
	}
	if len(a.Parameters) > 0 {
		q.Score = total / float64(len(a.Parameters))
	}
	return q
}

func capabilityScore(cpk float64) float64 {
	switch {
	case cpk > CapableCpk:
		return 100
	case cpk > MarginalCpk:
		return 75
	default:
		return 50
	}
}
