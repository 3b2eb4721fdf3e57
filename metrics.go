package labstat

import (
	"sort"
	"strconv"

	"github.com/BTBurke/labstat/pkg/metric"
)

// Metrics flattens the analysis into named scalar values, e.g. cpk[parameter=tensile stat=control] 1.42.
// Points are ordered by parameter name and then by the order of the analyses.
func (a *Analysis) Metrics() []metric.Point {
	names := make([]string, 0, len(a.Parameters))
	for name := range a.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []metric.Point
	for _, name := range names {
		out = append(out, parameterMetrics(a.Parameters[name])...)
	}

	for _, e := range a.Correlation {
		md := map[string]string{"a": e.A, "b": e.B, "stat": "correlation"}
		out = append(out,
			point("r", md, e.Correlation),
			point("p_value", md, e.PValue),
			point("significant", md, boolValue(e.Significant)),
			point("n", md, float64(e.SampleSize)),
		)
	}

	if a.ANOVA != nil {
		md := map[string]string{"stat": "anova"}
		out = append(out,
			point("f", md, a.ANOVA.FStatistic),
			point("p_value", md, a.ANOVA.PValue),
			point("critical_value", md, a.ANOVA.CriticalValue),
			point("significant", md, boolValue(a.ANOVA.Significant)),
		)
	}

	md := map[string]string{"stat": "quality"}
	out = append(out,
		point("score", md, a.Quality.Score),
		point("critical_findings", md, float64(len(a.Quality.CriticalFindings))),
		point("recommendations", md, float64(len(a.Quality.Recommendations))),
		point("skipped_parameters", md, float64(len(a.Skipped))),
	)
	return out
}

func parameterMetrics(p *Parameter) []metric.Point {
	var out []metric.Point
	at := func(stat string) map[string]string {
		return map[string]string{"parameter": p.Name, "stat": stat}
	}

	d := p.Descriptive
	md := at("descriptive")
	out = append(out,
		point("count", md, float64(d.Count)),
		point("mean", md, d.Mean),
		point("median", md, d.Median),
		point("stddev", md, d.StdDev),
		point("min", md, d.Min),
		point("max", md, d.Max),
		point("q1", md, d.Quartiles.Q1),
		point("q3", md, d.Quartiles.Q3),
		point("iqr", md, d.IQR),
		point("skewness", md, d.Skewness),
		point("kurtosis", md, d.Kurtosis),
		point("ci_lower", md, d.ConfidenceInterval.Lower),
		point("ci_upper", md, d.ConfidenceInterval.Upper),
		point("outliers", md, float64(len(d.Outliers))),
	)

	c := p.ControlChart
	md = at("control")
	out = append(out,
		point("center_line", md, c.CenterLine),
		point("ucl", md, c.UCL),
		point("lcl", md, c.LCL),
		point("cp", md, c.Cp),
		point("cpk", md, c.Cpk),
		point("out_of_control", md, float64(len(c.OutOfControl))),
	)
	if c.EWMA != nil {
		out = append(out,
			point("ucl", md, c.EWMA.UCL, "ewma"),
			point("lcl", md, c.EWMA.LCL, "ewma"),
			point("out_of_control", md, float64(len(c.EWMA.OutOfControl)), "ewma"),
		)
	}

	t := p.Trend
	md = at("trend")
	out = append(out,
		point("slope", md, t.Slope),
		point("intercept", md, t.Intercept),
		point("r_squared", md, t.RSquared),
	)
	for i, v := range t.Forecast.Values {
		out = append(out, tagged(point("value", md, v, "forecast"), map[string]string{"step": strconv.Itoa(i + 1)}))
	}

	u := p.Uncertainty
	md = at("uncertainty")
	out = append(out,
		point("type_a", md, u.TypeA.StandardUncertainty),
		point("type_b", md, u.TypeB.Combined),
		point("combined", md, u.Combined),
		point("expanded", md, u.Expanded.Value),
	)

	md = at("compliance")
	for _, r := range p.Compliance {
		std := map[string]string{"standard": r.StandardID}
		out = append(out,
			tagged(point("deviation", md, r.Deviation), std),
			tagged(point("deviation_percent", md, r.DeviationPercent), std),
			tagged(point("compliant", md, boolValue(r.Compliant)), std),
		)
	}
	return out
}

// point copies md so callers can reuse one metadata map for several points
func point(name string, md map[string]string, v float64, ann ...string) metric.Point {
	n := metric.NewNameFrom(metric.NewName(name, md))
	n.AddAnnotation(ann...)
	return metric.Point{Name: n, Value: v}
}

// tagged adds metadata to the name of p
func tagged(p metric.Point, md map[string]string) metric.Point {
	p.Name.AddMetadata(md)
	return p
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
