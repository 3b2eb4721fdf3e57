package labstat

import (
	"fmt"
	"io/ioutil"
	"math"
	"sort"
	"strconv"

	"github.com/BTBurke/labstat/pkg/compliance"
	"github.com/BTBurke/labstat/pkg/spc"
	"github.com/apex/log"
	"github.com/go-yaml/yaml"
)

// Dataset is the content of a dataset file.  Samples are used as given; Records are loosely typed rows
// (one per tested specimen) that are validated by ParseRecords and merged into the samples.
type Dataset struct {
	Samples        map[string][]float64              `yaml:"samples"`
	Records        []map[string]interface{}          `yaml:"records"`
	Labels         []string                          `yaml:"labels"`
	GroupBy        string                            `yaml:"groupBy"`
	GroupParameter string                            `yaml:"groupParameter"`
	Groups         map[string][]float64              `yaml:"groups"`
	References     map[string][]compliance.Reference `yaml:"references"`
	SpecLimits     map[string]spc.Limits             `yaml:"specLimits"`
}

// Rejection is a record value that was not accepted as a measurement
type Rejection struct {
	Row       int         `json:"row"`
	Parameter string      `json:"parameter"`
	Value     interface{} `json:"value"`
	Reason    string      `json:"reason"`
}

// Records are the measurements extracted from rows by ParseRecords
type Records struct {
	Samples  map[string][]float64
	Groups   map[string][]float64
	Rejected []Rejection
}

// RecordFormat says how to read rows.  Fields named in Labels and the GroupBy field are not measurements.
// When GroupBy is set, the values of GroupParameter are also collected per group label for ANOVA.
type RecordFormat struct {
	Labels         []string
	GroupBy        string
	GroupParameter string
}

// ParseRecords converts loosely typed rows into validated samples.  Every field other than a label is a
// measured parameter and must hold a finite number; anything else is rejected, logged and reported, never
// coerced.  Values keep the order of the rows.
func ParseRecords(rows []map[string]interface{}, format RecordFormat, logger log.Interface) (*Records, error) {
	if logger == nil {
		logger = log.Log
	}
	if format.GroupBy != "" && format.GroupParameter == "" {
		return nil, configError("records grouped by %s need a group parameter", format.GroupBy)
	}
	labels := make(map[string]bool, len(format.Labels)+1)
	for _, l := range format.Labels {
		labels[l] = true
	}
	if format.GroupBy != "" {
		labels[format.GroupBy] = true
	}

	out := &Records{
		Samples:  make(map[string][]float64),
		Groups:   make(map[string][]float64),
		Rejected: make([]Rejection, 0),
	}
	for i, row := range rows {
		fields := make([]string, 0, len(row))
		for k := range row {
			fields = append(fields, k)
		}
		sort.Strings(fields)

		for _, field := range fields {
			if labels[field] {
				continue
			}
			v, reason := number(row[field])
			if reason != "" {
				r := Rejection{Row: i, Parameter: field, Value: row[field], Reason: reason}
				out.Rejected = append(out.Rejected, r)
				logger.WithFields(log.Fields{"row": i, "parameter": field}).Warnf("rejected value %v: %s", row[field], reason)
				continue
			}
			out.Samples[field] = append(out.Samples[field], v)

			if format.GroupBy != "" && field == format.GroupParameter {
				label := groupLabel(row[format.GroupBy])
				if label == "" {
					r := Rejection{Row: i, Parameter: format.GroupBy, Value: row[format.GroupBy], Reason: "missing group label"}
					out.Rejected = append(out.Rejected, r)
					logger.WithFields(log.Fields{"row": i, "parameter": format.GroupBy}).Warn("row has no group label, excluded from groups")
					continue
				}
				out.Groups[label] = append(out.Groups[label], v)
			}
		}
	}
	if len(out.Rejected) > 0 {
		logger.WithField("rejected", len(out.Rejected)).Infof("parsed %d records", len(rows))
	}
	return out, nil
}

// number returns the value as a float64, or the reason it is not a measurement
func number(v interface{}) (float64, string) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, "missing value"
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	default:
		return 0, fmt.Sprintf("not a number (%T)", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, "not a finite number"
	}
	return f, ""
}

// groupLabel accepts string and integer labels, e.g. an operator name or badge number
func groupLabel(v interface{}) string {
	switch l := v.(type) {
	case string:
		return l
	case int:
		return strconv.Itoa(l)
	case int64:
		return strconv.FormatInt(l, 10)
	default:
		return ""
	}
}

// LoadDataset reads a YAML or JSON dataset file
func LoadDataset(fpath string) (*Dataset, error) {
	data, err := ioutil.ReadFile(fpath)
	if err != nil {
		return nil, err
	}
	d := &Dataset{}
	if err := yaml.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("could not read dataset %s: %v", fpath, err)
	}
	return d, nil
}

// Input builds the analysis input from the dataset.  Samples given directly are followed by the values
// parsed from records for the same parameter.
func (d *Dataset) Input(logger log.Interface) (Input, []Rejection, error) {
	in := Input{
		Samples:    make(map[string][]float64),
		Groups:     make(map[string][]float64),
		References: d.References,
		SpecLimits: make(map[string]spc.Limits),
	}
	for name, values := range d.Samples {
		in.Samples[name] = append(in.Samples[name], values...)
	}
	for label, values := range d.Groups {
		in.Groups[label] = append(in.Groups[label], values...)
	}
	for name, l := range d.SpecLimits {
		l.Supplied = true
		in.SpecLimits[name] = l
	}

	var rejected []Rejection
	if len(d.Records) > 0 {
		recs, err := ParseRecords(d.Records, RecordFormat{Labels: d.Labels, GroupBy: d.GroupBy, GroupParameter: d.GroupParameter}, logger)
		if err != nil {
			return Input{}, nil, err
		}
		for name, values := range recs.Samples {
			in.Samples[name] = append(in.Samples[name], values...)
		}
		for label, values := range recs.Groups {
			in.Groups[label] = append(in.Groups[label], values...)
		}
		rejected = recs.Rejected
	}
	return in, rejected, nil
}
