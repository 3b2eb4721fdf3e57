package labstat

import (
	"fmt"
	"io/ioutil"
	"os"
	"strconv"

	"github.com/go-yaml/yaml"
	"github.com/spf13/pflag"
)

type options struct {
	options []ConfigOption
	err     error
}

// ParseCommandLine configures the client from command line options or from
// a YAML configuration file passed with the -c flag.  Returns the dataset files
// and a slice of functional options that can be applied to the configuration.
func ParseCommandLine() ([]string, []ConfigOption, error) {
	pf := createFlagSet()
	return parse(os.Args[1:], pf)
}

func parse(args []string, pf *pflag.FlagSet) ([]string, []ConfigOption, error) {
	options := options{}
	if err := pf.ParseAll(args, parseFlag(&options)); err != nil {
		return pf.Args(), options.options, err
	}
	return pf.Args(), options.options, options.err
}

func createFlagSet() *pflag.FlagSet {
	pf := pflag.NewFlagSet("labstat", pflag.ContinueOnError)
	pf.Usage = func() {
		fmt.Printf("Usage of labstat:\nlabstat <options> dataset.yml [dataset.yml ...]\n")
		fmt.Printf("\n%s", pf.FlagUsagesWrapped(10))
		fmt.Printf("\n\nDatasets are YAML or JSON files with the measured values of each parameter.  Example:\n\nlabstat -c config.yml --exact tensile.yml\n")
	}

	pf.StringP("config", "c", "", "Use yaml configuration file")
	pf.Float64("confidence-level", 95, "Confidence level in percent for confidence intervals")
	pf.Float64("sigma", 3, "Width of the control limits in standard deviations")
	pf.String("outlier-method", OutlierIQR, "Outlier detection method.  Only iqr is supported.")
	pf.String("trend-method", TrendLinear, "Trend model.  Only linear is supported.")
	pf.Int("forecast-horizon", 3, "Number of future values forecast from the trend")
	pf.Int("concurrency", 4, "Number of parameters and correlation pairs analyzed at once")
	pf.Float64("instrument-uncertainty", 0.01, "Type B instrument uncertainty")
	pf.Float64("environmental-uncertainty", 0.005, "Type B environmental uncertainty")
	pf.Bool("apply-divisors", false, "Divide Type B uncertainties by their distribution divisor before combining")
	pf.Int("window", 0, "Analyze only the most recent N values of each parameter (0 for all)")
	pf.Float64("ewma-lambda", 0, "Add an EWMA chart with this smoothing constant in (0, 1]")
	pf.Bool("exact", false, "Use exact t and F distributions instead of lookup tables")
	pf.StringP("output", "o", OutputJSON, "Output format, json or metrics")
	pf.String("publish", "", "POST the analysis as JSON to this URL")
	pf.String("rollbar-token", "", "Report unexpected errors to Rollbar using this token")
	pf.Bool("no-error-reports", false, "Do not send reports when there are unexpected errors in the client")

	return pf
}

func parseFlag(o *options) func(*pflag.Flag, string) error {
	return func(flag *pflag.Flag, value string) error {
		switch flag.Name {
		case "config":
			opts, err := parseFromFile(value)
			if err != nil {
				o.err = err
				return err
			}
			o.options = append(o.options, opts...)
		default:
			option, err := handleOption(flag.Name, value)
			if err != nil {
				o.err = err
				return err
			}
			if option != nil {
				o.options = append(o.options, option)
			}
		}
		return nil
	}
}

// handleOption maps a flag or YAML key to its option.  Boolean options return nil when value is false.
func handleOption(name string, value string) (ConfigOption, error) {
	switch name {
	case "confidence-level":
		return ConfidenceLevel(value), nil
	case "sigma":
		return ControlLimitSigma(value), nil
	case "outlier-method":
		return OutlierMethod(value), nil
	case "trend-method":
		return TrendMethod(value), nil
	case "forecast-horizon":
		return ForecastHorizon(value), nil
	case "concurrency":
		return Concurrency(value), nil
	case "instrument-uncertainty":
		return InstrumentUncertainty(value), nil
	case "environmental-uncertainty":
		return EnvironmentalUncertainty(value), nil
	case "apply-divisors":
		return boolOption(name, value, ApplyDivisors())
	case "window":
		return Window(value), nil
	case "ewma-lambda":
		return EWMALambda(value), nil
	case "exact":
		return boolOption(name, value, ExactDistributions())
	case "output":
		return Output(value), nil
	case "publish":
		return Publish(value), nil
	case "rollbar-token":
		return RollbarToken(value), nil
	case "no-error-reports":
		return boolOption(name, value, NoErrorReports())
	default:
		return nil, fmt.Errorf("Unknown option: %s", name)
	}
}

func boolOption(name string, value string, opt ConfigOption) (ConfigOption, error) {
	if value == "" {
		return opt, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return nil, fmt.Errorf("could not convert %s to true or false: %s", name, value)
	}
	if !b {
		return nil, nil
	}
	return opt, nil
}

func parseFromFile(fpath string) ([]ConfigOption, error) {
	var options []ConfigOption
	data, err := ioutil.ReadFile(fpath)
	if err != nil {
		return options, err
	}

	cfg := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return options, err
	}
	for k, v := range cfg {
		var value string
		switch val := v.(type) {
		case string:
			value = val
		case int:
			value = strconv.Itoa(val)
		case float64:
			value = strconv.FormatFloat(val, 'g', -1, 64)
		case bool:
			value = strconv.FormatBool(val)
		default:
			return options, fmt.Errorf("Could not process config key %s, unknown type", k)
		}
		opt, err := handleOption(k, value)
		if err != nil {
			return options, err
		}
		if opt != nil {
			options = append(options, opt)
		}
	}
	return options, nil
}
