package labstat

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/BTBurke/labstat/pkg/stat"
)

// Supported values of the outlier and trend methods
const (
	OutlierIQR  = "iqr"
	TrendLinear = "linear"
)

// Output formats of the command line client
const (
	OutputJSON    = "json"
	OutputMetrics = "metrics"
)

// Config controls every analysis run by an Analyzer.  Options take string values so the same setters
// serve command line flags and the YAML configuration file.
type Config struct {
	ConfidenceLevel          float64
	ControlLimitSigma        float64
	OutlierMethod            string
	TrendMethod              string
	ForecastHorizon          int
	Concurrency              int
	InstrumentUncertainty    float64
	EnvironmentalUncertainty float64
	ApplyDivisors            bool
	Window                   int
	EWMALambda               float64
	ExactDistributions       bool

	// used by the command line client only
	Output         string
	Publish        string
	RollbarToken   string
	NoErrorReports bool
}

type ConfigOption func(c *Config) error

// NewConfig returns a configuration with defaults applied, then every option.  All option errors are
// collected and returned together.
func NewConfig(options ...ConfigOption) (*Config, []error) {
	c := &Config{
		ConfidenceLevel:          95,
		ControlLimitSigma:        3,
		OutlierMethod:            OutlierIQR,
		TrendMethod:              TrendLinear,
		ForecastHorizon:          3,
		Concurrency:              4,
		InstrumentUncertainty:    0.01,
		EnvironmentalUncertainty: 0.005,
		Output:                   OutputJSON,
	}

	var errors []error
	for _, option := range options {
		err := option(c)
		if err != nil {
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, errors
	}
	return c, nil
}

func configError(format string, args ...interface{}) error {
	return stat.Errorf(stat.ConfigurationError, "config", format, args...)
}

func parseFloat(name string, value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, configError("could not convert %s to a number: %s", name, value)
	}
	return f, nil
}

func parseInt(name string, value string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, configError("could not convert %s to an integer: %s", name, value)
	}
	return i, nil
}

// ConfidenceLevel sets the confidence level in percent for confidence intervals
func ConfidenceLevel(level string) ConfigOption {
	return func(c *Config) error {
		f, err := parseFloat("confidence-level", level)
		if err != nil {
			return err
		}
		if f <= 0 || f >= 100 {
			return configError("confidence-level must be between 0 and 100, got %v", f)
		}
		c.ConfidenceLevel = f
		return nil
	}
}

// ControlLimitSigma sets the width of the control limits in standard deviations
func ControlLimitSigma(sigma string) ConfigOption {
	return func(c *Config) error {
		f, err := parseFloat("sigma", sigma)
		if err != nil {
			return err
		}
		if f <= 0 {
			return configError("sigma must be positive, got %v", f)
		}
		c.ControlLimitSigma = f
		return nil
	}
}

// OutlierMethod selects outlier detection.  Only iqr is supported.
func OutlierMethod(method string) ConfigOption {
	return func(c *Config) error {
		m := strings.ToLower(method)
		if m != OutlierIQR {
			return configError("unsupported outlier method %q, supported: %s", method, OutlierIQR)
		}
		c.OutlierMethod = m
		return nil
	}
}

// TrendMethod selects the trend model.  Only linear is supported.
func TrendMethod(method string) ConfigOption {
	return func(c *Config) error {
		m := strings.ToLower(method)
		if m != TrendLinear {
			return configError("unsupported trend method %q, supported: %s", method, TrendLinear)
		}
		c.TrendMethod = m
		return nil
	}
}

// ForecastHorizon sets the number of future points forecast by the trend model
func ForecastHorizon(h string) ConfigOption {
	return func(c *Config) error {
		i, err := parseInt("forecast-horizon", h)
		if err != nil {
			return err
		}
		if i < 1 {
			return configError("forecast-horizon must be at least 1, got %d", i)
		}
		c.ForecastHorizon = i
		return nil
	}
}

// Concurrency bounds the number of parameters and correlation pairs analyzed at once
func Concurrency(n string) ConfigOption {
	return func(c *Config) error {
		i, err := parseInt("concurrency", n)
		if err != nil {
			return err
		}
		if i < 1 {
			return configError("concurrency must be at least 1, got %d", i)
		}
		c.Concurrency = i
		return nil
	}
}

// InstrumentUncertainty sets the Type B instrument uncertainty
func InstrumentUncertainty(u string) ConfigOption {
	return func(c *Config) error {
		f, err := parseFloat("instrument-uncertainty", u)
		if err != nil {
			return err
		}
		if f < 0 {
			return configError("instrument-uncertainty must not be negative, got %v", f)
		}
		c.InstrumentUncertainty = f
		return nil
	}
}

// EnvironmentalUncertainty sets the Type B environmental uncertainty
func EnvironmentalUncertainty(u string) ConfigOption {
	return func(c *Config) error {
		f, err := parseFloat("environmental-uncertainty", u)
		if err != nil {
			return err
		}
		if f < 0 {
			return configError("environmental-uncertainty must not be negative, got %v", f)
		}
		c.EnvironmentalUncertainty = f
		return nil
	}
}

// ApplyDivisors divides Type B components by their distribution divisor before combining them
func ApplyDivisors() ConfigOption {
	return func(c *Config) error {
		c.ApplyDivisors = true
		return nil
	}
}

// Window keeps only the most recent n observations of every parameter.  0 keeps all.
func Window(n string) ConfigOption {
	return func(c *Config) error {
		i, err := parseInt("window", n)
		if err != nil {
			return err
		}
		if i < 0 {
			return configError("window must not be negative, got %d", i)
		}
		c.Window = i
		return nil
	}
}

// EWMALambda adds an EWMA chart with the smoothing constant.  0 disables it.
func EWMALambda(lambda string) ConfigOption {
	return func(c *Config) error {
		f, err := parseFloat("ewma-lambda", lambda)
		if err != nil {
			return err
		}
		if f < 0 || f > 1 {
			return configError("ewma-lambda must be in [0, 1], got %v", f)
		}
		c.EWMALambda = f
		return nil
	}
}

// ExactDistributions uses exact t and F distributions instead of the lookup tables
func ExactDistributions() ConfigOption {
	return func(c *Config) error {
		c.ExactDistributions = true
		return nil
	}
}

// Output sets the output format of the command line client, json or metrics
func Output(format string) ConfigOption {
	return func(c *Config) error {
		f := strings.ToLower(format)
		switch f {
		case OutputJSON, OutputMetrics:
			c.Output = f
			return nil
		default:
			return configError("unsupported output format %q", format)
		}
	}
}

// Publish sends the analysis to the URL after it completes
func Publish(u string) ConfigOption {
	return func(c *Config) error {
		parsed, err := url.Parse(u)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return configError("publish must be an absolute URL, got %s", u)
		}
		c.Publish = u
		return nil
	}
}

// RollbarToken enables reporting of unexpected errors
func RollbarToken(token string) ConfigOption {
	return func(c *Config) error {
		if token == "" {
			return configError("rollbar-token must not be empty")
		}
		c.RollbarToken = token
		return nil
	}
}

// NoErrorReports disables reporting of unexpected errors
func NoErrorReports() ConfigOption {
	return func(c *Config) error {
		c.NoErrorReports = true
		return nil
	}
}
