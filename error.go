package labstat

import (
	"os"

	"github.com/stvp/rollbar"
)

// ErrorReporter sends unexpected errors, such as a failed delivery or an unreadable dataset, to an
// external crash reporting service.  Analysis errors are part of the result and never reported.
type ErrorReporter interface {
	ReportError(err error)
	// Wait blocks until every queued report has been sent.  Call it before the process exits.
	Wait()
}

// NewErrorReporter returns a reporter backed by Rollbar.  Nothing is reported when the token is empty
// or reporting is disabled.
func NewErrorReporter(c *Config) ErrorReporter {
	if c == nil || c.RollbarToken == "" || c.NoErrorReports {
		return noopReporter{}
	}
	switch env := os.Getenv("environment"); env {
	case "development":
		rollbar.Environment = "development"
	default:
		rollbar.Environment = "production"
	}
	rollbar.Token = c.RollbarToken
	return rollbarReporter{}
}

type rollbarReporter struct{}

// ReportError sends err to Rollbar
func (rollbarReporter) ReportError(err error) {
	rollbar.Error(rollbar.ERR, err)
}

// Wait blocks until queued reports are sent
func (rollbarReporter) Wait() {
	rollbar.Wait()
}

type noopReporter struct{}

func (noopReporter) ReportError(err error) {}

func (noopReporter) Wait() {}
