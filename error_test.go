package labstat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewErrorReporter(t *testing.T) {
	tt := []struct {
		name string
		cfg  *Config
		exp  ErrorReporter
	}{
		{name: "no config", cfg: nil, exp: noopReporter{}},
		{name: "no token", cfg: &Config{}, exp: noopReporter{}},
		{name: "disabled", cfg: &Config{RollbarToken: "abc", NoErrorReports: true}, exp: noopReporter{}},
		{name: "token", cfg: &Config{RollbarToken: "abc"}, exp: rollbarReporter{}},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.exp, NewErrorReporter(tc.cfg))
		})
	}
}
