package labstat

import (
	"context"
	"encoding/json"
	"errors"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDoer struct {
	mock.Mock
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	resp, _ := args.Get(0).(*http.Response)
	return resp, args.Error(1)
}

type mockReporter struct {
	mock.Mock
}

func (m *mockReporter) ReportError(err error) {
	m.Called(err)
}

func (m *mockReporter) Wait() {
	m.Called()
}

func response(status int) *http.Response {
	return &http.Response{StatusCode: status, Status: http.StatusText(status), Body: ioutil.NopCloser(strings.NewReader(""))}
}

func testAnalysis(t *testing.T) *Analysis {
	a := newTestAnalyzer(t)
	res, err := a.Analyze(context.Background(), Input{Samples: map[string][]float64{"yield": {100, 98, 95, 90, 85}}})
	require.NoError(t, err)
	return res
}

func TestSinkDelivers(t *testing.T) {
	var received Analysis
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	logger, _ := testLogger()
	s := NewHTTPSink(srv.URL, WithSinkLogger(logger))
	require.NoError(t, s.Send(context.Background(), testAnalysis(t)))
	require.Contains(t, received.Parameters, "yield")
	assert.Equal(t, 5, received.Parameters["yield"].Descriptive.Count)
	assert.Equal(t, 50.0, received.Quality.Score)
}

func TestSinkRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	logger, _ := testLogger()
	s := NewHTTPSink(srv.URL, WithSinkLogger(logger))
	require.NoError(t, s.Send(context.Background(), testAnalysis(t)))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSinkFailures(t *testing.T) {
	tt := []struct {
		name     string
		setup    func(m *mockDoer)
		attempts int
	}{
		{name: "rejected", setup: func(m *mockDoer) {
			m.On("Do", mock.Anything).Return(response(http.StatusBadRequest), nil).Once()
		}, attempts: 1},
		{name: "unreachable", setup: func(m *mockDoer) {
			m.On("Do", mock.Anything).Return(nil, errors.New("connection refused"))
		}},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			doer := new(mockDoer)
			tc.setup(doer)
			reporter := new(mockReporter)
			reporter.On("ReportError", mock.Anything).Once()

			logger, _ := testLogger()
			s := NewHTTPSink("http://lab.invalid/results", WithClient(doer), WithErrorReporter(reporter), WithMaxElapsed(200*time.Millisecond), WithSinkLogger(logger))
			err := s.Send(context.Background(), testAnalysis(t))
			assert.Error(t, err)

			if tc.attempts > 0 {
				doer.AssertNumberOfCalls(silenceT(t), "Do", tc.attempts)
			}
			doer.AssertExpectations(silenceT(t))
			reporter.AssertExpectations(silenceT(t))
		})
	}
}

func TestSinkCancelled(t *testing.T) {
	doer := new(mockDoer)
	doer.On("Do", mock.Anything).Return(response(http.StatusBadGateway), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	logger, _ := testLogger()
	s := NewHTTPSink("http://lab.invalid/results", WithClient(doer), WithSinkLogger(logger))

	start := time.Now()
	err := s.Send(ctx, testAnalysis(t))
	assert.Error(t, err)
	assert.True(t, time.Since(start) < 10*time.Second)
}

func TestSinkNoAnalysis(t *testing.T) {
	s := NewHTTPSink("http://lab.invalid/results")
	assert.Error(t, s.Send(context.Background(), nil))
}
