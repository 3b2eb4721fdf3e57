package labstat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/cenkalti/backoff"
)

// Sink delivers a finished analysis to the layer that stores or renders it
type Sink interface {
	Send(ctx context.Context, a *Analysis) error
}

// doer sends a request.  *http.Client implements it.
type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSink POSTs the JSON encoded analysis to a URL.  Failed deliveries are retried with exponential
// backoff until MaxElapsed passes or the context is done.  Responses with a 4xx status are not retried.
type HTTPSink struct {
	url        string
	client     doer
	maxElapsed time.Duration
	errors     ErrorReporter
	log        log.Interface
}

type SinkOption func(s *HTTPSink)

// WithClient sets the HTTP client.  Defaults to a client with a 30s timeout.
func WithClient(c doer) SinkOption {
	return func(s *HTTPSink) {
		s.client = c
	}
}

// WithMaxElapsed bounds the total time spent retrying.  Defaults to 15 minutes.
func WithMaxElapsed(d time.Duration) SinkOption {
	return func(s *HTTPSink) {
		s.maxElapsed = d
	}
}

// WithErrorReporter reports deliveries that fail after every retry
func WithErrorReporter(e ErrorReporter) SinkOption {
	return func(s *HTTPSink) {
		s.errors = e
	}
}

// WithSinkLogger sets the logger used for failed attempts
func WithSinkLogger(l log.Interface) SinkOption {
	return func(s *HTTPSink) {
		s.log = l
	}
}

// NewHTTPSink returns a sink that delivers to url
func NewHTTPSink(url string, opts ...SinkOption) *HTTPSink {
	s := &HTTPSink{
		url:        url,
		client:     &http.Client{Timeout: 30 * time.Second},
		maxElapsed: 15 * time.Minute,
		errors:     noopReporter{},
		log:        log.Log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send delivers the analysis, blocking until it succeeds, retries are exhausted or ctx is done
func (s *HTTPSink) Send(ctx context.Context, a *Analysis) error {
	if a == nil {
		return fmt.Errorf("no analysis to send")
	}
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %v", err)
	}

	attempt := 0
	send := func() error {
		attempt++
		req, err := http.NewRequest(http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req = req.WithContext(ctx)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			s.log.WithFields(log.Fields{"url": s.url, "attempt": attempt}).Warnf("send failed: %v", err)
			return err
		}
		defer resp.Body.Close()
		io.Copy(ioutil.Discard, resp.Body)

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return backoff.Permanent(fmt.Errorf("send rejected: %s", resp.Status))
		default:
			s.log.WithFields(log.Fields{"url": s.url, "attempt": attempt, "status": resp.StatusCode}).Warn("send failed")
			return fmt.Errorf("send fail: %s", resp.Status)
		}
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = s.maxElapsed
	if err := backoff.Retry(send, backoff.WithContext(b, ctx)); err != nil {
		s.errors.ReportError(fmt.Errorf("failed to deliver analysis to %s: %v", s.url, err))
		return err
	}
	return nil
}
