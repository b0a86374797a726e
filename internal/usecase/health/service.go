package health

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates every probed service answered.
	Healthy Status = "ok"
	// Degraded indicates at least one service did not answer.
	Degraded Status = "degraded"
	// Unhealthy indicates no service answered.
	Unhealthy Status = "error"
)

// Probe result labels.
const (
	ResultReachable   = "reachable"
	ResultUnreachable = "unreachable"
)

// Target names a service and its liveness URL.
type Target struct {
	Service string
	URL     string
}

// Report aggregates probe results in target order.
type Report struct {
	Status Status
	Checks []Result
}

// Service probes every target concurrently. Probes are independent:
// one failing never affects another, and Check never returns an error.
type Service struct {
	prober   Prober
	targets  []Target
	recorder Recorder
}

// New creates a Service.
func New(prober Prober, targets ...Target) *Service {
	return &Service{prober: prober, targets: targets}
}

// WithRecorder attaches a metrics recorder.
func (s *Service) WithRecorder(r Recorder) *Service {
	s.recorder = r
	return s
}

// Check runs all probes and aggregates the outcome.
func (s *Service) Check(ctx context.Context) Report {
	checks := make([]Result, len(s.targets))

	var g errgroup.Group
	for i, t := range s.targets {
		g.Go(func() error {
			r := s.prober.Probe(ctx, t.URL)
			r.Service = t.Service
			r.URL = t.URL
			checks[i] = r
			return nil
		})
	}
	_ = g.Wait()

	reachable := 0
	for _, c := range checks {
		result := ResultUnreachable
		if c.Reachable {
			reachable++
			result = ResultReachable
		}
		if s.recorder != nil {
			s.recorder.ObserveHealth(c.Service, result)
		}
	}

	status := Healthy
	switch {
	case len(checks) > 0 && reachable == 0:
		status = Unhealthy
	case reachable < len(checks):
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
