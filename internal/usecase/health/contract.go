package health

import "context"

// Prober issues one liveness request. Implementations never fail; errors are data.
type Prober interface {
	Probe(ctx context.Context, url string) Result
}

// Recorder receives one observation per probe. Satisfied by *metrics.Metrics.
type Recorder interface {
	ObserveHealth(service, result string)
}
