package cdnbench

import (
	"io"
	"net/http"
	"time"
)

// RunObserver callbacks fire on the runner's goroutine and never influence
// the recorded measurements.
type RunObserver interface {
	TargetStarted(target TestTarget)
	TransferProgress(target TestTarget, chunk int)
	TargetFinished(result TestResult)
}

// RunOptions zero value means direct connections, the default transfer
// timeout, no observer and no progress meter.
type RunOptions struct {
	Transport http.RoundTripper
	Timeout   time.Duration
	Observer  RunObserver

	// destination for the advisory meter used by RunAndPrint; RunAll ignores it
	Progress io.Writer
}

// RunAll measures every target strictly sequentially. A failing target
// becomes a result row with Error set and zero speeds; the run always
// continues to the remaining targets.
func RunAll(targets []TestTarget, opts RunOptions) []TestResult {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	results := make([]TestResult, 0, len(targets))

	for _, target := range targets {
		if opts.Observer != nil {
			opts.Observer.TargetStarted(target)
		}

		result := TestResult{
			Name:          target.DisplayName,
			URL:           target.URL,
			NominalSizeMB: target.NominalSizeMB,
		}

		result.LatencyMs = ProbeLatency(target.PingURL, opts.Transport)

		var observe ReadObserver
		if opts.Observer != nil {
			observer, observed := opts.Observer, target
			observe = func(chunk int) {
				observer.TransferProgress(observed, chunk)
			}
		}

		outcome, err := fetch(target.URL, opts.Transport, timeout, observe)
		if err != nil {
			result.Error = err.Error()
		} else {
			result.SpeedMbps = outcome.SpeedMbps()
			result.SpeedMBps = outcome.SpeedMBps()
			result.ElapsedSeconds = outcome.Elapsed.Seconds()
		}

		if opts.Observer != nil {
			opts.Observer.TargetFinished(result)
		}

		results = append(results, result)
	}

	return results
}

func pingOne(endpoint PingEndpoint, transport http.RoundTripper) PingResult {
	result := PingResult{
		DisplayName: endpoint.DisplayName,
		URL:         endpoint.URL,
	}

	if latency := ProbeLatency(endpoint.URL, transport); latency != nil {
		result.LatencyMs = latency
	} else {
		result.Error = PingUnreachable
	}

	return result
}

// PingAll probes every endpoint sequentially; unreachable endpoints are
// marked with the PingUnreachable sentinel.
func PingAll(endpoints []PingEndpoint, transport http.RoundTripper) []PingResult {
	results := make([]PingResult, 0, len(endpoints))
	for _, endpoint := range endpoints {
		results = append(results, pingOne(endpoint, transport))
	}
	return results
}
