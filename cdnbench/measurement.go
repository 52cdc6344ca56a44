package cdnbench

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultFetchTimeout = 30 * time.Second // per transfer; every redirect hop re-arms a fresh window
	ProbeTimeout        = 5 * time.Second

	userAgent = "cdnbench/1.0"
)

// PingUnreachable marks a ping endpoint whose latency could not be measured.
const PingUnreachable = "unreachable"

// Fetch GETs rawURL through transport (nil means direct) and drains the body,
// counting its bytes; elapsed runs from the call to the end of the drain.
// Redirects (301/302/307/308 with Location) are re-issued recursively with the
// same transport and timeout, without a depth cap; a redirect loop ends only
// when some hop exhausts its timeout window.
func Fetch(rawURL string, transport http.RoundTripper, timeout time.Duration) (*FetchOutcome, error) {
	return fetch(rawURL, transport, timeout, nil)
}

func fetch(rawURL string, transport http.RoundTripper, timeout time.Duration, observe ReadObserver) (*FetchOutcome, error) {
	start := time.Now()

	client := &http.Client{
		Transport: transport,
		Timeout:   timeout,
		// redirects are re-issued manually so each hop restarts the window
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: FetchErrTransport, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyFetchErr(err, timeout)
	}

	if isRedirect(resp.StatusCode) {
		location := resp.Header.Get("Location")
		flushResponse(resp, nil)
		if location == "" {
			return nil, &FetchError{Kind: FetchErrStatus, Code: resp.StatusCode}
		}
		next, err := resp.Request.URL.Parse(location)
		if err != nil {
			return nil, &FetchError{Kind: FetchErrTransport, Err: errors.Wrap(err, "resolving redirect target")}
		}
		return fetch(next.String(), transport, timeout, observe)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		flushResponse(resp, nil)
		return nil, &FetchError{Kind: FetchErrStatus, Code: resp.StatusCode}
	}

	totalBytes, err := flushResponse(resp, observe)
	if err != nil {
		return nil, classifyFetchErr(err, timeout)
	}

	end := time.Now()

	return &FetchOutcome{
		TotalBytes: totalBytes,
		Elapsed:    end.Sub(start),
	}, nil
}

func flushResponse(resp *http.Response, observe ReadObserver) (int64, error) {
	flushedSize, err := io.Copy(io.Discard, newMeteredReader(resp.Body, observe))
	if err != nil {
		resp.Body.Close()
		return 0, err
	}
	if err := resp.Body.Close(); err != nil {
		return 0, err
	}

	return flushedSize, nil
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func classifyFetchErr(err error, timeout time.Duration) *FetchError {
	if isTimeout(err) {
		return &FetchError{Kind: FetchErrTimeout, Timeout: timeout}
	}
	return &FetchError{Kind: FetchErrTransport, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ProbeLatency measures how quickly rawURL answers a small GET, awaiting the
// full body. Every failure, whatever its kind, yields an absent latency.
func ProbeLatency(rawURL string, transport http.RoundTripper) *float64 {
	outcome, err := Fetch(rawURL, transport, ProbeTimeout)
	if err != nil {
		return nil
	}

	latencyMS := outcome.Elapsed.Seconds() * 1000
	return &latencyMS
}
