package cdnbench

import (
	"fmt"
	"net/http"
	"time"
)

type TestTarget struct {
	DisplayName   string
	URL           string
	NominalSizeMB int
	PingURL       string
}

// FetchOutcome is one completed fetch; speeds are derived, never stored.
type FetchOutcome struct {
	TotalBytes int64
	Elapsed    time.Duration
}

func (o *FetchOutcome) SpeedMbps() float64 {
	return float64(o.TotalBytes) * 8 / o.Elapsed.Seconds() / 1e6
}

func (o *FetchOutcome) SpeedMBps() float64 {
	return float64(o.TotalBytes) / o.Elapsed.Seconds() / (1 << 20)
}

type FetchErrorKind int

const (
	FetchErrStatus FetchErrorKind = iota + 1
	FetchErrTimeout
	FetchErrTransport
)

type FetchError struct {
	Kind    FetchErrorKind
	Code    int           // HTTP status code, set for FetchErrStatus
	Timeout time.Duration // expired window, set for FetchErrTimeout
	Err     error         // underlying cause, set for FetchErrTransport
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchErrStatus:
		return fmt.Sprintf("HTTP %d %s", e.Code, http.StatusText(e.Code))
	case FetchErrTimeout:
		return fmt.Sprintf("timed out after %s", e.Timeout)
	default:
		return fmt.Sprintf("transport: %v", e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// TestResult records one processed target; on transfer failure Error is set
// and the speed fields stay zero.
type TestResult struct {
	Name           string   `json:"name"`
	URL            string   `json:"url"`
	NominalSizeMB  int      `json:"nominalSizeMB"`
	LatencyMs      *float64 `json:"latencyMs,omitempty"`
	SpeedMbps      float64  `json:"speedMbps"`
	SpeedMBps      float64  `json:"speedMBps"`
	ElapsedSeconds float64  `json:"elapsedSeconds"`
	Error          string   `json:"error,omitempty"`
}

type ProviderStats struct {
	AverageSpeedMbps float64  `json:"averageSpeedMbps"`
	AverageLatencyMs *float64 `json:"averageLatencyMs,omitempty"`
}

type OverallStats struct {
	AverageSpeedMbps float64 `json:"averageSpeedMbps"`
	MaxSpeedMbps     float64 `json:"maxSpeedMbps"`
	MinSpeedMbps     float64 `json:"minSpeedMbps"`
	BestServerName   string  `json:"bestServerName"`
	WorstServerName  string  `json:"worstServerName"`
}

// AggregateStats summarizes a result list. Overall is nil when no result
// succeeded.
type AggregateStats struct {
	Providers map[string]ProviderStats `json:"providers"`
	Sizes     map[string]float64       `json:"sizes"`
	Overall   *OverallStats            `json:"overall,omitempty"`
}

type Report struct {
	Results    []TestResult    `json:"results"`
	Statistics *AggregateStats `json:"statistics"`
}

type PingEndpoint struct {
	DisplayName string `json:"displayName"`
	URL         string `json:"url"`
}

type PingResult struct {
	DisplayName string   `json:"displayName"`
	URL         string   `json:"url"`
	LatencyMs   *float64 `json:"latencyMs,omitempty"`
	Error       string   `json:"error,omitempty"`
}
