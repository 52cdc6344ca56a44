package cdnbench

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"gotest.tools/v3/assert"
)

func TestSpeedDerivation(t *testing.T) {
	oneMiB := FetchOutcome{TotalBytes: 1 << 20, Elapsed: time.Second}
	assert.Equal(t, 8.388608, oneMiB.SpeedMbps())
	assert.Equal(t, 1.0, oneMiB.SpeedMBps())

	tenMB := FetchOutcome{TotalBytes: 10 * 1000 * 1000, Elapsed: 4 * time.Second}
	assert.Equal(t, 20.0, tenMB.SpeedMbps())
}

func TestFetchErrorMessages(t *testing.T) {
	assert.Equal(t, "HTTP 404 Not Found", (&FetchError{Kind: FetchErrStatus, Code: 404}).Error())
	assert.Equal(t, "timed out after 30s", (&FetchError{Kind: FetchErrTimeout, Timeout: 30 * time.Second}).Error())
	assert.Equal(t, "transport: connection refused", (&FetchError{Kind: FetchErrTransport, Err: errors.New("connection refused")}).Error())
}

func TestReportJSONFieldNames(t *testing.T) {
	latency := 12.5
	report := Report{
		Results: []TestResult{{
			Name:           "Hetzner 10MB",
			URL:            "https://speed.hetzner.de/10MB.bin",
			NominalSizeMB:  10,
			LatencyMs:      &latency,
			SpeedMbps:      94.5,
			SpeedMBps:      11.26,
			ElapsedSeconds: 0.89,
		}},
		Statistics: &AggregateStats{
			Providers: map[string]ProviderStats{},
			Sizes:     map[string]float64{},
		},
	}

	encoded, err := json.Marshal(report)
	assert.NilError(t, err)

	var decoded map[string]json.RawMessage
	assert.NilError(t, json.Unmarshal(encoded, &decoded))
	_, hasResults := decoded["results"]
	assert.Assert(t, hasResults)
	_, hasStatistics := decoded["statistics"]
	assert.Assert(t, hasStatistics)

	var rows []map[string]any
	assert.NilError(t, json.Unmarshal(decoded["results"], &rows))
	assert.Equal(t, 1, len(rows))
	for _, field := range []string{"name", "url", "nominalSizeMB", "latencyMs", "speedMbps", "speedMBps", "elapsedSeconds"} {
		_, ok := rows[0][field]
		assert.Assert(t, ok, "missing field %q", field)
	}
	_, hasErrorField := rows[0]["error"]
	assert.Assert(t, !hasErrorField)
}

func TestResultJSONOmitsAbsentFields(t *testing.T) {
	encoded, err := json.Marshal(TestResult{Name: "X", URL: "http://x.example.com/f", NominalSizeMB: 1})
	assert.NilError(t, err)
	assert.Assert(t, !strings.Contains(string(encoded), "latencyMs"))
	assert.Assert(t, !strings.Contains(string(encoded), "error"))
}
