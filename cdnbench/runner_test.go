package cdnbench

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func TestRunAllIsSequential(t *testing.T) {
	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0

	enter := func() {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()
	}
	leave := func() {
		mu.Lock()
		inFlight--
		mu.Unlock()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		enter()
		defer leave()
		time.Sleep(10 * time.Millisecond)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/file", func(w http.ResponseWriter, r *http.Request) {
		enter()
		defer leave()
		time.Sleep(10 * time.Millisecond)
		w.Write(make([]byte, 16*1024))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	targets := []TestTarget{
		{DisplayName: "A", URL: server.URL + "/file", NominalSizeMB: 1, PingURL: server.URL + "/ping"},
		{DisplayName: "B", URL: server.URL + "/file", NominalSizeMB: 1, PingURL: server.URL + "/ping"},
		{DisplayName: "C", URL: server.URL + "/file", NominalSizeMB: 1, PingURL: server.URL + "/ping"},
	}

	results := RunAll(targets, RunOptions{})

	assert.Equal(t, 3, len(results))
	assert.Equal(t, "A", results[0].Name)
	assert.Equal(t, "B", results[1].Name)
	assert.Equal(t, "C", results[2].Name)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxInFlight)
}

func TestRunAllContinuesPastFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/bad", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/good", func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 8*1024))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	targets := []TestTarget{
		{DisplayName: "Bad", URL: server.URL + "/bad", NominalSizeMB: 1, PingURL: server.URL + "/ping"},
		{DisplayName: "Good", URL: server.URL + "/good", NominalSizeMB: 1, PingURL: server.URL + "/ping"},
	}

	results := RunAll(targets, RunOptions{})

	assert.Equal(t, 2, len(results))
	assert.Equal(t, "HTTP 500 Internal Server Error", results[0].Error)
	assert.Equal(t, 0.0, results[0].SpeedMbps)
	assert.Equal(t, 0.0, results[0].SpeedMBps)
	assert.Assert(t, results[0].LatencyMs != nil)
	assert.Equal(t, "", results[1].Error)
	assert.Assert(t, results[1].SpeedMbps > 0)
}

func TestRunAllRecordsTimeouts(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	defer close(release)

	results := RunAll([]TestTarget{
		{DisplayName: "Slow", URL: server.URL + "/slow", NominalSizeMB: 1, PingURL: server.URL + "/ping"},
	}, RunOptions{Timeout: 100 * time.Millisecond})

	assert.Assert(t, strings.Contains(results[0].Error, "timed out"))
	assert.Equal(t, 0.0, results[0].SpeedMbps)
}

func TestRunAllLatencyIndependentOfTransfer(t *testing.T) {
	pingServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	pingURL := pingServer.URL
	pingServer.Close()

	fileServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 8*1024))
	}))
	defer fileServer.Close()

	results := RunAll([]TestTarget{
		{DisplayName: "NoPing", URL: fileServer.URL, NominalSizeMB: 1, PingURL: pingURL},
	}, RunOptions{})

	assert.Assert(t, results[0].LatencyMs == nil)
	assert.Equal(t, "", results[0].Error)
	assert.Assert(t, results[0].SpeedMbps > 0)
}

type recordingObserver struct {
	started  []string
	chunkSum int64
	finished []TestResult
}

func (o *recordingObserver) TargetStarted(target TestTarget) {
	o.started = append(o.started, target.DisplayName)
}

func (o *recordingObserver) TransferProgress(target TestTarget, chunk int) {
	o.chunkSum += int64(chunk)
}

func (o *recordingObserver) TargetFinished(result TestResult) {
	o.finished = append(o.finished, result)
}

func TestRunAllNotifiesObserver(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/file", func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 128*1024))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	observer := &recordingObserver{}
	results := RunAll([]TestTarget{
		{DisplayName: "Observed", URL: server.URL + "/file", NominalSizeMB: 1, PingURL: server.URL + "/ping"},
	}, RunOptions{Observer: observer})

	assert.DeepEqual(t, []string{"Observed"}, observer.started)
	assert.Equal(t, int64(128*1024), observer.chunkSum)
	assert.Equal(t, 1, len(observer.finished))
	assert.Equal(t, results[0], observer.finished[0])
}

func TestPingAll(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer up.Close()

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	downURL := down.URL
	down.Close()

	results := PingAll([]PingEndpoint{
		{DisplayName: "Up", URL: up.URL},
		{DisplayName: "Down", URL: downURL},
	}, nil)

	assert.Equal(t, 2, len(results))
	assert.Assert(t, results[0].LatencyMs != nil)
	assert.Equal(t, "", results[0].Error)
	assert.Assert(t, results[1].LatencyMs == nil)
	assert.Equal(t, "unreachable", results[1].Error)
}
