package cdnbench

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/VividCortex/ewma"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

const (
	progressInterval = 100 * time.Millisecond
	progressBarWidth = 30
)

// progressMeter renders an advisory transfer meter while a target downloads;
// nothing it displays feeds back into the reported measurement.
type progressMeter struct {
	out    io.Writer
	target TestTarget
	bar    progress.Model
	avg    ewma.MovingAverage

	bytes     atomic.Int64
	done      chan struct{}
	finished  chan struct{}
	lastWidth int
}

func newProgressMeter(out io.Writer, target TestTarget) *progressMeter {
	meter := &progressMeter{
		out:    out,
		target: target,
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(progressBarWidth),
			progress.WithoutPercentage(),
		),
		avg:      ewma.NewMovingAverage(5),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}

	go meter.loop()

	return meter
}

func (m *progressMeter) Observe(chunk int) {
	m.bytes.Add(int64(chunk))
}

// Stop clears the meter line and blocks until the render loop has exited.
func (m *progressMeter) Stop() {
	close(m.done)
	<-m.finished
}

func (m *progressMeter) loop() {
	defer close(m.finished)

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	lastBytes := int64(0)
	for {
		select {
		case <-m.done:
			m.clear()
			return
		case <-ticker.C:
			bytes := m.bytes.Load()
			instantMbps := float64((bytes-lastBytes)*8) / progressInterval.Seconds() / 1e6
			lastBytes = bytes
			m.avg.Add(instantMbps)
			m.render(bytes, instantMbps)
		}
	}
}

func (m *progressMeter) render(bytes int64, instantMbps float64) {
	expected := int64(m.target.NominalSizeMB) << 20
	fraction := float64(0)
	if expected > 0 {
		fraction = float64(bytes) / float64(expected)
		if fraction > 1 {
			fraction = 1
		}
	}

	rate := m.avg.Value()
	if rate == 0 {
		// the EWMA needs a few samples before it reports
		rate = instantMbps
	}

	line := fmt.Sprintf("%s %s %6.1f MB %7.1f Mbps",
		m.target.DisplayName, m.bar.ViewAs(fraction), float64(bytes)/(1<<20), rate)
	fmt.Fprintf(m.out, "\r%s", line)
	m.lastWidth = lipgloss.Width(line)
}

func (m *progressMeter) clear() {
	if m.lastWidth > 0 {
		fmt.Fprintf(m.out, "\r%s\r", strings.Repeat(" ", m.lastWidth))
	}
}
