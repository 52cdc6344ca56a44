package cdnbench

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"

	"github.com/pkg/errors"
)

var logger = log.New(os.Stderr, "", 0)

// ErrNoTargets marks a caller configuration mistake, not a failed run.
var ErrNoTargets = errors.New("no test targets match the requested providers/sizes")

// Run selects targets, measures them and aggregates the outcome.
func Run(catalog *Catalog, providerKeys []string, sizesMB []int, opts RunOptions) (*Report, error) {
	targets := catalog.Select(providerKeys, sizesMB)
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}

	results := RunAll(targets, opts)

	return &Report{
		Results:    results,
		Statistics: Aggregate(results, catalog),
	}, nil
}

// RunAndPrint renders the human report on printer, one row per finished target.
func RunAndPrint(printer *log.Logger, catalog *Catalog, providerKeys []string, sizesMB []int, opts RunOptions) error {
	opts.Observer = &printObserver{printer: printer, progress: opts.Progress}

	report, err := Run(catalog, providerKeys, sizesMB, opts)
	if err != nil {
		return err
	}

	printStatistics(printer, report.Statistics, catalog)
	return nil
}

func PingAndPrint(printer *log.Logger, endpoints []PingEndpoint, transport http.RoundTripper) {
	printer.Printf("%s\n", headerStyle.Render(fmt.Sprintf("%-24s %s", "Endpoint", "Latency")))
	for _, endpoint := range endpoints {
		result := pingOne(endpoint, transport)
		printer.Printf("%s\n", formatPingRow(result))
	}
}

func PrintCatalog(printer *log.Logger, catalog *Catalog) {
	for _, provider := range catalog.Providers() {
		printer.Printf("%s %s\n", headerStyle.Render(provider.Name), dimStyle.Render("("+provider.Key+")"))
		printer.Printf("  ping  %s\n", provider.PingURL)
		for _, target := range provider.Targets {
			printer.Printf("  %-5s %s\n", sizeLabel(target.NominalSizeMB), target.URL)
		}
		printer.Println()
	}
}

type printObserver struct {
	printer       *log.Logger
	progress      io.Writer
	headerPrinted bool
	meter         *progressMeter
}

func (o *printObserver) TargetStarted(target TestTarget) {
	if !o.headerPrinted {
		o.printer.Printf("%s\n", formatHeaderRow())
		o.headerPrinted = true
	}
	if o.progress != nil {
		o.meter = newProgressMeter(o.progress, target)
	}
}

func (o *printObserver) TransferProgress(target TestTarget, chunk int) {
	if o.meter != nil {
		o.meter.Observe(chunk)
	}
}

func (o *printObserver) TargetFinished(result TestResult) {
	if o.meter != nil {
		o.meter.Stop()
		o.meter = nil
	}
	o.printer.Printf("%s\n", formatResultRow(result))
}

func formatHeaderRow() string {
	return headerStyle.Render(fmt.Sprintf("%-24s %5s %10s   %s", "Server", "Size", "Latency", "Speed"))
}

func formatResultRow(result TestResult) string {
	name := fmt.Sprintf("%-24s", result.Name)
	size := fmt.Sprintf("%5s", sizeLabel(result.NominalSizeMB))

	latency := fmt.Sprintf("%10s", formatLatency(result.LatencyMs))
	if result.LatencyMs != nil {
		latency = latencyStyle(*result.LatencyMs).Render(latency)
	} else {
		latency = dimStyle.Render(latency)
	}

	if result.Error != "" {
		return fmt.Sprintf("%s %s %s   %s", name, size, latency, badStyle.Render("FAILED: "+result.Error))
	}

	speed := speedStyle(result.SpeedMbps).Render(formatSpeed(result.SpeedMbps, result.SpeedMBps))
	return fmt.Sprintf("%s %s %s   %s", name, size, latency, speed)
}

func formatPingRow(result PingResult) string {
	name := fmt.Sprintf("%-24s", result.DisplayName)
	if result.LatencyMs == nil {
		return fmt.Sprintf("%s %s", name, badStyle.Render(result.Error))
	}
	return fmt.Sprintf("%s %s", name, latencyStyle(*result.LatencyMs).Render(formatLatency(result.LatencyMs)))
}

func printStatistics(printer *log.Logger, stats *AggregateStats, catalog *Catalog) {
	printer.Println()

	if stats == nil || stats.Overall == nil {
		printer.Printf("%s\n", dimStyle.Render("No successful measurements."))
		return
	}

	printer.Printf("%s\n", headerStyle.Render("Provider averages"))
	for _, provider := range catalog.Providers() {
		providerStats, ok := stats.Providers[provider.Name]
		if !ok {
			continue
		}
		speed := speedStyle(providerStats.AverageSpeedMbps).Render(fmt.Sprintf("%10.2f Mbps", providerStats.AverageSpeedMbps))
		printer.Printf("  %-22s %s %10s\n", provider.Name, speed, formatLatency(providerStats.AverageLatencyMs))
	}

	printer.Println()
	printer.Printf("%s\n", headerStyle.Render("Size averages"))
	for _, label := range sortedSizeLabels(stats.Sizes) {
		average := stats.Sizes[label]
		printer.Printf("  %-22s %s\n", label, speedStyle(average).Render(fmt.Sprintf("%10.2f Mbps", average)))
	}

	printer.Println()
	printer.Printf("%s\n", headerStyle.Render("Overall"))
	printer.Printf("  average   %.2f Mbps\n", stats.Overall.AverageSpeedMbps)
	printer.Printf("  fastest   %.2f Mbps  (%s)\n", stats.Overall.MaxSpeedMbps, stats.Overall.BestServerName)
	printer.Printf("  slowest   %.2f Mbps  (%s)\n", stats.Overall.MinSpeedMbps, stats.Overall.WorstServerName)
}

func sortedSizeLabels(sizes map[string]float64) []string {
	labels := make([]string, 0, len(sizes))
	for label := range sizes {
		labels = append(labels, label)
	}

	sort.Slice(labels, func(i, j int) bool {
		return sizeLabelMB(labels[i]) < sizeLabelMB(labels[j])
	})

	return labels
}

func sizeLabelMB(label string) int {
	mb := 0
	fmt.Sscanf(label, "%dMB", &mb)
	return mb
}
