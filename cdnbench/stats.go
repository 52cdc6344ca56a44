package cdnbench

import "fmt"

func sizeLabel(nominalSizeMB int) string {
	return fmt.Sprintf("%dMB", nominalSizeMB)
}

type groupAccum struct {
	speedSum   float64
	count      int
	latencySum float64
	latencyN   int
}

func (a *groupAccum) add(result TestResult) {
	a.speedSum += result.SpeedMbps
	a.count++
	if result.LatencyMs != nil {
		a.latencySum += *result.LatencyMs
		a.latencyN++
	}
}

// Aggregate recomputes summary statistics over results in a single pass.
// Errored results are excluded from every figure; latency averages further
// exclude absent probes. Best/worst are tracked by index, so ties resolve to
// the earliest result. The input is never mutated.
func Aggregate(results []TestResult, catalog *Catalog) *AggregateStats {
	stats := &AggregateStats{
		Providers: map[string]ProviderStats{},
		Sizes:     map[string]float64{},
	}

	providerAccums := map[string]*groupAccum{}
	sizeAccums := map[string]*groupAccum{}

	speedSum := float64(0)
	count := 0
	maxIndex := -1
	minIndex := -1

	for index, result := range results {
		if result.Error != "" {
			continue
		}

		speedSum += result.SpeedMbps
		count++

		if maxIndex < 0 || result.SpeedMbps > results[maxIndex].SpeedMbps {
			maxIndex = index
		}
		if minIndex < 0 || result.SpeedMbps < results[minIndex].SpeedMbps {
			minIndex = index
		}

		if catalog != nil {
			if provider, ok := catalog.ProviderOf(result.Name); ok {
				accum := providerAccums[provider.Name]
				if accum == nil {
					accum = &groupAccum{}
					providerAccums[provider.Name] = accum
				}
				accum.add(result)
			}
		}

		label := sizeLabel(result.NominalSizeMB)
		accum := sizeAccums[label]
		if accum == nil {
			accum = &groupAccum{}
			sizeAccums[label] = accum
		}
		accum.add(result)
	}

	if count == 0 {
		return stats
	}

	for name, accum := range providerAccums {
		providerStats := ProviderStats{
			AverageSpeedMbps: accum.speedSum / float64(accum.count),
		}
		if accum.latencyN > 0 {
			averageLatency := accum.latencySum / float64(accum.latencyN)
			providerStats.AverageLatencyMs = &averageLatency
		}
		stats.Providers[name] = providerStats
	}

	for label, accum := range sizeAccums {
		stats.Sizes[label] = accum.speedSum / float64(accum.count)
	}

	stats.Overall = &OverallStats{
		AverageSpeedMbps: speedSum / float64(count),
		MaxSpeedMbps:     results[maxIndex].SpeedMbps,
		MinSpeedMbps:     results[minIndex].SpeedMbps,
		BestServerName:   results[maxIndex].Name,
		WorstServerName:  results[minIndex].Name,
	}

	return stats
}
