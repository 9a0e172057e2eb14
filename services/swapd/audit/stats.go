package audit

import "math"

// Summary aggregates the audit log.
type Summary struct {
	TotalSwaps    int `json:"totalSwaps"`
	AnomalyCount  int `json:"anomalyCount"`
	AverageFeeBps int `json:"averageFeeBps"`
	ZeroFeeCount  int `json:"zeroFeeCount"`
}

// Stats summarises entries with the default thresholds. Empty input yields
// the zero Summary.
func Stats(entries []Entry) Summary {
	return DefaultThresholds().Stats(entries)
}

// Stats summarises entries using t for anomaly counting.
func (t Thresholds) Stats(entries []Entry) Summary {
	if len(entries) == 0 {
		return Summary{}
	}
	total := 0
	zero := 0
	for _, entry := range entries {
		total += entry.ActualFeeBps
		if entry.ActualFeeBps == 0 {
			zero++
		}
	}
	return Summary{
		TotalSwaps:    len(entries),
		AnomalyCount:  len(t.Detect(entries)),
		AverageFeeBps: int(math.Floor(float64(total)/float64(len(entries)) + 0.5)),
		ZeroFeeCount:  zero,
	}
}

// CountBySeverity groups anomalies by type and severity.
func CountBySeverity(anomalies []Anomaly) map[[2]string]int {
	counts := make(map[[2]string]int)
	for _, a := range anomalies {
		counts[[2]string{string(a.Type), string(a.Severity)}]++
	}
	return counts
}
