package audit

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// AnomalyType names the check that produced an anomaly.
type AnomalyType string

const (
	AnomalyFeeMismatch       AnomalyType = "fee_mismatch"
	AnomalyZeroFeeLowBalance AnomalyType = "zero_fee_low_balance"
	AnomalyRepeatedZeroFee   AnomalyType = "repeated_zero_fee"
)

// Severity ranks an anomaly for review.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Anomaly is a derived finding over the audit log. It is never persisted.
type Anomaly struct {
	EntryID     string      `json:"entryId"`
	Type        AnomalyType `json:"type"`
	Description string      `json:"description"`
	Severity    Severity    `json:"severity"`
}

// Thresholds parameterise the detector.
type Thresholds struct {
	// LowBalance is the loyalty balance below which a zero fee is only
	// legitimate with the NFT bonus.
	LowBalance float64 `json:"lowBalance" yaml:"low_balance"`
	// RepeatCount is how many low-balance zero-fee swaps one wallet may make
	// before the pattern itself is flagged.
	RepeatCount int `json:"repeatCount" yaml:"repeat_count"`
}

// DefaultThresholds returns the stock detector settings.
func DefaultThresholds() Thresholds {
	return Thresholds{LowBalance: 100_000, RepeatCount: 3}
}

func (t Thresholds) normalized() Thresholds {
	def := DefaultThresholds()
	if t.LowBalance <= 0 {
		t.LowBalance = def.LowBalance
	}
	if t.RepeatCount <= 0 {
		t.RepeatCount = def.RepeatCount
	}
	return t
}

var printer = message.NewPrinter(language.English)

// DetectAnomalies runs the default detector over entries.
func DetectAnomalies(entries []Entry) []Anomaly {
	return DefaultThresholds().Detect(entries)
}

// Detect flags entries whose actual fee is below what the tier and bonus
// rules entitle. It does not modify entries. Per-entry findings come first in
// log order, followed by one repeated_zero_fee finding per wallet in order of
// the wallet's first appearance.
func (t Thresholds) Detect(entries []Entry) []Anomaly {
	t = t.normalized()
	anomalies := make([]Anomaly, 0)

	type walletGroup struct {
		wallet     string
		qualifying []int
	}
	groups := make(map[string]*walletGroup)
	order := make([]*walletGroup, 0)

	for i, entry := range entries {
		group, ok := groups[entry.Wallet]
		if !ok {
			group = &walletGroup{wallet: entry.Wallet}
			groups[entry.Wallet] = group
			order = append(order, group)
		}

		if entry.ActualFeeBps < entry.ExpectedFeeBps {
			severity := SeverityMedium
			if entry.ActualFeeBps == 0 {
				severity = SeverityHigh
			}
			anomalies = append(anomalies, Anomaly{
				EntryID:     entry.ID,
				Type:        AnomalyFeeMismatch,
				Description: fmt.Sprintf("Fee mismatch: expected %dbps, actual %dbps", entry.ExpectedFeeBps, entry.ActualFeeBps),
				Severity:    severity,
			})
		}

		if t.zeroFeeLowBalance(entry) {
			group.qualifying = append(group.qualifying, i)
			anomalies = append(anomalies, Anomaly{
				EntryID:     entry.ID,
				Type:        AnomalyZeroFeeLowBalance,
				Description: fmt.Sprintf("Zero fee with only %s SKR and no NFT", formatBalance(entry.SKRBalance)),
				Severity:    SeverityHigh,
			})
		}
	}

	for _, group := range order {
		if len(group.qualifying) < t.RepeatCount {
			continue
		}
		earliest := group.qualifying[0]
		for _, idx := range group.qualifying[1:] {
			// Ties go to the later position: in a newest-first log that is
			// the older insertion.
			if entries[idx].Timestamp <= entries[earliest].Timestamp {
				earliest = idx
			}
		}
		anomalies = append(anomalies, Anomaly{
			EntryID:     entries[earliest].ID,
			Type:        AnomalyRepeatedZeroFee,
			Description: fmt.Sprintf("Wallet %s... has %d zero-fee swaps with low SKR balance", walletPrefix(group.wallet), len(group.qualifying)),
			Severity:    SeverityHigh,
		})
	}
	return anomalies
}

func (t Thresholds) zeroFeeLowBalance(entry Entry) bool {
	return entry.ActualFeeBps == 0 && entry.SKRBalance < t.LowBalance && !entry.HasSeekerNFT
}

func formatBalance(balance float64) string {
	return printer.Sprint(number.Decimal(balance, number.MaxFractionDigits(3)))
}

func walletPrefix(wallet string) string {
	if len(wallet) <= 8 {
		return wallet
	}
	return wallet[:8]
}
