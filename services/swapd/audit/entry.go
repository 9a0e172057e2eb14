package audit

import (
	"math"
	"strconv"
)

// Attempt is what the swap flow knows about one swap attempt at the moment it
// is recorded. The log assigns the id and timestamp.
type Attempt struct {
	Wallet         string  `json:"wallet"`
	CampaignID     string  `json:"campaignId,omitempty"`
	InputMint      string  `json:"inputMint"`
	OutputMint     string  `json:"outputMint"`
	InputAmount    string  `json:"inputAmount"`
	ExpectedFeeBps int     `json:"expectedFeeBps"`
	ActualFeeBps   int     `json:"actualFeeBps"`
	SKRBalance     float64 `json:"skrBalance"`
	// SKRBalanceRaw holds the reported balance when it was not a finite
	// number. SKRBalance is stored as 0 in that case.
	SKRBalanceRaw string `json:"skrBalanceRaw,omitempty"`
	HasSeekerNFT  bool   `json:"hasSeekerNft"`
	// TxSignature is nil unless the signer confirmed submission.
	TxSignature *string `json:"txSignature"`
}

// Entry is an immutable audit record, persisted newest-first.
type Entry struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Attempt
}

// Signature returns the confirmed transaction signature or "".
func (e Entry) Signature() string {
	if e.TxSignature == nil {
		return ""
	}
	return *e.TxSignature
}

// normalised returns a copy of a whose balance can be encoded as JSON.
func (a Attempt) normalised() Attempt {
	if math.IsNaN(a.SKRBalance) || math.IsInf(a.SKRBalance, 0) {
		a.SKRBalanceRaw = strconv.FormatFloat(a.SKRBalance, 'g', -1, 64)
		a.SKRBalance = 0
	}
	return a
}

func cloneEntries(entries []Entry) []Entry {
	if len(entries) == 0 {
		return []Entry{}
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}
