package quote

import (
	"context"
	"encoding/json"
)

// Request asks for a route. PlatformFeeBps is the effective fee computed by
// the loyalty calculator.
type Request struct {
	InputMint      string `json:"inputMint"`
	OutputMint     string `json:"outputMint"`
	Amount         string `json:"amount"`
	SlippageBps    int    `json:"slippageBps"`
	PlatformFeeBps int    `json:"platformFeeBps"`
}

// PlatformFee is the fee the provider embedded in the route.
type PlatformFee struct {
	Amount string `json:"amount"`
	FeeBps int    `json:"feeBps"`
}

// Quote is a priced route. Raw keeps the provider's original document so it
// can be posted back unchanged when building the transaction.
type Quote struct {
	InputMint            string          `json:"inputMint"`
	InAmount             string          `json:"inAmount"`
	OutputMint           string          `json:"outputMint"`
	OutAmount            string          `json:"outAmount"`
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	SwapMode             string          `json:"swapMode"`
	SlippageBps          int             `json:"slippageBps"`
	PlatformFee          *PlatformFee    `json:"platformFee"`
	PriceImpactPct       string          `json:"priceImpactPct"`
	RoutePlan            json.RawMessage `json:"routePlan,omitempty"`
	ContextSlot          uint64          `json:"contextSlot,omitempty"`
	TimeTaken            float64         `json:"timeTaken,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// EmbeddedFeeBps returns the fee the route actually charges, falling back to
// requested when the provider did not report one.
func (q *Quote) EmbeddedFeeBps(requested int) int {
	if q == nil || q.PlatformFee == nil {
		return requested
	}
	return q.PlatformFee.FeeBps
}

// Provider is the quote and transaction-building collaborator.
type Provider interface {
	Quote(ctx context.Context, req Request) (*Quote, error)
	SwapTransaction(ctx context.Context, q *Quote, userPublicKey string) ([]byte, error)
}
