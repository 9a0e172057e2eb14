package quote

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/holiman/uint256"
)

const (
	// MaxAmountDigits bounds raw amounts; anything longer exceeds any real
	// token supply.
	MaxAmountDigits = 20
	// MaxSlippageBps is 100%.
	MaxSlippageBps = 10_000
	// DefaultSlippageBps is 0.5%.
	DefaultSlippageBps = 50

	signatureLength = 88
)

var (
	digitsPattern = regexp.MustCompile(`^\d+$`)
	base58Pattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)
)

// ValidateMint checks that value is a base58 encoded 32 byte public key.
func ValidateMint(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return validationError(field, value, "mint address cannot be empty")
	}
	if len(value) < 32 || len(value) > 44 {
		return validationError(field, value, fmt.Sprintf("invalid length: %d (expected 32-44 characters)", len(value)))
	}
	if !base58Pattern.MatchString(value) || len(base58.Decode(value)) != 32 {
		return validationError(field, value, "invalid base58 encoding or not a valid public key")
	}
	return nil
}

// ParseAmount validates a raw integer amount in the token's smallest unit.
func ParseAmount(value string) (*uint256.Int, error) {
	if strings.TrimSpace(value) == "" {
		return nil, validationError("amount", value, "amount cannot be empty")
	}
	if !digitsPattern.MatchString(value) {
		return nil, validationError("amount", value, "amount must be a non-negative integer string")
	}
	if len(value) > MaxAmountDigits {
		return nil, validationError("amount", value, "amount exceeds maximum possible value")
	}
	trimmed := strings.TrimLeft(value, "0")
	if trimmed == "" {
		return new(uint256.Int), nil
	}
	amount, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, validationError("amount", value, err.Error())
	}
	return amount, nil
}

// ValidateSlippage checks bps is within 0..10000.
func ValidateSlippage(bps int) error {
	if bps < 0 || bps > MaxSlippageBps {
		return validationError("slippageBps", fmt.Sprint(bps), "slippage must be between 0 and 10000 bps")
	}
	return nil
}

// ValidateSignature checks the shape of a transaction signature.
func ValidateSignature(value string) error {
	if strings.TrimSpace(value) == "" {
		return validationError("signature", value, "signature cannot be empty")
	}
	if len(value) != signatureLength {
		return validationError("signature", value, fmt.Sprintf("invalid length: %d (expected %d characters)", len(value), signatureLength))
	}
	if !base58Pattern.MatchString(value) {
		return validationError("signature", value, "invalid base58 encoding")
	}
	return nil
}

// Validate checks a quote request and fills the default slippage.
func (r *Request) Validate() error {
	if err := ValidateMint("inputMint", r.InputMint); err != nil {
		return err
	}
	if err := ValidateMint("outputMint", r.OutputMint); err != nil {
		return err
	}
	if _, err := ParseAmount(r.Amount); err != nil {
		return err
	}
	if r.SlippageBps == 0 {
		r.SlippageBps = DefaultSlippageBps
	}
	if err := ValidateSlippage(r.SlippageBps); err != nil {
		return err
	}
	if r.PlatformFeeBps < 0 || r.PlatformFeeBps > MaxSlippageBps {
		return validationError("platformFeeBps", fmt.Sprint(r.PlatformFeeBps), "fee must be between 0 and 10000 bps")
	}
	return nil
}
