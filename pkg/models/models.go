package models

import (
	"strings"
	"time"
)

// Token represents an ERC20 token known to the aggregator
type Token struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
	ChainID  int    `json:"chainId,omitempty"`
	Balance  string `json:"balance,omitempty"`
}

// SameAddress compares token addresses case-insensitively
func (t Token) SameAddress(other Token) bool {
	return strings.EqualFold(t.Address, other.Address)
}

// SwapQuote represents advisory trade terms for a token pair
type SwapQuote struct {
	InputToken      Token     `json:"inputToken"`
	OutputToken     Token     `json:"outputToken"`
	InputAmount     string    `json:"inputAmount"`
	OutputAmount    string    `json:"outputAmount"`
	PriceImpact     float64   `json:"priceImpact"`
	Fee             string    `json:"fee"`
	Route           []string  `json:"route"`
	EstimatedGas    string    `json:"estimatedGas,omitempty"`
	Slippage        float64   `json:"slippage"`
	MinOutputAmount string    `json:"minOutputAmount"`
	Price           string    `json:"price"`
	ValidUntil      time.Time `json:"validUntil"`
}

// Expired reports whether the quote is past its validity
func (q *SwapQuote) Expired(now time.Time) bool {
	return !q.ValidUntil.IsZero() && !now.Before(q.ValidUntil)
}

// SwapConfig holds the user-tunable parameters of a swap
type SwapConfig struct {
	Slippage        float64 `json:"slippage"`
	DeadlineMinutes int     `json:"deadlineMinutes"`
	MEVProtection   bool    `json:"mevProtection"`
}

// DefaultSwapConfig returns the documented swap defaults
func DefaultSwapConfig() SwapConfig {
	return SwapConfig{
		Slippage:        0.5,
		DeadlineMinutes: 20,
		MEVProtection:   true,
	}
}
