// Package quote derives advisory swap terms from a static price table.
package quote

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/unikron/shieldswap/pkg/errs"
	"github.com/unikron/shieldswap/pkg/metrics"
	"github.com/unikron/shieldswap/pkg/models"
)

const (
	// DefaultSlippage is used when a request does not carry one
	DefaultSlippage = 0.5

	MinSlippage = 0.1
	MaxSlippage = 50.0

	// MaxDecimalPlaces is the precision limit of an input amount
	MaxDecimalPlaces = 18

	// DefaultFeeBps is the informative protocol fee
	DefaultFeeBps = 30

	// DefaultTTL is how long a quote stays valid
	DefaultTTL = 60 * time.Second

	// unknownDecimals is assumed for tokens fetched without metadata
	unknownDecimals = 18
)

var minAmount = decimal.New(1, -6)

// Request describes the pair and amount to quote
type Request struct {
	InputToken  models.Token
	OutputToken models.Token
	InputAmount string
	// Slippage in percent; zero selects DefaultSlippage
	Slippage float64
}

// Engine computes quotes. It is safe for concurrent use.
type Engine struct {
	prices *PriceTable
	feeBps int
	ttl    time.Duration
	cache  *Cache
	now    func() time.Time
}

// NewEngine creates a quote engine over prices
func NewEngine(prices *PriceTable, feeBps int, ttl time.Duration) *Engine {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Engine{
		prices: prices,
		feeBps: feeBps,
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithCache enables caching of identical requests
func (e *Engine) WithCache(c *Cache) *Engine {
	e.cache = c
	return e
}

// SetClock replaces the time source, used by tests
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
	if e.cache != nil {
		e.cache.now = now
	}
}

// GetQuote validates req and returns the trade terms
func (e *Engine) GetQuote(req Request) (*models.SwapQuote, error) {
	q, err := e.getQuote(req)
	if err != nil {
		metrics.QuotesServed.WithLabelValues("rejected").Inc()
		return nil, err
	}
	metrics.QuotesServed.WithLabelValues("ok").Inc()
	return q, nil
}

func (e *Engine) getQuote(req Request) (*models.SwapQuote, error) {
	slippage := req.Slippage
	if slippage == 0 {
		slippage = DefaultSlippage
	}

	amount, err := ValidateRequest(req.InputToken, req.OutputToken, req.InputAmount, slippage)
	if err != nil {
		return nil, err
	}

	key := cacheKey(req.InputToken, req.OutputToken, amount, slippage)
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok && !cached.Expired(e.now()) {
			return cached, nil
		}
	}

	price := e.prices.Price(req.InputToken.Symbol, req.OutputToken.Symbol)
	outDecimals := int32(tokenDecimals(req.OutputToken))

	output := amount.Mul(price).Truncate(outDecimals)
	if _, err := ToBaseUnits(output.String(), uint8(outDecimals)); err != nil {
		return nil, &errs.InvalidAmountError{Field: "amount", Value: req.InputAmount, Reason: "output amount exceeds the uint256 range"}
	}
	keep := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(slippage).Div(decimal.NewFromInt(100)))
	minOutput := output.Mul(keep).Truncate(outDecimals)
	fee := amount.Mul(decimal.NewFromInt(int64(e.feeBps))).Div(decimal.NewFromInt(10000))

	q := &models.SwapQuote{
		InputToken:      req.InputToken,
		OutputToken:     req.OutputToken,
		InputAmount:     amount.String(),
		OutputAmount:    output.String(),
		PriceImpact:     0,
		Fee:             fee.String(),
		Route:           []string{req.InputToken.Symbol, req.OutputToken.Symbol},
		Slippage:        slippage,
		MinOutputAmount: minOutput.String(),
		Price:           price.String(),
		ValidUntil:      e.now().Add(e.ttl),
	}

	if e.cache != nil {
		e.cache.Set(key, q)
	}
	return q, nil
}

// ValidateRequest checks the pair, amount and slippage of a quote or swap
// and returns the parsed amount.
func ValidateRequest(in, out models.Token, amount string, slippage float64) (decimal.Decimal, error) {
	if in.Address == "" || out.Address == "" {
		return decimal.Zero, &errs.InvalidAmountError{Field: "token", Reason: "input and output token are required"}
	}
	if in.SameAddress(out) {
		return decimal.Zero, &errs.InvalidAmountError{Field: "outputToken", Value: out.Symbol, Reason: "input and output token must differ"}
	}
	if slippage < MinSlippage || slippage > MaxSlippage {
		return decimal.Zero, &errs.InvalidAmountError{
			Field:  "slippage",
			Value:  fmt.Sprintf("%v", slippage),
			Reason: fmt.Sprintf("must be between %v and %v percent", MinSlippage, MaxSlippage),
		}
	}

	trimmed := strings.TrimSpace(amount)
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, &errs.InvalidAmountError{Field: "amount", Value: amount, Reason: "not a number"}
	}
	if !d.IsPositive() {
		return decimal.Zero, &errs.InvalidAmountError{Field: "amount", Value: amount, Reason: "must be greater than zero"}
	}
	// comparisons rescale, so magnitude and precision are bounded first
	if d.NumDigits()+int(d.Exponent()) > maxUint256Digits {
		return decimal.Zero, &errs.InvalidAmountError{Field: "amount", Value: amount, Reason: "exceeds the uint256 range"}
	}

	places := decimalPlaces(trimmed)
	if places > MaxDecimalPlaces {
		return decimal.Zero, &errs.InvalidAmountError{Field: "amount", Value: amount, Reason: fmt.Sprintf("at most %d decimal places", MaxDecimalPlaces)}
	}
	if places > int(tokenDecimals(in)) {
		return decimal.Zero, &errs.InvalidAmountError{
			Field:  "amount",
			Value:  amount,
			Reason: fmt.Sprintf("%s supports at most %d decimal places", in.Symbol, tokenDecimals(in)),
		}
	}
	if d.LessThan(minAmount) {
		return decimal.Zero, &errs.InvalidAmountError{Field: "amount", Value: amount, Reason: "below the minimum of 0.000001"}
	}
	if _, err := ToBaseUnits(trimmed, tokenDecimals(in)); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

func tokenDecimals(t models.Token) uint8 {
	if t.Decimals == 0 {
		return unknownDecimals
	}
	return t.Decimals
}

func cacheKey(in, out models.Token, amount decimal.Decimal, slippage float64) string {
	return fmt.Sprintf("%s/%s/%s/%v", strings.ToLower(in.Address), strings.ToLower(out.Address), amount.String(), slippage)
}
