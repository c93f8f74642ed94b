package config

import (
	"strings"

	"github.com/unikron/shieldswap/pkg/models"
)

// defaultDecimals is the precision of the dummy tokens deployed next to the aggregator
const defaultDecimals = 18

var defaultTokens = []models.Token{
	{Name: "Dummy Ethereum", Symbol: "ETH-D", Address: "0x014c66bFe06949F45304B23bD7CbFFCFD845bC42"},
	{Name: "Dummy Tether", Symbol: "USDT-D", Address: "0x947092F0eEF063FF8db69D3eDe4994927772DfA8"},
	{Name: "Dai Stablecoin", Symbol: "DAI-D", Address: "0x19894273C95e4e7aA96f8500fe50cB8aE8A6991C"},
	{Name: "Uniswap Dummy", Symbol: "UNI-D", Address: "0xe6DD30e98D3C591Ec55C04a24e2b98ab52F764A9"},
	{Name: "Chainlink Dummy", Symbol: "LINK-D", Address: "0xDBb66CA34B8A08441Be493aC305b0bdFCa4169cD"},
	{Name: "Aave Dummy", Symbol: "AAVE-D", Address: "0xBC1e9AC6015C1295Af3e1987c664Cd052e3C38B7"},
	{Name: "Polygon Dummy", Symbol: "MATIC-D", Address: "0x524B569aF737F977BdaaEC42dD24e74f0916033c"},
	{Name: "BND Dummy", Symbol: "BNB-D", Address: "0x1d5AFD87B505b2BEf6aAbe987b461Ab56D5a8834"},
	{Name: "Solana Dummy", Symbol: "SOL-D", Address: "0xa9E2D3fA8476C7873fb7424bd9BA2a301BCD119c"},
}

// defaultPrices maps "IN/OUT" symbol pairs to the amount of OUT received per unit of IN
var defaultPrices = map[string]string{
	"ETH-D/USDT-D": "2000",
	"USDT-D/ETH-D": "0.0005",
	"ETH-D/DAI-D":  "2000",
	"DAI-D/ETH-D":  "0.0005",
	"ETH-D/UNI-D":  "100",
	"UNI-D/ETH-D":  "0.01",
	"LINK-D/ETH-D": "100",
	"ETH-D/LINK-D": "0.01",
	"ETH-D/USDC-D": "2000",
	"USDC-D/ETH-D": "0.0005",
}

// DefaultTokens returns a copy of the built-in token list bound to chainID
func DefaultTokens(chainID int) []models.Token {
	tokens := make([]models.Token, len(defaultTokens))
	for i, t := range defaultTokens {
		t.Decimals = defaultDecimals
		t.ChainID = chainID
		tokens[i] = t
	}
	return tokens
}

// DefaultPrices returns a copy of the built-in price table
func DefaultPrices() map[string]string {
	prices := make(map[string]string, len(defaultPrices))
	for k, v := range defaultPrices {
		prices[k] = v
	}
	return prices
}

// FindToken looks a token up by address or symbol, case-insensitively
func FindToken(tokens []models.Token, key string) (models.Token, bool) {
	key = strings.TrimSpace(key)
	for _, t := range tokens {
		if strings.EqualFold(t.Address, key) || strings.EqualFold(t.Symbol, key) {
			return t, true
		}
	}
	return models.Token{}, false
}
