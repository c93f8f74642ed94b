package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/unikron/shieldswap/pkg/models"
)

// TokenList is the content of a TOKEN_LIST_FILE (yaml, json or toml)
type TokenList struct {
	Tokens  []TokenEntry      `mapstructure:"tokens"`
	Prices  map[string]string `mapstructure:"prices"`
	Replace bool              `mapstructure:"replace"`
}

// TokenEntry is a token as written in a token list file
type TokenEntry struct {
	Address  string `mapstructure:"address"`
	Symbol   string `mapstructure:"symbol"`
	Name     string `mapstructure:"name"`
	Decimals uint8  `mapstructure:"decimals"`
}

// LoadTokenList reads a token list file
func LoadTokenList(path string) (*TokenList, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read token list %s: %w", path, err)
	}

	var list TokenList
	if err := v.Unmarshal(&list); err != nil {
		return nil, fmt.Errorf("failed to decode token list %s: %w", path, err)
	}

	for i, t := range list.Tokens {
		if !common.IsHexAddress(t.Address) {
			return nil, fmt.Errorf("token list entry %d: invalid address %q", i, t.Address)
		}
		if t.Symbol == "" {
			return nil, fmt.Errorf("token list entry %d: symbol is required", i)
		}
	}

	// viper lower-cases keys, the price table is keyed by upper-case symbols
	prices := make(map[string]string, len(list.Prices))
	for pair, price := range list.Prices {
		if !strings.Contains(pair, "/") {
			return nil, fmt.Errorf("invalid price pair %q, expected IN/OUT", pair)
		}
		prices[strings.ToUpper(pair)] = price
	}
	list.Prices = prices

	return &list, nil
}

// Merge applies the list on top of the given tokens and prices. Entries with the
// same address replace the existing token; with Replace set the defaults are dropped.
func (l *TokenList) Merge(chainID int, tokens []models.Token, prices map[string]string) ([]models.Token, map[string]string) {
	if l.Replace {
		tokens, prices = nil, map[string]string{}
	}

	for _, e := range l.Tokens {
		decimals := e.Decimals
		if decimals == 0 {
			decimals = defaultDecimals
		}
		token := models.Token{
			Address:  e.Address,
			Symbol:   e.Symbol,
			Name:     e.Name,
			Decimals: decimals,
			ChainID:  chainID,
		}

		replaced := false
		for i := range tokens {
			if strings.EqualFold(tokens[i].Address, token.Address) {
				tokens[i] = token
				replaced = true
				break
			}
		}
		if !replaced {
			tokens = append(tokens, token)
		}
	}

	for pair, price := range l.Prices {
		prices[pair] = price
	}
	return tokens, prices
}
