// Package chainclient submits commit and reveal transactions to the swap
// aggregator contract and reads their receipts.
package chainclient

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/unikron/shieldswap/pkg/chains"
	"github.com/unikron/shieldswap/pkg/config"
	"github.com/unikron/shieldswap/pkg/contracts"
	"github.com/unikron/shieldswap/pkg/logger"
	"github.com/unikron/shieldswap/pkg/metrics"
)

// ErrNoSigner is returned when a transaction is requested without a private key
var ErrNoSigner = errors.New("no private key configured")

// Backend is the part of an Ethereum node the client needs
type Backend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// RevealParams are the arguments of revealSwap
type RevealParams struct {
	TokenIn  common.Address
	TokenOut common.Address
	AmountIn *big.Int
	Nonce    *big.Int
	PermitV  uint8
	PermitR  [32]byte
	PermitS  [32]byte
}

// TokenMetadata is the ERC20 metadata of a token
type TokenMetadata struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// Client contains client and config information for the aggregator chain
type Client struct {
	ChainID           int
	AggregatorAddress common.Address
	GasMultiplier     float64
	MaxGasPrice       *big.Int

	backend    Backend
	aggregator *contracts.Aggregator
	auth       *bind.TransactOpts
	nonces     *NonceManager
	logger     logger.Logger

	mu              sync.RWMutex
	currentGasPrice *big.Int
}

// New dials rpcURL and creates a client. privateKey may be empty for a read-only client.
func New(ctx context.Context, chainID int, rpcURL string, aggregatorAddress string, privateKey string, gas config.GasConfig, log logger.Logger) (*Client, error) {
	backend, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain %d: %v", chainID, err)
	}

	var key *ecdsa.PrivateKey
	if privateKey != "" {
		key, err = crypto.HexToECDSA(trimHexPrefix(privateKey))
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %v", err)
		}
	}

	return NewWithBackend(ctx, backend, chainID, aggregatorAddress, key, gas, log)
}

// NewWithBackend creates a client over an existing backend
func NewWithBackend(ctx context.Context, backend Backend, chainID int, aggregatorAddress string, key *ecdsa.PrivateKey, gas config.GasConfig, log logger.Logger) (*Client, error) {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	if !common.IsHexAddress(aggregatorAddress) {
		return nil, fmt.Errorf("invalid aggregator address: %s", aggregatorAddress)
	}

	aggregator, err := contracts.NewAggregator(common.HexToAddress(aggregatorAddress), backend)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize contract: %v", err)
	}

	multiplier := gas.Multiplier
	if multiplier <= 0 {
		multiplier = config.DefaultGasMultiplier
	}
	maxGasPrice := gas.MaxGasPrice
	if maxGasPrice == nil {
		if def, ok := chains.DefaultMaxGasPrice[chainID]; ok {
			maxGasPrice, _ = new(big.Int).SetString(def, 10)
		}
	}

	c := &Client{
		ChainID:           chainID,
		AggregatorAddress: common.HexToAddress(aggregatorAddress),
		GasMultiplier:     multiplier,
		MaxGasPrice:       maxGasPrice,
		backend:           backend,
		aggregator:        aggregator,
		logger:            log,
	}

	if key != nil {
		auth, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(int64(chainID)))
		if err != nil {
			return nil, fmt.Errorf("failed to create transactor: %v", err)
		}
		c.auth = auth
		c.nonces = NewNonceManager(backend, auth.From, log)
	}
	return c, nil
}

// From returns the sender address, zero for a read-only client
func (c *Client) From() common.Address {
	if c.auth == nil {
		return common.Address{}
	}
	return c.auth.From
}

// CanSign reports whether the client can send transactions
func (c *Client) CanSign() bool {
	return c.auth != nil
}

// GasPrice returns the last gas price fetched, nil before the first update
func (c *Client) GasPrice() *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.currentGasPrice == nil {
		return nil
	}
	return new(big.Int).Set(c.currentGasPrice)
}

// UpdateGasPrice updates the gas price based on current network conditions
func (c *Client) UpdateGasPrice(ctx context.Context) (*big.Int, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	gasPrice, err := c.backend.SuggestGasPrice(timeoutCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %v", err)
	}

	finalGasPrice := applyMultiplier(gasPrice, c.GasMultiplier)

	c.mu.Lock()
	c.currentGasPrice = finalGasPrice
	c.mu.Unlock()

	return new(big.Int).Set(finalGasPrice), nil
}

// GetLatestBlockNumber gets the latest block number from the chain
func (c *Client) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.backend.BlockNumber(ctx)
}

// CommitSwap sends commitSwap(digest) and returns the transaction hash without waiting for it to be mined
func (c *Client) CommitSwap(ctx context.Context, digest common.Hash) (common.Hash, error) {
	return c.transact(ctx, "commitSwap", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.aggregator.CommitSwap(opts, digest)
	})
}

// RevealSwap sends revealSwap with p and returns the transaction hash
func (c *Client) RevealSwap(ctx context.Context, p RevealParams) (common.Hash, error) {
	if p.AmountIn == nil || p.Nonce == nil {
		return common.Hash{}, fmt.Errorf("amountIn and nonce are required")
	}
	return c.transact(ctx, "revealSwap", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.aggregator.RevealSwap(opts, p.TokenIn, p.TokenOut, p.AmountIn, p.Nonce, p.PermitV, p.PermitR, p.PermitS)
	})
}

// Receipt returns the receipt of txHash, nil while the transaction is pending
func (c *Client) Receipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	receipt, err := c.backend.TransactionReceipt(ctx, txHash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if c.nonces != nil && c.nonces.Confirm(txHash) {
		metrics.PendingTransactions.WithLabelValues(c.chainLabel()).Set(float64(c.nonces.Pending()))
	}
	return receipt, nil
}

// DeployedTokens returns the tokens registered on the aggregator
func (c *Client) DeployedTokens(ctx context.Context) ([]common.Address, error) {
	return c.aggregator.GetDeployedTokens(&bind.CallOpts{Context: ctx})
}

// TokenMetadata reads name, symbol and decimals of an ERC20 token
func (c *Client) TokenMetadata(ctx context.Context, token common.Address) (TokenMetadata, error) {
	erc20, err := contracts.NewERC20Metadata(token, c.backend)
	if err != nil {
		return TokenMetadata{}, err
	}

	opts := &bind.CallOpts{Context: ctx}
	var md TokenMetadata
	if md.Name, err = erc20.Name(opts); err != nil {
		return TokenMetadata{}, fmt.Errorf("failed to read name of %s: %v", token.Hex(), err)
	}
	if md.Symbol, err = erc20.Symbol(opts); err != nil {
		return TokenMetadata{}, fmt.Errorf("failed to read symbol of %s: %v", token.Hex(), err)
	}
	if md.Decimals, err = erc20.Decimals(opts); err != nil {
		return TokenMetadata{}, fmt.Errorf("failed to read decimals of %s: %v", token.Hex(), err)
	}
	return md, nil
}

// transact signs and sends one aggregator transaction with a managed nonce and gas price
func (c *Client) transact(ctx context.Context, method string, send func(opts *bind.TransactOpts) (*types.Transaction, error)) (common.Hash, error) {
	if c.auth == nil {
		return common.Hash{}, ErrNoSigner
	}

	gasPrice := c.GasPrice()
	if gasPrice == nil {
		var err error
		if gasPrice, err = c.UpdateGasPrice(ctx); err != nil {
			metrics.ChainSubmissions.WithLabelValues(method, "failed").Inc()
			return common.Hash{}, err
		}
	}
	if !c.isGasPriceAcceptable(gasPrice) {
		metrics.ChainSubmissions.WithLabelValues(method, "rejected").Inc()
		return common.Hash{}, fmt.Errorf("gas price %s exceeds the cap of %s wei", gasPrice, c.MaxGasPrice)
	}

	nonce, err := c.nonces.Next(ctx)
	if err != nil {
		metrics.ChainSubmissions.WithLabelValues(method, "failed").Inc()
		return common.Hash{}, err
	}

	opts := *c.auth
	opts.Context = ctx
	opts.Nonce = new(big.Int).SetUint64(nonce)
	opts.GasPrice = gasPrice
	opts.GasLimit = chains.GasLimit(c.ChainID, method)

	tx, err := send(&opts)
	if err != nil {
		c.nonces.Release(nonce)
		metrics.ChainSubmissions.WithLabelValues(method, "failed").Inc()
		c.logger.ErrorWithPhase("server", "%s with nonce %d failed: %v", method, nonce, err)
		return common.Hash{}, err
	}

	c.nonces.Track(nonce, tx.Hash())
	metrics.ChainSubmissions.WithLabelValues(method, "submitted").Inc()
	metrics.PendingTransactions.WithLabelValues(c.chainLabel()).Set(float64(c.nonces.Pending()))
	c.logger.InfoWithPhase("server", "%s submitted in %s (nonce %d, gas price %s)", method, tx.Hash().Hex(), nonce, gasPrice)
	return tx.Hash(), nil
}

// isGasPriceAcceptable checks the gas price against the configured cap
func (c *Client) isGasPriceAcceptable(gasPrice *big.Int) bool {
	if c.MaxGasPrice == nil {
		return true
	}
	return gasPrice.Cmp(c.MaxGasPrice) <= 0
}

func (c *Client) chainLabel() string {
	return fmt.Sprintf("%d", c.ChainID)
}

// applyMultiplier scales gasPrice by multiplier (e.g. 1.1 = 10% buffer)
func applyMultiplier(gasPrice *big.Int, multiplier float64) *big.Int {
	multiplied := new(big.Float).Mul(
		new(big.Float).SetInt(gasPrice),
		big.NewFloat(multiplier),
	)

	result := new(big.Int)
	multiplied.Int(result)
	return result
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
