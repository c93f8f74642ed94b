package contracts

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// AggregatorABI is the ABI of the commit-reveal swap aggregator
const AggregatorABI = `[
	{
		"inputs": [
			{
				"internalType": "bytes32",
				"name": "commitment",
				"type": "bytes32"
			}
		],
		"name": "commitSwap",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{
				"internalType": "address",
				"name": "tokenIn",
				"type": "address"
			},
			{
				"internalType": "address",
				"name": "tokenOut",
				"type": "address"
			},
			{
				"internalType": "uint256",
				"name": "amountIn",
				"type": "uint256"
			},
			{
				"internalType": "uint256",
				"name": "nonce",
				"type": "uint256"
			},
			{
				"internalType": "uint8",
				"name": "permitV",
				"type": "uint8"
			},
			{
				"internalType": "bytes32",
				"name": "permitR",
				"type": "bytes32"
			},
			{
				"internalType": "bytes32",
				"name": "permitS",
				"type": "bytes32"
			}
		],
		"name": "revealSwap",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "getDeployedTokens",
		"outputs": [
			{
				"internalType": "address[]",
				"name": "",
				"type": "address[]"
			}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

// Aggregator is an auto generated Go binding around an Ethereum contract.
type Aggregator struct {
	AggregatorCaller     // Read-only binding to the contract
	AggregatorTransactor // Write-only binding to the contract
}

// AggregatorCaller is an auto generated read-only Go binding around an Ethereum contract.
type AggregatorCaller struct {
	contract *bind.BoundContract // Generic contract wrapper for the low level calls
}

// AggregatorTransactor is an auto generated write-only Go binding around an Ethereum contract.
type AggregatorTransactor struct {
	contract *bind.BoundContract // Generic contract wrapper for the low level calls
}

// AggregatorSession is an auto generated Go binding around an Ethereum contract,
// with pre-set call and transact options.
type AggregatorSession struct {
	Contract     *Aggregator       // Generic contract binding to set the session for
	CallOpts     bind.CallOpts     // Call options to use throughout this session
	TransactOpts bind.TransactOpts // Transaction auth options to use throughout this session
}

// NewAggregator creates a new instance of Aggregator, bound to a specific deployed contract.
func NewAggregator(address common.Address, backend bind.ContractBackend) (*Aggregator, error) {
	contract, err := bindAggregator(address, backend, backend, backend)
	if err != nil {
		return nil, err
	}
	return &Aggregator{AggregatorCaller: AggregatorCaller{contract: contract}, AggregatorTransactor: AggregatorTransactor{contract: contract}}, nil
}

// NewAggregatorCaller creates a new read-only instance of Aggregator, bound to a specific deployed contract.
func NewAggregatorCaller(address common.Address, caller bind.ContractCaller) (*AggregatorCaller, error) {
	contract, err := bindAggregator(address, caller, nil, nil)
	if err != nil {
		return nil, err
	}
	return &AggregatorCaller{contract: contract}, nil
}

// bindAggregator binds a generic wrapper to an already deployed contract.
func bindAggregator(address common.Address, caller bind.ContractCaller, transactor bind.ContractTransactor, filterer bind.ContractFilterer) (*bind.BoundContract, error) {
	parsed, err := abi.JSON(strings.NewReader(AggregatorABI))
	if err != nil {
		return nil, err
	}
	return bind.NewBoundContract(address, parsed, caller, transactor, filterer), nil
}

// GetDeployedTokens is a free data retrieval call binding the contract method getDeployedTokens.
//
// Solidity: function getDeployedTokens() view returns(address[])
func (_Aggregator *AggregatorCaller) GetDeployedTokens(opts *bind.CallOpts) ([]common.Address, error) {
	var out []interface{}
	err := _Aggregator.contract.Call(opts, &out, "getDeployedTokens")
	if err != nil {
		return *new([]common.Address), err
	}

	out0 := *abi.ConvertType(out[0], new([]common.Address)).(*[]common.Address)
	return out0, err
}

// GetDeployedTokens is a free data retrieval call binding the contract method getDeployedTokens.
//
// Solidity: function getDeployedTokens() view returns(address[])
func (_Aggregator *AggregatorSession) GetDeployedTokens() ([]common.Address, error) {
	return _Aggregator.Contract.GetDeployedTokens(&_Aggregator.CallOpts)
}

// CommitSwap is a paid mutator transaction binding the contract method commitSwap.
//
// Solidity: function commitSwap(bytes32 commitment) returns()
func (_Aggregator *AggregatorTransactor) CommitSwap(opts *bind.TransactOpts, commitment [32]byte) (*types.Transaction, error) {
	return _Aggregator.contract.Transact(opts, "commitSwap", commitment)
}

// CommitSwap is a paid mutator transaction binding the contract method commitSwap.
//
// Solidity: function commitSwap(bytes32 commitment) returns()
func (_Aggregator *AggregatorSession) CommitSwap(commitment [32]byte) (*types.Transaction, error) {
	return _Aggregator.Contract.CommitSwap(&_Aggregator.TransactOpts, commitment)
}

// RevealSwap is a paid mutator transaction binding the contract method revealSwap.
//
// Solidity: function revealSwap(address tokenIn, address tokenOut, uint256 amountIn, uint256 nonce, uint8 permitV, bytes32 permitR, bytes32 permitS) returns()
func (_Aggregator *AggregatorTransactor) RevealSwap(opts *bind.TransactOpts, tokenIn common.Address, tokenOut common.Address, amountIn *big.Int, nonce *big.Int, permitV uint8, permitR [32]byte, permitS [32]byte) (*types.Transaction, error) {
	return _Aggregator.contract.Transact(opts, "revealSwap", tokenIn, tokenOut, amountIn, nonce, permitV, permitR, permitS)
}

// RevealSwap is a paid mutator transaction binding the contract method revealSwap.
//
// Solidity: function revealSwap(address tokenIn, address tokenOut, uint256 amountIn, uint256 nonce, uint8 permitV, bytes32 permitR, bytes32 permitS) returns()
func (_Aggregator *AggregatorSession) RevealSwap(tokenIn common.Address, tokenOut common.Address, amountIn *big.Int, nonce *big.Int, permitV uint8, permitR [32]byte, permitS [32]byte) (*types.Transaction, error) {
	return _Aggregator.Contract.RevealSwap(&_Aggregator.TransactOpts, tokenIn, tokenOut, amountIn, nonce, permitV, permitR, permitS)
}
