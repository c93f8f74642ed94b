package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// ERC20MetadataABI is the read-only metadata subset of the ERC20 ABI
const ERC20MetadataABI = `[
	{"inputs": [], "name": "name", "outputs": [{"internalType": "string", "name": "", "type": "string"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "symbol", "outputs": [{"internalType": "string", "name": "", "type": "string"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "decimals", "outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}], "stateMutability": "view", "type": "function"}
]`

// ERC20Metadata is an auto generated read-only Go binding around an ERC20 contract.
type ERC20Metadata struct {
	contract *bind.BoundContract // Generic contract wrapper for the low level calls
}

// NewERC20Metadata creates a new read-only instance of ERC20Metadata, bound to a specific deployed contract.
func NewERC20Metadata(address common.Address, caller bind.ContractCaller) (*ERC20Metadata, error) {
	parsed, err := abi.JSON(strings.NewReader(ERC20MetadataABI))
	if err != nil {
		return nil, err
	}
	return &ERC20Metadata{contract: bind.NewBoundContract(address, parsed, caller, nil, nil)}, nil
}

// Name is a free data retrieval call binding the contract method name.
//
// Solidity: function name() view returns(string)
func (_ERC20 *ERC20Metadata) Name(opts *bind.CallOpts) (string, error) {
	var out []interface{}
	err := _ERC20.contract.Call(opts, &out, "name")
	if err != nil {
		return *new(string), err
	}

	out0 := *abi.ConvertType(out[0], new(string)).(*string)
	return out0, err
}

// Symbol is a free data retrieval call binding the contract method symbol.
//
// Solidity: function symbol() view returns(string)
func (_ERC20 *ERC20Metadata) Symbol(opts *bind.CallOpts) (string, error) {
	var out []interface{}
	err := _ERC20.contract.Call(opts, &out, "symbol")
	if err != nil {
		return *new(string), err
	}

	out0 := *abi.ConvertType(out[0], new(string)).(*string)
	return out0, err
}

// Decimals is a free data retrieval call binding the contract method decimals.
//
// Solidity: function decimals() view returns(uint8)
func (_ERC20 *ERC20Metadata) Decimals(opts *bind.CallOpts) (uint8, error) {
	var out []interface{}
	err := _ERC20.contract.Call(opts, &out, "decimals")
	if err != nil {
		return *new(uint8), err
	}

	out0 := *abi.ConvertType(out[0], new(uint8)).(*uint8)
	return out0, err
}
