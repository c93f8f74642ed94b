package chains

// ChainList contains the list of chains the aggregator is known on
var ChainList = []int{
	1,        // Ethereum
	11155111, // Sepolia
	17000,    // Holesky
	31337,    // Local devnet
}

// chainNames maps chain IDs to their names
var chainNames = map[int]string{
	1:        "ETHEREUM",
	11155111: "SEPOLIA",
	17000:    "HOLESKY",
	31337:    "DEVNET",
}

// CommitGasLimit is the gas limit of a commitSwap transaction per chain
var CommitGasLimit = map[int]uint64{
	1:        80000,
	11155111: 80000,
	17000:    80000,
	31337:    100000,
}

// RevealGasLimit is the gas limit of a revealSwap transaction per chain
var RevealGasLimit = map[int]uint64{
	1:        400000,
	11155111: 400000,
	17000:    400000,
	31337:    1000000,
}

// DefaultMaxGasPrice is the starting gas price cap in wei per chain
var DefaultMaxGasPrice = map[int]string{
	1:        "150000000000", // 150 gwei
	11155111: "50000000000",  // 50 gwei
	17000:    "50000000000",  // 50 gwei
}

// GetChainName returns the name of the chain for a given chain ID
func GetChainName(chainID int) string {
	name, exists := chainNames[chainID]
	if !exists {
		return ""
	}
	return name
}

// GasLimit returns the gas limit of method on chainID, zero lets the node estimate it
func GasLimit(chainID int, method string) uint64 {
	switch method {
	case "commitSwap":
		return CommitGasLimit[chainID]
	case "revealSwap":
		return RevealGasLimit[chainID]
	}
	return 0
}
