package models

import "encoding/json"

// TxStatus is the settlement status of a submitted transaction
type TxStatus string

const (
	TxPending TxStatus = "pending"
	TxSuccess TxStatus = "success"
	TxFailed  TxStatus = "failed"
)

// CommitRequest is the body of POST /swap/commit
type CommitRequest struct {
	Hash string `json:"hash"`
}

// RevealRequest is the body of POST /swap/reveal. Amounts are integer base units.
type RevealRequest struct {
	TokenIn  string `json:"tokenIn"`
	TokenOut string `json:"tokenOut"`
	AmountIn string `json:"amountIn"`
	Nonce    string `json:"nonce"`
	PermitV  *uint8 `json:"permitV,omitempty"`
	PermitR  string `json:"permitR,omitempty"`
	PermitS  string `json:"permitS,omitempty"`
}

// Permit carries an optional EIP-2612 signature forwarded with the reveal
type Permit struct {
	V uint8
	R string
	S string
}

// TxResponse is returned by the submission endpoints
type TxResponse struct {
	Status string `json:"status"`
	TxRef  string `json:"txRef"`
	// TxHash is the legacy name of TxRef
	TxHash string `json:"txHash,omitempty"`
}

// Ref returns the transaction reference under either key
func (r *TxResponse) Ref() string {
	if r.TxRef != "" {
		return r.TxRef
	}
	return r.TxHash
}

// StatusResponse is returned by GET /swap/status
type StatusResponse struct {
	Status  TxStatus        `json:"status"`
	Receipt json.RawMessage `json:"receipt,omitempty"`
}

// DeployedTokensResponse is returned by GET /deployed-tokens
type DeployedTokensResponse struct {
	Tokens []string `json:"tokens"`
}

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
