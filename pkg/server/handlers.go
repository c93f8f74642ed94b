package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/unikron/shieldswap/pkg/chainclient"
	"github.com/unikron/shieldswap/pkg/chains"
	"github.com/unikron/shieldswap/pkg/commitment"
	"github.com/unikron/shieldswap/pkg/config"
	"github.com/unikron/shieldswap/pkg/errs"
	"github.com/unikron/shieldswap/pkg/gateway"
	"github.com/unikron/shieldswap/pkg/models"
	"github.com/unikron/shieldswap/pkg/quote"
)

// maxUint256 bounds amountIn and nonce
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// handleTokens returns the configured tokens, filling missing metadata from the token contracts
func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	tokens := make([]models.Token, len(s.tokens))
	copy(tokens, s.tokens)

	for i, t := range tokens {
		if t.Name != "" && t.Symbol != "" && t.Decimals != 0 {
			continue
		}
		md, err := s.settlement.TokenMetadata(r.Context(), common.HexToAddress(t.Address))
		if err != nil {
			// keep the configured values
			s.logger.DebugWithPhase("server", "Token metadata of %s unavailable: %v", t.Address, err)
			continue
		}
		if tokens[i].Name == "" {
			tokens[i].Name = md.Name
		}
		if tokens[i].Symbol == "" {
			tokens[i].Symbol = md.Symbol
		}
		if tokens[i].Decimals == 0 {
			tokens[i].Decimals = md.Decimals
		}
	}

	writeJSON(w, http.StatusOK, tokens)
}

// handleQuote prices amount of fromToken in toToken
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fromToken, toToken, amount := q.Get("fromToken"), q.Get("toToken"), q.Get("amount")
	if fromToken == "" || toToken == "" || amount == "" {
		writeError(w, http.StatusBadRequest, &errs.InvalidAmountError{Field: "query", Reason: "fromToken, toToken and amount are required"})
		return
	}

	var slippage float64
	if raw := q.Get("slippage"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, &errs.InvalidAmountError{Field: "slippage", Value: raw, Reason: "not a number"})
			return
		}
		slippage = parsed
	}

	from, ok := config.FindToken(s.tokens, fromToken)
	if !ok {
		writeError(w, http.StatusBadRequest, &errs.InvalidAmountError{Field: "fromToken", Value: fromToken, Reason: "unknown token"})
		return
	}
	to, ok := config.FindToken(s.tokens, toToken)
	if !ok {
		writeError(w, http.StatusBadRequest, &errs.InvalidAmountError{Field: "toToken", Value: toToken, Reason: "unknown token"})
		return
	}

	result, err := s.quotes.GetQuote(quote.Request{
		InputToken:  from,
		OutputToken: to,
		InputAmount: amount,
		Slippage:    slippage,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	// the engine may hand out a cached quote
	resp := *result
	if gas := chains.GasLimit(s.chainID, "revealSwap"); gas > 0 {
		resp.EstimatedGas = strconv.FormatUint(gas, 10)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleCommit sends commitSwap(hash)
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	var req models.CommitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, &errs.EncodingError{Field: "body", Reason: err.Error()})
		return
	}
	if req.Hash == "" {
		writeError(w, http.StatusBadRequest, &errs.EncodingError{Field: "hash", Reason: "missing"})
		return
	}

	digest, err := commitment.ParseHash(req.Hash)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if s.submissionsPaused(w, gateway.OpCommit) {
		return
	}
	txHash, err := s.settlement.CommitSwap(r.Context(), digest)
	s.recordSubmission(err)
	if err != nil {
		writeError(w, http.StatusBadGateway, &errs.GatewayError{Op: gateway.OpCommit, Err: err})
		return
	}

	writeJSON(w, http.StatusOK, models.TxResponse{Status: "submitted", TxRef: txHash.Hex(), TxHash: txHash.Hex()})
}

// handleReveal sends revealSwap with the committed parameters
func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	var req models.RevealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, &errs.EncodingError{Field: "body", Reason: err.Error()})
		return
	}

	params, err := parseReveal(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if s.submissionsPaused(w, gateway.OpReveal) {
		return
	}
	txHash, err := s.settlement.RevealSwap(r.Context(), params)
	s.recordSubmission(err)
	if err != nil {
		writeError(w, http.StatusBadGateway, &errs.GatewayError{Op: gateway.OpReveal, Err: err})
		return
	}

	writeJSON(w, http.StatusOK, models.TxResponse{Status: "submitted", TxRef: txHash.Hex(), TxHash: txHash.Hex()})
}

// handleStatus reports pending, success or failed from the transaction receipt
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("txRef")
	if ref == "" {
		ref = r.URL.Query().Get("txHash")
	}
	if ref == "" {
		writeError(w, http.StatusBadRequest, &errs.EncodingError{Field: "txRef", Reason: "missing"})
		return
	}

	txHash, err := commitment.ParseHash(ref)
	if err != nil {
		writeError(w, http.StatusBadRequest, &errs.EncodingError{Field: "txRef", Reason: "must be a 32 byte hex hash"})
		return
	}

	receipt, err := s.settlement.Receipt(r.Context(), txHash)
	if err != nil {
		writeError(w, http.StatusBadGateway, &errs.GatewayError{Op: gateway.OpStatus, Err: err})
		return
	}
	if receipt == nil {
		writeJSON(w, http.StatusOK, models.StatusResponse{Status: models.TxPending})
		return
	}

	resp := models.StatusResponse{Status: models.TxFailed}
	if receipt.Status == 1 {
		resp.Status = models.TxSuccess
	}
	if raw, err := json.Marshal(receipt); err == nil {
		resp.Receipt = raw
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDeployedTokens lists the tokens registered on the aggregator
func (s *Server) handleDeployedTokens(w http.ResponseWriter, r *http.Request) {
	addresses, err := s.settlement.DeployedTokens(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, &errs.GatewayError{Op: gateway.OpDeployedTokens, Err: err})
		return
	}

	tokens := make([]string, 0, len(addresses))
	for _, a := range addresses {
		tokens = append(tokens, a.Hex())
	}
	writeJSON(w, http.StatusOK, models.DeployedTokensResponse{Tokens: tokens})
}

// submissionsPaused answers 503 while the chain breaker is open
func (s *Server) submissionsPaused(w http.ResponseWriter, op string) bool {
	if s.breaker == nil || !s.breaker.IsOpen() {
		return false
	}
	writeError(w, http.StatusServiceUnavailable, &errs.GatewayError{
		Op:        op,
		Class:     gateway.ClassCircuitOpen,
		Transient: true,
		Err:       errors.New("chain submissions paused by circuit breaker"),
	})
	return true
}

// recordSubmission feeds transient chain failures to the breaker
func (s *Server) recordSubmission(err error) {
	if s.breaker == nil {
		return
	}
	if err == nil {
		s.breaker.RecordSuccess()
		return
	}
	if transient, _ := gateway.Classify(err, 0, ""); transient {
		if s.breaker.RecordFailure() {
			s.logger.ErrorWithPhase("server", "Circuit breaker tripped after chain error: %v", err)
		}
	}
}

// parseReveal validates a reveal body. Permit fields default to 0 and the zero hash.
func parseReveal(req models.RevealRequest) (chainclient.RevealParams, error) {
	if req.TokenIn == "" || req.TokenOut == "" || req.AmountIn == "" || req.Nonce == "" {
		return chainclient.RevealParams{}, &errs.EncodingError{Field: "body", Reason: "tokenIn, tokenOut, amountIn and nonce are required"}
	}

	var p chainclient.RevealParams
	for _, f := range []struct {
		name  string
		value string
		dst   *common.Address
	}{
		{"tokenIn", req.TokenIn, &p.TokenIn},
		{"tokenOut", req.TokenOut, &p.TokenOut},
	} {
		if !common.IsHexAddress(f.value) || len(f.value) != 42 {
			return chainclient.RevealParams{}, &errs.EncodingError{Field: f.name, Reason: fmt.Sprintf("%q is not a 20 byte hex address", f.value)}
		}
		*f.dst = common.HexToAddress(f.value)
	}

	var err error
	if p.AmountIn, err = parseUint256("amountIn", req.AmountIn); err != nil {
		return chainclient.RevealParams{}, err
	}
	if p.Nonce, err = parseUint256("nonce", req.Nonce); err != nil {
		return chainclient.RevealParams{}, err
	}

	if req.PermitV != nil {
		p.PermitV = *req.PermitV
	}
	if p.PermitR, err = parsePermitWord("permitR", req.PermitR); err != nil {
		return chainclient.RevealParams{}, err
	}
	if p.PermitS, err = parsePermitWord("permitS", req.PermitS); err != nil {
		return chainclient.RevealParams{}, err
	}
	return p, nil
}

func parseUint256(field, value string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil, &errs.EncodingError{Field: field, Reason: fmt.Sprintf("%q is not a decimal integer", value)}
	}
	if n.Sign() < 0 || n.Cmp(maxUint256) > 0 {
		return nil, &errs.EncodingError{Field: field, Reason: "out of uint256 range"}
	}
	return n, nil
}

func parsePermitWord(field, value string) ([32]byte, error) {
	if value == "" {
		return [32]byte{}, nil
	}
	h, err := commitment.ParseHash(value)
	if err != nil {
		return [32]byte{}, &errs.EncodingError{Field: field, Reason: "must be a 32 byte hex value"}
	}
	return h, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, models.ErrorResponse{Error: err.Error(), Kind: string(errs.KindOf(err))})
}
