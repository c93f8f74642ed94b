package models

import (
	"time"
)

// IntentStatus is the lifecycle status of a swap intent
type IntentStatus string

const (
	IntentPending   IntentStatus = "pending"
	IntentCommitted IntentStatus = "committed"
	IntentExecuted  IntentStatus = "executed"
	IntentExpired   IntentStatus = "expired"
	IntentCancelled IntentStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed
func (s IntentStatus) Terminal() bool {
	return s == IntentExecuted || s == IntentExpired || s == IntentCancelled
}

// SwapIntent is the record of a single swap attempt. Amounts and tokens are
// frozen at commit time and never follow later quote changes.
type SwapIntent struct {
	IntentID   string       `json:"intentId"`
	Status     IntentStatus `json:"status"`
	TxRef      string       `json:"txRef,omitempty"`
	CreatedAt  int64        `json:"createdAt"`
	ExecutedAt int64        `json:"executedAt,omitempty"`

	ChainID         int        `json:"chainId"`
	User            string     `json:"user"`
	InputToken      Token      `json:"inputToken"`
	OutputToken     Token      `json:"outputToken"`
	InputAmount     string     `json:"inputAmount"`
	OutputAmount    string     `json:"outputAmount"`
	MinOutputAmount string     `json:"minOutputAmount"`
	Config          SwapConfig `json:"config"`

	// Commit material required to reveal, possibly after a restart
	AmountInBase string `json:"amountInBase"`
	Nonce        string `json:"nonce"`
	Commitment   string `json:"commitment"`
	CommitTxRef  string `json:"commitTxRef,omitempty"`
	RevealTxRef  string `json:"revealTxRef,omitempty"`
}

// CreatedTime returns CreatedAt as a time.Time
func (i *SwapIntent) CreatedTime() time.Time {
	return time.UnixMilli(i.CreatedAt)
}

// Deadline returns the settlement deadline derived from the swap config
func (i *SwapIntent) Deadline() time.Time {
	return i.CreatedTime().Add(time.Duration(i.Config.DeadlineMinutes) * time.Minute)
}

// Clone returns a deep copy
func (i *SwapIntent) Clone() *SwapIntent {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}
