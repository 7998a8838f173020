package models

import (
	"strings"
	"time"
)

// Chain is a chain record as published in the bridge params.
type Chain struct {
	ID             string      `json:"id"`
	Type           ChainType   `json:"type"`
	InboundStatus  ChainStatus `json:"inbound_status"`
	OutboundStatus ChainStatus `json:"outbound_status"`
}

func (c Chain) InboundBlocked() bool {
	return c.InboundStatus == ChainStatusBlocked
}

func (c Chain) OutboundBlocked() bool {
	return c.OutboundStatus == ChainStatusBlocked
}

// AssetID identifies an asset by the chain it originates from and its denom.
type AssetID struct {
	SourceChain string `json:"source_chain"`
	Denom       string `json:"denom"`
}

// Key is the composite registry key, "<sourceChain>-<denom>".
func (id AssetID) Key() string {
	return id.SourceChain + "-" + id.Denom
}

// ParseAssetID splits a composite key on its first dash.
func ParseAssetID(key string) (AssetID, bool) {
	i := strings.Index(key, "-")
	if i <= 0 || i == len(key)-1 {
		return AssetID{}, false
	}
	return AssetID{SourceChain: key[:i], Denom: key[i+1:]}, true
}

type Asset struct {
	ID                AssetID     `json:"id"`
	Status            AssetStatus `json:"status"`
	MinTransferAmount string      `json:"min_transfer_amount"`
}

// BridgeParams is the raw parameter set returned by the network.
type BridgeParams struct {
	Chains       []Chain       `json:"chains"`
	Assets       []Asset       `json:"assets"`
	BridgeStatus *BridgeStatus `json:"bridge_status"`
}

// TransferRequest is constructed by the caller and never mutated.
type TransferRequest struct {
	FromChainID string `json:"from_chain_id"`
	ToChainID   string `json:"to_chain_id"`
	AssetID     string `json:"asset_id"`
	Amount      string `json:"amount"`
	ToAddress   string `json:"to_address"`
}

// CanTransferDecision is produced fresh for every preflight call.
type CanTransferDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

type TransferHandle struct {
	TxID         string `json:"tx_id"`
	SubmitTxHash string `json:"submit_tx_hash,omitempty"`
	FromChainID  string `json:"from_chain_id"`
	ToChainID    string `json:"to_chain_id"`
	AssetID      string `json:"asset_id"`
}

// BuiltTx is an unsigned, chain-specific transaction produced by an adapter.
type BuiltTx struct {
	Kind ChainKind         `json:"kind"`
	Raw  any               `json:"raw,omitempty"`
	Meta map[string]string `json:"meta,omitempty"`
}

type Estimate struct {
	BridgeFeeRate string `json:"bridge_fee_rate,omitempty"`
	BridgeFee     string `json:"bridge_fee,omitempty"`
}

// Timeouts bounds network work. Zero Execute means unbounded.
type Timeouts struct {
	CanTransfer time.Duration
	Execute     time.Duration
}

// CanTransferQuery is the online eligibility request.
type CanTransferQuery struct {
	SrcChainID  string
	DestChainID string
	AssetID     string
	Amount      string
}

type CanTransferResult struct {
	CanTransfer bool   `json:"can_transfer"`
	Reason      string `json:"reason"`
}

// TxResult is a native-chain transaction lookup result.
type TxResult struct {
	TxHash string `json:"txhash"`
	Height string `json:"height"`
	Code   uint32 `json:"code"`
	RawLog string `json:"raw_log"`
}

type OutboundTransfer struct {
	TxHash      string         `json:"tx_hash"`
	DestChainID string         `json:"dest_chain_id"`
	Receiver    string         `json:"receiver"`
	Amount      string         `json:"amount"`
	Status      OutboundStatus `json:"status"`
}

type InboundTransfer struct {
	ID         string        `json:"id"`
	SrcChainID string        `json:"src_chain_id"`
	Receiver   string        `json:"receiver"`
	Amount     string        `json:"amount"`
	Status     InboundStatus `json:"status"`
}
