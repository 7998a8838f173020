package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Network identifies which bridge deployment the client talks to.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

func (n Network) String() string {
	return string(n)
}

// ChainKind is the adapter family a chain belongs to.
type ChainKind string

const (
	KindCosmos  ChainKind = "cosmos"
	KindUTXO    ChainKind = "utxo"
	KindPayment ChainKind = "payment"
	KindTON     ChainKind = "ton"
	KindSolana  ChainKind = "solana"
	KindEVM     ChainKind = "evm"
)

func (k ChainKind) String() string {
	return string(k)
}

// ChainType is the on-chain ordinal of a chain's type. It is kept as the raw
// ordinal so values added on-chain later survive decoding.
type ChainType int32

// ChainTypeUnknown is assigned to enum names this client does not know.
const ChainTypeUnknown ChainType = 1<<31 - 1

var chainTypeNames = map[string]int32{
	"CHAIN_TYPE_COSMOS":  0,
	"CHAIN_TYPE_UTXO":    1,
	"CHAIN_TYPE_PAYMENT": 2,
	"CHAIN_TYPE_TON":     3,
	"CHAIN_TYPE_SOLANA":  4,
	"CHAIN_TYPE_EVM":     5,
}

func (t *ChainType) UnmarshalJSON(data []byte) error {
	v, err := decodeEnum(data, chainTypeNames, int32(ChainTypeUnknown))
	if err != nil {
		return fmt.Errorf("chain type: %w", err)
	}
	*t = ChainType(v)
	return nil
}

// ChainStatus is the per-direction status of a chain.
type ChainStatus int32

const (
	ChainStatusUnspecified ChainStatus = iota
	ChainStatusOK
	ChainStatusBlocked
)

var chainStatusNames = map[string]int32{
	"CHAIN_STATUS_UNSPECIFIED": 0,
	"CHAIN_STATUS_OK":          1,
	"CHAIN_STATUS_BLOCKED":     2,
}

func (s *ChainStatus) UnmarshalJSON(data []byte) error {
	v, err := decodeEnum(data, chainStatusNames, int32(ChainStatusUnspecified))
	if err != nil {
		return fmt.Errorf("chain status: %w", err)
	}
	*s = ChainStatus(v)
	return nil
}

// AssetStatus is the bridge-wide status of an asset. Only ok allows transfers.
type AssetStatus int32

const (
	AssetStatusUnspecified AssetStatus = iota
	AssetStatusOK
	AssetStatusBlocked
)

var assetStatusNames = map[string]int32{
	"ASSET_STATUS_UNSPECIFIED": 0,
	"ASSET_STATUS_OK":          1,
	"ASSET_STATUS_BLOCKED":     2,
}

func (s *AssetStatus) UnmarshalJSON(data []byte) error {
	v, err := decodeEnum(data, assetStatusNames, int32(AssetStatusUnspecified))
	if err != nil {
		return fmt.Errorf("asset status: %w", err)
	}
	*s = AssetStatus(v)
	return nil
}

// BridgeStatus is the global halt switch.
type BridgeStatus int32

const (
	BridgeStatusUnspecified BridgeStatus = iota
	BridgeStatusOK
	BridgeStatusBlocked
)

var bridgeStatusNames = map[string]int32{
	"BRIDGE_STATUS_UNSPECIFIED": 0,
	"BRIDGE_STATUS_OK":          1,
	"BRIDGE_STATUS_BLOCKED":     2,
}

func (s *BridgeStatus) UnmarshalJSON(data []byte) error {
	v, err := decodeEnum(data, bridgeStatusNames, int32(BridgeStatusBlocked))
	if err != nil {
		return fmt.Errorf("bridge status: %w", err)
	}
	*s = BridgeStatus(v)
	return nil
}

func (s BridgeStatus) String() string {
	switch s {
	case BridgeStatusOK:
		return "ok"
	case BridgeStatusBlocked:
		return "blocked"
	default:
		return "unspecified"
	}
}

// OutboundStatus is the lifecycle of a transfer leaving the bridge chain.
type OutboundStatus int32

const (
	OutboundStatusUnrecognized OutboundStatus = -1
	OutboundStatusUnspecified  OutboundStatus = 0
	OutboundStatusPending      OutboundStatus = 1
	OutboundStatusFinalized    OutboundStatus = 2
	OutboundStatusFailed       OutboundStatus = 3
)

var outboundStatusNames = map[string]int32{
	"OUTBOUND_TRANSFER_STATUS_UNSPECIFIED": 0,
	"OUTBOUND_TRANSFER_STATUS_PENDING":     1,
	"OUTBOUND_TRANSFER_STATUS_FINALIZED":   2,
	"OUTBOUND_TRANSFER_STATUS_FAILED":      3,
}

func (s *OutboundStatus) UnmarshalJSON(data []byte) error {
	v, err := decodeEnum(data, outboundStatusNames, int32(OutboundStatusUnrecognized))
	if err != nil {
		return fmt.Errorf("outbound status: %w", err)
	}
	*s = OutboundStatus(v)
	return nil
}

func (s OutboundStatus) String() string {
	switch s {
	case OutboundStatusUnspecified:
		return "unspecified"
	case OutboundStatusPending:
		return "pending"
	case OutboundStatusFinalized:
		return "finalized"
	case OutboundStatusFailed:
		return "failed"
	default:
		return "unrecognized"
	}
}

// InboundStatus is the lifecycle of a transfer arriving at the bridge chain.
type InboundStatus int32

const (
	InboundStatusUnrecognized InboundStatus = -1
	InboundStatusUnspecified  InboundStatus = 0
	InboundStatusPending      InboundStatus = 1
	InboundStatusFinalized    InboundStatus = 2
)

var inboundStatusNames = map[string]int32{
	"INBOUND_TRANSFER_STATUS_UNSPECIFIED": 0,
	"INBOUND_TRANSFER_STATUS_PENDING":     1,
	"INBOUND_TRANSFER_STATUS_FINALIZED":   2,
}

func (s *InboundStatus) UnmarshalJSON(data []byte) error {
	v, err := decodeEnum(data, inboundStatusNames, int32(InboundStatusUnrecognized))
	if err != nil {
		return fmt.Errorf("inbound status: %w", err)
	}
	*s = InboundStatus(v)
	return nil
}

func (s InboundStatus) String() string {
	switch s {
	case InboundStatusUnspecified:
		return "unspecified"
	case InboundStatusPending:
		return "pending"
	case InboundStatusFinalized:
		return "finalized"
	default:
		return "unrecognized"
	}
}

// decodeEnum accepts either the enum name or its ordinal, the two shapes a
// REST gateway emits. Names outside the table map to unknown; ordinals are
// checked against the table only when unknown is negative.
func decodeEnum(data []byte, names map[string]int32, unknown int32) (int32, error) {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		if v, ok := names[name]; ok {
			return v, nil
		}
		if n, err := strconv.ParseInt(name, 10, 32); err == nil {
			return checkOrdinal(int32(n), names, unknown), nil
		}
		return unknown, nil
	}

	var n int32
	if err := json.Unmarshal(data, &n); err != nil {
		return 0, fmt.Errorf("invalid enum value %s", string(data))
	}
	return checkOrdinal(n, names, unknown), nil
}

func checkOrdinal(n int32, names map[string]int32, unknown int32) int32 {
	if unknown >= 0 {
		return n
	}
	for _, v := range names {
		if v == n {
			return n
		}
	}
	return unknown
}
