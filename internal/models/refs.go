package models

// TransferRef identifies what a tracking loop polls. The set of variants is
// closed: NativeTxRef, OutboundRef, InboundRef and ExternalRef.
type TransferRef interface {
	RefKind() string
	isTransferRef()
}

// NativeTxRef is a transaction hash on the bridge chain itself.
type NativeTxRef struct {
	TxHash string `json:"tx_hash"`
}

// OutboundRef is a bridge outbound-transfer identifier.
type OutboundRef struct {
	OutboundID string `json:"outbound_id"`
}

// InboundRef is a bridge inbound-transfer identifier.
type InboundRef struct {
	InboundID string `json:"inbound_id"`
}

// ExternalRef is a transaction on a foreign chain. It is not polled here.
type ExternalRef struct {
	ChainID string `json:"chain_id"`
	TxID    string `json:"tx_id"`
}

func (NativeTxRef) RefKind() string { return "native-tx" }
func (OutboundRef) RefKind() string { return "bridge-outbound" }
func (InboundRef) RefKind() string  { return "bridge-inbound" }
func (ExternalRef) RefKind() string { return "external" }

func (NativeTxRef) isTransferRef() {}
func (OutboundRef) isTransferRef() {}
func (InboundRef) isTransferRef()  {}
func (ExternalRef) isTransferRef() {}
