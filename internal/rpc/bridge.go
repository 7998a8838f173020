package rpc

import (
	"bitfrost-bridge/internal/interfaces"
	"bitfrost-bridge/internal/models"
	"context"
	"errors"
	"fmt"
	"net/url"
)

const (
	bridgeParamsPath  = "/int3face/bridge/v1beta1/params"
	canTransferPath   = "/int3face/bridge/v1beta1/can_transfer"
	outboundPath      = "/int3face/bridge/v1beta1/outbound_transfer/"
	inboundPath       = "/int3face/bridge/v1beta1/inbound_transfer/"
	feeEstimationPath = "/int3face/fees/v1beta1/fee_estimation"
	txByHashPath      = "/cosmos/tx/v1beta1/txs/"
)

var _ interfaces.NetworkService = (*BridgeService)(nil)

// BridgeService implements NetworkService against the bridge chain's REST
// gateway.
type BridgeService struct {
	client *Client
}

func NewBridgeService(client *Client) *BridgeService {
	return &BridgeService{client: client}
}

type paramsResponse struct {
	Params *models.BridgeParams `json:"params"`
}

func (s *BridgeService) BridgeParams(ctx context.Context) (*models.BridgeParams, error) {
	var resp paramsResponse
	if err := s.client.Get(ctx, bridgeParamsPath, nil, &resp); err != nil {
		return nil, fmt.Errorf("get bridge params: %w", err)
	}
	if resp.Params == nil {
		return &models.BridgeParams{}, nil
	}
	return resp.Params, nil
}

func (s *BridgeService) CanTransfer(ctx context.Context, query models.CanTransferQuery) (*models.CanTransferResult, error) {
	q := url.Values{}
	q.Set("src_chain_id", query.SrcChainID)
	q.Set("dest_chain_id", query.DestChainID)
	q.Set("asset_id", query.AssetID)
	q.Set("amount", query.Amount)

	var resp models.CanTransferResult
	if err := s.client.Get(ctx, canTransferPath, q, &resp); err != nil {
		return nil, fmt.Errorf("can transfer: %w", err)
	}
	return &resp, nil
}

type feeEstimationResponse struct {
	FeeRate string `json:"fee_rate"`
}

func (s *BridgeService) EstimateFee(ctx context.Context, srcChainID, dstChainID string, asset models.AssetID) (string, error) {
	q := url.Values{}
	q.Set("src_chain_id", srcChainID)
	q.Set("dst_chain_id", dstChainID)
	q.Set("asset_id.source_chain", asset.SourceChain)
	q.Set("asset_id.denom", asset.Denom)

	var resp feeEstimationResponse
	if err := s.client.Get(ctx, feeEstimationPath, q, &resp); err != nil {
		return "", fmt.Errorf("estimate fee: %w", err)
	}
	return resp.FeeRate, nil
}

type txResponse struct {
	TxResponse *models.TxResult `json:"tx_response"`
}

func (s *BridgeService) GetTx(ctx context.Context, txHash string) (*models.TxResult, error) {
	var resp txResponse
	err := s.client.Get(ctx, txByHashPath+url.PathEscape(txHash), nil, &resp)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tx %s: %w", txHash, err)
	}
	return resp.TxResponse, nil
}

type outboundResponse struct {
	OutboundTransfer *models.OutboundTransfer `json:"outbound_transfer"`
}

func (s *BridgeService) OutboundTransfer(ctx context.Context, id string) (*models.OutboundTransfer, error) {
	var resp outboundResponse
	err := s.client.Get(ctx, outboundPath+url.PathEscape(id), nil, &resp)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get outbound transfer %s: %w", id, err)
	}
	return resp.OutboundTransfer, nil
}

type inboundResponse struct {
	InboundTransfer *models.InboundTransfer `json:"inbound_transfer"`
}

func (s *BridgeService) InboundTransfer(ctx context.Context, id string) (*models.InboundTransfer, error) {
	var resp inboundResponse
	err := s.client.Get(ctx, inboundPath+url.PathEscape(id), nil, &resp)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get inbound transfer %s: %w", id, err)
	}
	return resp.InboundTransfer, nil
}
