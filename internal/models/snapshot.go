package models

import "maps"

// RegistrySnapshot is an immutable view of the bridge configuration. A
// refresh builds a new snapshot; an existing one is never edited.
type RegistrySnapshot struct {
	chains       map[string]Chain
	assets       map[string]Asset
	bridgeStatus BridgeStatus
}

// NewRegistrySnapshot indexes params into a snapshot. Chains without an id and
// assets without a source chain or denom are dropped. Missing bridge status is
// treated as blocked.
func NewRegistrySnapshot(params *BridgeParams) *RegistrySnapshot {
	snap := &RegistrySnapshot{
		chains:       make(map[string]Chain),
		assets:       make(map[string]Asset),
		bridgeStatus: BridgeStatusBlocked,
	}
	if params == nil {
		return snap
	}

	for _, asset := range params.Assets {
		if asset.ID.SourceChain == "" || asset.ID.Denom == "" {
			continue
		}
		snap.assets[asset.ID.Key()] = asset
	}
	for _, chain := range params.Chains {
		if chain.ID == "" {
			continue
		}
		snap.chains[chain.ID] = chain
	}
	if params.BridgeStatus != nil {
		snap.bridgeStatus = *params.BridgeStatus
	}

	return snap
}

func (s *RegistrySnapshot) BridgeStatus() BridgeStatus {
	return s.bridgeStatus
}

func (s *RegistrySnapshot) Chain(id string) (Chain, bool) {
	c, ok := s.chains[id]
	return c, ok
}

func (s *RegistrySnapshot) Asset(key string) (Asset, bool) {
	a, ok := s.assets[key]
	return a, ok
}

// Chains returns a copy of the chain index.
func (s *RegistrySnapshot) Chains() map[string]Chain {
	return maps.Clone(s.chains)
}

// Assets returns a copy of the asset index.
func (s *RegistrySnapshot) Assets() map[string]Asset {
	return maps.Clone(s.assets)
}

// LookupAsset finds an asset by its full key, falling back to a denom native
// to fromChainID.
func (s *RegistrySnapshot) LookupAsset(assetID, fromChainID string) (Asset, bool) {
	if a, ok := s.assets[assetID]; ok {
		return a, true
	}
	a, ok := s.assets[fromChainID+"-"+assetID]
	return a, ok
}
