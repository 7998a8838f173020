package adapters

import (
	"bitfrost-bridge/internal/interfaces"
	"bitfrost-bridge/internal/models"
	"bitfrost-bridge/internal/validation"
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Context is what an adapter sees of the client when building.
type Context struct {
	Registry *models.RegistrySnapshot
	Network  models.Network
	Logger   *zerolog.Logger
	Timeouts models.Timeouts
}

// Adapter builds an unsigned transaction for transfers leaving chains of one
// kind.
type Adapter interface {
	Kind() models.ChainKind
	CanHandle(fromChainID string, actx *Context) bool
	Build(ctx context.Context, req models.TransferRequest, actx *Context) (*models.BuiltTx, error)
}

// Sender is implemented by adapters that can also hand a built transaction to
// a signer for broadcast.
type Sender interface {
	Send(ctx context.Context, built *models.BuiltTx, signer interfaces.Signer) (string, error)
}

// chainKinds is indexed by ChainType ordinal.
var chainKinds = []models.ChainKind{
	models.KindCosmos,
	models.KindUTXO,
	models.KindPayment,
	models.KindTON,
	models.KindSolana,
	models.KindEVM,
}

// KindForChainType maps a chain type ordinal to its adapter kind. Ordinals
// outside the known range map to cosmos with ok false.
func KindForChainType(t models.ChainType) (models.ChainKind, bool) {
	if t < 0 || int(t) >= len(chainKinds) {
		return chainKinds[0], false
	}
	return chainKinds[t], true
}

// Registry holds at most one adapter per chain kind.
type Registry struct {
	adapters map[models.ChainKind]Adapter
}

func NewRegistry(list ...Adapter) *Registry {
	r := &Registry{adapters: make(map[models.ChainKind]Adapter)}
	for _, a := range list {
		r.Register(a)
	}
	return r
}

// Register adds a, replacing any adapter already registered for its kind.
func (r *Registry) Register(a Adapter) {
	if a == nil {
		return
	}
	r.adapters[a.Kind()] = a
}

func (r *Registry) Lookup(kind models.ChainKind) (Adapter, bool) {
	a, ok := r.adapters[kind]
	return a, ok
}

// Kinds lists the registered kinds in chain type order.
func (r *Registry) Kinds() []models.ChainKind {
	var kinds []models.ChainKind
	for _, k := range chainKinds {
		if _, ok := r.adapters[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// ChainKindOf resolves the adapter kind of a chain in snap. It reports false
// when the chain is absent or its type is not a known ordinal.
func ChainKindOf(snap *models.RegistrySnapshot, chainID string) (models.ChainKind, bool) {
	if snap == nil {
		return "", false
	}
	chain, ok := snap.Chain(chainID)
	if !ok {
		return "", false
	}
	return KindForChainType(chain.Type)
}

// CheckReceiver validates req.ToAddress against the format of the destination
// chain's kind. Destinations missing from the registry are not checked here.
func CheckReceiver(req models.TransferRequest, actx *Context) error {
	kind, ok := ChainKindOf(actx.Registry, req.ToChainID)
	if !ok {
		return nil
	}
	if err := validation.ValidateAddress(req.ToAddress, kind); err != nil {
		return fmt.Errorf("receiver %q on %s: %w", req.ToAddress, req.ToChainID, err)
	}
	return nil
}

// ResolveAsset accepts either a full "<sourceChain>-<denom>" key or a bare
// denom native to the source chain.
func ResolveAsset(req models.TransferRequest, snap *models.RegistrySnapshot) (models.AssetID, error) {
	if snap != nil {
		if asset, ok := snap.LookupAsset(req.AssetID, req.FromChainID); ok {
			return asset.ID, nil
		}
	}
	if id, ok := models.ParseAssetID(req.AssetID); ok {
		return id, nil
	}
	if req.AssetID == "" {
		return models.AssetID{}, errors.New("asset id is empty")
	}
	return models.AssetID{SourceChain: req.FromChainID, Denom: req.AssetID}, nil
}
