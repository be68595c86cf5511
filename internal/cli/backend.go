package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/passkey-registry/internal/config"
	"github.com/nspcc-dev/passkey-registry/ledger"
	rpcpasskey "github.com/nspcc-dev/passkey-registry/rpc/passkey"
	"github.com/nspcc-dev/passkey-registry/registry"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Registry groups registry operations available both locally and remotely.
// [registry.Registry] and [rpcpasskey.Registry] implement it.
type Registry interface {
	Initialize(ctx context.Context) error
	IsInitialized(ctx context.Context) (bool, error)
	RegisterWallet(ctx context.Context, pk registry.Passkey, wallet util.Uint160) error
	GetWalletByPK(ctx context.Context, pk registry.Passkey) (util.Uint160, error)
	ExtendLease(ctx context.Context) error
}

// backend is the registry opened according to the configuration. Exactly one
// of ledger and chain is set. contract is set if chain is set and contract
// address is configured.
type backend struct {
	Registry

	ledger *ledger.Ledger

	chain    *remoteBlockchain
	contract *rpcpasskey.Registry

	// Registry of the backend metrics.
	metrics *prometheus.Registry
}

// openBackend opens local ledger or connects to the remote contract depending
// on cfg.
func openBackend(ctx context.Context, cfg *config.Config, l *zap.Logger) (*backend, error) {
	b := &backend{metrics: prometheus.NewRegistry()}

	if !cfg.Remote() {
		led, err := ledger.Open(cfg.Storage.DBConfig(), cfg.Ledger.Config(),
			ledger.WithLogger(l), ledger.WithMetrics(b.metrics))
		if err != nil {
			return nil, fmt.Errorf("open ledger: %w", err)
		}

		b.ledger = led
		b.Registry = registry.New(led, registry.WithLogger(l))

		return b, nil
	}

	chain, err := newRemoteBlockchain(ctx, cfg.RPC)
	if err != nil {
		return nil, fmt.Errorf("init remote blockchain: %w", err)
	}

	b.chain = chain

	if cfg.RPC.Contract == "" {
		// contract may be not deployed yet
		b.Registry = noContract{}
		return b, nil
	}

	addr, err := cfg.RPC.ContractAddress()
	if err != nil {
		chain.close()
		return nil, err
	}

	b.contract = rpcpasskey.NewRegistry(chain.actor, addr, l)
	b.Registry = b.contract

	return b, nil
}

func (b *backend) close() {
	if b.ledger != nil {
		_ = b.ledger.Close()
	}

	if b.chain != nil {
		b.chain.close()
	}
}

var errNoContract = errors.New("rpc.contract is not configured")

// noContract is the Registry of the remote backend without contract address.
type noContract struct{}

func (noContract) Initialize(context.Context) error { return errNoContract }

func (noContract) IsInitialized(context.Context) (bool, error) { return false, errNoContract }

func (noContract) RegisterWallet(context.Context, registry.Passkey, util.Uint160) error {
	return errNoContract
}

func (noContract) GetWalletByPK(context.Context, registry.Passkey) (util.Uint160, error) {
	return util.Uint160{}, errNoContract
}

func (noContract) ExtendLease(context.Context) error { return errNoContract }
