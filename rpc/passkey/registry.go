package passkey

import (
	"context"
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/passkey-registry/registry"
	"go.uber.org/zap"
)

// RegistryActor is an Actor which can also wait for the sent transactions.
// [actor.Actor] implements it.
type RegistryActor interface {
	Actor

	WaitAny(ctx context.Context, vub uint32, hashes ...util.Uint256) (*state.AppExecResult, error)
}

// Registry provides the same operations as [registry.Registry] on top of the
// deployed contract. Contract failures are returned as registry errors, so
// they can be checked with errors.Is.
type Registry struct {
	log      *zap.Logger
	actor    RegistryActor
	contract *Contract
}

// NewRegistry returns Registry working with the contract deployed at the
// given address.
func NewRegistry(a RegistryActor, addr util.Uint160, l *zap.Logger) *Registry {
	if l == nil {
		l = zap.NewNop()
	}

	return &Registry{
		log:      l.With(zap.Stringer("contract", addr)),
		actor:    a,
		contract: New(a, addr),
	}
}

// Initialize calls `initialize` method and waits for the transaction.
func (r *Registry) Initialize(ctx context.Context) error {
	return r.send(ctx, "initialize", r.contract.Initialize)
}

// IsInitialized calls `isInitialized` method.
func (r *Registry) IsInitialized(context.Context) (bool, error) {
	res, err := r.contract.IsInitialized()
	return res, mapError(err)
}

// RegisterWallet calls `registerWallet` method and waits for the transaction.
func (r *Registry) RegisterWallet(ctx context.Context, pk registry.Passkey, wallet util.Uint160) error {
	return r.send(ctx, "registerWallet", func() (util.Uint256, uint32, error) {
		return r.contract.RegisterWallet(pk[:], wallet)
	})
}

// GetWalletByPK calls `getWalletByPK` method.
func (r *Registry) GetWalletByPK(_ context.Context, pk registry.Passkey) (util.Uint160, error) {
	res, err := r.contract.GetWalletByPK(pk[:])
	return res, mapError(err)
}

// ExtendLease calls `extendLease` method and waits for the transaction.
func (r *Registry) ExtendLease(ctx context.Context) error {
	return r.send(ctx, "extendLease", r.contract.ExtendLease)
}

// LeaseExpiration returns block height until which the contract lease is
// extended.
func (r *Registry) LeaseExpiration(context.Context) (uint64, error) {
	res, err := r.contract.LeaseExpiration()
	if err != nil {
		return 0, mapError(err)
	}

	if !res.IsUint64() {
		return 0, fmt.Errorf("invalid lease expiration %s", res)
	}

	return res.Uint64(), nil
}

func (r *Registry) send(ctx context.Context, method string, f func() (util.Uint256, uint32, error)) error {
	txHash, vub, err := f()
	if err != nil {
		return fmt.Errorf("send '%s' transaction: %w", method, mapError(err))
	}

	r.log.Debug("transaction sent, waiting...", zap.String("method", method), zap.Stringer("tx", txHash))

	res, err := r.actor.WaitAny(ctx, vub, txHash)
	if err != nil {
		return fmt.Errorf("wait for '%s' transaction %s: %w", method, txHash, err)
	}

	if res.VMState != vmstate.Halt {
		return fmt.Errorf("'%s' transaction %s: %w", method, txHash, mapError(errors.New(res.FaultException)))
	}

	r.log.Debug("transaction accepted", zap.String("method", method), zap.Stringer("tx", txHash))

	return nil
}

// mapError wraps err into the registry error which message it contains.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if e, ok := registry.ErrorByMessage(err.Error()); ok {
		return fmt.Errorf("%w: %w", e, err)
	}

	return err
}
