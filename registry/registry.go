package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/passkey-registry/contracts/passkey/passkeyconst"
	"go.uber.org/zap"
)

// Registry binds passkeys to the addresses of independently deployed wallets.
// All operations are executed by the Host one invocation per call.
//
// Registry must be constructed using New.
type Registry struct {
	host Host
	log  *zap.Logger
}

// Option configures Registry.
type Option func(*Registry)

// WithLogger sets logger of the Registry. Nop logger is used by default.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		r.log = l
	}
}

// New returns Registry operating through the given Host.
func New(h Host, opts ...Option) *Registry {
	r := &Registry{
		host: h,
		log:  zap.NewNop(),
	}

	for _, o := range opts {
		o(r)
	}

	return r
}

// Initialize marks registry as ready for use and creates empty passkey map.
// Only the first call ever succeeds, subsequent ones return ErrAlreadyInited.
func (r *Registry) Initialize(ctx context.Context) error {
	err := r.host.Invoke(ctx, func(c Context) error {
		inited, err := c.Instance().Has(passkeyconst.InitializedKey)
		if err != nil {
			return fmt.Errorf("check initialization flag: %w", err)
		}
		if inited {
			return ErrAlreadyInited
		}

		err = c.Instance().Put(passkeyconst.InitializedKey, initializedFlag())
		if err != nil {
			return fmt.Errorf("set initialization flag: %w", err)
		}

		err = putWalletMap(c, make(walletMap))
		if err != nil {
			return err
		}

		return extendLease(c)
	})
	if err != nil {
		return err
	}

	r.log.Info("passkey registry initialized")

	return nil
}

// IsInitialized checks whether Initialize has been successfully called.
func (r *Registry) IsInitialized(ctx context.Context) (bool, error) {
	var res bool

	err := r.host.Invoke(ctx, func(c Context) error {
		var err error
		res, err = c.Instance().Has(passkeyconst.InitializedKey)
		return err
	})

	return res, err
}

// RegisterWallet binds the passkey to the wallet address. The binding is
// permanent: repeated registration of the same passkey returns
// ErrPasskeyAlreadyRegistered regardless of the address. The address is not
// verified in any way.
func (r *Registry) RegisterWallet(ctx context.Context, pk Passkey, wallet util.Uint160) error {
	err := r.host.Invoke(ctx, func(c Context) error {
		m, err := getWalletMap(c)
		if err != nil {
			return err
		}

		if _, ok := m[pk]; ok {
			return ErrPasskeyAlreadyRegistered
		}

		m[pk] = wallet

		err = putWalletMap(c, m)
		if err != nil {
			return err
		}

		return extendLease(c)
	})
	if err != nil {
		return err
	}

	r.log.Debug("wallet registered",
		zap.Stringer("passkey", pk), zap.Stringer("wallet", wallet))

	return nil
}

// GetWalletByPK returns wallet address bound to the passkey. Returns
// ErrPasskeyNotRegistered if there is no such binding.
func (r *Registry) GetWalletByPK(ctx context.Context, pk Passkey) (util.Uint160, error) {
	var res util.Uint160

	err := r.host.Invoke(ctx, func(c Context) error {
		m, err := getWalletMap(c)
		if err != nil {
			return err
		}

		wallet, ok := m[pk]
		if !ok {
			return ErrPasskeyNotRegistered
		}

		res = wallet

		return nil
	})

	return res, err
}

// ExtendLease extends leases of the registry data and code to the maximum
// allowed by the host. It does not require initialization and does not change
// business data, so it can be safely called by the external scheduler at any
// time.
func (r *Registry) ExtendLease(ctx context.Context) error {
	err := r.host.Invoke(ctx, extendLease)
	if err != nil {
		return err
	}

	r.log.Debug("registry lease extended")

	return nil
}

func extendLease(c Context) error {
	maxLease := c.MaxLease()

	err := c.ExtendInstanceLease(maxLease, maxLease)
	if err != nil {
		return fmt.Errorf("extend instance lease: %w", err)
	}

	err = c.ExtendCodeLease(maxLease, maxLease)
	if err != nil {
		return fmt.Errorf("extend code lease: %w", err)
	}

	ok, err := c.Persistent().Has(passkeyconst.PasskeyMapKey)
	if err != nil {
		return fmt.Errorf("check passkey map: %w", err)
	}
	if !ok {
		return nil
	}

	err = c.Persistent().ExtendLease(passkeyconst.PasskeyMapKey, maxLease, maxLease)
	if err != nil {
		return fmt.Errorf("extend passkey map lease: %w", err)
	}

	return nil
}

// getWalletMap checks initialization gate and reads passkey map.
func getWalletMap(c Context) (walletMap, error) {
	inited, err := c.Instance().Has(passkeyconst.InitializedKey)
	if err != nil {
		return nil, fmt.Errorf("check initialization flag: %w", err)
	}
	if !inited {
		return nil, ErrNotInited
	}

	data, err := c.Persistent().Get(passkeyconst.PasskeyMapKey)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			// map is created along with the flag
			return nil, ErrNotInited
		}
		return nil, fmt.Errorf("read passkey map: %w", err)
	}

	m, err := decodeWalletMap(data)
	if err != nil {
		return nil, fmt.Errorf("decode passkey map: %w", err)
	}

	return m, nil
}

func putWalletMap(c Context, m walletMap) error {
	data, err := encodeWalletMap(m)
	if err != nil {
		return fmt.Errorf("encode passkey map: %w", err)
	}

	err = c.Persistent().Put(passkeyconst.PasskeyMapKey, data)
	if err != nil {
		return fmt.Errorf("write passkey map: %w", err)
	}

	return nil
}
