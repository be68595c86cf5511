package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/nspcc-dev/passkey-registry/internal/config"
)

// remoteBlockchain wraps Neo RPC client and the actor signing transactions
// with the configured wallet account.
type remoteBlockchain struct {
	rpc     *rpcclient.Client
	actor   *actor.Actor
	account *wallet.Account
}

// newRemoteBlockchain dials Neo RPC server and returns remoteBlockchain based
// on the opened connection.
func newRemoteBlockchain(ctx context.Context, cfg config.RPC) (*remoteBlockchain, error) {
	acc, err := openAccount(cfg)
	if err != nil {
		return nil, err
	}

	c, err := rpcclient.New(ctx, cfg.Endpoint, rpcclient.Options{
		DialTimeout:    cfg.DialTimeout,
		RequestTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("RPC client dial: %w", err)
	}

	act, err := actor.NewSimple(c, acc)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init actor: %w", err)
	}

	return &remoteBlockchain{
		rpc:     c,
		actor:   act,
		account: acc,
	}, nil
}

func (x *remoteBlockchain) close() {
	x.rpc.Close()
}

// openAccount reads the wallet and decrypts the configured account (default
// one if address is not set).
func openAccount(cfg config.RPC) (*wallet.Account, error) {
	w, err := wallet.NewWalletFromFile(cfg.Wallet)
	if err != nil {
		return nil, fmt.Errorf("read wallet: %w", err)
	}

	var h util.Uint160

	if cfg.Address != "" {
		h, err = address.StringToUint160(cfg.Address)
		if err != nil {
			return nil, fmt.Errorf("decode account address: %w", err)
		}
	} else {
		h = w.GetChangeAddress()
	}

	acc := w.GetAccount(h)
	if acc == nil {
		return nil, fmt.Errorf("account %s not found in the wallet", address.Uint160ToString(h))
	}

	if err = acc.Decrypt(cfg.Password, w.Scrypt); err != nil {
		return nil, fmt.Errorf("decrypt account %s: %w", acc.Address, err)
	}

	return acc, nil
}

// iterateContractStorage iterates over all storage items of the Neo smart
// contract referenced by given address at the penult block and passes them
// into f. Breaks on any f's error and returns it.
func (x *remoteBlockchain) iterateContractStorage(contract util.Uint160, f func(key, value []byte) error) error {
	nLatestBlock, err := x.actor.GetBlockCount()
	if err != nil {
		return fmt.Errorf("get number of the latest block: %w", err)
	}

	if nLatestBlock < 2 {
		return errors.New("no blocks with state root")
	}

	stateRoot, err := x.rpc.GetStateRootByHeight(nLatestBlock - 1)
	if err != nil {
		return fmt.Errorf("get state root at penult block #%d: %w", nLatestBlock-1, err)
	}

	var start []byte

	for {
		res, err := x.rpc.FindStates(stateRoot.Root, contract, nil, start, nil)
		if err != nil {
			return fmt.Errorf("get historical storage items at state root '%s': %w", stateRoot.Root, err)
		}

		for i := range res.Results {
			if err = f(res.Results[i].Key, res.Results[i].Value); err != nil {
				return err
			}
		}

		if !res.Truncated || len(res.Results) == 0 {
			return nil
		}

		start = res.Results[len(res.Results)-1].Key
	}
}
