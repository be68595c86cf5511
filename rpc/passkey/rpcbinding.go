// Package passkey contains RPC wrappers for the passkey registry contract.
package passkey

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// WalletRegisteredEvent represents "WalletRegistered" event emitted by the contract.
type WalletRegisteredEvent struct {
	Passkey []byte
	Wallet  util.Uint160
}

// LeaseExtendedEvent represents "LeaseExtended" event emitted by the contract.
type LeaseExtendedEvent struct {
	Until *big.Int
}

// Invoker is used by ContractReader to call various safe methods.
type Invoker interface {
	Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error)
}

// Actor is used by Contract to call state-changing methods.
type Actor interface {
	Invoker

	MakeCall(contract util.Uint160, method string, params ...any) (*transaction.Transaction, error)
	MakeRun(script []byte) (*transaction.Transaction, error)
	MakeUnsignedCall(contract util.Uint160, method string, attrs []transaction.Attribute, params ...any) (*transaction.Transaction, error)
	MakeUnsignedRun(script []byte, attrs []transaction.Attribute) (*transaction.Transaction, error)
	SendCall(contract util.Uint160, method string, params ...any) (util.Uint256, uint32, error)
	SendRun(script []byte) (util.Uint256, uint32, error)
}

// ContractReader implements safe contract methods.
type ContractReader struct {
	invoker Invoker
	hash    util.Uint160
}

// Contract implements all contract methods.
type Contract struct {
	ContractReader
	actor Actor
	hash  util.Uint160
}

// NewReader creates an instance of ContractReader using provided contract hash and the given Invoker.
func NewReader(invoker Invoker, hash util.Uint160) *ContractReader {
	return &ContractReader{invoker, hash}
}

// New creates an instance of Contract using provided contract hash and the given Actor.
func New(actor Actor, hash util.Uint160) *Contract {
	return &Contract{ContractReader{actor, hash}, actor, hash}
}

// IsInitialized invokes `isInitialized` method of contract.
func (c *ContractReader) IsInitialized() (bool, error) {
	return unwrap.Bool(c.invoker.Call(c.hash, "isInitialized"))
}

// GetWalletByPK invokes `getWalletByPK` method of contract.
func (c *ContractReader) GetWalletByPK(pk []byte) (util.Uint160, error) {
	return unwrap.Uint160(c.invoker.Call(c.hash, "getWalletByPK", pk))
}

// LeaseExpiration invokes `leaseExpiration` method of contract.
func (c *ContractReader) LeaseExpiration() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "leaseExpiration"))
}

// Version invokes `version` method of contract.
func (c *ContractReader) Version() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "version"))
}

// ExtendLease creates a transaction invoking `extendLease` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) ExtendLease() (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "extendLease")
}

// ExtendLeaseTransaction creates a transaction invoking `extendLease` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) ExtendLeaseTransaction() (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "extendLease")
}

// ExtendLeaseUnsigned creates a transaction invoking `extendLease` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) ExtendLeaseUnsigned() (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "extendLease", nil)
}

// Initialize creates a transaction invoking `initialize` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Initialize() (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "initialize")
}

// InitializeTransaction creates a transaction invoking `initialize` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) InitializeTransaction() (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "initialize")
}

// InitializeUnsigned creates a transaction invoking `initialize` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) InitializeUnsigned() (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "initialize", nil)
}

// RegisterWallet creates a transaction invoking `registerWallet` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) RegisterWallet(pk []byte, wallet util.Uint160) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "registerWallet", pk, wallet)
}

// RegisterWalletTransaction creates a transaction invoking `registerWallet` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) RegisterWalletTransaction(pk []byte, wallet util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "registerWallet", pk, wallet)
}

// RegisterWalletUnsigned creates a transaction invoking `registerWallet` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) RegisterWalletUnsigned(pk []byte, wallet util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "registerWallet", nil, pk, wallet)
}

// Update creates a transaction invoking `update` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Update(script []byte, manifest []byte, data any) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "update", script, manifest, data)
}

// UpdateTransaction creates a transaction invoking `update` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) UpdateTransaction(script []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "update", script, manifest, data)
}

// UpdateUnsigned creates a transaction invoking `update` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) UpdateUnsigned(script []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "update", nil, script, manifest, data)
}

// WalletRegisteredEventsFromApplicationLog retrieves a set of all emitted events
// with "WalletRegistered" name from the provided [result.ApplicationLog].
func WalletRegisteredEventsFromApplicationLog(log *result.ApplicationLog) ([]*WalletRegisteredEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*WalletRegisteredEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "WalletRegistered" {
				continue
			}
			event := new(WalletRegisteredEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize WalletRegisteredEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to WalletRegisteredEvent or
// returns an error if it's not possible to do to so.
func (e *WalletRegisteredEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 2 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err   error
	)
	index++
	e.Passkey, err = arr[index].TryBytes()
	if err != nil {
		return fmt.Errorf("field Passkey: %w", err)
	}

	index++
	e.Wallet, err = func(item stackitem.Item) (util.Uint160, error) {
		b, err := item.TryBytes()
		if err != nil {
			return util.Uint160{}, err
		}
		u, err := util.Uint160DecodeBytesBE(b)
		if err != nil {
			return util.Uint160{}, err
		}
		return u, nil
	}(arr[index])
	if err != nil {
		return fmt.Errorf("field Wallet: %w", err)
	}

	return nil
}

// LeaseExtendedEventsFromApplicationLog retrieves a set of all emitted events
// with "LeaseExtended" name from the provided [result.ApplicationLog].
func LeaseExtendedEventsFromApplicationLog(log *result.ApplicationLog) ([]*LeaseExtendedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*LeaseExtendedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "LeaseExtended" {
				continue
			}
			event := new(LeaseExtendedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize LeaseExtendedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to LeaseExtendedEvent or
// returns an error if it's not possible to do to so.
func (e *LeaseExtendedEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 1 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err   error
	)
	index++
	e.Until, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field Until: %w", err)
	}

	return nil
}
