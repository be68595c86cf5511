package passkey

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/crypto"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/ledger"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
	"github.com/nspcc-dev/passkey-registry/common"
	"github.com/nspcc-dev/passkey-registry/contracts/passkey/passkeyconst"
)

const walletLen = interop.Hash160Len

// nolint:deadcode,unused
func _deploy(data any, isUpdate bool) {
	if isUpdate {
		common.CheckUpdateData(data)
		return
	}

	if data != nil {
		args := data.([]any)
		if len(args) > 0 && !args[0].(bool) {
			runtime.Log("passkey registry deployed, initialization deferred")
			return
		}
	}

	initialize(storage.GetContext())
}

// Update method updates contract source code and manifest. It can be invoked
// only by committee.
func Update(script []byte, manifest []byte, data any) {
	common.CheckUpdateAccess()

	contract.Call(interop.Hash160(management.Hash), "update",
		contract.All, script, manifest, common.WithVersion(data))
	runtime.Log("passkey registry updated")
}

// Initialize marks the registry as ready for use. Only the first call
// succeeds.
func Initialize() {
	initialize(storage.GetContext())
}

// IsInitialized checks whether the registry has been initialized.
func IsInitialized() bool {
	return isInitialized(storage.GetReadOnlyContext())
}

// RegisterWallet binds 65-byte uncompressed P-256 public key to the wallet
// address. The binding is permanent.
func RegisterWallet(pk []byte, wallet interop.Hash160) {
	ctx := storage.GetContext()

	checkInitialized(ctx)
	checkPasskey(pk)

	if len(wallet) != walletLen {
		panic(passkeyconst.ErrInvalidWallet)
	}

	key := passkeyKey(pk)
	if storage.Get(ctx, key) != nil {
		panic(passkeyconst.ErrPasskeyAlreadyRegistered)
	}

	storage.Put(ctx, key, wallet)
	runtime.Notify(passkeyconst.WalletRegisteredEvent, pk, wallet)

	extendLease(ctx)
}

// GetWalletByPK returns wallet address bound to the passkey.
func GetWalletByPK(pk []byte) interop.Hash160 {
	ctx := storage.GetReadOnlyContext()

	checkInitialized(ctx)
	checkPasskey(pk)

	wallet := storage.Get(ctx, passkeyKey(pk))
	if wallet == nil {
		panic(passkeyconst.ErrPasskeyNotRegistered)
	}

	return wallet.(interop.Hash160)
}

// ExtendLease records the registry lease expiration height. Does not require
// initialization.
func ExtendLease() {
	extendLease(storage.GetContext())
}

// LeaseExpiration returns block height until which the registry lease is
// extended. Zero means the lease has never been extended.
func LeaseExpiration() int {
	until := storage.Get(storage.GetReadOnlyContext(), passkeyconst.LeaseKey)
	if until == nil {
		return 0
	}

	return until.(int)
}

// Version returns the version of the contract.
func Version() int {
	return common.Version
}

func initialize(ctx storage.Context) {
	if isInitialized(ctx) {
		panic(passkeyconst.ErrAlreadyInited)
	}

	storage.Put(ctx, passkeyconst.InitializedKey, true)
	extendLease(ctx)

	runtime.Log("passkey registry initialized")
}

func isInitialized(ctx storage.Context) bool {
	return storage.Get(ctx, passkeyconst.InitializedKey) != nil
}

func checkInitialized(ctx storage.Context) {
	if !isInitialized(ctx) {
		panic(passkeyconst.ErrNotInited)
	}
}

func checkPasskey(pk []byte) {
	if len(pk) != passkeyconst.PasskeyLen {
		panic(passkeyconst.ErrInvalidPasskey)
	}
}

func extendLease(ctx storage.Context) {
	until := ledger.CurrentIndex() + passkeyconst.MaxLease

	storage.Put(ctx, passkeyconst.LeaseKey, until)
	runtime.Notify(passkeyconst.LeaseExtendedEvent, until)
}

// passkeyKey returns storage key of the passkey record. Passkeys exceed the
// storage key limit, so they are hashed.
func passkeyKey(pk []byte) []byte {
	return append([]byte{passkeyconst.PasskeyPrefix}, crypto.Sha256(pk)...)
}
