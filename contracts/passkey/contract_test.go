package passkey_test

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go/pkg/neotest"
	"github.com/nspcc-dev/neo-go/pkg/neotest/chain"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/passkey-registry/common"
	"github.com/nspcc-dev/passkey-registry/contracts/passkey/passkeyconst"
	"github.com/stretchr/testify/require"
)

const contractPath = "."

func newPasskeyInvoker(t *testing.T, deployArgs any) (*neotest.Executor, *neotest.ContractInvoker) {
	bc, acc := chain.NewSingle(t)
	e := neotest.NewExecutor(t, bc, acc, acc)

	c := neotest.CompileFile(t, e.CommitteeHash, contractPath, contractPath+"/config.yml")
	e.DeployContract(t, c, deployArgs)

	return e, e.CommitteeInvoker(c.Hash)
}

func randomPasskey(t *testing.T) []byte {
	p, err := keys.NewPrivateKey()
	require.NoError(t, err)
	return p.PublicKey().UncompressedBytes()
}

func randomWallet(t *testing.T) util.Uint160 {
	p, err := keys.NewPrivateKey()
	require.NoError(t, err)
	return p.GetScriptHash()
}

// leaseExtendedUntil returns the height from the last LeaseExtended
// notification of the transaction.
func leaseExtendedUntil(t *testing.T, e *neotest.Executor, h util.Uint256) int64 {
	res := e.GetTxExecResult(t, h)

	for i := len(res.Events) - 1; i >= 0; i-- {
		if res.Events[i].Name != passkeyconst.LeaseExtendedEvent {
			continue
		}

		arr := res.Events[i].Item.Value().([]stackitem.Item)
		require.Len(t, arr, 1)

		until, err := arr[0].TryInteger()
		require.NoError(t, err)

		return until.Int64()
	}

	t.Fatal("no lease extension event")
	return 0
}

func TestPasskey_Deploy(t *testing.T) {
	t.Run("initialized", func(t *testing.T) {
		_, c := newPasskeyInvoker(t, nil)

		c.Invoke(t, stackitem.NewBool(true), "isInitialized")
		c.InvokeFail(t, passkeyconst.ErrAlreadyInited, "initialize")
		c.Invoke(t, stackitem.NewBigInteger(big.NewInt(common.Version)), "version")
	})

	t.Run("deferred", func(t *testing.T) {
		e, c := newPasskeyInvoker(t, []any{false})

		c.Invoke(t, stackitem.NewBool(false), "isInitialized")
		c.Invoke(t, stackitem.Make(0), "leaseExpiration")

		pk := randomPasskey(t)
		c.InvokeFail(t, passkeyconst.ErrNotInited, "registerWallet", pk, randomWallet(t))
		c.InvokeFail(t, passkeyconst.ErrNotInited, "getWalletByPK", pk)

		// anyone can initialize
		anyone := c.WithSigners(e.NewAccount(t))
		h := anyone.Invoke(t, stackitem.Null{}, "initialize")
		until := leaseExtendedUntil(t, e, h)

		c.Invoke(t, stackitem.NewBool(true), "isInitialized")
		c.Invoke(t, stackitem.Make(until), "leaseExpiration")
		anyone.InvokeFail(t, passkeyconst.ErrAlreadyInited, "initialize")
	})
}

func TestPasskey_RegisterWallet(t *testing.T) {
	e, c := newPasskeyInvoker(t, nil)
	user := c.WithSigners(e.NewAccount(t))

	pk, wallet := randomPasskey(t), randomWallet(t)

	h := user.Invoke(t, stackitem.Null{}, "registerWallet", pk, wallet)
	e.CheckTxNotificationEvent(t, h, 0, stateNotification(c.Hash, passkeyconst.WalletRegisteredEvent,
		stackitem.NewByteArray(pk), stackitem.NewByteArray(wallet.BytesBE())))

	user.Invoke(t, stackitem.NewByteArray(wallet.BytesBE()), "getWalletByPK", pk)

	t.Run("twice", func(t *testing.T) {
		user.InvokeFail(t, passkeyconst.ErrPasskeyAlreadyRegistered, "registerWallet", pk, randomWallet(t))
		user.InvokeFail(t, passkeyconst.ErrPasskeyAlreadyRegistered, "registerWallet", pk, wallet)
		user.Invoke(t, stackitem.NewByteArray(wallet.BytesBE()), "getWalletByPK", pk)
	})

	t.Run("unknown", func(t *testing.T) {
		user.InvokeFail(t, passkeyconst.ErrPasskeyNotRegistered, "getWalletByPK", randomPasskey(t))
	})

	t.Run("invalid arguments", func(t *testing.T) {
		user.InvokeFail(t, passkeyconst.ErrInvalidPasskey, "registerWallet", pk[:33], randomWallet(t))
		user.InvokeFail(t, passkeyconst.ErrInvalidPasskey, "getWalletByPK", append(pk, 0))
		user.InvokeFail(t, passkeyconst.ErrInvalidWallet, "registerWallet", randomPasskey(t), []byte{1, 2, 3})
	})

	t.Run("many", func(t *testing.T) {
		bindings := make(map[string]util.Uint160)
		for range 5 {
			pk, w := randomPasskey(t), randomWallet(t)
			user.Invoke(t, stackitem.Null{}, "registerWallet", pk, w)
			bindings[string(pk)] = w
		}

		for pk, w := range bindings {
			user.Invoke(t, stackitem.NewByteArray(w.BytesBE()), "getWalletByPK", []byte(pk))
		}
	})
}

func TestPasskey_ExtendLease(t *testing.T) {
	e, c := newPasskeyInvoker(t, []any{false})
	user := c.WithSigners(e.NewAccount(t))

	// not gated by initialization
	h := user.Invoke(t, stackitem.Null{}, "extendLease")
	first := leaseExtendedUntil(t, e, h)
	require.Positive(t, first)
	c.Invoke(t, stackitem.Make(first), "leaseExpiration")

	c.Invoke(t, stackitem.NewBool(false), "isInitialized")

	c.Invoke(t, stackitem.Null{}, "initialize")
	pk, wallet := randomPasskey(t), randomWallet(t)
	user.Invoke(t, stackitem.Null{}, "registerWallet", pk, wallet)

	h = user.Invoke(t, stackitem.Null{}, "extendLease")
	second := leaseExtendedUntil(t, e, h)
	require.Greater(t, second, first)
	require.LessOrEqual(t, second, int64(e.Chain.BlockHeight())+passkeyconst.MaxLease)

	c.Invoke(t, stackitem.Make(second), "leaseExpiration")
	user.Invoke(t, stackitem.NewByteArray(wallet.BytesBE()), "getWalletByPK", pk)
}

func TestPasskey_Update(t *testing.T) {
	bc, acc := chain.NewSingle(t)
	e := neotest.NewExecutor(t, bc, acc, acc)

	ctr := neotest.CompileFile(t, e.CommitteeHash, contractPath, contractPath+"/config.yml")
	e.DeployContract(t, ctr, nil)

	c := e.CommitteeInvoker(ctr.Hash)

	bNEF, err := ctr.NEF.Bytes()
	require.NoError(t, err)

	jManifest, err := json.Marshal(ctr.Manifest)
	require.NoError(t, err)

	c.WithSigners(e.NewAccount(t)).InvokeFail(t, common.ErrUpdateAccessDenied, "update", bNEF, jManifest, nil)

	pk, wallet := randomPasskey(t), randomWallet(t)
	c.Invoke(t, stackitem.Null{}, "registerWallet", pk, wallet)

	c.InvokeFail(t, common.ErrAlreadyUpdated, "update", bNEF, jManifest, nil)

	c.Invoke(t, stackitem.NewByteArray(wallet.BytesBE()), "getWalletByPK", pk)
	c.Invoke(t, common.Version, "version")
}
