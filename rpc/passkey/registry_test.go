package passkey

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/passkey-registry/contracts/passkey/passkeyconst"
	"github.com/nspcc-dev/passkey-registry/registry"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testAct struct {
	res *result.Invoke
	err error

	sendErr error
	sent    []string
	params  [][]any

	aer     *state.AppExecResult
	waitErr error
}

func (x *testAct) Call(_ util.Uint160, _ string, _ ...any) (*result.Invoke, error) {
	return x.res, x.err
}

func (x *testAct) MakeCall(util.Uint160, string, ...any) (*transaction.Transaction, error) {
	return nil, errors.New("not implemented")
}

func (x *testAct) MakeRun([]byte) (*transaction.Transaction, error) {
	return nil, errors.New("not implemented")
}

func (x *testAct) MakeUnsignedCall(util.Uint160, string, []transaction.Attribute, ...any) (*transaction.Transaction, error) {
	return nil, errors.New("not implemented")
}

func (x *testAct) MakeUnsignedRun([]byte, []transaction.Attribute) (*transaction.Transaction, error) {
	return nil, errors.New("not implemented")
}

func (x *testAct) SendCall(_ util.Uint160, method string, params ...any) (util.Uint256, uint32, error) {
	x.sent = append(x.sent, method)
	x.params = append(x.params, params)
	return util.Uint256{1}, 100, x.sendErr
}

func (x *testAct) SendRun([]byte) (util.Uint256, uint32, error) {
	return util.Uint256{}, 0, errors.New("not implemented")
}

func (x *testAct) WaitAny(_ context.Context, _ uint32, hashes ...util.Uint256) (*state.AppExecResult, error) {
	if x.waitErr != nil {
		return nil, x.waitErr
	}

	res := *x.aer
	res.Container = hashes[0]

	return &res, nil
}

func halt() *state.AppExecResult {
	return &state.AppExecResult{Execution: state.Execution{VMState: vmstate.Halt}}
}

func fault(msg string) *state.AppExecResult {
	return &state.AppExecResult{Execution: state.Execution{VMState: vmstate.Fault, FaultException: msg}}
}

func newTestRegistry(t *testing.T) (*Registry, *testAct) {
	act := new(testAct)
	return NewRegistry(act, util.Uint160{1, 2, 3}, zaptest.NewLogger(t)), act
}

func TestRegistry_Send(t *testing.T) {
	ctx := context.Background()
	r, act := newTestRegistry(t)

	var pk registry.Passkey
	pk[0] = 0x04
	wallet := util.Uint160{4, 5, 6}

	act.aer = halt()
	require.NoError(t, r.Initialize(ctx))
	require.NoError(t, r.RegisterWallet(ctx, pk, wallet))
	require.NoError(t, r.ExtendLease(ctx))

	require.Equal(t, []string{"initialize", "registerWallet", "extendLease"}, act.sent)
	require.Equal(t, []any{pk[:], wallet}, act.params[1])

	t.Run("fault", func(t *testing.T) {
		act.aer = fault("at instruction 123 (THROW): unhandled exception: \"" + passkeyconst.ErrPasskeyAlreadyRegistered + "\"")

		err := r.RegisterWallet(ctx, pk, wallet)
		require.ErrorIs(t, err, registry.ErrPasskeyAlreadyRegistered)

		code, ok := registry.CodeOf(err)
		require.True(t, ok)
		require.Equal(t, registry.CodePasskeyAlreadyRegistered, code)

		act.aer = fault("gas limit exceeded")
		err = r.ExtendLease(ctx)
		require.Error(t, err)
		_, ok = registry.CodeOf(err)
		require.False(t, ok)
	})

	t.Run("test invocation fault", func(t *testing.T) {
		act.sendErr = errors.New("script failed (FAULT state) due to an error: " + passkeyconst.ErrAlreadyInited)
		t.Cleanup(func() { act.sendErr = nil })

		require.ErrorIs(t, r.Initialize(ctx), registry.ErrAlreadyInited)
	})

	t.Run("wait failure", func(t *testing.T) {
		act.waitErr = context.DeadlineExceeded
		t.Cleanup(func() { act.waitErr = nil })

		require.ErrorIs(t, r.ExtendLease(ctx), context.DeadlineExceeded)
	})
}

func TestRegistry_Read(t *testing.T) {
	ctx := context.Background()
	r, act := newTestRegistry(t)

	var pk registry.Passkey
	wallet := util.Uint160{7, 8, 9}

	act.res = &result.Invoke{State: "HALT", Stack: []stackitem.Item{stackitem.NewBool(true)}}
	ok, err := r.IsInitialized(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	act.res = &result.Invoke{State: "HALT", Stack: []stackitem.Item{stackitem.NewByteArray(wallet.BytesBE())}}
	res, err := r.GetWalletByPK(ctx, pk)
	require.NoError(t, err)
	require.Equal(t, wallet, res)

	act.res = &result.Invoke{State: "HALT", Stack: []stackitem.Item{stackitem.Make(42)}}
	lease, err := r.LeaseExpiration(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 42, lease)

	act.res = &result.Invoke{State: "HALT", Stack: []stackitem.Item{stackitem.NewBigInteger(big.NewInt(-1))}}
	_, err = r.LeaseExpiration(ctx)
	require.Error(t, err)

	for _, e := range []*registry.Error{registry.ErrNotInited, registry.ErrPasskeyNotRegistered} {
		act.res = &result.Invoke{State: "FAULT", FaultException: "unhandled exception: \"" + e.Error() + "\""}
		_, err = r.GetWalletByPK(ctx, pk)
		require.ErrorIs(t, err, e)
	}

	act.res, act.err = nil, errors.New("connection lost")
	_, err = r.IsInitialized(ctx)
	require.ErrorIs(t, err, act.err)
}

func TestEventsFromApplicationLog(t *testing.T) {
	pk := make([]byte, passkeyconst.PasskeyLen)
	wallet := util.Uint160{1}

	log := &result.ApplicationLog{
		Executions: []state.Execution{{
			VMState: vmstate.Halt,
			Events: []state.NotificationEvent{
				{Name: passkeyconst.WalletRegisteredEvent, Item: stackitem.NewArray([]stackitem.Item{
					stackitem.NewByteArray(pk), stackitem.NewByteArray(wallet.BytesBE()),
				})},
				{Name: passkeyconst.LeaseExtendedEvent, Item: stackitem.NewArray([]stackitem.Item{
					stackitem.Make(100),
				})},
			},
		}},
	}

	registered, err := WalletRegisteredEventsFromApplicationLog(log)
	require.NoError(t, err)
	require.Equal(t, []*WalletRegisteredEvent{{Passkey: pk, Wallet: wallet}}, registered)

	extended, err := LeaseExtendedEventsFromApplicationLog(log)
	require.NoError(t, err)
	require.Len(t, extended, 1)
	require.EqualValues(t, 100, extended[0].Until.Int64())

	_, err = WalletRegisteredEventsFromApplicationLog(nil)
	require.Error(t, err)

	log.Executions[0].Events[0].Item = stackitem.NewArray([]stackitem.Item{stackitem.NewByteArray(pk)})
	_, err = WalletRegisteredEventsFromApplicationLog(log)
	require.Error(t, err)
}
