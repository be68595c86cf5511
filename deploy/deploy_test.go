package deploy

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/config/netmode"
	"github.com/nspcc-dev/neo-go/pkg/core/interop/interopnames"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/management"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/trigger"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// testBlockchain implements Blockchain. Sent transactions are accepted
// immediately with the configured VM state. Methods not needed by the actor
// are not implemented, so any call panics.
type testBlockchain struct {
	actor.RPCActor

	contracts map[util.Uint160]*state.Contract
	err       error

	// resulting state of the sent transactions, HALT if zero
	vmState vmstate.State
	fault   string

	mtx  sync.Mutex
	sent []*transaction.Transaction
}

func (x *testBlockchain) GetVersion() (*result.Version, error) {
	res := new(result.Version)
	res.Protocol.Network = netmode.UnitTestNet
	res.Protocol.MillisecondsPerBlock = 20
	res.Protocol.ValidatorsCount = 1
	res.Protocol.MaxValidUntilBlockIncrement = 100
	return res, nil
}

func (x *testBlockchain) GetBlockCount() (uint32, error) {
	return 100, nil
}

func (x *testBlockchain) InvokeScript([]byte, []transaction.Signer) (*result.Invoke, error) {
	return &result.Invoke{State: vmstate.Halt.String(), GasConsumed: 1_000_000}, nil
}

func (x *testBlockchain) CalculateNetworkFee(*transaction.Transaction) (int64, error) {
	return 100_000, nil
}

func (x *testBlockchain) SendRawTransaction(tx *transaction.Transaction) (util.Uint256, error) {
	x.mtx.Lock()
	x.sent = append(x.sent, tx)
	x.mtx.Unlock()
	return tx.Hash(), nil
}

func (x *testBlockchain) Context() context.Context {
	return context.Background()
}

func (x *testBlockchain) GetApplicationLog(h util.Uint256, _ *trigger.Type) (*result.ApplicationLog, error) {
	x.mtx.Lock()
	defer x.mtx.Unlock()

	for i := range x.sent {
		if !x.sent[i].Hash().Equals(h) {
			continue
		}

		st := x.vmState
		if st == 0 {
			st = vmstate.Halt
		}

		return &result.ApplicationLog{
			Container:     h,
			IsTransaction: true,
			Executions: []state.Execution{{
				Trigger:        trigger.Application,
				VMState:        st,
				FaultException: x.fault,
			}},
		}, nil
	}

	return nil, errors.New("unknown transaction")
}

func (x *testBlockchain) sentTransactions() []*transaction.Transaction {
	x.mtx.Lock()
	defer x.mtx.Unlock()
	return x.sent
}

// contractCall is a contract method call made by the transaction script.
type contractCall struct {
	contract util.Uint160
	method   string
	args     []stackitem.Item
}

// scriptCalls runs the script and collects System.Contract.Call invocations.
func scriptCalls(t *testing.T, script []byte) []contractCall {
	var res []contractCall

	callID := interopnames.ToID([]byte(interopnames.SystemContractCall))

	v := vm.New()
	v.SyscallHandler = func(v *vm.VM, id uint32) error {
		require.Equal(t, callID, id)

		addr, err := util.Uint160DecodeBytesBE(v.Estack().Pop().Bytes())
		require.NoError(t, err)

		method := v.Estack().Pop().String()
		_ = v.Estack().Pop() // call flags
		args := v.Estack().Pop().Array()

		res = append(res, contractCall{contract: addr, method: method, args: args})

		return nil
	}
	v.LoadScript(script)

	require.NoError(t, v.Run())

	return res
}

func (x *testBlockchain) GetContractStateByHash(addr util.Uint160) (*state.Contract, error) {
	if x.err != nil {
		return nil, x.err
	}

	c, ok := x.contracts[addr]
	if !ok {
		return nil, errors.New("Unknown contract")
	}

	return c, nil
}

func testContract(t *testing.T) CommonDeployPrm {
	ne, err := nef.NewFile([]byte{0x40}) // RET
	require.NoError(t, err)

	return CommonDeployPrm{
		NEF:      *ne,
		Manifest: *manifest.NewManifest("Passkey registry"),
	}
}

func TestContractAddress(t *testing.T) {
	c := testContract(t)

	acc, err := wallet.NewAccount()
	require.NoError(t, err)

	addr := ContractAddress(acc.ScriptHash(), c)
	require.Equal(t, state.CreateContractHash(acc.ScriptHash(), c.NEF.Checksum, "Passkey registry"), addr)

	other, err := wallet.NewAccount()
	require.NoError(t, err)
	require.NotEqual(t, addr, ContractAddress(other.ScriptHash(), c))
}

func TestDeploy(t *testing.T) {
	c := testContract(t)

	acc, err := wallet.NewAccount()
	require.NoError(t, err)

	addr := ContractAddress(acc.ScriptHash(), c)

	t.Run("up to date", func(t *testing.T) {
		bc := &testBlockchain{contracts: map[util.Uint160]*state.Contract{
			addr: {ContractBase: state.ContractBase{Hash: addr, NEF: c.NEF, Manifest: c.Manifest}},
		}}

		res, err := Deploy(context.Background(), Prm{
			Logger:       zaptest.NewLogger(t),
			Blockchain:   bc,
			LocalAccount: acc,
			Contract:     c,
		})
		require.NoError(t, err)
		require.Equal(t, addr, res)
	})

	t.Run("known address", func(t *testing.T) {
		known := util.Uint160{1, 2, 3}
		bc := &testBlockchain{contracts: map[util.Uint160]*state.Contract{
			known: {ContractBase: state.ContractBase{Hash: known, NEF: c.NEF, Manifest: c.Manifest}},
		}}

		res, err := Deploy(context.Background(), Prm{
			Logger:       zaptest.NewLogger(t),
			Blockchain:   bc,
			LocalAccount: acc,
			Contract:     c,
			Address:      known,
		})
		require.NoError(t, err)
		require.Equal(t, known, res)
	})

	t.Run("nil logger", func(t *testing.T) {
		bc := &testBlockchain{contracts: map[util.Uint160]*state.Contract{
			addr: {ContractBase: state.ContractBase{Hash: addr, NEF: c.NEF, Manifest: c.Manifest}},
		}}

		res, err := Deploy(context.Background(), Prm{
			Blockchain:   bc,
			LocalAccount: acc,
			Contract:     c,
		})
		require.NoError(t, err)
		require.Equal(t, addr, res)
	})

	t.Run("state failure", func(t *testing.T) {
		errState := errors.New("connection refused")

		_, err := Deploy(context.Background(), Prm{
			Logger:       zaptest.NewLogger(t),
			Blockchain:   &testBlockchain{err: errState},
			LocalAccount: acc,
			Contract:     c,
		})
		require.ErrorIs(t, err, errState)
	})
}

func TestDeploy_Send(t *testing.T) {
	c := testContract(t)

	acc, err := wallet.NewAccount()
	require.NoError(t, err)

	addr := ContractAddress(acc.ScriptHash(), c)

	bNEF, err := c.NEF.Bytes()
	require.NoError(t, err)

	for _, tc := range []struct {
		name     string
		deferred bool
	}{
		{name: "deploy", deferred: false},
		{name: "deferred deploy", deferred: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			bc := &testBlockchain{}

			res, err := Deploy(context.Background(), Prm{
				Logger:              zaptest.NewLogger(t),
				Blockchain:          bc,
				LocalAccount:        acc,
				Contract:            c,
				DeferInitialization: tc.deferred,
			})
			require.NoError(t, err)
			require.Equal(t, addr, res)

			txs := bc.sentTransactions()
			require.Len(t, txs, 1)

			calls := scriptCalls(t, txs[0].Script)
			require.Len(t, calls, 1)
			require.Equal(t, management.Hash, calls[0].contract)
			require.Equal(t, "deploy", calls[0].method)
			require.GreaterOrEqual(t, len(calls[0].args), 2)
			require.Equal(t, bNEF, calls[0].args[0].Value())

			if tc.deferred {
				require.Len(t, calls[0].args, 3)
				require.Equal(t, []stackitem.Item{stackitem.NewBool(false)}, calls[0].args[2].Value())
			} else if len(calls[0].args) > 2 {
				require.Equal(t, stackitem.Null{}, calls[0].args[2])
			}
		})
	}

	t.Run("update", func(t *testing.T) {
		old, err := nef.NewFile([]byte{0x11, 0x40}) // PUSH1, RET
		require.NoError(t, err)
		require.NotEqual(t, old.Checksum, c.NEF.Checksum)

		known := util.Uint160{1, 2, 3}
		bc := &testBlockchain{contracts: map[util.Uint160]*state.Contract{
			known: {ContractBase: state.ContractBase{Hash: known, NEF: *old, Manifest: c.Manifest}},
		}}

		res, err := Deploy(context.Background(), Prm{
			Logger:       zaptest.NewLogger(t),
			Blockchain:   bc,
			LocalAccount: acc,
			Contract:     c,
			Address:      known,
		})
		require.NoError(t, err)
		require.Equal(t, known, res)

		txs := bc.sentTransactions()
		require.Len(t, txs, 1)

		calls := scriptCalls(t, txs[0].Script)
		require.Len(t, calls, 1)
		require.Equal(t, known, calls[0].contract)
		require.Equal(t, "update", calls[0].method)
		require.Len(t, calls[0].args, 3)
		require.Equal(t, bNEF, calls[0].args[0].Value())
		require.Equal(t, stackitem.Null{}, calls[0].args[2])
	})

	t.Run("fault", func(t *testing.T) {
		bc := &testBlockchain{vmState: vmstate.Fault, fault: "at instruction 0 (ABORT)"}

		_, err := Deploy(context.Background(), Prm{
			Logger:       zaptest.NewLogger(t),
			Blockchain:   bc,
			LocalAccount: acc,
			Contract:     c,
		})
		require.ErrorContains(t, err, "FAULT")
		require.ErrorContains(t, err, "ABORT")
		require.Len(t, bc.sentTransactions(), 1)
	})
}

func TestDeployData(t *testing.T) {
	require.Nil(t, deployData(false))
	require.Equal(t, []any{false}, deployData(true))

	require.True(t, isErrContractNotFound(errors.New("Unknown contract: 0x01")))
	require.False(t, isErrContractNotFound(errors.New("timeout")))
}
