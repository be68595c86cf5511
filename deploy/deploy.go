package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/management"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"go.uber.org/zap"
)

// Blockchain groups services provided by particular Neo blockchain network
// that are required for the registry deployment.
type Blockchain interface {
	// RPCActor groups functions needed to compose and send transactions.
	actor.RPCActor

	// GetContractStateByHash returns network state of the smart contract by
	// its address. GetContractStateByHash returns error with 'Unknown contract'
	// substring if requested contract is missing.
	GetContractStateByHash(util.Uint160) (*state.Contract, error)
}

// CommonDeployPrm groups common deployment parameters of the smart contract.
type CommonDeployPrm struct {
	NEF      nef.File
	Manifest manifest.Manifest
}

// Prm groups all parameters of the registry deployment procedure.
type Prm struct {
	// Writes progress into the log. Optional, nothing is logged if nil.
	Logger *zap.Logger

	// Particular Neo blockchain instance to deploy the registry to.
	Blockchain Blockchain

	// Local process account used for transaction signing (must be unlocked).
	// Contract address depends on it.
	LocalAccount *wallet.Account

	Contract CommonDeployPrm

	// Address of the already deployed contract. Contract address is fixed on
	// the first deployment and does not change on updates, so it must be set
	// to update the contract. If zero, ContractAddress of the local account is
	// used.
	Address util.Uint160

	// Skip initialization on deployment, so it must be done later via
	// separate 'initialize' call.
	DeferInitialization bool
}

// ContractAddress returns the address the contract gets being deployed by
// the sender.
func ContractAddress(sender util.Uint160, c CommonDeployPrm) util.Uint160 {
	return state.CreateContractHash(sender, c.NEF.Checksum, c.Manifest.Name)
}

// Deploy synchronizes the registry contract with the Neo network represented
// by given Prm.Blockchain and returns its address:
//   - missing contract is deployed;
//   - contract with another NEF is updated (local account must be the
//     committee multisig account then);
//   - contract with the same NEF is left untouched.
//
// Deploy waits for the transaction to be accepted and fails if it is not
// HALTed.
func Deploy(ctx context.Context, prm Prm) (util.Uint160, error) {
	addr := prm.Address
	if addr.Equals(util.Uint160{}) {
		addr = ContractAddress(prm.LocalAccount.ScriptHash(), prm.Contract)
	}

	l := prm.Logger
	if l == nil {
		l = zap.NewNop()
	}

	l = l.With(zap.Stringer("address", addr))

	onChain, err := prm.Blockchain.GetContractStateByHash(addr)
	missing := err != nil && isErrContractNotFound(err)
	if err != nil && !missing {
		return addr, fmt.Errorf("get state of the contract %s: %w", addr, err)
	}

	if !missing && onChain.NEF.Checksum == prm.Contract.NEF.Checksum {
		l.Info("contract is already deployed and up to date")
		return addr, nil
	}

	act, err := actor.NewSimple(prm.Blockchain, prm.LocalAccount)
	if err != nil {
		return addr, fmt.Errorf("init transaction sender from local account: %w", err)
	}

	var (
		txHash util.Uint256
		vub    uint32
	)

	if missing {
		l.Info("contract is missing on the chain, deploying...", zap.Bool("deferred initialization", prm.DeferInitialization))

		txHash, vub, err = management.New(act).Deploy(&prm.Contract.NEF, &prm.Contract.Manifest, deployData(prm.DeferInitialization))
		if err != nil {
			return addr, fmt.Errorf("send contract deployment transaction: %w", err)
		}
	} else {
		l.Info("contract NEF differs from the local one, updating...",
			zap.Uint32("on-chain checksum", onChain.NEF.Checksum), zap.Uint32("local checksum", prm.Contract.NEF.Checksum))

		txHash, vub, err = sendUpdate(act, addr, prm.Contract)
		if err != nil {
			return addr, fmt.Errorf("send contract update transaction: %w", err)
		}
	}

	l.Debug("transaction sent, waiting...", zap.Stringer("tx", txHash), zap.Uint32("vub", vub))

	res, err := act.WaitAny(ctx, vub, txHash)
	if err != nil {
		return addr, fmt.Errorf("wait for transaction %s: %w", txHash, err)
	}

	if res.VMState != vmstate.Halt {
		return addr, fmt.Errorf("transaction %s failed with %s: %s", txHash, res.VMState, res.FaultException)
	}

	l.Info("contract successfully synchronized", zap.Stringer("tx", txHash))

	return addr, nil
}

func sendUpdate(act *actor.Actor, addr util.Uint160, c CommonDeployPrm) (util.Uint256, uint32, error) {
	bNEF, err := c.NEF.Bytes()
	if err != nil {
		return util.Uint256{}, 0, fmt.Errorf("encode NEF: %w", err)
	}

	jManifest, err := json.Marshal(c.Manifest)
	if err != nil {
		return util.Uint256{}, 0, fmt.Errorf("encode manifest: %w", err)
	}

	return act.SendCall(addr, "update", bNEF, jManifest, nil)
}

// deployData returns data argument of the contract _deploy method.
func deployData(deferInit bool) any {
	if deferInit {
		return []any{false}
	}
	return nil
}

func isErrContractNotFound(err error) bool {
	return strings.Contains(err.Error(), "Unknown contract")
}
