package common

import (
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/neo"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
)

// ErrUpdateAccessDenied is thrown on update attempt not witnessed by the
// committee.
const ErrUpdateAccessDenied = "only committee can update contract"

// CommitteeAddress returns multi address of the committee with N/2+1 threshold.
func CommitteeAddress() []byte {
	committee := neo.GetCommittee()
	return contract.CreateMultisigAccount(len(committee)/2+1, committee)
}

// HasUpdateAccess returns true if contract can be updated.
func HasUpdateAccess() bool {
	return runtime.CheckWitness(CommitteeAddress())
}

// CheckUpdateAccess panics with ErrUpdateAccessDenied if contract can't be
// updated.
func CheckUpdateAccess() {
	if !HasUpdateAccess() {
		panic(ErrUpdateAccessDenied)
	}
}
