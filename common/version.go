package common

import "github.com/nspcc-dev/neo-go/pkg/interop/native/std"

// Version of the contract encoded as major*1_000_000 + minor*1_000 + patch.
// Must match the VERSION file.
const Version = 0*1_000_000 + 1*1_000 + 0

// PrevVersion is the oldest version the contract can be updated from. Equals
// Version while there are no storage migrations.
const PrevVersion = Version

// Panic messages of the update data checks.
const (
	ErrNoVersion       = "no contract version in update data"
	ErrVersionMismatch = "previous version mismatch"
	ErrAlreadyUpdated  = "contract is already of the latest version"
)

// WithVersion makes data for the native Management update call: items of the
// given data list followed by the version of the running contract.
func WithVersion(data any) []any {
	if data == nil {
		return []any{Version}
	}
	return append(data.([]any), Version)
}

// VersionFromData returns the version of the contract being replaced from the
// data made by WithVersion.
func VersionFromData(data any) int {
	if data == nil {
		panic(ErrNoVersion)
	}

	args := data.([]any)
	if len(args) == 0 {
		panic(ErrNoVersion)
	}

	return args[len(args)-1].(int)
}

// CheckUpdateData is called by the new contract code on update. It panics if
// the replaced contract is too old or already has the current version.
func CheckUpdateData(data any) {
	from := VersionFromData(data)
	if from == Version {
		panic(ErrAlreadyUpdated)
	}
	if from < PrevVersion {
		panic(ErrVersionMismatch + ": expected >=" + std.Itoa(PrevVersion, 10))
	}
}
