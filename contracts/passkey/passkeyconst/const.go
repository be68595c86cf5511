// Package passkeyconst holds constants shared by the Passkey registry contract
// and the off-chain code working with it.
package passkeyconst

const (
	// PasskeyLen is the length of SEC1 uncompressed P-256 public key.
	PasskeyLen = 65

	// InitializedKey is a storage key of the initialization flag.
	InitializedKey = "inited"
	// PasskeyMapKey is a storage key of the passkey-to-wallet map.
	PasskeyMapKey = "pk_map"
	// LeaseKey is a storage key of the lease expiration height.
	LeaseKey = "lease"
	// PasskeyPrefix prefixes on-chain passkey records.
	PasskeyPrefix = 'p'

	// MaxLease is the number of blocks the lease is extended for. With 15s
	// blocks it is about one year.
	MaxLease = 2_102_400
)

// Event names.
const (
	WalletRegisteredEvent = "WalletRegistered"
	LeaseExtendedEvent    = "LeaseExtended"
)

// Failure messages. Contract panics with them, off-chain registry uses them as
// error texts, so they can be matched in both directions.
const (
	ErrNotInited                = "registry is not initialized"
	ErrAlreadyInited            = "registry is already initialized"
	ErrPasskeyAlreadyRegistered = "passkey is already registered"
	ErrPasskeyNotRegistered     = "passkey is not registered"
	ErrInvalidCaller            = "invalid caller"
	ErrInvalidPasskey           = "invalid passkey"
	ErrInvalidWallet            = "invalid wallet address"
)
