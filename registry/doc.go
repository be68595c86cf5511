/*
Package registry implements the passkey registry: durable one-time binding of
an authenticator public key (passkey) to the address of a wallet deployed
independently of the registry.

Registry is not bound to any particular storage. All operations are executed by
the Host which provides atomic serialized invocations over the leased key-value
storage (see ledger package for the implementation). Every successful mutation
extends the leases of the registry data so that the host doesn't archive it.

# Storage model

Instance scope:
  - "inited" -> bool
    Initialization flag. Set once by Initialize and never removed.

Persistent scope:
  - "pk_map" -> map
    Passkey-to-wallet map: var-uint number of records followed by the records
    sorted by passkey, each record is 65-byte passkey and 20-byte wallet script
    hash. Created empty by Initialize, only grows.

# Errors

Operations fail with one of the Error values: ErrNotInited, ErrAlreadyInited,
ErrPasskeyAlreadyRegistered, ErrPasskeyNotRegistered. ErrInvalidCaller is
reserved. Any other error comes from the Host. Failed invocation never leaves
partial changes.
*/
package registry
