/*
Package passkey contains the passkey registry contract which binds WebAuthn
passkeys (uncompressed P-256 public keys) to the addresses of independently
deployed wallet contracts.

The contract must be initialized before registrations and lookups. It's done
on deployment unless the first deployment argument is false, in which case
anyone can do it later via initialize method. Bindings can't be changed or
removed.

# Contract notifications

WalletRegistered notification. This notification is produced when a new
passkey is bound to the wallet.

	WalletRegistered:
	  - name: passkey
	    type: ByteArray
	  - name: wallet
	    type: Hash160

LeaseExtended notification. This notification is produced on every change of
the lease expiration height.

	LeaseExtended:
	  - name: until
	    type: Integer

# Contract storage scheme

	| Key                        | Value                  |
	|----------------------------|------------------------|
	| 'inited'                   | initialization flag    |
	| 'lease'                    | lease expiration block |
	| 'p' + SHA256(passkey)      | 20-byte wallet address |
*/
package passkey
