/*
Package ledger provides registry.Host backed by the neo-go key-value storage
(in-memory, BoltDB or LevelDB).

Ledger emulates the execution environment of the contract: invocations are
atomic and serialized, storage is split into instance and persistent scopes,
and every entry is subject to a lease counted in ledger sequence numbers.
Entries which leases have expired are archived and can't be accessed anymore.

# Storage layout

  - 0x01 || key -> value
    Instance entries. Live as long as the contract instance does.
  - 0x02 || key -> value
    Persistent entries.
  - 0x03 || key -> uint32 (big-endian)
    Sequence number until which the persistent entry is live.
  - 0x04 || 's' -> uint32
    Current sequence number.
  - 0x04 || 'i' -> uint32, 0x04 || 'c' -> uint32
    Sequence number until which the contract instance and code are live.
*/
package ledger
