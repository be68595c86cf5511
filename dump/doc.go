/*
Package dump provides I/O operations for snapshots of the passkey registry
ledger.

A snapshot persists the state of the contract (its leases) along with all
storage items, so the registry can be moved between storage backends or
restored at another place. Snapshots are stored in the file system using
human-readable encoding.
*/
package dump
