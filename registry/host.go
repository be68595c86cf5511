package registry

import (
	"context"
	"errors"
)

// ErrEntryNotFound is returned by Store when requested entry is missing.
var ErrEntryNotFound = errors.New("entry not found")

// Host executes registry operations. Each call of Invoke is a single atomic
// unit of work: either all changes made through the Context are committed, or
// f returns an error and none of them are. Host also serializes invocations,
// so f never observes intermediate state of another call.
type Host interface {
	Invoke(ctx context.Context, f func(Context) error) error
}

// Context is a view of the durable storage available to a single invocation.
// It is valid only until f returns.
type Context interface {
	// Instance returns small configuration-like storage which entries share
	// a single lease with the contract instance.
	Instance() Store

	// Persistent returns bulk data storage with per-entry leases.
	Persistent() Store

	// MaxLease returns maximum lease duration allowed by the host.
	MaxLease() uint32

	// ExtendInstanceLease extends the lease of the contract instance (and so
	// all instance entries) to extendTo if the remaining lease is less than
	// threshold.
	ExtendInstanceLease(threshold, extendTo uint32) error

	// ExtendCodeLease is the same as ExtendInstanceLease but for the
	// deployed code of the contract.
	ExtendCodeLease(threshold, extendTo uint32) error
}

// Store is a key-value storage scope.
type Store interface {
	// Has checks whether entry exists.
	Has(key string) (bool, error)

	// Get returns entry value or ErrEntryNotFound.
	Get(key string) ([]byte, error)

	// Put creates or overwrites the entry.
	Put(key string, value []byte) error

	// ExtendLease extends the lease of existing entry, see
	// Context.ExtendInstanceLease for arguments.
	ExtendLease(key string, threshold, extendTo uint32) error
}
