package ledger

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/passkey-registry/registry"
)

// invocation is a registry.Context of the single Ledger.Invoke call.
type invocation struct {
	l   *Ledger
	tx  *storage.MemCachedStore
	seq uint32

	instance, persistent scope

	// scopes with extended leases, reported to metrics on commit
	extended []string
}

func newInvocation(l *Ledger) *invocation {
	inv := &invocation{
		l:   l,
		tx:  storage.NewMemCachedStore(l.store),
		seq: l.seq,
	}

	inv.instance = scope{inv: inv, prefix: prefixInstance}
	inv.persistent = scope{inv: inv, prefix: prefixPersistent, leased: true}

	return inv
}

// checkContract checks that contract instance and code are live.
func (x *invocation) checkContract() error {
	for _, k := range []struct {
		name string
		key  []byte
	}{
		{name: scopeInstance, key: instanceLeaseKey},
		{name: scopeCode, key: codeLeaseKey},
	} {
		until, err := getUint32(x.tx, k.key)
		if err != nil {
			return fmt.Errorf("read contract %s lease: %w", k.name, err)
		}

		if until < x.seq {
			return fmt.Errorf("contract %s: %w (live until %d, current %d)", k.name, ErrArchived, until, x.seq)
		}
	}

	return nil
}

func (x *invocation) Instance() registry.Store {
	return &x.instance
}

func (x *invocation) Persistent() registry.Store {
	return &x.persistent
}

func (x *invocation) MaxLease() uint32 {
	return x.l.cfg.MaxLease
}

func (x *invocation) ExtendInstanceLease(threshold, extendTo uint32) error {
	return x.extend(instanceLeaseKey, scopeInstance, threshold, extendTo)
}

func (x *invocation) ExtendCodeLease(threshold, extendTo uint32) error {
	return x.extend(codeLeaseKey, scopeCode, threshold, extendTo)
}

// extend sets lease stored by key to extendTo sequences from now if less than
// threshold sequences are left.
func (x *invocation) extend(key []byte, scopeName string, threshold, extendTo uint32) error {
	if extendTo > x.l.cfg.MaxLease {
		return fmt.Errorf("%w: %d > %d", ErrLeaseTooLong, extendTo, x.l.cfg.MaxLease)
	}

	if threshold > extendTo {
		return fmt.Errorf("threshold %d exceeds extension %d", threshold, extendTo)
	}

	until, err := getUint32(x.tx, key)
	if err != nil {
		return fmt.Errorf("read lease: %w", err)
	}

	if until < x.seq {
		return ErrArchived
	}

	if until-x.seq >= threshold {
		return nil
	}

	x.tx.Put(key, encodeUint32(liveUntil(x.seq, extendTo)))
	x.extended = append(x.extended, scopeName)

	return nil
}

// scope implements registry.Store. Instance entries are not leased
// individually, they live as long as the instance does.
type scope struct {
	inv    *invocation
	prefix byte
	leased bool
}

// checkLive returns whether the entry exists. Returns ErrArchived if the entry
// has expired.
func (s *scope) checkLive(key string) (bool, error) {
	if !s.leased {
		_, err := s.inv.tx.Get(entryKey(s.prefix, key))
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		return err == nil, err
	}

	until, err := getUint32(s.inv.tx, leaseKey(key))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read lease of %q: %w", key, err)
	}

	if until < s.inv.seq {
		return false, fmt.Errorf("%q: %w (live until %d, current %d)", key, ErrArchived, until, s.inv.seq)
	}

	return true, nil
}

func (s *scope) Has(key string) (bool, error) {
	return s.checkLive(key)
}

func (s *scope) Get(key string) ([]byte, error) {
	ok, err := s.checkLive(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, registry.ErrEntryNotFound
	}

	v, err := s.inv.tx.Get(entryKey(s.prefix, key))
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", key, err)
	}

	return bytes.Clone(v), nil
}

func (s *scope) Put(key string, value []byte) error {
	if len(value) > s.inv.l.cfg.MaxEntrySize {
		return fmt.Errorf("%q: %w (%d > %d)", key, ErrEntryTooLarge, len(value), s.inv.l.cfg.MaxEntrySize)
	}

	ok, err := s.checkLive(key)
	if err != nil {
		return err
	}

	if !ok && s.leased {
		s.inv.tx.Put(leaseKey(key), encodeUint32(liveUntil(s.inv.seq, s.inv.l.cfg.MinPersistentLease)))
	}

	s.inv.tx.Put(entryKey(s.prefix, key), bytes.Clone(value))

	return nil
}

func (s *scope) ExtendLease(key string, threshold, extendTo uint32) error {
	ok, err := s.checkLive(key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%q: %w", key, registry.ErrEntryNotFound)
	}

	if !s.leased {
		return s.inv.ExtendInstanceLease(threshold, extendTo)
	}

	return s.inv.extend(leaseKey(key), scopePersistent, threshold, extendTo)
}
