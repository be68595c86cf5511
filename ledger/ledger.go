package ledger

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/core/storage/dbconfig"
	"github.com/nspcc-dev/passkey-registry/registry"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	// ErrArchived is returned on access to the entry which lease has expired.
	ErrArchived = errors.New("entry is archived")
	// ErrLeaseTooLong is returned on attempt to extend the lease beyond
	// Config.MaxLease.
	ErrLeaseTooLong = errors.New("lease exceeds the maximum")
	// ErrEntryTooLarge is returned on attempt to store the value larger than
	// Config.MaxEntrySize.
	ErrEntryTooLarge = errors.New("entry is too large")
	// ErrNotEmpty is returned by Import into the Ledger with data.
	ErrNotEmpty = errors.New("ledger is not empty")
)

// Key prefixes of the underlying storage.
const (
	prefixInstance   byte = 0x01
	prefixPersistent byte = 0x02
	prefixLease      byte = 0x03
	prefixSystem     byte = 0x04
)

var (
	sequenceKey      = []byte{prefixSystem, 's'}
	instanceLeaseKey = []byte{prefixSystem, 'i'}
	codeLeaseKey     = []byte{prefixSystem, 'c'}
)

// Ledger is a registry.Host keeping registry state in the neo-go storage.
// Ledger has a logical clock (sequence) measuring entry leases: an entry is
// live until the sequence number stored in its lease. Sequence is moved forward
// explicitly via Advance.
//
// Invocations are serialized, each one works with its own memory-cached layer
// over the storage which is persisted only if the invocation succeeds.
//
// Ledger must be constructed using New or Open.
type Ledger struct {
	cfg     Config
	log     *zap.Logger
	metrics *metrics
	reg     prometheus.Registerer

	mtx   sync.Mutex
	store storage.Store
	seq   uint32
}

// Option configures Ledger.
type Option func(*Ledger)

// WithLogger sets logger of the Ledger. Nop logger is used by default.
func WithLogger(l *zap.Logger) Option {
	return func(x *Ledger) {
		x.log = l
	}
}

// WithMetrics registers Ledger metrics in reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(x *Ledger) {
		x.reg = reg
	}
}

// Leases groups lease state of the contract.
type Leases struct {
	// Current sequence number.
	Sequence uint32
	// Sequence number until which the contract instance is live.
	Instance uint32
	// Sequence number until which the contract code is live.
	Code uint32
}

// Open opens the storage described by dbCfg and constructs Ledger on top of it.
func Open(dbCfg dbconfig.DBConfiguration, cfg Config, opts ...Option) (*Ledger, error) {
	st, err := storage.NewStore(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", dbCfg.Type, err)
	}

	l, err := New(st, cfg, opts...)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return l, nil
}

// New constructs Ledger on top of the given storage. Ledger owns st since
// then and closes it on Close. If st has no contract yet, New deploys it with
// the initial instance lease.
func New(st storage.Store, cfg Config, opts ...Option) (*Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	l := &Ledger{
		cfg:     cfg,
		log:     zap.NewNop(),
		metrics: newMetrics(),
		store:   st,
	}

	for _, o := range opts {
		o(l)
	}

	if l.reg != nil {
		if err := l.metrics.register(l.reg); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	if err := l.load(); err != nil {
		return nil, err
	}

	return l, nil
}

func (l *Ledger) load() error {
	seq, err := getUint32(l.store, sequenceKey)
	if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		return fmt.Errorf("read sequence: %w", err)
	}

	l.seq = seq
	l.metrics.sequence.Set(float64(seq))

	_, err = l.store.Get(instanceLeaseKey)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrKeyNotFound) {
		return fmt.Errorf("read instance lease: %w", err)
	}

	until := liveUntil(seq, l.cfg.MinInstanceLease)

	tx := storage.NewMemCachedStore(l.store)
	tx.Put(sequenceKey, encodeUint32(seq))
	tx.Put(instanceLeaseKey, encodeUint32(until))
	tx.Put(codeLeaseKey, encodeUint32(until))

	if _, err = tx.PersistSync(); err != nil {
		return fmt.Errorf("persist contract deployment: %w", err)
	}

	l.log.Info("contract deployed to the ledger", zap.Uint32("sequence", seq), zap.Uint32("live until", until))

	return nil
}

// Close closes underlying storage.
func (l *Ledger) Close() error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	return l.store.Close()
}

// Sequence returns current sequence number.
func (l *Ledger) Sequence() uint32 {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	return l.seq
}

// Advance moves sequence forward by n.
func (l *Ledger) Advance(n uint32) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	if n > math.MaxUint32-l.seq {
		return fmt.Errorf("sequence overflow: %d + %d", l.seq, n)
	}

	seq := l.seq + n

	tx := storage.NewMemCachedStore(l.store)
	tx.Put(sequenceKey, encodeUint32(seq))

	if _, err := tx.PersistSync(); err != nil {
		return fmt.Errorf("persist sequence: %w", err)
	}

	l.seq = seq
	l.metrics.sequence.Set(float64(seq))
	l.log.Info("ledger advanced", zap.Uint32("sequence", seq))

	return nil
}

// Leases returns current lease state of the contract.
func (l *Ledger) Leases() (Leases, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	res := Leases{Sequence: l.seq}

	var err error

	res.Instance, err = getUint32(l.store, instanceLeaseKey)
	if err != nil {
		return res, fmt.Errorf("read instance lease: %w", err)
	}

	res.Code, err = getUint32(l.store, codeLeaseKey)
	if err != nil {
		return res, fmt.Errorf("read code lease: %w", err)
	}

	return res, nil
}

// PersistentLease returns the sequence number until which the persistent entry
// is live. Returns registry.ErrEntryNotFound if there is no such entry.
func (l *Ledger) PersistentLease(key string) (uint32, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	until, err := getUint32(l.store, leaseKey(key))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return 0, registry.ErrEntryNotFound
	}

	return until, err
}

// Invoke implements registry.Host. Invocation fails with ErrArchived if the
// contract instance or code lease has expired.
func (l *Ledger) Invoke(ctx context.Context, f func(registry.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mtx.Lock()
	defer l.mtx.Unlock()

	id := uuid.New()
	inv := newInvocation(l)

	err := inv.checkContract()
	if err == nil {
		err = f(inv)
	}

	if err != nil {
		l.metrics.invocations.WithLabelValues(statusAborted).Inc()
		l.log.Debug("invocation aborted", zap.Stringer("id", id), zap.Error(err))
		return err
	}

	if _, err = inv.tx.PersistSync(); err != nil {
		l.metrics.invocations.WithLabelValues(statusAborted).Inc()
		return fmt.Errorf("persist invocation changes: %w", err)
	}

	l.metrics.invocations.WithLabelValues(statusCommitted).Inc()
	for _, scope := range inv.extended {
		l.metrics.extensions.WithLabelValues(scope).Inc()
	}

	l.log.Debug("invocation committed", zap.Stringer("id", id), zap.Uint32("sequence", l.seq))

	return nil
}

// Export passes all stored items into f. Iteration stops on the first f's
// error which is returned. Slices passed to f must not be retained.
func (l *Ledger) Export(f func(key, value []byte) error) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	var err error

	for _, p := range []byte{prefixInstance, prefixPersistent, prefixLease, prefixSystem} {
		l.store.Seek(storage.SeekRange{Prefix: []byte{p}}, func(k, v []byte) bool {
			err = f(k, v)
			return err == nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// Import stores items exported from another Ledger. The Ledger must have no
// contract data. Sequence and leases are taken from items.
func (l *Ledger) Import(items []storage.KeyValue) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	var empty = true

	for _, p := range []byte{prefixInstance, prefixPersistent} {
		l.store.Seek(storage.SeekRange{Prefix: []byte{p}}, func(_, _ []byte) bool {
			empty = false
			return false
		})
	}

	if !empty {
		return ErrNotEmpty
	}

	tx := storage.NewMemCachedStore(l.store)

	for i := range items {
		if len(items[i].Key) == 0 || items[i].Key[0] < prefixInstance || items[i].Key[0] > prefixSystem {
			return fmt.Errorf("item #%d: unknown key prefix", i)
		}
		tx.Put(bytes.Clone(items[i].Key), bytes.Clone(items[i].Value))
	}

	if _, err := tx.PersistSync(); err != nil {
		return fmt.Errorf("persist imported items: %w", err)
	}

	seq, err := getUint32(l.store, sequenceKey)
	if err != nil {
		return fmt.Errorf("read imported sequence: %w", err)
	}

	l.seq = seq
	l.metrics.sequence.Set(float64(seq))
	l.log.Info("ledger imported", zap.Int("items", len(items)), zap.Uint32("sequence", seq))

	return nil
}

func entryKey(prefix byte, key string) []byte {
	return append([]byte{prefix}, key...)
}

func leaseKey(key string) []byte {
	return entryKey(prefixLease, key)
}

// liveUntil returns sequence number the entry is live until if it's leased for
// lease starting from seq.
func liveUntil(seq, lease uint32) uint32 {
	if lease > math.MaxUint32-seq {
		return math.MaxUint32
	}
	return seq + lease
}

func encodeUint32(n uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, n)
}

type getter interface {
	Get([]byte) ([]byte, error)
}

func getUint32(st getter, key []byte) (uint32, error) {
	b, err := st.Get(key)
	if err != nil {
		return 0, err
	}

	if len(b) != 4 {
		return 0, fmt.Errorf("invalid uint32 length %d", len(b))
	}

	return binary.BigEndian.Uint32(b), nil
}
