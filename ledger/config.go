package ledger

import (
	"errors"
	"fmt"
)

// Config groups host limits of the Ledger. All lease durations are in ledger
// sequence numbers.
type Config struct {
	// Lease of the newly created persistent entry.
	MinPersistentLease uint32
	// Lease of the newly deployed contract instance and code.
	MinInstanceLease uint32
	// Maximum lease any entry can be extended to.
	MaxLease uint32
	// Maximum size of the stored value in bytes.
	MaxEntrySize int
}

// DefaultConfig returns Config with the default limits.
func DefaultConfig() Config {
	return Config{
		MinPersistentLease: 120_960,
		MinInstanceLease:   4_096,
		MaxLease:           3_110_400,
		MaxEntrySize:       1 << 20,
	}
}

// Validate checks Config consistency.
func (c Config) Validate() error {
	switch {
	case c.MaxLease == 0:
		return errors.New("zero max lease")
	case c.MinPersistentLease == 0:
		return errors.New("zero min persistent lease")
	case c.MinInstanceLease == 0:
		return errors.New("zero min instance lease")
	case c.MinPersistentLease > c.MaxLease:
		return fmt.Errorf("min persistent lease %d exceeds max lease %d", c.MinPersistentLease, c.MaxLease)
	case c.MinInstanceLease > c.MaxLease:
		return fmt.Errorf("min instance lease %d exceeds max lease %d", c.MinInstanceLease, c.MaxLease)
	case c.MaxEntrySize <= 0:
		return fmt.Errorf("non-positive max entry size %d", c.MaxEntrySize)
	}
	return nil
}
