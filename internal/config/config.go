// Package config reads configuration of the passkey registry tools.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/core/storage/dbconfig"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/passkey-registry/ledger"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables overriding configuration values,
// e.g. PASSKEY_RPC_ENDPOINT.
const EnvPrefix = "PASSKEY"

// Config groups all configuration sections.
type Config struct {
	Logger  Logger  `mapstructure:"logger"`
	Storage Storage `mapstructure:"storage"`
	Ledger  Ledger  `mapstructure:"ledger"`
	RPC     RPC     `mapstructure:"rpc"`
	Keeper  Keeper  `mapstructure:"keeper"`
	Metrics Metrics `mapstructure:"metrics"`
}

// Logger configures logging.
type Logger struct {
	Level string `mapstructure:"level"`
}

// Storage configures local ledger storage.
type Storage struct {
	// One of inmemory, boltdb, leveldb.
	Type string `mapstructure:"type"`
	// File (boltdb) or directory (leveldb) path.
	Path string `mapstructure:"path"`
}

// Ledger configures local ledger limits.
type Ledger struct {
	MinPersistentLease uint32 `mapstructure:"min_persistent_lease"`
	MinInstanceLease   uint32 `mapstructure:"min_instance_lease"`
	MaxLease           uint32 `mapstructure:"max_lease"`
	MaxEntrySize       int    `mapstructure:"max_entry_size"`
}

// RPC configures access to the contract deployed in the Neo network. Remote
// mode is enabled when Endpoint is set.
type RPC struct {
	Endpoint       string        `mapstructure:"endpoint"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// Path to the NEP-6 wallet.
	Wallet string `mapstructure:"wallet"`
	// Wallet account address, default account is used if empty.
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	// Address of the deployed contract (Neo address or LE hex).
	Contract string `mapstructure:"contract"`
}

// Keeper configures periodic lease extension.
type Keeper struct {
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Metrics configures Prometheus metrics endpoint. Disabled when Address is
// empty.
type Metrics struct {
	Address string `mapstructure:"address"`
}

func setDefaults(v *viper.Viper) {
	lc := ledger.DefaultConfig()

	v.SetDefault("logger.level", "info")
	v.SetDefault("storage.type", dbconfig.BoltDB)
	v.SetDefault("storage.path", "passkey-registry.db")
	v.SetDefault("ledger.min_persistent_lease", lc.MinPersistentLease)
	v.SetDefault("ledger.min_instance_lease", lc.MinInstanceLease)
	v.SetDefault("ledger.max_lease", lc.MaxLease)
	v.SetDefault("ledger.max_entry_size", lc.MaxEntrySize)
	v.SetDefault("rpc.endpoint", "")
	v.SetDefault("rpc.dial_timeout", 15*time.Second)
	v.SetDefault("rpc.request_timeout", 15*time.Second)
	v.SetDefault("rpc.wallet", "")
	v.SetDefault("rpc.address", "")
	v.SetDefault("rpc.password", "")
	v.SetDefault("rpc.contract", "")
	v.SetDefault("keeper.interval", time.Hour)
	v.SetDefault("keeper.timeout", time.Minute)
	v.SetDefault("metrics.address", "")
}

// Load reads configuration from the YAML file (if path is not empty) and
// environment variables. Missing values are set to defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case dbconfig.InMemoryDB:
	case dbconfig.BoltDB, dbconfig.LevelDB:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage: missing path for %s", c.Storage.Type)
		}
	default:
		return fmt.Errorf("storage: unsupported type '%s'", c.Storage.Type)
	}

	if err := c.Ledger.Config().Validate(); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}

	if c.Remote() {
		if c.RPC.Wallet == "" {
			return errors.New("rpc: missing wallet")
		}

		if c.RPC.Address != "" {
			if _, err := address.StringToUint160(c.RPC.Address); err != nil {
				return fmt.Errorf("rpc: invalid account address: %w", err)
			}
		}

		if c.RPC.Contract != "" {
			if _, err := c.RPC.ContractAddress(); err != nil {
				return fmt.Errorf("rpc: %w", err)
			}
		}
	}

	if c.Keeper.Interval <= 0 {
		return fmt.Errorf("keeper: non-positive interval %s", c.Keeper.Interval)
	}

	if c.Keeper.Timeout <= 0 {
		return fmt.Errorf("keeper: non-positive timeout %s", c.Keeper.Timeout)
	}

	return nil
}

// Remote checks whether registry is accessed through the Neo RPC.
func (c *Config) Remote() bool {
	return c.RPC.Endpoint != ""
}

// DBConfig returns neo-go storage configuration.
func (s Storage) DBConfig() dbconfig.DBConfiguration {
	res := dbconfig.DBConfiguration{Type: s.Type}

	switch s.Type {
	case dbconfig.BoltDB:
		res.BoltDBOptions.FilePath = s.Path
	case dbconfig.LevelDB:
		res.LevelDBOptions.DataDirectoryPath = s.Path
	}

	return res
}

// Config returns ledger limits.
func (l Ledger) Config() ledger.Config {
	return ledger.Config{
		MinPersistentLease: l.MinPersistentLease,
		MinInstanceLease:   l.MinInstanceLease,
		MaxLease:           l.MaxLease,
		MaxEntrySize:       l.MaxEntrySize,
	}
}

// ContractAddress decodes address of the deployed contract.
func (r RPC) ContractAddress() (util.Uint160, error) {
	if r.Contract == "" {
		return util.Uint160{}, errors.New("missing contract address")
	}

	if res, err := address.StringToUint160(r.Contract); err == nil {
		return res, nil
	}

	res, err := util.Uint160DecodeStringLE(strings.TrimPrefix(r.Contract, "0x"))
	if err != nil {
		return res, fmt.Errorf("invalid contract address '%s'", r.Contract)
	}

	return res, nil
}
