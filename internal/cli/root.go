// Package cli implements passkey-registry command line interface.
package cli

import (
	"fmt"

	"github.com/nspcc-dev/passkey-registry/common"
	"github.com/nspcc-dev/passkey-registry/internal/config"
	"github.com/nspcc-dev/passkey-registry/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	// Path to the YAML configuration file, optional.
	ConfigPath string
	// Overrides logger.level of the configuration if set.
	LogLevel string
}

// NewRootCommand creates the root command of the passkey-registry CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "passkey-registry",
		Short: "Passkey to wallet registry",
		Long: `Registry binding WebAuthn passkeys to Neo wallet addresses.

Works with the local ledger by default. If rpc.endpoint is configured, commands
are executed against the contract deployed in the Neo network.`,
		Version:       versionString(common.Version),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to the YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error), overrides configuration")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewRegisterCommand(opts))
	cmd.AddCommand(NewLookupCommand(opts))
	cmd.AddCommand(NewExtendLeaseCommand(opts))
	cmd.AddCommand(NewKeepaliveCommand(opts))
	cmd.AddCommand(NewLedgerCommand(opts))
	cmd.AddCommand(NewDeployCommand(opts))
	cmd.AddCommand(NewCompileCommand())
	cmd.AddCommand(NewErrorsCommand())

	return cmd
}

// load reads configuration and constructs logger.
func (o *RootOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, nil, err
	}

	if o.LogLevel != "" {
		cfg.Logger.Level = o.LogLevel
	}

	l, err := logger.New(cfg.Logger.Level)
	if err != nil {
		return nil, nil, err
	}

	return cfg, l, nil
}

// errRemoteOnly returns error of the command unavailable in the local mode.
func errRemoteOnly(cmd string) error {
	return fmt.Errorf("'%s' requires rpc.endpoint to be configured", cmd)
}

// errLocalOnly returns error of the command unavailable in the remote mode.
func errLocalOnly(cmd string) error {
	return fmt.Errorf("'%s' works with the local ledger only, unset rpc.endpoint", cmd)
}

// versionString formats contract version number as major.minor.patch.
func versionString(v int) string {
	return fmt.Sprintf("%d.%d.%d", v/1_000_000, v/1_000%1_000, v%1_000)
}
