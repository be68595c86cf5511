package cli

import (
	"context"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/passkey-registry/contracts"
	"github.com/nspcc-dev/passkey-registry/deploy"
	"github.com/spf13/cobra"
)

// contractOptions holds flags specifying the contract to deploy.
type contractOptions struct {
	ContractDir string
	SourceDir   string
}

func (o *contractOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.ContractDir, "contract-dir", "", "directory with compiled contract.nef and manifest.json")
	cmd.Flags().StringVar(&o.SourceDir, "source", "", "directory with contract sources and config.yml")
	cmd.MarkFlagsOneRequired("contract-dir", "source")
	cmd.MarkFlagsMutuallyExclusive("contract-dir", "source")
}

func (o *contractOptions) get() (contracts.Contract, error) {
	if o.SourceDir != "" {
		return contracts.Compile(o.SourceDir)
	}

	return contracts.ReadDir(o.ContractDir)
}

// NewDeployCommand creates the deploy command.
func NewDeployCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		ctrOpts   contractOptions
		deferInit bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy or update the registry contract",
		Long: `Deploy the registry contract to the Neo network signing transactions with the
configured wallet account. If rpc.contract is set and the contract is deployed
with another NEF, it is updated (account must be the committee multisig
account then).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctr, err := ctrOpts.get()
			if err != nil {
				return fmt.Errorf("read contract: %w", err)
			}

			return runWithBackend(cmd, rootOpts, func(ctx context.Context, e *env) error {
				if e.chain == nil {
					return errRemoteOnly("deploy")
				}

				var known util.Uint160
				if e.cfg.RPC.Contract != "" {
					known, err = e.cfg.RPC.ContractAddress()
					if err != nil {
						return err
					}
				}

				addr, err := deploy.Deploy(ctx, deploy.Prm{
					Logger:       e.log,
					Blockchain:   e.chain.rpc,
					LocalAccount: e.chain.account,
					Contract: deploy.CommonDeployPrm{
						NEF:      ctr.NEF,
						Manifest: ctr.Manifest,
					},
					Address:             known,
					DeferInitialization: deferInit,
				})
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Contract address: %s (%s)\n", address.Uint160ToString(addr), addr.StringLE())

				return nil
			})
		},
	}

	ctrOpts.addFlags(cmd)
	cmd.Flags().BoolVar(&deferInit, "defer-init", false, "skip initialization on deployment")

	return cmd
}

// NewCompileCommand creates the compile command.
func NewCompileCommand() *cobra.Command {
	var src, out string

	cmd := &cobra.Command{
		Use:           "compile",
		Short:         "Compile the registry contract",
		Long:          "Compile the registry contract sources into contract.nef and manifest.json.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := contracts.Compile(src)
			if err != nil {
				return err
			}

			if err = contracts.Save(out, c); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Contract '%s' compiled to %s, checksum %d\n", c.Manifest.Name, out, c.NEF.Checksum)

			return nil
		},
	}

	cmd.Flags().StringVar(&src, "source", "contracts/passkey", "directory with contract sources and config.yml")
	cmd.Flags().StringVar(&out, "out", "", "output directory")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}
