package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/passkey-registry/registry"
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "init",
		Short:         "Initialize the registry",
		Long:          "Initialize the registry. Initialization is allowed exactly once.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithBackend(cmd, rootOpts, func(ctx context.Context, e *env) error {
				if err := e.Initialize(ctx); err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), "Registry initialized")

				return nil
			})
		},
	}
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "status",
		Short:         "Print registry state",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithBackend(cmd, rootOpts, func(ctx context.Context, e *env) error {
				return runStatus(ctx, cmd, e)
			})
		},
	}
}

func runStatus(ctx context.Context, cmd *cobra.Command, e *env) error {
	w := cmd.OutOrStdout()

	inited, err := e.IsInitialized(ctx)
	if err != nil {
		return fmt.Errorf("check initialization: %w", err)
	}

	fmt.Fprintf(w, "Initialized: %t\n", inited)

	if e.ledger != nil {
		leases, err := e.ledger.Leases()
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "Sequence: %d\n", leases.Sequence)
		fmt.Fprintf(w, "Instance live until: %d\n", leases.Instance)
		fmt.Fprintf(w, "Code live until: %d\n", leases.Code)

		return nil
	}

	height, err := e.chain.actor.GetBlockCount()
	if err != nil {
		return fmt.Errorf("get number of the latest block: %w", err)
	}

	if e.contract == nil {
		return errNoContract
	}

	until, err := e.contract.LeaseExpiration(ctx)
	if err != nil {
		return fmt.Errorf("get lease expiration: %w", err)
	}

	fmt.Fprintf(w, "Block count: %d\n", height)
	fmt.Fprintf(w, "Lease extended until: %d\n", until)

	return nil
}

// passkeyOptions holds flags specifying the passkey.
type passkeyOptions struct {
	Passkey         string
	COSEFile        string
	AttestationFile string
}

func (o *passkeyOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Passkey, "passkey", "", "uncompressed P-256 public key (hex or base64url)")
	cmd.Flags().StringVar(&o.COSEFile, "cose", "", "path to the file with COSE-encoded credential public key")
	cmd.Flags().StringVar(&o.AttestationFile, "attestation", "", "path to the JSON file with WebAuthn registration response")
	cmd.MarkFlagsOneRequired("passkey", "cose", "attestation")
	cmd.MarkFlagsMutuallyExclusive("passkey", "cose", "attestation")
}

func (o *passkeyOptions) get() (registry.Passkey, error) {
	switch {
	case o.COSEFile != "":
		data, err := os.ReadFile(o.COSEFile)
		if err != nil {
			return registry.Passkey{}, fmt.Errorf("read COSE key: %w", err)
		}

		return registry.PasskeyFromCOSE(data)
	case o.AttestationFile != "":
		data, err := os.ReadFile(o.AttestationFile)
		if err != nil {
			return registry.Passkey{}, fmt.Errorf("read registration response: %w", err)
		}

		return registry.PasskeyFromAttestation(data)
	default:
		return registry.DecodePasskeyString(o.Passkey)
	}
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		pkOpts   passkeyOptions
		wallet   string
		validate bool
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Bind the passkey to the wallet",
		Long: `Bind the passkey to the wallet address. Bindings are permanent: the passkey
registered once can't be bound to another wallet.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pk, err := pkOpts.get()
			if err != nil {
				return err
			}

			if validate {
				if err = pk.Validate(); err != nil {
					return err
				}
			}

			w, err := address.StringToUint160(wallet)
			if err != nil {
				return fmt.Errorf("invalid wallet address: %w", err)
			}

			return runWithBackend(cmd, rootOpts, func(ctx context.Context, e *env) error {
				if err := e.RegisterWallet(ctx, pk, w); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Passkey bound to %s\n", wallet)

				return nil
			})
		},
	}

	pkOpts.addFlags(cmd)
	cmd.Flags().StringVar(&wallet, "wallet", "", "Neo wallet address")
	cmd.Flags().BoolVar(&validate, "validate", false, "check that the passkey is a point of the P-256 curve before registration")
	_ = cmd.MarkFlagRequired("wallet")

	return cmd
}

// NewLookupCommand creates the lookup command.
func NewLookupCommand(rootOpts *RootOptions) *cobra.Command {
	var pkOpts passkeyOptions

	cmd := &cobra.Command{
		Use:           "lookup",
		Short:         "Print the wallet the passkey is bound to",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pk, err := pkOpts.get()
			if err != nil {
				return err
			}

			return runWithBackend(cmd, rootOpts, func(ctx context.Context, e *env) error {
				w, err := e.GetWalletByPK(ctx, pk)
				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), address.Uint160ToString(w))

				return nil
			})
		},
	}

	pkOpts.addFlags(cmd)

	return cmd
}

// NewExtendLeaseCommand creates the extend-lease command.
func NewExtendLeaseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "extend-lease",
		Short:         "Extend lease of the registry data to the maximum",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithBackend(cmd, rootOpts, func(ctx context.Context, e *env) error {
				if err := e.ExtendLease(ctx); err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), "Lease extended")

				return nil
			})
		},
	}
}

// ExitCode returns process exit code for the command error. Registry errors
// are mapped to 10 + their code, other errors to 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	if c, ok := registry.CodeOf(err); ok {
		return 10 + int(c)
	}

	return 1
}

// NewErrorsCommand creates the errors command.
func NewErrorsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "errors [code]",
		Short: "Describe registry failures",
		Long: `Print registry failure codes with the corresponding exit codes and messages.
If code is specified, only this failure is described.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			if len(args) > 0 {
				n, err := strconv.ParseUint(args[0], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid failure code: %w", err)
				}

				e, err := registry.ErrorByCode(registry.Code(n))
				if err != nil {
					return err
				}

				printRegistryError(w, e)

				return nil
			}

			for c := registry.Code(1); ; c++ {
				e, err := registry.ErrorByCode(c)
				if err != nil {
					return nil
				}

				printRegistryError(w, e)
			}
		},
	}
}

func printRegistryError(w io.Writer, e *registry.Error) {
	fmt.Fprintf(w, "%d\texit=%d\t%s\n", e.Code(), ExitCode(e), e)
}
