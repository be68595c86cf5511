package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/nspcc-dev/passkey-registry/dump"
	"github.com/nspcc-dev/passkey-registry/ledger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewLedgerCommand creates the ledger command group.
func NewLedgerCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Manage registry storage",
	}

	cmd.AddCommand(newLedgerAdvanceCommand(rootOpts))
	cmd.AddCommand(newLedgerDumpCommand(rootOpts))
	cmd.AddCommand(newLedgerRestoreCommand(rootOpts))
	cmd.AddCommand(newLedgerListCommand())

	return cmd
}

func newLedgerAdvanceCommand(rootOpts *RootOptions) *cobra.Command {
	var n uint32

	cmd := &cobra.Command{
		Use:   "advance",
		Short: "Move ledger sequence forward",
		Long: `Move local ledger sequence forward. Entries which leases end before the new
sequence become archived.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithBackend(cmd, rootOpts, func(_ context.Context, e *env) error {
				if e.ledger == nil {
					return errLocalOnly("ledger advance")
				}

				if err := e.ledger.Advance(n); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Sequence: %d\n", e.ledger.Sequence())

				return nil
			})
		},
	}

	cmd.Flags().Uint32Var(&n, "blocks", 1, "number of sequence numbers to move forward")

	return cmd
}

func newLedgerDumpCommand(rootOpts *RootOptions) *cobra.Command {
	var dir, label string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump registry storage into the directory",
		Long: `Dump registry storage into the directory. Local ledger is dumped entirely,
remote contract storage is dumped at the penult block.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithBackend(cmd, rootOpts, func(ctx context.Context, e *env) error {
				if err := os.MkdirAll(dir, 0700); err != nil {
					return fmt.Errorf("create dump dir: %w", err)
				}

				var (
					id  dump.ID
					err error
				)

				if e.ledger != nil {
					id, err = dumpLedger(e.ledger, dir, label)
				} else {
					id, err = dumpChain(ctx, e, dir, label)
				}
				if err != nil {
					return err
				}

				e.log.Info("registry dumped", zap.String("dir", dir), zap.Stringer("id", id))
				fmt.Fprintln(cmd.OutOrStdout(), id)

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "testdata", "dump directory")
	cmd.Flags().StringVar(&label, "label", "", "label of the environment (e.g. 'testnet'), must not contain '-'")
	_ = cmd.MarkFlagRequired("label")

	return cmd
}

func dumpLedger(l *ledger.Ledger, dir, label string) (dump.ID, error) {
	leases, err := l.Leases()
	if err != nil {
		return dump.ID{}, err
	}

	id := dump.ID{Label: label, Sequence: leases.Sequence}

	w, err := dump.Create(dir, id, dump.SourceLedger, leases)
	if err != nil {
		return id, fmt.Errorf("init dumper: %w", err)
	}

	defer w.Close()

	if err = l.Export(w.Put); err != nil {
		return id, fmt.Errorf("export ledger: %w", err)
	}

	if err = w.Commit(); err != nil {
		return id, fmt.Errorf("commit dump: %w", err)
	}

	return id, nil
}

func dumpChain(ctx context.Context, e *env, dir, label string) (dump.ID, error) {
	if e.contract == nil {
		return dump.ID{}, errNoContract
	}

	addr, err := e.cfg.RPC.ContractAddress()
	if err != nil {
		return dump.ID{}, err
	}

	height, err := e.chain.actor.GetBlockCount()
	if err != nil {
		return dump.ID{}, fmt.Errorf("get number of the latest block: %w", err)
	}

	until, err := e.contract.LeaseExpiration(ctx)
	if err != nil {
		return dump.ID{}, fmt.Errorf("get lease expiration: %w", err)
	}

	// contract lease is not bounded by the ledger limits, so it's clamped
	leases := ledger.Leases{Sequence: height, Instance: clampUint32(until), Code: clampUint32(until)}
	id := dump.ID{Label: label, Sequence: height}

	w, err := dump.Create(dir, id, dump.SourceContract, leases)
	if err != nil {
		return id, fmt.Errorf("init dumper: %w", err)
	}

	defer w.Close()

	if err = e.chain.iterateContractStorage(addr, w.Put); err != nil {
		return id, fmt.Errorf("iterate contract storage: %w", err)
	}

	if err = w.Commit(); err != nil {
		return id, fmt.Errorf("commit dump: %w", err)
	}

	return id, nil
}

func clampUint32(n uint64) uint32 {
	if n > uint64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n)
}

func newLedgerRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		dir string
		id  dump.ID
	)

	cmd := &cobra.Command{
		Use:           "restore",
		Short:         "Restore local ledger from the dump",
		Long:          "Restore local ledger from the dump. Ledger must have no registry data.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithBackend(cmd, rootOpts, func(_ context.Context, e *env) error {
				if e.ledger == nil {
					return errLocalOnly("ledger restore")
				}

				s, err := dump.Open(dir, id)
				if err != nil {
					return fmt.Errorf("open dump: %w", err)
				}

				// contract storage layout differs from the ledger one
				if s.Source != dump.SourceLedger {
					return fmt.Errorf("dump %s is taken from %s, not %s", id, s.Source, dump.SourceLedger)
				}

				if err = e.ledger.Import(s.Items); err != nil {
					return fmt.Errorf("import dump %s: %w", id, err)
				}

				restored, err := e.ledger.Leases()
				if err != nil {
					return err
				}

				if restored != s.Leases {
					e.log.Warn("restored leases differ from the dumped ones",
						zap.Any("dumped", s.Leases), zap.Any("restored", restored))
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Restored %s, sequence: %d\n", id, restored.Sequence)

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "testdata", "dump directory")
	cmd.Flags().StringVar(&id.Label, "label", "", "label of the dumped environment")
	cmd.Flags().Uint32Var(&id.Sequence, "sequence", 0, "sequence number the dump was made at")
	_ = cmd.MarkFlagRequired("label")
	_ = cmd.MarkFlagRequired("sequence")

	return cmd
}

func newLedgerListCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List dumps in the directory",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()

			return dump.IterateDumps(dir, func(id dump.ID, s *dump.Snapshot) {
				fmt.Fprintf(w, "%s\t%s\titems=%d\tinstance=%d\tcode=%d\n",
					id, s.Source, len(s.Items), s.Leases.Instance, s.Leases.Code)
			})
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "testdata", "dump directory")

	return cmd
}
