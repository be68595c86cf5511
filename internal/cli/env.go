package cli

import (
	"context"

	"github.com/nspcc-dev/passkey-registry/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// env is the execution environment of the registry commands.
type env struct {
	*backend

	cfg *config.Config
	log *zap.Logger
}

// runWithBackend loads configuration, opens the registry and passes it to f.
// The registry is closed after f returns.
func runWithBackend(cmd *cobra.Command, opts *RootOptions, f func(ctx context.Context, e *env) error) error {
	cfg, l, err := opts.load()
	if err != nil {
		return err
	}

	defer func() { _ = l.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	b, err := openBackend(ctx, cfg, l)
	if err != nil {
		return err
	}

	defer b.close()

	return f(ctx, &env{backend: b, cfg: cfg, log: l})
}
