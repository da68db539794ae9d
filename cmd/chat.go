package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/solanize/solanize-client/cmd/utils"
)

type chatCmd struct{}

func (c *chatCmd) Command() *cobra.Command {
	opts := utils.ClientOptions{}
	cfgOpts := utils.ClientConfigOptions(&opts)

	cmd := &cobra.Command{
		Use:               "chat",
		Short:             "Talk to the Solanize agent and sign the transactions it prepares",
		PersistentPreRunE: utils.ClientPersistentPreRunE(cfgOpts, &opts),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return c.Run(ctx, &opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	if err := cfgOpts.Init(cmd); err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}

func (c *chatCmd) Run(ctx context.Context, opts *utils.ClientOptions, in io.Reader, out io.Writer) error {
	r := newREPL(in, out)
	a, err := startApp(ctx, opts, r.approve, out)
	if err != nil {
		return fmt.Errorf("starting chat: %w", err)
	}
	defer a.Close(context.WithoutCancel(ctx))

	r.app = a
	if err := r.Run(ctx); err != nil {
		return fmt.Errorf("running chat: %w", err)
	}
	return nil
}
