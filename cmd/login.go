package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/solanize/solanize-client/cmd/utils"
	"github.com/solanize/solanize-client/internal/app"
	"github.com/solanize/solanize-client/internal/tokenstore"
	internalutils "github.com/solanize/solanize-client/internal/utils"
	"github.com/solanize/solanize-client/internal/wallet"
)

type loginCmd struct{}

func (c *loginCmd) Command() *cobra.Command {
	opts := utils.ClientOptions{}
	cfgOpts := utils.ClientConfigOptions(&opts)

	var logout bool
	cmd := &cobra.Command{
		Use:               "login",
		Short:             "Sign the gateway challenge with the wallet and store the session credential",
		PersistentPreRunE: utils.ClientPersistentPreRunE(cfgOpts, &opts),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if logout {
				return c.Logout(cmd.Context(), &opts, cmd.OutOrStdout())
			}
			return c.Run(cmd.Context(), &opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&logout, "logout", false, "Forget the stored credential instead")

	if err := cfgOpts.Init(cmd); err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}

func (c *loginCmd) Run(ctx context.Context, opts *utils.ClientOptions, out io.Writer) error {
	a, err := startApp(ctx, opts, wallet.AutoApprove, out)
	if err != nil {
		return fmt.Errorf("logging in: %w", err)
	}
	defer a.Close(ctx)

	snapshot := a.Auth.Snapshot()
	fmt.Fprintf(out, "Authenticated as %s\n", snapshot.WalletAddress)

	expiresAt, err := a.Tokens.StoredExpiry(ctx)
	if err != nil {
		return fmt.Errorf("reading stored credential expiry: %w", err)
	}
	if expiresAt.Valid {
		fmt.Fprintf(out, "Credential valid until %s\n", expiresAt.Time.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func (c *loginCmd) Logout(ctx context.Context, opts *utils.ClientOptions, out io.Writer) error {
	dbConnectionPool, err := app.OpenTokenDB(ctx, opts.TokenDBPath)
	if err != nil {
		return fmt.Errorf("logging out: %w", err)
	}
	defer internalutils.DeferredClose(ctx, dbConnectionPool, "closing token database")

	if err := tokenstore.NewSQLStore(dbConnectionPool).Clear(ctx); err != nil {
		return fmt.Errorf("clearing stored credential: %w", err)
	}
	fmt.Fprintln(out, "Logged out")
	return nil
}
