package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/solanize/solanize-client/cmd/utils"
	"github.com/solanize/solanize-client/internal/chat"
	"github.com/solanize/solanize-client/internal/wallet"
)

type sessionsCmd struct{}

func (c *sessionsCmd) Command() *cobra.Command {
	opts := utils.ClientOptions{}
	cfgOpts := utils.ClientConfigOptions(&opts)

	cmd := &cobra.Command{
		Use:               "sessions",
		Short:             "List the chat sessions of the wallet",
		PersistentPreRunE: utils.ClientPersistentPreRunE(cfgOpts, &opts),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := startApp(ctx, &opts, wallet.AutoApprove, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			return c.Run(ctx, a.Chat, cmd.OutOrStdout())
		},
	}

	if err := cfgOpts.Init(cmd); err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}

func (c *sessionsCmd) Run(ctx context.Context, store *chat.Store, out io.Writer) error {
	if err := store.ListSessions(ctx); err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	printSessions(out, store)
	return nil
}

func printSessions(out io.Writer, store *chat.Store) {
	if !store.HasAnySessions() {
		fmt.Fprintln(out, "No chat sessions yet.")
		return
	}

	current := store.CurrentSessionID()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tTITLE\tUPDATED")
	for _, session := range store.Sessions() {
		marker := ""
		if session.ID == current {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, session.ID, session.Title, session.UpdatedAt)
	}
	w.Flush() //nolint:errcheck
}
