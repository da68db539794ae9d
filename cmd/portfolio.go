package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/solanize/solanize-client/cmd/utils"
	"github.com/solanize/solanize-client/internal/wallet"
	"github.com/solanize/solanize-client/internal/walletdata"
)

type portfolioCmd struct{}

func (c *portfolioCmd) Command() *cobra.Command {
	opts := utils.ClientOptions{}
	cfgOpts := utils.ClientConfigOptions(&opts)

	cmd := &cobra.Command{
		Use:               "portfolio",
		Short:             "Show the token balances and chain-pending transactions of the wallet",
		PersistentPreRunE: utils.ClientPersistentPreRunE(cfgOpts, &opts),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, &opts, wallet.AutoApprove, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			if err := a.Wallet.Connect(ctx); err != nil {
				return fmt.Errorf("connecting wallet: %w", err)
			}
			return c.Run(ctx, a.WalletData, cmd.OutOrStdout())
		},
	}

	if err := cfgOpts.Init(cmd); err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}

func (c *portfolioCmd) Run(ctx context.Context, service *walletdata.Service, out io.Writer) error {
	if err := service.Refresh(ctx); err != nil {
		return fmt.Errorf("refreshing portfolio: %w", err)
	}
	printPortfolio(out, service)
	return nil
}

func printPortfolio(out io.Writer, service *walletdata.Service) {
	balances := service.Balances()
	if len(balances) == 0 {
		fmt.Fprintln(out, "No tokens held.")
	} else {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TOKEN\tBALANCE\tVALUE (USD)")
		for _, token := range balances {
			fmt.Fprintf(w, "%s\t%s\t%.2f\n", token.Symbol, formatAmount(token.Balance), token.USDValue)
		}
		w.Flush() //nolint:errcheck
		fmt.Fprintf(out, "Total: $%.2f\n", service.TotalPortfolioValue())
	}

	if service.HasPendingTransactions() {
		fmt.Fprintf(out, "%d transaction(s) awaiting confirmation on chain\n", len(service.PendingTransactions()))
	}
}

func formatAmount(amount float64) string {
	return fmt.Sprintf("%.9g", amount)
}
