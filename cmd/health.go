package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/solanize/solanize-client/cmd/utils"
	"github.com/solanize/solanize-client/internal/metrics"
	"github.com/solanize/solanize-client/internal/tokenstore"
	"github.com/solanize/solanize-client/pkg/gwclient"
)

type healthCmd struct{}

func (c *healthCmd) Command() *cobra.Command {
	var logLevel logrus.Level
	var gatewayURL string
	var requestTimeoutSeconds int
	cfgOpts := config.ConfigOptions{
		utils.LogLevelOption(&logLevel),
		utils.GatewayURLOption(&gatewayURL),
		utils.RequestTimeoutOption(&requestTimeoutSeconds),
	}

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the chat service of the gateway and list its models",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := utils.DefaultPersistentPreRunE(cfgOpts)(cmd, args); err != nil {
				return err
			}
			log.DefaultLogger.SetLevel(logLevel)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := gwclient.NewClient(gatewayURL, tokenstore.NewMemoryStore(), metrics.NewMetricsService(nil))
			if requestTimeoutSeconds > 0 {
				client.HTTPClient.Timeout = time.Duration(requestTimeoutSeconds) * time.Second
			}
			return c.Run(cmd.Context(), client, cmd.OutOrStdout())
		},
	}

	if err := cfgOpts.Init(cmd); err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}

func (c *healthCmd) Run(ctx context.Context, client gwclient.ChatAPI, out io.Writer) error {
	health, err := client.Health(ctx)
	if err != nil {
		return fmt.Errorf("checking gateway health: %w", err)
	}
	fmt.Fprintf(out, "Status: %s\n", health.Status)

	models, err := client.Models(ctx)
	if err != nil {
		log.Ctx(ctx).Warnf("fetching models: %v", err)
		return nil
	}
	if len(models) == 0 {
		fmt.Fprintln(out, "Models: none")
		return nil
	}
	fmt.Fprintf(out, "Models: %s\n", strings.Join(models, ", "))
	return nil
}
