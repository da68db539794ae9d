package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/solanize/solanize-client/internal/app"
	"github.com/solanize/solanize-client/internal/wallet"
)

var ErrMissingPrivateKey = errors.New("a wallet private key is required")

func DefaultPersistentPreRunE(cfgOpts config.ConfigOptions) func(_ *cobra.Command, _ []string) error {
	return func(_ *cobra.Command, _ []string) error {
		if err := cfgOpts.RequireE(); err != nil {
			return fmt.Errorf("requiring values of config options: %w", err)
		}
		if err := cfgOpts.SetValues(); err != nil {
			return fmt.Errorf("setting values of config options: %w", err)
		}
		return nil
	}
}

// ClientOptions holds the values of the options shared by every command talking to the gateways.
type ClientOptions struct {
	LogLevel                     logrus.Level
	GatewayURL                   string
	SolanaGatewayURL             string
	TokenDBPath                  string
	WalletPrivateKey             string
	PortfolioRefreshDelaySeconds int
	RequestTimeoutSeconds        int
	MetricsPort                  int
	SentryDSN                    string
	Environment                  string
}

func ClientConfigOptions(opts *ClientOptions) config.ConfigOptions {
	return config.ConfigOptions{
		LogLevelOption(&opts.LogLevel),
		GatewayURLOption(&opts.GatewayURL),
		SolanaGatewayURLOption(&opts.SolanaGatewayURL),
		TokenDBPathOption(&opts.TokenDBPath),
		WalletPrivateKeyOption(&opts.WalletPrivateKey),
		PortfolioRefreshDelayOption(&opts.PortfolioRefreshDelaySeconds),
		RequestTimeoutOption(&opts.RequestTimeoutSeconds),
		MetricsPortOption(&opts.MetricsPort),
		SentryDSNOption(&opts.SentryDSN),
		EnvironmentOption(&opts.Environment),
	}
}

// ClientPersistentPreRunE sets the option values and applies the configured log level.
func ClientPersistentPreRunE(cfgOpts config.ConfigOptions, opts *ClientOptions) func(cmd *cobra.Command, args []string) error {
	setValues := DefaultPersistentPreRunE(cfgOpts)
	return func(cmd *cobra.Command, args []string) error {
		// Several commands declare these options and viper keeps the flag of the last command initialized.
		for _, co := range cfgOpts {
			if flag := cmd.Flags().Lookup(co.Name); flag != nil {
				if err := viper.BindPFlag(co.Name, flag); err != nil {
					return fmt.Errorf("binding flag %s: %w", co.Name, err)
				}
			}
		}
		if err := setValues(cmd, args); err != nil {
			return err
		}
		if opts.PortfolioRefreshDelaySeconds < 0 || opts.RequestTimeoutSeconds < 0 || opts.MetricsPort < 0 {
			return fmt.Errorf("durations and ports cannot be negative")
		}
		log.DefaultLogger.SetLevel(opts.LogLevel)
		return nil
	}
}

// ResolveWalletPrivateKey asks prompter for the private key when none was configured.
func ResolveWalletPrivateKey(opts *ClientOptions, prompter SecretPrompter) error {
	if opts.WalletPrivateKey != "" {
		return nil
	}

	privateKey, err := prompter.Run()
	if err != nil {
		return fmt.Errorf("prompting for the wallet private key: %w", err)
	}
	if privateKey == "" {
		return ErrMissingPrivateKey
	}
	if err := ValidateSolanaPrivateKey(privateKey); err != nil {
		return fmt.Errorf("validating the wallet private key: %w", err)
	}

	opts.WalletPrivateKey = privateKey
	return nil
}

func (o ClientOptions) AppConfigs(approver wallet.Approver) app.Configs {
	return app.Configs{
		LogLevel:              o.LogLevel,
		GatewayURL:            o.GatewayURL,
		SolanaGatewayURL:      o.SolanaGatewayURL,
		TokenDBPath:           o.TokenDBPath,
		WalletPrivateKey:      o.WalletPrivateKey,
		Approver:              approver,
		PortfolioRefreshDelay: time.Duration(o.PortfolioRefreshDelaySeconds) * time.Second,
		RequestTimeout:        time.Duration(o.RequestTimeoutSeconds) * time.Second,
		MetricsPort:           o.MetricsPort,
		SentryDSN:             o.SentryDSN,
		Environment:           o.Environment,
	}
}
