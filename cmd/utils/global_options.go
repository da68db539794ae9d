package utils

import (
	"go/types"

	"github.com/sirupsen/logrus"
	"github.com/stellar/go-stellar-sdk/support/config"
)

func LogLevelOption(configKey *logrus.Level) *config.ConfigOption {
	return &config.ConfigOption{
		Name:           "log-level",
		Usage:          `The log level used in this project. Options: "TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL", or "PANIC".`,
		OptType:        types.String,
		FlagDefault:    "INFO",
		ConfigKey:      configKey,
		CustomSetValue: SetConfigOptionLogLevel,
		Required:       false,
	}
}

func GatewayURLOption(configKey *string) *config.ConfigOption {
	return &config.ConfigOption{
		Name:           "gateway-url",
		Usage:          "The URL of the Solanize gateway serving authentication and chat.",
		OptType:        types.String,
		ConfigKey:      configKey,
		FlagDefault:    "http://127.0.0.1:5000",
		CustomSetValue: SetConfigOptionURL,
		Required:       true,
	}
}

func SolanaGatewayURLOption(configKey *string) *config.ConfigOption {
	return &config.ConfigOption{
		Name:           "solana-gateway-url",
		Usage:          "The URL of the Solana gateway serving balances and chain-pending transactions.",
		OptType:        types.String,
		ConfigKey:      configKey,
		FlagDefault:    "http://127.0.0.1:8000",
		CustomSetValue: SetConfigOptionURL,
		Required:       true,
	}
}

func TokenDBPathOption(configKey *string) *config.ConfigOption {
	return &config.ConfigOption{
		Name:           "token-db-path",
		Usage:          "Path of the SQLite file holding the session credential. A leading ~ is expanded to the home directory.",
		OptType:        types.String,
		ConfigKey:      configKey,
		FlagDefault:    "~/.solanize/client.db",
		CustomSetValue: SetConfigOptionPath,
		Required:       true,
	}
}

func WalletPrivateKeyOption(configKey *string) *config.ConfigOption {
	return &config.ConfigOption{
		Name:           "wallet-private-key",
		Usage:          "The base58 encoded Solana private key of the wallet. It is prompted for when not provided.",
		OptType:        types.String,
		ConfigKey:      configKey,
		CustomSetValue: SetConfigOptionSolanaPrivateKey,
		Required:       false,
	}
}

func PortfolioRefreshDelayOption(configKey *int) *config.ConfigOption {
	return &config.ConfigOption{
		Name:        "portfolio-refresh-delay-seconds",
		Usage:       "Seconds to wait after a signed transaction is sent before reloading balances.",
		OptType:     types.Int,
		ConfigKey:   configKey,
		FlagDefault: 2,
		Required:    false,
	}
}

func RequestTimeoutOption(configKey *int) *config.ConfigOption {
	return &config.ConfigOption{
		Name:        "request-timeout-seconds",
		Usage:       "Timeout, in seconds, of every request sent to the gateways.",
		OptType:     types.Int,
		ConfigKey:   configKey,
		FlagDefault: 30,
		Required:    false,
	}
}

func MetricsPortOption(configKey *int) *config.ConfigOption {
	return &config.ConfigOption{
		Name:        "metrics-port",
		Usage:       "Local port exposing Prometheus metrics on /metrics. 0 disables the endpoint.",
		OptType:     types.Int,
		ConfigKey:   configKey,
		FlagDefault: 0,
		Required:    false,
	}
}

func SentryDSNOption(configKey *string) *config.ConfigOption {
	return &config.ConfigOption{
		Name:      "sentry-dsn",
		Usage:     "The Sentry DSN. Unexpected errors are only logged when it is empty.",
		OptType:   types.String,
		ConfigKey: configKey,
		Required:  false,
	}
}

func EnvironmentOption(configKey *string) *config.ConfigOption {
	return &config.ConfigOption{
		Name:        "environment",
		Usage:       "The environment reported to Sentry.",
		OptType:     types.String,
		ConfigKey:   configKey,
		FlagDefault: "development",
		Required:    false,
	}
}
