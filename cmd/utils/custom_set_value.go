package utils

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stellar/go-stellar-sdk/support/config"
)

func SetConfigOptionLogLevel(co *config.ConfigOption) error {
	logLevelStr := viper.GetString(co.Name)
	logLevel, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		return fmt.Errorf("couldn't parse log level in %s: %w", co.Name, err)
	}

	key, ok := co.ConfigKey.(*logrus.Level)
	if !ok {
		return fmt.Errorf("%s configKey has an invalid type %T", co.Name, co.ConfigKey)
	}
	*key = logLevel

	return nil
}

// SetConfigOptionSolanaPrivateKey accepts an empty value, the key is prompted for later in that case.
func SetConfigOptionSolanaPrivateKey(co *config.ConfigOption) error {
	privateKey := strings.TrimSpace(viper.GetString(co.Name))

	key, ok := co.ConfigKey.(*string)
	if !ok {
		return fmt.Errorf("the expected type for the config key in %s is a string, but a %T was provided instead", co.Name, co.ConfigKey)
	}
	if privateKey == "" {
		*key = ""
		return nil
	}

	if err := ValidateSolanaPrivateKey(privateKey); err != nil {
		return fmt.Errorf("invalid private key provided in %s: %w", co.Name, err)
	}
	*key = privateKey

	return nil
}

func ValidateSolanaPrivateKey(privateKey string) error {
	if _, err := solana.PrivateKeyFromBase58(privateKey); err != nil {
		return fmt.Errorf("parsing base58 private key: %w", err)
	}
	return nil
}

func SetConfigOptionURL(co *config.ConfigOption) error {
	rawURL := strings.TrimRight(strings.TrimSpace(viper.GetString(co.Name)), "/")

	u, err := url.ParseRequestURI(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid URL provided in %s: %q", co.Name, rawURL)
	}

	key, ok := co.ConfigKey.(*string)
	if !ok {
		return fmt.Errorf("the expected type for the config key in %s is a string, but a %T was provided instead", co.Name, co.ConfigKey)
	}
	*key = rawURL

	return nil
}

func SetConfigOptionPath(co *config.ConfigOption) error {
	path := strings.TrimSpace(viper.GetString(co.Name))
	if path == "" {
		return fmt.Errorf("%s cannot be empty", co.Name)
	}

	expanded, err := ExpandHome(path)
	if err != nil {
		return fmt.Errorf("expanding %s: %w", co.Name, err)
	}

	key, ok := co.ConfigKey.(*string)
	if !ok {
		return fmt.Errorf("the expected type for the config key in %s is a string, but a %T was provided instead", co.Name, co.ConfigKey)
	}
	*key = expanded

	return nil
}

// ExpandHome replaces a leading ~ with the current user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
