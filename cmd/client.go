package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/solanize/solanize-client/cmd/utils"
	"github.com/solanize/solanize-client/internal/app"
	"github.com/solanize/solanize-client/internal/wallet"
)

const privateKeyPromptLabel = "Wallet private key (base58):"

// openApp builds the client for opts, prompting for the wallet key when it was not configured.
func openApp(ctx context.Context, opts *utils.ClientOptions, approver wallet.Approver, stdout io.Writer) (*app.App, error) {
	prompter, err := utils.NewDefaultSecretPrompter(privateKeyPromptLabel, os.Stdin, stdout)
	if err != nil {
		return nil, fmt.Errorf("creating private key prompter: %w", err)
	}
	if err := utils.ResolveWalletPrivateKey(opts, prompter); err != nil {
		return nil, fmt.Errorf("resolving wallet private key: %w", err)
	}

	a, err := app.New(ctx, opts.AppConfigs(approver))
	if err != nil {
		return nil, fmt.Errorf("initializing client: %w", err)
	}
	return a, nil
}

// startApp opens the client and authenticates its wallet.
func startApp(ctx context.Context, opts *utils.ClientOptions, approver wallet.Approver, stdout io.Writer) (*app.App, error) {
	a, err := openApp(ctx, opts, approver, stdout)
	if err != nil {
		return nil, err
	}
	if err := a.Start(ctx); err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("starting client: %w", err)
	}
	return a, nil
}
