// Package wallet models the wallet the user signs with. Every verb that needs the user's consent is asynchronous and
// may be declined, so callers must handle ErrUserRejected as a normal outcome.
package wallet

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrUserRejected   = errors.New("the user rejected the request")
	ErrNotConnected   = errors.New("wallet is not connected")
	ErrWalletNotFound = errors.New("wallet not found")
	ErrNoProvider     = errors.New("no wallet selected")
	ErrNotSigner      = errors.New("wallet account is not a required signer")
)

// Event is emitted every time the connection status of the wallet changes.
type Event struct {
	Connected bool
	// PublicKey is the base58 address of the connected account, empty when disconnected.
	PublicKey string
}

type Info struct {
	Name  string
	Ready bool
}

type Adapter interface {
	Connected() bool
	Connecting() bool
	// PublicKey returns the base58 address of the connected account, or an empty string.
	PublicKey() string
	Wallets() []Info
	Select(name string) error
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
	SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error)
	// Subscribe registers fn for connection events and returns a function that removes it.
	Subscribe(fn func(Event)) (unsubscribe func())
}
