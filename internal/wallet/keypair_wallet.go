package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

const KeypairWalletName = "Keypair"

type ApprovalKind string

const (
	ApprovalKindConnect         ApprovalKind = "connect"
	ApprovalKindSignMessage     ApprovalKind = "sign_message"
	ApprovalKindSignTransaction ApprovalKind = "sign_transaction"
)

type ApprovalRequest struct {
	Kind    ApprovalKind
	Address string
	Summary string
}

// Approver stands in for the wallet's confirmation dialog. Returning false rejects the request.
type Approver func(ctx context.Context, req ApprovalRequest) (bool, error)

// AutoApprove accepts every request.
func AutoApprove(context.Context, ApprovalRequest) (bool, error) { return true, nil }

// KeypairWallet is a wallet backed by a local ed25519 key.
type KeypairWallet struct {
	privateKey solana.PrivateKey
	approve    Approver

	mu          sync.Mutex
	selected    bool
	connected   bool
	connecting  bool
	subscribers map[int]func(Event)
	nextSubID   int
}

var _ Adapter = (*KeypairWallet)(nil)

func NewKeypairWallet(privateKey string, approve Approver) (*KeypairWallet, error) {
	pk, err := solana.PrivateKeyFromBase58(privateKey)
	if err != nil {
		return nil, fmt.Errorf("parsing wallet private key: %w", err)
	}

	return NewKeypairWalletFromKey(pk, approve), nil
}

func NewKeypairWalletFromKey(privateKey solana.PrivateKey, approve Approver) *KeypairWallet {
	if approve == nil {
		approve = AutoApprove
	}

	return &KeypairWallet{
		privateKey:  privateKey,
		approve:     approve,
		selected:    true,
		subscribers: make(map[int]func(Event)),
	}
}

func (w *KeypairWallet) address() string {
	return w.privateKey.PublicKey().String()
}

func (w *KeypairWallet) Connected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected
}

func (w *KeypairWallet) Connecting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connecting
}

func (w *KeypairWallet) PublicKey() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected {
		return ""
	}
	return w.address()
}

func (w *KeypairWallet) Wallets() []Info {
	return []Info{{Name: KeypairWalletName, Ready: true}}
}

func (w *KeypairWallet) Select(name string) error {
	if name != KeypairWalletName {
		return fmt.Errorf("selecting %q: %w", name, ErrWalletNotFound)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.selected = true
	return nil
}

func (w *KeypairWallet) Connect(ctx context.Context) error {
	w.mu.Lock()
	if !w.selected {
		w.mu.Unlock()
		return ErrNoProvider
	}
	if w.connected || w.connecting {
		w.mu.Unlock()
		return nil
	}
	w.connecting = true
	w.mu.Unlock()

	approved, err := w.approve(ctx, ApprovalRequest{Kind: ApprovalKindConnect, Address: w.address()})

	w.mu.Lock()
	w.connecting = false
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("requesting connection approval: %w", err)
	}
	if !approved {
		w.mu.Unlock()
		return ErrUserRejected
	}
	w.connected = true
	w.mu.Unlock()

	w.notify(Event{Connected: true, PublicKey: w.address()})
	return nil
}

func (w *KeypairWallet) Disconnect(_ context.Context) error {
	w.mu.Lock()
	wasConnected := w.connected
	w.connected = false
	w.mu.Unlock()

	if wasConnected {
		w.notify(Event{Connected: false})
	}
	return nil
}

func (w *KeypairWallet) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	if !w.Connected() {
		return nil, ErrNotConnected
	}

	approved, err := w.approve(ctx, ApprovalRequest{Kind: ApprovalKindSignMessage, Address: w.address(), Summary: string(message)})
	if err != nil {
		return nil, fmt.Errorf("requesting message signature approval: %w", err)
	}
	if !approved {
		return nil, ErrUserRejected
	}

	signature, err := w.privateKey.Sign(message)
	if err != nil {
		return nil, fmt.Errorf("signing message: %w", err)
	}

	return signature[:], nil
}

func (w *KeypairWallet) SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction cannot be nil")
	}
	if !w.Connected() {
		return nil, ErrNotConnected
	}

	summary := fmt.Sprintf("%d instruction(s), fee payer %s", len(tx.Message.Instructions), feePayer(tx))
	approved, err := w.approve(ctx, ApprovalRequest{Kind: ApprovalKindSignTransaction, Address: w.address(), Summary: summary})
	if err != nil {
		return nil, fmt.Errorf("requesting transaction signature approval: %w", err)
	}
	if !approved {
		return nil, ErrUserRejected
	}

	owner := w.privateKey.PublicKey()
	if !tx.IsSigner(owner) {
		return nil, fmt.Errorf("account %s is not a signer of the transaction: %w", owner, ErrNotSigner)
	}

	// Other signers, such as a server-side fee payer, keep their signature slots untouched.
	_, err = tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(owner) {
			return &w.privateKey
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("signing transaction in %T: %w", w, err)
	}

	return tx, nil
}

func (w *KeypairWallet) Subscribe(fn func(Event)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextSubID
	w.nextSubID++
	w.subscribers[id] = fn

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.subscribers, id)
	}
}

func (w *KeypairWallet) notify(event Event) {
	w.mu.Lock()
	subscribers := make([]func(Event), 0, len(w.subscribers))
	for i := 0; i < w.nextSubID; i++ {
		if fn, ok := w.subscribers[i]; ok {
			subscribers = append(subscribers, fn)
		}
	}
	w.mu.Unlock()

	for _, fn := range subscribers {
		fn(event)
	}
}

func (w *KeypairWallet) String() string {
	return fmt.Sprintf("%T{publicKey: %s}", w, w.address())
}

func feePayer(tx *solana.Transaction) string {
	if len(tx.Message.AccountKeys) == 0 {
		return "unknown"
	}
	return tx.Message.AccountKeys[0].String()
}
