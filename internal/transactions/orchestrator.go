// Package transactions turns transactions prepared by the assistant into signed ones and hands them back to the chat.
package transactions

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	set "github.com/deckarep/golang-set/v2"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/solanize/solanize-client/internal/metrics"
	"github.com/solanize/solanize-client/internal/validators"
	"github.com/solanize/solanize-client/internal/wallet"
	"github.com/solanize/solanize-client/pkg/gwclient/types"
)

const (
	RefreshPoolName          = "PortfolioRefreshPool"
	DefaultRefreshDelay      = 2 * time.Second
	DefaultMaxRefreshWorkers = 2
)

const (
	signingOutcomeSuccess      = "success"
	signingOutcomeRejected     = "rejected"
	signingOutcomeFailed       = "failed"
	signingOutcomeSubmitFailed = "submit_failed"
)

var (
	ErrNotPending           = errors.New("transaction is not pending")
	ErrSigningInProgress    = errors.New("transaction is already being signed")
	ErrDuplicateTransaction = errors.New("transaction is already pending")
)

// Signer is the wallet side of the orchestrator.
type Signer interface {
	SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error)
}

// ChatSubmitter delivers signed transactions into the chat session they were prepared in.
type ChatSubmitter interface {
	SubmitSignedTransaction(ctx context.Context, sessionID, transactionID, signedTransaction string) error
	DismissTransaction(transactionID string) bool
}

// PortfolioRefresher reloads balances once a transaction had time to land.
type PortfolioRefresher interface {
	Refresh(ctx context.Context) error
}

// Pending is a prepared transaction waiting for the user. ID is local to this client, the gateway knows the
// transaction by Transaction.TransactionID.
type Pending struct {
	ID          string
	SessionID   string
	Transaction types.PreparedTransaction
	AcceptedAt  time.Time
}

type OrchestratorOptions struct {
	Signer            Signer
	Chat              ChatSubmitter
	Refresher         PortfolioRefresher
	MetricsService    metrics.MetricsService
	RefreshDelay      time.Duration
	MaxRefreshWorkers int
}

func (o *OrchestratorOptions) ValidateOptions() error {
	if o.Signer == nil {
		return fmt.Errorf("signer cannot be nil")
	}
	if o.Chat == nil {
		return fmt.Errorf("chat submitter cannot be nil")
	}
	if o.Refresher == nil {
		return fmt.Errorf("portfolio refresher cannot be nil")
	}
	if o.MetricsService == nil {
		return fmt.Errorf("metrics service cannot be nil")
	}
	if o.RefreshDelay < 0 {
		return fmt.Errorf("refresh delay cannot be negative")
	}
	if o.MaxRefreshWorkers < 0 {
		return fmt.Errorf("max refresh workers cannot be negative")
	}
	return nil
}

type Orchestrator struct {
	signer       Signer
	chat         ChatSubmitter
	refresher    PortfolioRefresher
	metrics      metrics.MetricsService
	refreshDelay time.Duration
	validate     *validator.Validate
	pool         pond.Pool
	baseCtx      context.Context
	cancel       context.CancelFunc
	closeOnce    sync.Once
	now          func() time.Time

	mu      sync.Mutex
	pending []Pending
	signing set.Set[string]
}

func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	if err := opts.ValidateOptions(); err != nil {
		return nil, fmt.Errorf("validating orchestrator options: %w", err)
	}

	workers := opts.MaxRefreshWorkers
	if workers == 0 {
		workers = DefaultMaxRefreshWorkers
	}
	pool := pond.NewPool(workers)
	opts.MetricsService.RegisterPoolMetrics(RefreshPoolName, pool)

	baseCtx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		signer:       opts.Signer,
		chat:         opts.Chat,
		refresher:    opts.Refresher,
		metrics:      opts.MetricsService,
		refreshDelay: opts.RefreshDelay,
		validate:     validators.NewValidator(),
		pool:         pool,
		baseCtx:      baseCtx,
		cancel:       cancel,
		now:          time.Now,
		signing:      set.NewThreadUnsafeSet[string](),
	}, nil
}

// Close drops the refreshes that did not start yet and waits for the running ones.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.cancel()
		o.pool.StopAndWait()
	})
}

// Accept adds tx to the pending set under a new client-local id.
func (o *Orchestrator) Accept(ctx context.Context, sessionID string, tx types.PreparedTransaction) (Pending, error) {
	if err := validators.ValidateStruct(o.validate, tx); err != nil {
		return Pending{}, fmt.Errorf("validating prepared transaction: %w", err)
	}

	o.mu.Lock()
	if slices.ContainsFunc(o.pending, func(p Pending) bool { return p.Transaction.TransactionID == tx.TransactionID }) {
		o.mu.Unlock()
		return Pending{}, fmt.Errorf("accepting transaction %s: %w", tx.TransactionID, ErrDuplicateTransaction)
	}
	entry := Pending{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		Transaction: tx,
		AcceptedAt:  o.now(),
	}
	o.pending = append(o.pending, entry)
	count := len(o.pending)
	o.mu.Unlock()

	o.metrics.SetPendingTransactions(count)
	log.Ctx(ctx).Infof("transaction %s (%s) awaiting signature as %s", tx.TransactionID, tx.TransactionType, entry.ID)
	return entry, nil
}

// HandlePreparedTransaction accepts tx and logs when it cannot. It fits chat.PreparedTransactionHandler.
func (o *Orchestrator) HandlePreparedTransaction(ctx context.Context, sessionID string, tx types.PreparedTransaction) {
	if _, err := o.Accept(ctx, sessionID, tx); err != nil {
		log.Ctx(ctx).Warnf("ignoring prepared transaction: %v", err)
	}
}

// SignAndSend asks the wallet to sign the pending transaction id and sends the result back to its chat session. The
// entry stays pending when any step fails, so the user can try again. Once sent it is gone and cannot be signed twice.
func (o *Orchestrator) SignAndSend(ctx context.Context, id string) error {
	o.mu.Lock()
	idx := o.indexLocked(id)
	if idx < 0 {
		o.mu.Unlock()
		return ErrNotPending
	}
	if o.signing.Contains(id) {
		o.mu.Unlock()
		return ErrSigningInProgress
	}
	entry := o.pending[idx]
	o.signing.Add(id)
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.signing.Remove(id)
		o.mu.Unlock()
	}()

	signed, err := o.sign(ctx, entry.Transaction)
	if err != nil {
		outcome := signingOutcomeFailed
		if errors.Is(err, wallet.ErrUserRejected) {
			outcome = signingOutcomeRejected
		}
		o.metrics.IncTransactionSignings(outcome)
		log.Ctx(ctx).Warnf("signing transaction %s: %v", entry.Transaction.TransactionID, err)
		return err
	}

	if err := o.chat.SubmitSignedTransaction(ctx, entry.SessionID, entry.Transaction.TransactionID, signed); err != nil {
		o.metrics.IncTransactionSignings(signingOutcomeSubmitFailed)
		return fmt.Errorf("submitting signed transaction %s: %w", entry.Transaction.TransactionID, err)
	}

	o.mu.Lock()
	o.removeLocked(id)
	count := len(o.pending)
	o.mu.Unlock()

	o.metrics.SetPendingTransactions(count)
	o.metrics.IncTransactionSignings(signingOutcomeSuccess)
	log.Ctx(ctx).Infof("transaction %s signed and sent", entry.Transaction.TransactionID)

	o.scheduleRefresh(ctx)
	return nil
}

func (o *Orchestrator) sign(ctx context.Context, prepared types.PreparedTransaction) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(prepared.UnsignedTransaction)
	if err != nil {
		return "", fmt.Errorf("decoding unsigned transaction: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return "", fmt.Errorf("decoding unsigned transaction: %w", err)
	}

	signedTx, err := o.signer.SignTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("signing transaction: %w", err)
	}

	signed, err := signedTx.ToBase64()
	if err != nil {
		return "", fmt.Errorf("encoding signed transaction: %w", err)
	}
	return signed, nil
}

// scheduleRefresh reloads the portfolio after the refresh delay, leaving time for the transaction to be confirmed.
func (o *Orchestrator) scheduleRefresh(ctx context.Context) {
	log.Ctx(ctx).Debugf("portfolio refresh scheduled in %s", o.refreshDelay)
	o.pool.Submit(func() {
		timer := time.NewTimer(o.refreshDelay)
		defer timer.Stop()
		select {
		case <-o.baseCtx.Done():
			return
		case <-timer.C:
		}

		if err := o.refresher.Refresh(o.baseCtx); err != nil {
			log.Ctx(o.baseCtx).Warnf("refreshing portfolio after signing: %v", err)
		}
	})
}

// Cancel forgets the pending transaction id without contacting the gateway.
func (o *Orchestrator) Cancel(ctx context.Context, id string) error {
	o.mu.Lock()
	idx := o.indexLocked(id)
	if idx < 0 {
		o.mu.Unlock()
		return ErrNotPending
	}
	if o.signing.Contains(id) {
		o.mu.Unlock()
		return ErrSigningInProgress
	}
	entry := o.pending[idx]
	o.removeLocked(id)
	count := len(o.pending)
	o.mu.Unlock()

	o.chat.DismissTransaction(entry.Transaction.TransactionID)
	o.metrics.SetPendingTransactions(count)
	log.Ctx(ctx).Infof("transaction %s cancelled", entry.Transaction.TransactionID)
	return nil
}

// Clear forgets every pending transaction that is not being signed.
func (o *Orchestrator) Clear() {
	o.mu.Lock()
	o.pending = slices.DeleteFunc(o.pending, func(p Pending) bool { return !o.signing.Contains(p.ID) })
	count := len(o.pending)
	o.mu.Unlock()

	o.metrics.SetPendingTransactions(count)
}

// Pending returns the pending transactions in the order they were accepted.
func (o *Orchestrator) Pending() []Pending {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.pending)
}

func (o *Orchestrator) Get(id string) (Pending, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if idx := o.indexLocked(id); idx >= 0 {
		return o.pending[idx], true
	}
	return Pending{}, false
}

// IsSigning reports whether a signature for id is being requested right now.
func (o *Orchestrator) IsSigning(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.signing.Contains(id)
}

func (o *Orchestrator) indexLocked(id string) int {
	return slices.IndexFunc(o.pending, func(p Pending) bool { return p.ID == id })
}

func (o *Orchestrator) removeLocked(id string) {
	if idx := o.indexLocked(id); idx >= 0 {
		o.pending = slices.Delete(o.pending, idx, idx+1)
	}
}
