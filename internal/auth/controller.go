// Package auth drives the authentication state machine of the client: it follows the wallet connection and performs
// the challenge-response exchange that turns a connected wallet into a bearer credential.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stellar/go-stellar-sdk/support/log"
	"golang.org/x/sync/singleflight"

	"github.com/solanize/solanize-client/internal/metrics"
	"github.com/solanize/solanize-client/internal/tokenstore"
	"github.com/solanize/solanize-client/internal/utils"
	"github.com/solanize/solanize-client/internal/wallet"
	"github.com/solanize/solanize-client/pkg/gwclient"
	"github.com/solanize/solanize-client/pkg/gwclient/types"
)

var (
	ErrWalletNotConnected = errors.New("wallet is not connected")
	// ErrSuperseded is returned when the identity changed while an exchange was in flight. Its result is discarded.
	ErrSuperseded   = errors.New("authentication superseded by a wallet change")
	ErrNoCredential = errors.New("no stored credential")
)

const (
	exchangeOutcomeSuccess   = "success"
	exchangeOutcomeFailure   = "failure"
	exchangeOutcomeDiscarded = "discarded"
)

type Controller struct {
	wallet  wallet.Adapter
	api     gwclient.AuthAPI
	tokens  tokenstore.TokenStore
	metrics metrics.MetricsService
	now     func() time.Time

	mu        sync.Mutex
	state     State
	address   string
	lastErr   error
	epoch     uint64
	attempt   uint64
	listeners map[int]func(Snapshot)
	nextLstID int

	exchanges   singleflight.Group
	background  sync.WaitGroup
	baseCtx     context.Context
	cancel      context.CancelFunc
	unsubscribe func()
}

var _ gwclient.UnauthorizedHandler = (*Controller)(nil)

func NewController(walletAdapter wallet.Adapter, api gwclient.AuthAPI, tokens tokenstore.TokenStore, metricsService metrics.MetricsService) *Controller {
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Controller{
		wallet:    walletAdapter,
		api:       api,
		tokens:    tokens,
		metrics:   metricsService,
		now:       time.Now,
		state:     StateDisconnected,
		listeners: make(map[int]func(Snapshot)),
		baseCtx:   baseCtx,
		cancel:    cancel,
	}
}

// Start subscribes to wallet connection events. When the wallet is already connected, the controller behaves as if
// it had just received the connection event.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.unsubscribe != nil {
		c.mu.Unlock()
		return
	}
	c.unsubscribe = c.wallet.Subscribe(c.handleWalletEvent)
	c.mu.Unlock()

	if c.wallet.Connected() {
		c.handleWalletEvent(wallet.Event{Connected: true, PublicKey: c.wallet.PublicKey()})
	}
	log.Ctx(ctx).Debugf("auth controller started in state %s", c.State())
}

// Close stops following the wallet and waits for background exchanges to finish.
func (c *Controller) Close() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	c.cancel()
	c.background.Wait()
}

func (c *Controller) handleWalletEvent(event wallet.Event) {
	ctx := c.baseCtx
	if !event.Connected {
		c.invalidate(ctx, StateDisconnected, "wallet disconnected")
		return
	}

	c.mu.Lock()
	switch {
	case c.state == StateDisconnected:
	case c.address != event.PublicKey:
		// account switch, the previous identity is gone
		c.epoch++
		c.clearTokenLocked(ctx)
		log.Ctx(ctx).Infof("wallet account changed from %s", utils.ShortAddress(c.address))
	default:
		c.mu.Unlock()
		return
	}

	c.address = event.PublicKey
	c.transitionLocked(StateConnected, nil)
	restored := c.restoreLocked(ctx)
	snapshot := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snapshot)

	if !restored {
		c.authenticateInBackground()
	}
}

// restoreLocked moves straight to StateAuthenticated when a usable credential for the connected address is stored.
func (c *Controller) restoreLocked(ctx context.Context) bool {
	token, err := c.tokens.Get(ctx)
	if err != nil {
		log.Ctx(ctx).Errorf("reading stored credential: %v", err)
		return false
	}
	if token == "" {
		return false
	}

	if tokenstore.IsExpired(token, c.now(), 0) {
		log.Ctx(ctx).Infof("stored credential expired, a new challenge will be requested")
		c.clearTokenLocked(ctx)
		return false
	}
	if subject, err := tokenstore.ParseSubject(token); err == nil && subject != "" && subject != c.address {
		log.Ctx(ctx).Infof("stored credential belongs to %s, a new challenge will be requested", utils.ShortAddress(subject))
		c.clearTokenLocked(ctx)
		return false
	}

	c.transitionLocked(StateAuthenticated, nil)
	log.Ctx(ctx).Infof("restored credential for %s", utils.ShortAddress(c.address))
	return true
}

func (c *Controller) authenticateInBackground() {
	c.background.Add(1)
	go func() {
		defer c.background.Done()
		if err := c.Authenticate(c.baseCtx); err != nil && !errors.Is(err, ErrSuperseded) {
			log.Ctx(c.baseCtx).Warnf("automatic authentication failed: %v", err)
		}
	}()
}

// Authenticate runs the challenge-response exchange for the connected wallet. Concurrent calls share the exchange
// in flight instead of starting a new one.
func (c *Controller) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateDisconnected:
		c.mu.Unlock()
		return ErrWalletNotConnected
	case StateAuthenticated:
		c.mu.Unlock()
		return nil
	case StateConnected, StateError:
		c.attempt++
		c.transitionLocked(StateAuthenticating, nil)
	}
	address, epoch, attempt := c.address, c.epoch, c.attempt
	snapshot := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snapshot)

	key := fmt.Sprintf("%s/%d/%d", address, epoch, attempt)
	_, err, _ := c.exchanges.Do(key, func() (any, error) {
		return nil, c.exchange(ctx, address, epoch, attempt)
	})
	return err //nolint:wrapcheck // already wrapped by exchange
}

// Retry re-enters StateConnected after a failed exchange and authenticates again.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateError {
		c.mu.Unlock()
		return c.Authenticate(ctx)
	}
	c.transitionLocked(StateConnected, nil)
	snapshot := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snapshot)

	return c.Authenticate(ctx)
}

func (c *Controller) exchange(ctx context.Context, address string, epoch, attempt uint64) error {
	c.mu.Lock()
	// A caller that joined late finds the exchange already settled.
	if c.epoch != epoch {
		c.mu.Unlock()
		return ErrSuperseded
	}
	if c.state != StateAuthenticating || c.attempt != attempt {
		err := c.lastErr
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	start := c.now()
	defer func() {
		c.metrics.ObserveAuthExchangeDuration(c.now().Sub(start).Seconds())
	}()

	challenge, err := c.api.Challenge(ctx, address)
	if err != nil {
		return c.failExchange(ctx, epoch, fmt.Errorf("requesting challenge: %w", err))
	}
	if !c.isCurrent(epoch) {
		return c.discardExchange(ctx, address)
	}

	signature, err := c.wallet.SignMessage(ctx, []byte(challenge))
	if err != nil {
		return c.failExchange(ctx, epoch, fmt.Errorf("signing challenge: %w", err))
	}
	if !c.isCurrent(epoch) {
		return c.discardExchange(ctx, address)
	}

	token, err := c.api.Verify(ctx, types.VerifyRequest{
		WalletAddress: address,
		Signature:     base58.Encode(signature),
		Challenge:     challenge,
	})
	if err != nil {
		return c.failExchange(ctx, epoch, fmt.Errorf("verifying signature: %w", err))
	}

	c.mu.Lock()
	if c.epoch != epoch || c.state != StateAuthenticating {
		c.mu.Unlock()
		return c.discardExchange(ctx, address)
	}
	if err = c.tokens.Set(ctx, token); err != nil {
		err = fmt.Errorf("storing credential: %w", err)
		c.transitionLocked(StateError, err)
		snapshot := c.snapshotLocked()
		c.mu.Unlock()
		c.metrics.IncAuthExchanges(exchangeOutcomeFailure)
		c.notify(snapshot)
		return err
	}
	c.transitionLocked(StateAuthenticated, nil)
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.metrics.IncAuthExchanges(exchangeOutcomeSuccess)
	log.Ctx(ctx).Infof("authenticated wallet %s", utils.ShortAddress(address))
	c.notify(snapshot)
	return nil
}

func (c *Controller) failExchange(ctx context.Context, epoch uint64, err error) error {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return c.discardExchange(ctx, "")
	}
	c.transitionLocked(StateError, err)
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.metrics.IncAuthExchanges(exchangeOutcomeFailure)
	log.Ctx(ctx).Warnf("authentication failed: %v", err)
	c.notify(snapshot)
	return err
}

func (c *Controller) discardExchange(ctx context.Context, address string) error {
	c.metrics.IncAuthExchanges(exchangeOutcomeDiscarded)
	log.Ctx(ctx).Debugf("discarding authentication result for %q, the identity changed", utils.ShortAddress(address))
	return ErrSuperseded
}

func (c *Controller) isCurrent(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch == epoch && c.state == StateAuthenticating
}

// HandleUnauthorized clears rejectedToken and demotes the controller to StateConnected. It is idempotent: a credential
// stored after rejectedToken was issued is left alone.
func (c *Controller) HandleUnauthorized(ctx context.Context, rejectedToken string) {
	c.mu.Lock()
	current, err := c.tokens.Get(ctx)
	if err != nil {
		c.mu.Unlock()
		log.Ctx(ctx).Errorf("reading stored credential: %v", err)
		return
	}
	if current != "" && current != rejectedToken {
		c.mu.Unlock()
		log.Ctx(ctx).Debugf("ignoring rejection of a superseded credential")
		return
	}
	if current != "" {
		c.clearTokenLocked(ctx)
	}

	if c.state != StateAuthenticated {
		c.mu.Unlock()
		return
	}
	c.transitionLocked(StateConnected, nil)
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	log.Ctx(ctx).Warnf("credential rejected by the gateway, authentication required")
	c.notify(snapshot)
}

// Logout forgets the credential. The wallet stays connected.
func (c *Controller) Logout(ctx context.Context) {
	target := StateDisconnected
	if c.wallet.Connected() {
		target = StateConnected
	}
	c.invalidate(ctx, target, "logout")
}

func (c *Controller) invalidate(ctx context.Context, target State, reason string) {
	c.mu.Lock()
	c.epoch++
	c.clearTokenLocked(ctx)
	if target == StateDisconnected {
		c.address = ""
	}
	c.transitionLocked(target, nil)
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	log.Ctx(ctx).Infof("identity invalidated: %s", reason)
	c.notify(snapshot)
}

// RefreshToken rotates the stored credential. A failure leaves the current credential in place.
func (c *Controller) RefreshToken(ctx context.Context) error {
	oldToken, err := c.tokens.Get(ctx)
	if err != nil {
		return fmt.Errorf("reading stored credential: %w", err)
	}
	if oldToken == "" {
		return ErrNoCredential
	}

	newToken, err := c.api.RefreshToken(ctx)
	if err != nil {
		log.Ctx(ctx).Warnf("refreshing credential failed, keeping the current one: %v", err)
		return fmt.Errorf("refreshing credential: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.tokens.Get(ctx)
	if err != nil {
		return fmt.Errorf("reading stored credential: %w", err)
	}
	if current != oldToken {
		return ErrSuperseded
	}
	if err = c.tokens.Set(ctx, newToken); err != nil {
		return fmt.Errorf("storing refreshed credential: %w", err)
	}

	log.Ctx(ctx).Debugf("credential refreshed")
	return nil
}

// RefreshIfExpiring refreshes the credential when it expires within leeway.
func (c *Controller) RefreshIfExpiring(ctx context.Context, leeway time.Duration) error {
	token, err := c.tokens.Get(ctx)
	if err != nil {
		return fmt.Errorf("reading stored credential: %w", err)
	}
	if token == "" || !tokenstore.IsExpired(token, c.now(), leeway) {
		return nil
	}

	return c.RefreshToken(ctx)
}

func (c *Controller) clearTokenLocked(ctx context.Context) {
	if err := c.tokens.Clear(ctx); err != nil {
		log.Ctx(ctx).Errorf("clearing stored credential: %v", err)
	}
}

func (c *Controller) transitionLocked(to State, err error) {
	from := c.state
	c.state = to
	c.lastErr = err
	if from != to {
		c.metrics.IncAuthStateTransition(from.String(), to.String())
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{State: c.state, WalletAddress: c.address, Err: c.lastErr, Epoch: c.epoch}
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) State() State {
	return c.Snapshot().State
}

func (c *Controller) IsAuthenticated() bool {
	return c.Snapshot().IsAuthenticated()
}

func (c *Controller) IsAuthenticating() bool {
	return c.Snapshot().IsAuthenticating()
}

func (c *Controller) HasError() bool {
	return c.Snapshot().HasError()
}

// OnStateChange registers fn for every state change and returns a function that removes it. Listeners are called
// outside the controller lock.
func (c *Controller) OnStateChange(fn func(Snapshot)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextLstID
	c.nextLstID++
	c.listeners[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Controller) notify(snapshot Snapshot) {
	c.mu.Lock()
	listeners := make([]func(Snapshot), 0, len(c.listeners))
	for i := 0; i < c.nextLstID; i++ {
		if fn, ok := c.listeners[i]; ok {
			listeners = append(listeners, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}
