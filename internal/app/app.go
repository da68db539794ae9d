// Package app assembles the client: token database, wallet, gateway clients, authentication, chat and transaction
// orchestration. Commands build an App from Configs and drive it.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/solanize/solanize-client/internal/apptracker"
	"github.com/solanize/solanize-client/internal/apptracker/dryrun"
	"github.com/solanize/solanize-client/internal/apptracker/sentry"
	"github.com/solanize/solanize-client/internal/auth"
	"github.com/solanize/solanize-client/internal/chat"
	"github.com/solanize/solanize-client/internal/db"
	"github.com/solanize/solanize-client/internal/metrics"
	"github.com/solanize/solanize-client/internal/tokenstore"
	"github.com/solanize/solanize-client/internal/transactions"
	"github.com/solanize/solanize-client/internal/utils"
	"github.com/solanize/solanize-client/internal/wallet"
	"github.com/solanize/solanize-client/internal/walletdata"
	"github.com/solanize/solanize-client/pkg/gwclient"
)

const (
	sentryFlushSeconds = 5
	// CredentialRefreshLeeway is how close to its expiry a credential gets rotated.
	CredentialRefreshLeeway = 5 * time.Minute
)

type Configs struct {
	LogLevel         logrus.Level
	GatewayURL       string
	SolanaGatewayURL string
	TokenDBPath      string
	WalletPrivateKey string
	// Approver confirms wallet requests. Nil approves everything.
	Approver              wallet.Approver
	PortfolioRefreshDelay time.Duration
	RequestTimeout        time.Duration
	// MetricsPort exposes the Prometheus registry on /metrics. 0 disables it.
	MetricsPort int
	SentryDSN   string
	Environment string
}

type App struct {
	Wallet       *wallet.KeypairWallet
	Tokens       *tokenstore.SQLStore
	Gateway      *gwclient.Client
	Auth         *auth.Controller
	Chat         *chat.Store
	WalletData   *walletdata.Service
	Orchestrator *transactions.Orchestrator
	Metrics      metrics.MetricsService
	Tracker      apptracker.AppTracker

	dbConnectionPool db.ConnectionPool
	metricsServer    *http.Server
	unsubscribe      func()
	closeOnce        sync.Once
}

// New opens the token database, migrates it and wires every component. Nothing talks to the gateway until the wallet
// connects.
func New(ctx context.Context, cfg Configs) (*App, error) {
	dbConnectionPool, err := OpenTokenDB(ctx, cfg.TokenDBPath)
	if err != nil {
		return nil, err
	}

	a, err := newApp(ctx, cfg, dbConnectionPool)
	if err != nil {
		utils.DeferredClose(ctx, dbConnectionPool, "closing token database")
		return nil, err
	}
	return a, nil
}

// OpenTokenDB opens the SQLite file at path, creating its directory when needed, and applies pending migrations.
func OpenTokenDB(ctx context.Context, path string) (db.ConnectionPool, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating token database directory: %w", err)
	}

	dbConnectionPool, err := db.OpenDBConnectionPool(db.SQLiteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("opening token database: %w", err)
	}

	applied, err := db.Migrate(ctx, dbConnectionPool, migrate.Up, 0)
	if err != nil {
		utils.DeferredClose(ctx, dbConnectionPool, "closing token database")
		return nil, fmt.Errorf("migrating token database: %w", err)
	}
	if applied > 0 {
		log.Ctx(ctx).Debugf("applied %d token database migrations", applied)
	}
	return dbConnectionPool, nil
}

func newApp(ctx context.Context, cfg Configs, dbConnectionPool db.ConnectionPool) (*App, error) {
	sqlxDB, err := dbConnectionPool.SqlxDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting sqlx db: %w", err)
	}
	metricsService := metrics.NewMetricsService(sqlxDB)

	tracker, err := newTracker(cfg.SentryDSN, cfg.Environment)
	if err != nil {
		return nil, err
	}

	keypairWallet, err := wallet.NewKeypairWallet(cfg.WalletPrivateKey, cfg.Approver)
	if err != nil {
		return nil, fmt.Errorf("creating wallet: %w", err)
	}

	tokens := tokenstore.NewSQLStore(dbConnectionPool)
	gateway := gwclient.NewClient(cfg.GatewayURL, tokens, metricsService)
	if cfg.RequestTimeout > 0 {
		gateway.HTTPClient.Timeout = cfg.RequestTimeout
	}

	controller := auth.NewController(keypairWallet, gateway, tokens, metricsService)
	gateway.SetUnauthorizedHandler(controller)

	store := chat.NewStore(gateway, controller, tracker, metricsService)

	walletDataClient := walletdata.NewClient(cfg.SolanaGatewayURL)
	if cfg.RequestTimeout > 0 {
		walletDataClient.HTTPClient.Timeout = cfg.RequestTimeout
	}
	walletData := walletdata.NewService(walletDataClient, keypairWallet, metricsService)

	orchestrator, err := transactions.NewOrchestrator(transactions.OrchestratorOptions{
		Signer:         keypairWallet,
		Chat:           store,
		Refresher:      walletData,
		MetricsService: metricsService,
		RefreshDelay:   cfg.PortfolioRefreshDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("creating transaction orchestrator: %w", err)
	}
	store.OnPreparedTransaction(orchestrator.HandlePreparedTransaction)

	a := &App{
		Wallet:           keypairWallet,
		Tokens:           tokens,
		Gateway:          gateway,
		Auth:             controller,
		Chat:             store,
		WalletData:       walletData,
		Orchestrator:     orchestrator,
		Metrics:          metricsService,
		Tracker:          tracker,
		dbConnectionPool: dbConnectionPool,
	}
	a.unsubscribe = controller.OnStateChange(a.forgetPendingOnIdentityChange())

	if cfg.MetricsPort > 0 {
		a.metricsServer = startMetricsServer(cfg.MetricsPort, metricsService)
	}
	return a, nil
}

func newTracker(dsn, environment string) (apptracker.AppTracker, error) {
	if dsn == "" {
		return &dryrun.DryRunTracker{}, nil
	}

	tracker, err := sentry.NewSentryTracker(dsn, environment, sentryFlushSeconds)
	if err != nil {
		return nil, fmt.Errorf("initializing app tracker: %w", err)
	}
	return tracker, nil
}

// forgetPendingOnIdentityChange drops the transactions prepared for an identity that is gone.
func (a *App) forgetPendingOnIdentityChange() func(auth.Snapshot) {
	var mu sync.Mutex
	var epoch uint64
	return func(snapshot auth.Snapshot) {
		mu.Lock()
		changed := snapshot.Epoch != epoch
		epoch = snapshot.Epoch
		mu.Unlock()

		if changed {
			a.Orchestrator.Clear()
		}
	}
}

// Start connects the wallet and authenticates it, restoring the stored credential when it is still usable.
func (a *App) Start(ctx context.Context) error {
	a.Auth.Start(ctx)
	if err := a.Wallet.Connect(ctx); err != nil {
		return fmt.Errorf("connecting wallet: %w", err)
	}
	if err := a.Auth.Authenticate(ctx); err != nil {
		return fmt.Errorf("authenticating wallet: %w", err)
	}
	if err := a.RefreshCredential(ctx); err != nil {
		log.Ctx(ctx).Warnf("keeping the restored credential: %v", err)
	}
	return nil
}

// RefreshCredential rotates the stored credential when it expires within CredentialRefreshLeeway. On failure the
// current credential stays in place until the gateway rejects it.
func (a *App) RefreshCredential(ctx context.Context) error {
	if !a.Auth.IsAuthenticated() {
		return nil
	}
	if err := a.Auth.RefreshIfExpiring(ctx, CredentialRefreshLeeway); err != nil {
		return fmt.Errorf("refreshing credential: %w", err)
	}
	return nil
}

// Close stops the background work and releases the token database. It is safe to call more than once.
func (a *App) Close(ctx context.Context) {
	a.closeOnce.Do(func() {
		a.unsubscribe()
		a.Orchestrator.Close()
		a.Auth.Close()
		if a.metricsServer != nil {
			shutdownMetricsServer(ctx, a.metricsServer)
		}
		a.Tracker.Flush()
		utils.DeferredClose(ctx, a.dbConnectionPool, "closing token database")
	})
}
