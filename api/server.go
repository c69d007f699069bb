package api

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"auctiond/adapters/authz"
	"auctiond/adapters/funds"
	"auctiond/adapters/journal"
	"auctiond/adapters/sse"
	"auctiond/ledger"
)

// FundsBackend is the value-transfer capability plus the on/off-ramp the
// account endpoints expose.
type FundsBackend interface {
	ledger.ValueTransfer
	Deposit(ctx context.Context, address string, amount uint64) error
	Balance(ctx context.Context, address string) (uint64, error)
}

// memoryFunds adapts the in-memory book to the backend interface.
type memoryFunds struct{ *funds.Book }

func (m memoryFunds) Deposit(ctx context.Context, address string, amount uint64) error {
	return m.Book.Deposit(address, amount)
}

func (m memoryFunds) Balance(ctx context.Context, address string) (uint64, error) {
	return m.Book.Balance(address), nil
}

// assetInfo is the fixed asset metadata the server is configured with.
type assetInfo uint8

func (a assetInfo) Decimals() uint8 { return uint8(a) }

type ServerImpl struct {
	ledger     *ledger.Ledger
	funds      FundsBackend
	sseManager sse.IConnectionManager[ledger.Event]
	journal    *journal.Writer
	verifier   *authz.TokenVerifier
	db         *gorm.DB

	config ServerConfig
}

func NewServer(config ServerConfig) (*ServerImpl, error) {
	const op = "NewServer"

	// Funds backend and journal: PostgreSQL when configured, in-memory
	// otherwise.
	var (
		db            *gorm.DB
		fundsBackend  FundsBackend
		journalWriter *journal.Writer
	)
	if config.DB.Enabled() {
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s",
			config.DB.User, config.DB.Password, config.DB.Host, config.DB.Port, config.DB.Database, config.DB.Schema)
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			TranslateError: true,
			NamingStrategy: schema.NamingStrategy{
				TablePrefix: config.DB.Schema + ".",
			},
		})
		if err != nil {
			return nil, fmt.Errorf("[%s] Fail to connect to database, err=%w", op, err)
		}
		store, err := funds.NewStore(db)
		if err != nil {
			return nil, fmt.Errorf("[%s] Fail to create funds store, err=%w", op, err)
		}
		fundsBackend = store
		journalWriter, err = journal.NewWriter(db, slog.Default())
		if err != nil {
			return nil, fmt.Errorf("[%s] Fail to create journal writer, err=%w", op, err)
		}
	} else {
		fundsBackend = memoryFunds{funds.NewBook()}
	}

	// SSE fan-out of ledger observations.
	sseManager, err := sse.NewConnectionManager[ledger.Event](
		sse.WithLogger[ledger.Event](slog.Default()),
	)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create sse connection manager, err=%w", op, err)
	}
	sinks := ledger.Sinks{eventFanout(sseManager)}
	if journalWriter != nil {
		sinks = append(sinks, journalWriter)
	}

	opts := []ledger.Option{ledger.WithSink(sinks)}
	if config.Auction.AssetDecimals > 0 {
		opts = append(opts, ledger.WithAssetMetadata(assetInfo(config.Auction.AssetDecimals)))
	}
	if config.Auction.MinBidIncrement > 0 {
		opts = append(opts, ledger.WithMinBidIncrement(config.Auction.MinBidIncrement))
	}
	auctionLedger, err := ledger.New(fundsBackend, authz.NewStaticOperator(config.Operator), opts...)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create ledger, err=%w", op, err)
	}

	return &ServerImpl{
		ledger:     auctionLedger,
		funds:      fundsBackend,
		sseManager: sseManager,
		journal:    journalWriter,
		verifier:   authz.NewTokenVerifier(config.Auth.PrivateKey, config.Auth.Issuer),
		db:         db,
		config:     config,
	}, nil
}

// eventFanout routes each observation to the SSE channel of every auction it
// concerns.
func eventFanout(manager sse.IConnectionManager[ledger.Event]) ledger.Sink {
	return ledger.SinkFunc(func(ev ledger.Event) {
		ids := ev.Settled
		if ev.AuctionID != 0 {
			ids = []uint64{ev.AuctionID}
		}
		for _, id := range ids {
			if err := manager.Publish(strconv.FormatUint(id, 10), ev); err != nil {
				slog.Warn("Fail to publish event", slog.Uint64("auctionID", id), slog.Any("error", err))
			}
		}
	})
}

func (impl *ServerImpl) Start() {
	impl.sseManager.Start()
	if impl.journal != nil {
		impl.journal.Start()
	}
}

func (impl *ServerImpl) Close() {
	if impl.journal != nil {
		impl.journal.Close()
	}
	impl.sseManager.Done()
}

// Ledger exposes the underlying state machine, mainly for tests and tooling.
func (impl *ServerImpl) Ledger() *ledger.Ledger { return impl.ledger }

// IssueToken signs a bearer token for the given caller address. Tokens are
// distributed out of band; there is no self-service endpoint.
func (impl *ServerImpl) IssueToken(caller string) (string, error) {
	return impl.verifier.Issue(caller, impl.config.Auth.TokenTTL)
}

// RegisterRoutes attaches every handler to the router.
func (impl *ServerImpl) RegisterRoutes(router *gin.Engine) {
	auctions := router.Group("/auctions")
	{
		auctions.POST("", impl.PostAuction)
		auctions.GET("/current", impl.GetCurrentAuction)
		auctions.GET("/next", impl.GetNextAuction)
		auctions.GET("/past", impl.GetPastAuctions)
		auctions.GET("/upcoming", impl.GetUpcomingAuctions)
		auctions.GET("/:id", impl.GetAuction)
		auctions.DELETE("/:id", impl.DeleteAuction)
		auctions.POST("/:id/bids", impl.PostBid)
		auctions.GET("/:id/events", impl.GetAuctionEvents)
	}
	router.POST("/withdrawals", impl.PostWithdrawal)
	router.PATCH("/settings/min-increment", impl.PatchMinIncrement)
	accounts := router.Group("/accounts")
	{
		accounts.GET("/:address", impl.GetAccount)
		accounts.POST("/:address/deposits", impl.PostDeposit)
	}
}
