// Package httpapi serves a ledger.Ledger over HTTP/JSON.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Amr-9/powfaucet/pkg/generator/solana"
	"github.com/Amr-9/powfaucet/pkg/ledger"
)

// Config tunes the server.
type Config struct {
	// TransactionsPerSecond limits SendTransaction; excess calls get 429.
	// Zero disables the limit.
	TransactionsPerSecond float64
	Burst                 int
	// MaxAirdrop caps one airdrop request. Zero disables airdrops.
	MaxAirdrop uint64
}

// DefaultConfig is what ledgerd uses without overrides.
func DefaultConfig() Config {
	return Config{
		TransactionsPerSecond: 50,
		Burst:                 100,
		MaxAirdrop:            5 * ledger.LamportsPerSOL,
	}
}

// Server exposes a ledger.
type Server struct {
	e       *echo.Echo
	ledger  ledger.Ledger
	cfg     Config
	limiter *rate.Limiter
	logger  zerolog.Logger
	txs     *prometheus.CounterVec
}

// GenesisResponse is the body of GET /v1/genesis.
type GenesisResponse struct {
	GenesisHash string `json:"genesis_hash"`
}

// BalanceResponse is the body of GET /v1/accounts/:address/balance.
type BalanceResponse struct {
	Lamports uint64 `json:"lamports"`
}

// SignatureResponse is returned by transaction and airdrop submissions.
type SignatureResponse struct {
	Signature string `json:"signature"`
}

// AirdropRequest is the body of POST /v1/airdrop.
type AirdropRequest struct {
	Address  solana.PublicKey `json:"address"`
	Lamports uint64           `json:"lamports"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string            `json:"error"`
	Rejection *ledger.Rejection `json:"rejection,omitempty"`
}

// New builds the server and registers its metrics with reg, which may be nil.
func New(l ledger.Ledger, cfg Config, logger zerolog.Logger, reg prometheus.Registerer, gatherer prometheus.Gatherer) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		e:      e,
		ledger: l,
		cfg:    cfg,
		logger: logger.With().Str("component", "httpapi").Logger(),
		txs: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "powfaucet",
			Subsystem: "ledger",
			Name:      "transactions_total",
			Help:      "Submitted transactions by result.",
		}, []string{"result"}),
	}
	if cfg.TransactionsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.TransactionsPerSecond), burst)
	}

	e.GET("/v1/genesis", s.genesisHandler)
	e.GET("/v1/accounts", s.accountsByOwnerHandler)
	e.GET("/v1/accounts/:address", s.accountHandler)
	e.GET("/v1/accounts/:address/balance", s.balanceHandler)
	e.POST("/v1/transactions", s.sendTransactionHandler)
	e.POST("/v1/airdrop", s.airdropHandler)
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.logger.Info().Str("addr", addr).Msg("ledger API listening")

	go func() {
		<-ctx.Done()
		s.logger.Info().Msg("ledger API shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.e.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("ledger API shutdown")
		}
	}()

	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrapf(err, "serve %s", addr)
	}
	return nil
}

func (s *Server) genesisHandler(c echo.Context) error {
	hash, err := s.ledger.GenesisHash(c.Request().Context())
	if err != nil {
		return s.internalError(c, err)
	}
	return c.JSON(http.StatusOK, GenesisResponse{GenesisHash: hash})
}

func (s *Server) accountHandler(c echo.Context) error {
	addr, err := solana.PublicKeyFromBase58(c.Param("address"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	acc, err := s.ledger.GetAccount(c.Request().Context(), addr)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	}
	if err != nil {
		return s.internalError(c, err)
	}
	return c.JSON(http.StatusOK, acc)
}

func (s *Server) balanceHandler(c echo.Context) error {
	addr, err := solana.PublicKeyFromBase58(c.Param("address"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	balance, err := s.ledger.GetBalance(c.Request().Context(), addr)
	if err != nil {
		return s.internalError(c, err)
	}
	return c.JSON(http.StatusOK, BalanceResponse{Lamports: balance})
}

func (s *Server) accountsByOwnerHandler(c echo.Context) error {
	owner, err := solana.PublicKeyFromBase58(c.QueryParam("owner"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "owner: " + err.Error()})
	}
	accounts, err := s.ledger.AccountsByOwner(c.Request().Context(), owner)
	if err != nil {
		return s.internalError(c, err)
	}
	if accounts == nil {
		accounts = []*ledger.Account{}
	}
	return c.JSON(http.StatusOK, accounts)
}

func (s *Server) sendTransactionHandler(c echo.Context) error {
	if s.limiter != nil && !s.limiter.Allow() {
		s.txs.WithLabelValues(ledger.CodeCongested.String()).Inc()
		rej := &ledger.Rejection{Code: ledger.CodeCongested, Instruction: -1, Message: "rate limit exceeded"}
		return c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: rej.Error(), Rejection: rej})
	}

	var tx ledger.Transaction
	if err := c.Bind(&tx); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid transaction: " + err.Error()})
	}

	sig, err := s.ledger.SendTransaction(c.Request().Context(), &tx)
	if rej, ok := ledger.AsRejection(err); ok {
		s.txs.WithLabelValues(rej.Code.String()).Inc()
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: rej.Error(), Rejection: rej})
	}
	if err != nil {
		return s.internalError(c, err)
	}

	s.txs.WithLabelValues("committed").Inc()
	return c.JSON(http.StatusOK, SignatureResponse{Signature: sig})
}

func (s *Server) airdropHandler(c echo.Context) error {
	var req AirdropRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid airdrop request: " + err.Error()})
	}
	if req.Lamports == 0 || req.Lamports > s.cfg.MaxAirdrop {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "airdrop amount out of range"})
	}

	sig, err := s.ledger.RequestAirdrop(c.Request().Context(), req.Address, req.Lamports)
	if err != nil {
		return s.internalError(c, err)
	}
	return c.JSON(http.StatusOK, SignatureResponse{Signature: sig})
}

func (s *Server) internalError(c echo.Context, err error) error {
	s.logger.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}

// ServeMetrics serves only GET /metrics on addr until ctx is cancelled.
func ServeMetrics(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger zerolog.Logger) error {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("serving metrics")
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrapf(err, "serve metrics on %s", addr)
	}
	return nil
}
