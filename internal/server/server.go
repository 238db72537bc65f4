package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"artmarket/broker/internal/identity"
	"artmarket/broker/internal/ledger"
	"artmarket/broker/internal/market"
	"artmarket/broker/internal/receipt"
	"artmarket/broker/internal/swap"
)

// Server is the JSON request layer over the coordinator. It maps the broker's
// error kinds to HTTP statuses and otherwise stays out of the protocol's way.
type Server struct {
	coord  *market.Coordinator
	log    zerolog.Logger
	router *gin.Engine
}

func New(coord *market.Coordinator, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		coord:  coord,
		log:    log.With().Str("component", "server").Logger(),
		router: gin.New(),
	}
	s.router.Use(gin.Recovery())
	s.routes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, listen string) error {
	srv := &http.Server{Addr: listen, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info().Str("listen", listen).Msg("broker api up")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, identity.ErrUnknownParticipant),
		errors.Is(err, ledger.ErrAssetNotFound),
		errors.Is(err, market.ErrBidNotFound),
		errors.Is(err, receipt.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, receipt.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, swap.ErrPartialAward),
		errors.Is(err, swap.ErrSwapFailed),
		errors.Is(err, ledger.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}

	var partial *swap.PartialAwardError
	if errors.As(err, &partial) {
		body["transfer_tx_id"] = partial.TransferTxID
	}
	if status >= 500 {
		s.log.Error().Err(err).Int("status", status).Msg("request failed")
	}
	c.JSON(status, body)
}
