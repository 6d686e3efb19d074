// Command server runs the Chess of Cards game server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/chessofcards/internal/auth"
	"github.com/jason-s-yu/chessofcards/internal/config"
	"github.com/jason-s-yu/chessofcards/internal/lobby"
	"github.com/jason-s-yu/chessofcards/internal/match"
	"github.com/jason-s-yu/chessofcards/internal/server"
	"github.com/jason-s-yu/chessofcards/internal/store"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	seatTokenTTL    = 24 * time.Hour
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	log := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
	log.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	entry := logrus.NewEntry(log)
	mem := store.NewMemory()
	var live store.Live = mem
	var archive store.Archive = mem

	if cfg.RedisURL != "" {
		r, err := store.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer r.Close()
		live = r
		log.Info("Using Redis for live games")
	}
	if cfg.DatabaseURL != "" {
		p, err := store.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer p.Close()
		archive = p
		log.Info("Using Postgres for finished games")
	}

	lb := lobby.New(lobby.Config{
		Match: match.Config{
			DisconnectGrace: cfg.DisconnectGrace,
			Live:            live,
			Archive:         archive,
			Logger:          entry,
		},
	})
	srv := server.New(lb, auth.NewSeats(cfg.JWTSecret, seatTokenTTL), server.Options{
		PublicURL:      cfg.PublicURL,
		AllowedOrigins: cfg.AllowedOrigins,
	}, entry)

	if n, err := lb.Resume(ctx, live); err != nil {
		log.WithError(err).Warn("Could not resume parked games")
	} else if n > 0 {
		log.WithField("count", n).Info("Resumed parked games")
	}

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.RegisterRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", httpSrv.Addr).Info("Listening")
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		// Park matches first so their final snapshots land before the
		// store connections close.
		if err := lb.Shutdown(sctx); err != nil {
			log.WithError(err).Warn("Matches did not park cleanly")
		}
		return httpSrv.Shutdown(sctx)
	})
	return g.Wait()
}
