package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/kroma-network/kroma-ccip-gateway/internal/config"
	"github.com/kroma-network/kroma-ccip-gateway/internal/gateway"
	"github.com/kroma-network/kroma-ccip-gateway/internal/transport"
)

func main() {
	app := cli.NewApp()
	app.Name = "kroma-ccip-gateway"
	app.Usage = "CCIP-Read gateway serving storage proofs"
	app.Version = "0.1.0"
	app.Flags = config.AllFlags()
	app.Action = serve
	if err := app.Run(os.Args); err != nil {
		log.Fatalln(fmt.Errorf("failed to start kroma ccip gateway: %w", err))
	}
}

func serve(ctx *cli.Context) error {
	cfg := config.FromContext(ctx)
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	g, err := gateway.New(context.Background(), cfg, logger)
	if err != nil {
		return err
	}

	srv := http.Server{
		Addr:              net.JoinHostPort(cfg.HTTPAddr, strconv.Itoa(cfg.HTTPPort)),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout(),
		Handler:           newRouter(g, cfg, logger),
	}
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("prefix", cfg.Prefix))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	interruptChannel := make(chan os.Signal, 1)
	signal.Notify(interruptChannel, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	<-interruptChannel

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to shut down http server", zap.Error(err))
	}
	g.Close(shutdownCtx)
	return nil
}

func newRouter(g *gateway.Gateway, cfg *config.Config, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(transport.RequestID)
	r.Use(transport.AccessLog(logger.Named("http")))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(g.Health(ctx))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/*", transport.NewHTTPHandler(g.App, g.Tracker, cfg.HandlerTimeout, logger))
	return r
}
