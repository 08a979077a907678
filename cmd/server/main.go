package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/shapes-interaction/internal/config"
	"github.com/DoyleJ11/shapes-interaction/internal/httpapi"
	"github.com/DoyleJ11/shapes-interaction/internal/hub"
	"github.com/DoyleJ11/shapes-interaction/internal/lobby"
	"github.com/DoyleJ11/shapes-interaction/internal/pairing"
	"github.com/DoyleJ11/shapes-interaction/internal/random"
	"github.com/DoyleJ11/shapes-interaction/internal/results"
	"github.com/DoyleJ11/shapes-interaction/internal/trials"
	"github.com/DoyleJ11/shapes-interaction/internal/ws"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// a missing .env is fine; the environment and flags still apply
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	cfg := &config.Config{}

	cmd := &cobra.Command{
		Use:           "shapes-server",
		Short:         "Pairs participants and runs the director/matcher shapes experiment over websockets.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cfg.Flags(cmd.Flags())

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		// flags are parsed by now, so only unset ones take the environment
		envErr := config.ApplyEnv(cmd.Flags())
		if err := multierr.Append(envErr, cfg.Validate()); err != nil {
			return err
		}
		return run(cmd.Context(), cfg)
	}

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openStore(cfg *config.Config) (results.Store, error) {
	switch {
	case cfg.DatabaseURL != "":
		return results.OpenPostgres(cfg.DatabaseURL)
	case cfg.SQLitePath != "":
		return results.OpenSQLite(cfg.SQLitePath)
	default:
		return nil, nil
	}
}

func run(ctx context.Context, cfg *config.Config) (err error) {
	log, err := newLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	rng, err := random.New()
	if err != nil {
		return err
	}

	opts := []lobby.Option{lobby.WithLogger(log.Named("lobby")), lobby.WithRand(rng)}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		rec := results.NewRecorder(store, cfg.ResultsQueue, log.Named("results"))
		opts = append(opts, lobby.WithRecorder(rec))
		defer func() {
			err = multierr.Append(err, rec.Close())
			if dropped := rec.Dropped(); dropped > 0 {
				log.Warn("outcomes dropped", zap.Int64("count", dropped))
			}
		}()
	}

	h := hub.NewHub(ctx, log.Named("hub"))
	former := pairing.NewFormer(trials.NewGenerator(cfg.Vocabulary(), cfg.Params()), cfg.Vocabulary(), cfg.Pairing())
	l := lobby.NewLobby(ctx, lobby.Config{
		Timeout:       cfg.Timeout,
		SweepInterval: cfg.SweepInterval,
		BreakTrials:   cfg.BreakTrials,
	}, former, h, opts...)

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: httpapi.SetupRoutes(l, h, ws.Options{
			ReadTimeout:    cfg.ReadTimeout,
			WriteTimeout:   cfg.WriteTimeout,
			OriginPatterns: cfg.OriginPatterns,
		}, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// both loops also stop on their own when ctx is cancelled
		select {
		case l.Inbox() <- lobby.Shutdown{}:
		case <-l.Done():
		}
		select {
		case <-l.Done():
		case <-shutdownCtx.Done():
		}
		select {
		case h.Inbox() <- hub.ShutdownHub{}:
		case <-h.Done():
		}
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
