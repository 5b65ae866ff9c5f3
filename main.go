package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	oshttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"secureentry/internal/clock"
	"secureentry/internal/commands"
	"secureentry/internal/config"
	"secureentry/internal/display"
	"secureentry/internal/http"
	"secureentry/internal/presenter"
	"secureentry/internal/rotating"
	"secureentry/internal/storage"
	"secureentry/internal/symbology"
	"secureentry/internal/totp"
)

func run(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("secureentry", flag.ContinueOnError)
	setToken := flags.String("set-token", "", "Token to show on a running server")
	clearToken := flags.Bool("clear-token", false, "Clear the token of a running server")
	syncClock := flags.Bool("sync", false, "Force a clock sync on a running server")
	syncHost := flags.String("sync-host", "", "NTP host for -sync (defaults to the server's NTP_HOST)")
	token := flags.String("token", "", "Token to show on startup")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cliMode := *setToken != "" || *clearToken || *syncClock
	cfg, err := config.Load(cliMode)
	if err != nil {
		return err
	}

	level, _ := cfg.Level()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	switch {
	case *setToken != "":
		return commands.SetToken(*setToken, cfg)
	case *clearToken:
		return commands.ClearToken(cfg)
	case *syncClock:
		return commands.Sync(*syncHost, cfg)
	}

	bbStorage, err := storage.NewBboltStorage(cfg.DBFile, []byte(cfg.StoreSecret))
	if err != nil {
		return err
	}
	defer func() { _ = bbStorage.Close() }()

	clk := clock.New(clock.Config{
		Source:       clock.NewNTPSource(cfg.NTPTimeout, cfg.NTPRetries),
		Store:        bbStorage,
		Host:         cfg.NTPHost,
		MaxOffsetAge: cfg.OffsetMaxAge,
		Timeout:      cfg.SyncTimeout(),
	})
	if cfg.ForceSync {
		clk.Sync(true, "", nil)
	}

	params, err := cfg.TOTPParams()
	if err != nil {
		return err
	}
	generator, err := totp.New(params)
	if err != nil {
		return err
	}

	placeholder, err := symbology.Placeholder(cfg.BarcodeSize, max(cfg.BarcodeSize/4, 1))
	if err != nil {
		return err
	}

	hub := display.NewHub(clk)
	p := presenter.New(presenter.Config{
		Renderer:     symbology.NewCachedRenderer(ctx, symbology.NewPNGRenderer(cfg.BarcodeSize), cfg.ImageCacheTTL),
		Composer:     rotating.NewComposer(clk, generator, generator),
		Clock:        clk,
		Subtitle:     cfg.Subtitle,
		ErrorMessage: cfg.ErrorMessage,
		Placeholder:  &placeholder,
		StateCallback: func(s presenter.State) {
			hub.Publish(presenter.Describe(s))
		},
	})
	defer p.Close()

	if *token != "" {
		p.SetToken(*token)
	}

	adminServer := http.NewAdminServer(p, clk, cfg.AdminAddr)
	apiServer := http.NewAPIServer(p, clk, hub, cfg.APIAddr)

	g, gCtx := errgroup.WithContext(ctx)

	// Start Admin Server
	g.Go(func() error {
		err := adminServer.Start()
		if err != nil && err != oshttp.ErrServerClosed {
			return fmt.Errorf("admin server: %w", err)
		}
		return nil
	})

	// Start API Server
	g.Go(func() error {
		err := apiServer.Start()
		if err != nil && err != oshttp.ErrServerClosed {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	// Wait for context cancellation (signal)
	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("Shutting down servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("Admin server shutdown error", "error", err)
		}
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("API server shutdown error", "error", err)
		}
		return nil
	})

	return g.Wait()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, flag.ErrHelp) {
		slog.Error("Application error", "error", err)
		os.Exit(1)
	}
}
