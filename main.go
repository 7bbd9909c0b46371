package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/nhle/adsdash/internal/api"
	"github.com/nhle/adsdash/internal/app"
	"github.com/nhle/adsdash/internal/auth"
	"github.com/nhle/adsdash/internal/credential"
	"github.com/nhle/adsdash/internal/dashboard"
	"github.com/nhle/adsdash/internal/google"
	"github.com/nhle/adsdash/internal/metrics"
	"github.com/nhle/adsdash/internal/model"
	"github.com/nhle/adsdash/internal/session"
	"github.com/nhle/adsdash/internal/store"
	appsync "github.com/nhle/adsdash/internal/sync"
)

// keepSnapshots bounds the result cache.
const keepSnapshots = 50

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "adsdash:", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfg, err := model.LoadConfig(model.DefaultConfigPath())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(model.ConfigDir(), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	logFile, err := tea.LogToFile(cfg.Log.File, "adsdash")
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()
	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: cfg.LogLevel()})))

	vault, err := credential.Open(model.ConfigDir())
	if err != nil {
		return err
	}
	sessions := session.Open(vault)

	collector := metrics.New()
	client := api.NewClient(cfg.API.BaseURL, sessions,
		api.WithTimeout(cfg.Timeout()),
		api.WithMaxRetries(cfg.API.MaxRetries),
		api.WithObserver(collector),
	)

	authStore := auth.NewStore(sessions, client)
	authStore.InitializeAuth()

	connector := google.NewConnector(client, sessions, nil, google.RedirectURI(cfg.OAuth.CallbackPort))
	var callbacks <-chan error
	if cfg.OAuth.CallbackPort > 0 {
		cb := google.NewCallbackServer(connector, cfg.OAuth.CallbackPort)
		if err := cb.Start(); err != nil {
			slog.Warn("oauth callback listener disabled", "err", err)
		} else {
			callbacks = cb.Results()
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = cb.Shutdown(ctx)
			}()
		}
	}

	cache, err := store.NewSQLiteStore(cfg.Cache.Path)
	if err != nil {
		return err
	}
	defer cache.Close()
	if err := cache.PruneSnapshots(context.Background(), keepSnapshots); err != nil {
		slog.Warn("pruning result cache", "err", err)
	}

	state := dashboard.NewState(client, cfg.TaskInterval())
	poller := appsync.NewTaskPoller(state, cache, collector)
	watcher := appsync.NewConnectionWatcher(connector, cfg.GoogleCheckInterval())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if addr := cfg.Metrics.ListenAddr; addr != "" {
		go func() {
			if err := collector.Serve(ctx, addr); err != nil {
				slog.Error("metrics listener stopped", "err", err)
			}
		}()
	}

	root := app.New(app.Deps{
		Config:    cfg,
		Sessions:  sessions,
		Auth:      authStore,
		Backend:   client,
		Google:    connector,
		State:     state,
		Poller:    poller,
		Watcher:   watcher,
		Cache:     cache,
		Callbacks: callbacks,
	})

	p := tea.NewProgram(root, tea.WithAltScreen())
	client.SetSessionExpiredHook(func(err error) {
		go p.Send(app.SessionExpiredMsg{Err: err})
	})

	slog.Info("starting", "api", client.BaseURL())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}
