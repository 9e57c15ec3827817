package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/sandeepkv93/teemo/internal/config"
	"github.com/sandeepkv93/teemo/internal/logging"
	"github.com/sandeepkv93/teemo/internal/notify"
	"github.com/sandeepkv93/teemo/internal/scheduler"
	"github.com/sandeepkv93/teemo/internal/session"
	"github.com/sandeepkv93/teemo/internal/storage"
	"github.com/sandeepkv93/teemo/internal/update"
	"golang.org/x/term"
)

func main() {
	if err := run(); err != nil {
		red := color.New(color.FgRed)
		red.Fprintf(os.Stderr, "teemo failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a TOML or YAML config file")
	dataPath := flag.String("data", "", "database file (sqlite) or directory (file backend)")
	flag.Parse()

	cfg, err := loadConfig(*configPath, *dataPath)
	if err != nil {
		return err
	}

	logOut, err := logging.OpenFile(cfg.LogPath())
	if err != nil {
		return err
	}
	defer logOut.Close()
	logger, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: logOut,
	})
	if err != nil {
		return err
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("stdout is not a terminal")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer cancel()

	kv, err := openBackend(cfg)
	if err != nil {
		return err
	}
	store, err := storage.Open(ctx, kv, storage.Options{Logger: logger})
	if err != nil {
		_ = kv.Close()
		return err
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Error("close store", "err", err)
		}
	}()

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.DesktopNotifications {
		notifier = notify.Multi{notifier, notify.NewDesktop()}
	}

	svc := session.New(store, session.Options{
		Notifier: notifier,
		Logger:   logger,
	})

	var engine *scheduler.Engine
	if cfg.DueAlerts {
		engine = scheduler.NewEngine(cfg.DueAlertBuffer)
		engine.Start()
		defer engine.Stop()
	}

	logger.Info("starting", "backend", cfg.StoreBackend, "data_path", cfg.DataPath, "due_alerts", cfg.DueAlerts)
	model := update.NewModel(svc, update.Options{
		Context:        ctx,
		Scheduler:      engine,
		Notifier:       notifier,
		Logger:         logger,
		DesktopEnabled: cfg.DesktopNotifications,
		DueAlerts:      cfg.DueAlerts,
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	logger.Info("stopped")
	return nil
}

func loadConfig(path, dataPath string) (config.RuntimeConfig, error) {
	cfg := config.DefaultRuntimeConfig()
	if path != "" {
		var err error
		cfg, err = config.LoadFile(path, cfg)
		if err != nil {
			return cfg, err
		}
	}
	cfg = config.RuntimeConfigFromEnv(cfg)
	if dataPath != "" {
		cfg.DataPath = dataPath
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func openBackend(cfg config.RuntimeConfig) (storage.KV, error) {
	switch cfg.StoreBackend {
	case config.BackendFile:
		return storage.OpenFileKV(cfg.DataPath)
	case config.BackendMemory:
		return storage.NewMemoryKV(), nil
	default:
		return storage.OpenSQLite(cfg.DataPath, cfg.SQLiteDriver)
	}
}
