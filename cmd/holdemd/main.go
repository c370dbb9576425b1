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

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/cardroomlabs/holdemd/internal/cache"
	"github.com/cardroomlabs/holdemd/internal/directory"
	"github.com/cardroomlabs/holdemd/internal/server"
	"github.com/cardroomlabs/holdemd/internal/table"
)

var CLI struct {
	Config                  string `short:"c" help:"Path to HCL configuration file"`
	ListenPort              int    `env:"LISTEN_PORT" default:"8080" help:"Port for the WebSocket and admin API listener"`
	CacheHost               string `env:"CACHE_HOST" default:"127.0.0.1" help:"Cache server host"`
	CachePort               int    `env:"CACHE_PORT" default:"6379" help:"Cache server port"`
	CacheDB                 int    `env:"CACHE_DB" default:"0" help:"Cache database number"`
	DirectoryURL            string `env:"DIRECTORY_URL" default:"http://127.0.0.1:8000" help:"Directory service base URL"`
	ReconnectGraceMs        int    `env:"RECONNECT_GRACE_MS" default:"60000" help:"Reconnection grace before a seat is forfeited"`
	DefaultActionTimeoutSec int    `env:"DEFAULT_ACTION_TIMEOUT_SEC" default:"30" help:"Action timeout when the table config has none"`
	AuthTokenSecret         string `env:"AUTH_TOKEN_SECRET" help:"HMAC secret for test-mode tokens"`
	Mode                    string `env:"MODE" default:"prod" enum:"prod,test" help:"prod verifies tokens with the directory; test verifies locally"`
	LogLevel                string `short:"l" env:"LOG_LEVEL" default:"info" help:"Log level"`
}

func main() {
	ctx := kong.Parse(&CLI)

	fileCfg, err := server.LoadConfigFile(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		ctx.Exit(1)
	}
	applyFileConfig(fileCfg)

	logger := log.New(os.Stderr)
	switch CLI.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	logger.Info("starting holdemd",
		"port", CLI.ListenPort,
		"mode", CLI.Mode,
		"directory", CLI.DirectoryURL)

	store := cache.NewRedis(fmt.Sprintf("%s:%d", CLI.CacheHost, CLI.CachePort), CLI.CacheDB)
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := store.Ping(pingCtx); err != nil {
		cancel()
		logger.Error("cache unreachable", "err", err)
		ctx.Exit(1)
	}
	cancel()

	var dir directory.Client
	if CLI.Mode == "test" {
		logger.Warn("test mode: tokens verified locally, wallets in memory")
		dir = directory.NewLocal(CLI.AuthTokenSecret, 10000)
	} else {
		dir = directory.NewHTTP(CLI.DirectoryURL, logger.WithPrefix("directory"))
	}

	gateway := server.NewGateway(dir, logger)
	tables := table.NewManager(table.Options{
		ReconnectGrace:       time.Duration(CLI.ReconnectGraceMs) * time.Millisecond,
		DefaultActionTimeout: time.Duration(CLI.DefaultActionTimeoutSec) * time.Second,
	}, store, dir, gateway, quartz.NewReal(), logger.WithPrefix("table"))
	gateway.SetTables(tables)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", CLI.ListenPort),
		Handler: gateway.Router(),
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		logger.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		gateway.CloseAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server failed", "err", err)
		ctx.Exit(1)
	}
	_ = store.Close()
}

// applyFileConfig fills settings from the HCL file for anything not
// set through the environment or flags
func applyFileConfig(cfg *server.FileConfig) {
	if cfg.Server != nil {
		s := cfg.Server
		if s.Port != 0 && os.Getenv("LISTEN_PORT") == "" {
			CLI.ListenPort = s.Port
		}
		if s.LogLevel != "" && os.Getenv("LOG_LEVEL") == "" {
			CLI.LogLevel = s.LogLevel
		}
		if s.Mode != "" && os.Getenv("MODE") == "" {
			CLI.Mode = s.Mode
		}
		if s.DirectoryURL != "" && os.Getenv("DIRECTORY_URL") == "" {
			CLI.DirectoryURL = s.DirectoryURL
		}
		if s.AuthTokenSecret != "" && os.Getenv("AUTH_TOKEN_SECRET") == "" {
			CLI.AuthTokenSecret = s.AuthTokenSecret
		}
		if s.ReconnectGraceMs != 0 && os.Getenv("RECONNECT_GRACE_MS") == "" {
			CLI.ReconnectGraceMs = s.ReconnectGraceMs
		}
		if s.ActionTimeoutSeconds != 0 && os.Getenv("DEFAULT_ACTION_TIMEOUT_SEC") == "" {
			CLI.DefaultActionTimeoutSec = s.ActionTimeoutSeconds
		}
	}
	if cfg.Cache != nil {
		if cfg.Cache.Host != "" && os.Getenv("CACHE_HOST") == "" {
			CLI.CacheHost = cfg.Cache.Host
		}
		if cfg.Cache.Port != 0 && os.Getenv("CACHE_PORT") == "" {
			CLI.CachePort = cfg.Cache.Port
		}
		if cfg.Cache.DB != 0 && os.Getenv("CACHE_DB") == "" {
			CLI.CacheDB = cfg.Cache.DB
		}
	}
}
