package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattjoyce/codex-bridge/internal/api"
	"github.com/mattjoyce/codex-bridge/internal/bridge"
	"github.com/mattjoyce/codex-bridge/internal/cache"
	"github.com/mattjoyce/codex-bridge/internal/config"
	"github.com/mattjoyce/codex-bridge/internal/doctor"
	"github.com/mattjoyce/codex-bridge/internal/engine"
	"github.com/mattjoyce/codex-bridge/internal/history"
	"github.com/mattjoyce/codex-bridge/internal/invoke"
	"github.com/mattjoyce/codex-bridge/internal/log"
	"github.com/mattjoyce/codex-bridge/internal/tui/watch"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "serve":
		os.Exit(runServe(args))
	case "doctor":
		os.Exit(runDoctor(args))
	case "watch":
		os.Exit(runWatch(args))
	case "version":
		fmt.Printf("codex-bridge version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`codex-bridge - Delegate coding tasks to the OpenAI Codex CLI

Usage:
  codex-bridge <command> [flags]

Commands:
  serve     Start the bridge service in the foreground
  doctor    Validate configuration and the local Codex installation
  watch     Live terminal monitor for a running bridge
  version   Show version information
  help      Show this help message

Flags:
  serve   --config PATH
  doctor  --config PATH [--json]
  watch   --api-url URL --api-key KEY
`)
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	path := *configPath
	if path == "" {
		path = config.DiscoverConfigPath()
	}

	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("codex-bridge starting", "version", version, "config", path)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rc := cache.New(cfg.Cache.TTL, cfg.Cache.MaxEntries)
	inv := invoke.New(cfg.Codex.Binary, cfg.Codex.GracePeriod)
	eng := engine.New()

	var store *history.Store
	if cfg.History.Path != "" {
		db, err := history.OpenSQLite(ctx, cfg.History.Path)
		if err != nil {
			logger.Error("failed to open history database", "path", cfg.History.Path, "error", err)
			return 1
		}
		defer db.Close()
		store = history.NewStore(db)
		logger.Info("history database opened", "path", cfg.History.Path)
	}

	br := bridge.New(eng, rc, inv, recorderOrNil(store), cfg.Codex.AllowWrite, cfg.Codex.DefaultTimeout)

	if !cfg.API.Enabled {
		logger.Error("nothing to serve: api.enabled is false")
		return 1
	}

	apiServer := api.New(api.Config{
		Listen: cfg.API.Listen,
		APIKey: cfg.API.Auth.APIKey,
	}, br, rc, historyOrNil(store), log.WithComponent("api"))

	logger.Info("codex-bridge running (press Ctrl+C to stop)",
		"listen", cfg.API.Listen,
		"cache_ttl", cfg.Cache.TTL.String(),
		"cache_max_entries", cfg.Cache.MaxEntries,
		"allow_write", cfg.Codex.AllowWrite,
	)

	if err := apiServer.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("api server failed", "error", err)
		return 1
	}

	logger.Info("codex-bridge stopped")
	return 0
}

// recorderOrNil avoids wrapping a nil *history.Store in a non-nil
// interface value, which would defeat the bridge's nil check.
func recorderOrNil(store *history.Store) bridge.Recorder {
	if store == nil {
		return nil
	}
	return store
}

func historyOrNil(store *history.Store) api.HistoryReader {
	if store == nil {
		return nil
	}
	return store
}

func runDoctor(args []string) int {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	jsonOut := fs.Bool("json", false, "Output in JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	path := *configPath
	if path == "" {
		path = config.DiscoverConfigPath()
	}

	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load error: %v\n", err)
		return 1
	}

	result := doctor.New(cfg).Validate()

	if *jsonOut {
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "JSON format error: %v\n", err)
			return 1
		}
		fmt.Println(out)
	} else {
		fmt.Print(doctor.FormatHuman(result))
	}

	if !result.Valid {
		return 1
	}
	return 0
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	apiURL := fs.String("api-url", "http://127.0.0.1:8080", "Base URL of a running bridge")
	apiKey := fs.String("api-key", os.Getenv("CODEX_BRIDGE_API_KEY"), "API key for authenticated endpoints")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	p := tea.NewProgram(watch.New(*apiURL, *apiKey))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Watch failed: %v\n", err)
		return 1
	}
	return 0
}
