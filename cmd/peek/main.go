package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/peek/internal/balloon"
	"github.com/csheth/peek/internal/config"
	"github.com/csheth/peek/internal/document"
	"github.com/csheth/peek/internal/history"
	"github.com/csheth/peek/internal/logging"
	"github.com/csheth/peek/internal/reader"
	"github.com/csheth/peek/internal/translate"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default "+config.DefaultPath()+")")
	provider := flag.String("provider", "", "translation backend: ollama or openai")
	model := flag.String("model", "", "override the backend model")
	endpoint := flag.String("endpoint", "", "custom backend URL (eg. http://localhost:11434)")
	target := flag.String("target", "", "language to translate into")
	logPath := flag.String("log", "", "write the debug log here instead of the configured path")
	noAltScreen := flag.Bool("no-alt-screen", false, "disable the alternate screen buffer")
	writeConfig := flag.Bool("write-config", false, "write the effective config to -config and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [file or URL]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Println("config:", err)
		os.Exit(1)
	}
	applyFlags(cfg, *provider, *model, *endpoint, *target, *logPath)
	if err := cfg.Validate(); err != nil {
		fmt.Println("config:", err)
		os.Exit(1)
	}

	if *writeConfig {
		path := *configPath
		if path == "" {
			path = config.DefaultPath()
		}
		if err := config.Save(cfg, path); err != nil {
			fmt.Println("config:", err)
			os.Exit(1)
		}
		fmt.Println("wrote", path)
		return
	}

	if err := logging.Init(cfg.Log.Path, cfg.Log.Level); err != nil {
		fmt.Println("logging disabled:", err)
	}
	defer logging.Close()
	logger := logging.Logger

	client, err := translate.NewFromConfig(translate.Config{
		Provider:       cfg.Translate.Provider,
		Model:          cfg.Translate.Model,
		Endpoint:       cfg.Translate.Endpoint,
		APIKey:         cfg.Translate.APIKey(),
		TargetLanguage: cfg.Translate.TargetLanguage,
		RatePerSecond:  cfg.Translate.RatePerSecond,
	})
	if err != nil {
		fmt.Println("translation disabled:", err)
		logger.Warn("translation disabled", "err", err)
		client = nil
	}
	if client != nil && cfg.Cache.Enabled {
		cache, err := translate.OpenCache(cfg.Cache.Path, cfg.Cache.TTL)
		if err != nil {
			logger.Warn("translation cache disabled", "path", cfg.Cache.Path, "err", err)
		} else {
			defer cache.Close()
			client = translate.NewCached(client, cache, logger.WithPrefix("cache"))
		}
	}

	store, err := history.Open(cfg.History.Path, cfg.History.Limit)
	if err != nil {
		logger.Warn("history unreadable, starting empty", "path", cfg.History.Path, "err", err)
		store, _ = history.Open("", cfg.History.Limit)
	}

	opts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if !*noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(
		reader.New(reader.Config{
			Source:  strings.TrimSpace(flag.Arg(0)),
			Loader:  &document.Loader{Logger: logger.WithPrefix("document")},
			Client:  client,
			History: store,
			Limits: balloon.Limits{
				MinWidth:  cfg.Balloon.MinWidth,
				MinHeight: cfg.Balloon.MinHeight,
				MaxSize:   cfg.Balloon.MaxSize,
			},
			PinMargin:    cfg.Balloon.PinMargin,
			QueryTimeout: cfg.Translate.Timeout,
			Logger:       logger,
		}),
		opts...,
	)

	if _, err := program.Run(); err != nil {
		logger.Error("program error", "err", err)
		fmt.Println("program error:", err)
		os.Exit(1)
	}
}

// applyFlags lets command line flags win over the file and environment.
func applyFlags(cfg *config.Config, provider, model, endpoint, target, logPath string) {
	if provider != "" {
		cfg.Translate.Provider = provider
	}
	if model != "" {
		cfg.Translate.Model = model
	}
	if endpoint != "" {
		cfg.Translate.Endpoint = endpoint
	}
	if target != "" {
		cfg.Translate.TargetLanguage = target
	}
	if logPath != "" {
		cfg.Log.Path = logPath
	}
}
