package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/pithomlabs/cb2docs/config"
	"github.com/pithomlabs/cb2docs/llm"
	"github.com/pithomlabs/cb2docs/services"
	"github.com/pithomlabs/cb2docs/workflow"
	restate "github.com/restatedev/sdk-go"
	"github.com/restatedev/sdk-go/server"
)

func main() {
	configPath := flag.String("config", "cb2docs.toml", "Path to TOML config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.LLM.APIKey == "" {
		logger.Error("OPENROUTER_API_KEY environment variable is required")
		os.Exit(1)
	}

	tutorial := workflow.TutorialWorkflow{
		NewCompleter: func() (llm.Completer, error) {
			return llm.NewClient(llm.Config{
				APIKey:            cfg.LLM.APIKey,
				Model:             cfg.LLM.Model,
				RequestsPerMinute: cfg.LLM.RequestsPerMinute,
				MaxAttempts:       cfg.LLM.MaxAttempts,
			})
		},
		Options: workflow.Options{
			StrictCoverage: cfg.Output.StrictCoverage,
			MaxAttempts:    cfg.LLM.MaxAttempts,
			DocsRoot:       cfg.Output.DocsRoot,
		},
	}

	// Bind() returns *Restate for chaining, not an error
	srv := server.NewRestate().
		Bind(restate.Reflect(services.FileCollectorService{})).
		Bind(restate.Reflect(services.FileWriterService{})).
		Bind(restate.Reflect(tutorial))

	logger.Info("starting Restate server",
		"addr", cfg.Server.ListenAddr,
		"services", []string{"FileCollector", "FileWriter"},
		"workflows", []string{"TutorialWorkflow"},
		"model", cfg.LLM.Model,
	)

	if err := srv.Start(context.Background(), cfg.Server.ListenAddr); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
