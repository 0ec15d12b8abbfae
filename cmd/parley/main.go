package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/parley-llm/parley/config"
	"github.com/parley-llm/parley/conversations"
	"github.com/parley-llm/parley/llm"
	parleylogger "github.com/parley-llm/parley/logger"
	"github.com/parley-llm/parley/migrations"
	"github.com/parley-llm/parley/notify"
	"github.com/parley-llm/parley/orchestrate"
	"github.com/parley-llm/parley/prompt"
	"github.com/parley-llm/parley/retry"
	"github.com/parley-llm/parley/transcribe"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Parse command-line flags
	var (
		configPath     = flag.String("config", "", "Path to config file. Defaults to ~/.parley/config.yaml")
		dbPath         = flag.String("db", "", "Path to SQLite database file. Defaults to the configured store path")
		logFile        = flag.String("logfile", "", "Path to log file. If not set, logs to stdout/stderr")
		pretty         = flag.Bool("pretty", false, "Use pretty console output (only valid when logfile is not set)")
		promptText     = flag.String("prompt", "", "Prompt text to complete")
		audioPath      = flag.String("audio", "", "Path to an audio file to transcribe and complete")
		conversationID = flag.String("conversation", "", "Conversation ID to continue")
		scopeID        = flag.String("scope", "default", "Scope the conversation belongs to")
		systemPrompt   = flag.String("system", "", "System prompt for a new conversation")
	)
	flag.Parse()

	if *logFile != "" && *pretty {
		return fmt.Errorf("--logfile and --pretty are mutually exclusive")
	}
	if *promptText == "" && *audioPath == "" {
		return fmt.Errorf("one of --prompt or --audio is required")
	}
	if *promptText != "" && *audioPath != "" {
		return fmt.Errorf("--prompt and --audio are mutually exclusive")
	}

	logger, err := parleylogger.InitWithOptions(*logFile, *pretty)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Load configuration
	path := *configPath
	if path == "" {
		path = config.GetConfigPath()
	}
	appConfig, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info().Str("config", path).Msg("Loaded configuration")

	storePath := appConfig.Store.Path
	if *dbPath != "" {
		storePath = *dbPath
	}

	// ---------------------------
	// 1. Open SQLite + Conversation Store
	// ---------------------------

	if err := os.MkdirAll(filepath.Dir(storePath), 0o750); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	logger.Info().Str("path", storePath).Msg("Initializing conversation store")
	db, err := sql.Open("sqlite3", storePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close() //nolint:errcheck // No remedy for db close errors

	if err := migrations.RunMigrations(db, "./migrations", logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	store := conversations.NewSQLStore(db)

	// ---------------------------
	// 2. Resolve Provider + Build Clients
	// ---------------------------

	registry := llm.NewProviderRegistry(appConfig.ProviderConfig(), appConfig.LLMProviders)
	key, err := registry.Resolve(preferences(appConfig.LLMProviders))
	if err != nil {
		return err
	}
	logger.Info().Str("provider", key.Provider).Str("model", key.Model).Msg("Resolved completion provider")

	completionClient, transcriber, err := buildClients(appConfig, key, logger)
	if err != nil {
		return err
	}

	// ---------------------------
	// 3. Wire Orchestrators + Facade
	// ---------------------------

	executor := retry.New(logger).WithPolicy(
		appConfig.Retry.MaxAttempts,
		time.Duration(appConfig.Retry.DelaySeconds)*time.Second,
	)

	var notifier notify.Notifier = notify.NewLog(logger)
	if appConfig.Notify.Desktop {
		notifier = notify.NewDesktop(logger)
	}

	completion := orchestrate.NewCompletion(completionClient, store, executor, key.Model, logger)
	adapter := transcribe.NewAdapter(transcriber, executor, notifier, logger)
	service := prompt.NewService(completion, adapter, notifier, logger)

	// ---------------------------
	// 4. Run the Prompt
	// ---------------------------

	ctx := context.Background()
	input, cleanup, err := buildPrompt(*promptText, *audioPath)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := service.Complete(ctx, *scopeID, input, &orchestrate.CompletionOptions{
		ConversationID: *conversationID,
		SystemPrompt:   *systemPrompt,
	})
	if err != nil {
		return err
	}

	if result.Transcript != "" {
		fmt.Printf("Transcript: %s\n\n", result.Transcript)
	}
	fmt.Println(result.Text)
	fmt.Printf("\nConversation: %s\n", result.ConversationID)
	return nil
}

// preferences turns the configured provider order into registry
// preferences.
func preferences(providers []string) []llm.Preference {
	prefs := make([]llm.Preference, 0, len(providers))
	for _, p := range providers {
		prefs = append(prefs, llm.Preference{Provider: p})
	}
	return prefs
}

// buildClients creates the completion client for the resolved provider
// and, when OpenAI is configured, a transcriber.
func buildClients(cfg *config.Config, key *llm.ClientKey, logger zerolog.Logger) (llm.CompletionClient, llm.Transcriber, error) {
	var completionClient llm.CompletionClient
	var err error

	switch key.Provider {
	case llm.ProviderAnthropic:
		completionClient, err = config.NewAnthropicClient(cfg, logger)
	case llm.ProviderOllama:
		completionClient, err = config.NewOllamaClient(cfg)
	case llm.ProviderOpenAI:
		completionClient, err = config.NewOpenAIClient(cfg)
	default:
		err = fmt.Errorf("unknown provider: %s", key.Provider)
	}
	if err != nil {
		return nil, nil, err
	}

	// Transcription is OpenAI-only. Leave it unwired when OpenAI has no
	// credentials; audio prompts will fail with a configuration error.
	var transcriber llm.Transcriber
	if apiKey, _, _, _ := config.LoadOpenAIConfig(cfg); apiKey != "" {
		client, err := config.NewOpenAIClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		transcriber = client
	}

	return completionClient, transcriber, nil
}

// buildPrompt constructs the prompt variant from the flags. The cleanup
// function closes any opened audio file.
func buildPrompt(promptText, audioPath string) (prompt.Prompt, func(), error) {
	if audioPath == "" {
		return prompt.TextPrompt{Text: promptText}, func() {}, nil
	}

	file, err := os.Open(audioPath) //#nosec 304 -- user-specified audio file
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close() //nolint:errcheck // Cleanup on error
		return nil, nil, fmt.Errorf("failed to stat audio file: %w", err)
	}

	mediaType := mime.TypeByExtension(filepath.Ext(audioPath))
	if !strings.HasPrefix(mediaType, "audio/") {
		mediaType = "audio/mpeg"
	}

	return prompt.AudioPrompt{
		Reader:    file,
		FileName:  filepath.Base(audioPath),
		MediaType: mediaType,
		Length:    info.Size(),
	}, func() { _ = file.Close() }, nil
}
